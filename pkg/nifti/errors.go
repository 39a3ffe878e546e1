package nifti

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat reports a missing or mismatched magic signature or a truncated file
	ErrFormat = errors.New("nifti: invalid format")

	// ErrDecompression reports a corrupt gzip stream
	ErrDecompression = errors.New("nifti: decompression failed")

	// ErrUnsupportedLayout reports a header version or file layout this decoder does not read
	ErrUnsupportedLayout = errors.New("nifti: unsupported layout")
)

// DecodeError is returned for every failed decode. Kind is one of the
// sentinel errors above, so callers can use errors.Is.
type DecodeError struct {
	Kind error
	Op   string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func formatError(op string, format string, args ...any) error {
	return &DecodeError{Kind: ErrFormat, Op: op, Err: fmt.Errorf(format, args...)}
}

var (
	errNIfTI2     = errors.New("NIfTI-2 headers are not supported")
	errHeaderOnly = errors.New("header-only ni1 file: voxel data lives in a separate .img file")
)
