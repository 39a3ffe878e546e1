package nifti

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"niftiview/internal/models"
)

// EncodeOptions controls how Encode lays out a volume
type EncodeOptions struct {
	// Datatype is the on-disk element type; zero means DTFloat32
	Datatype int16

	// Compress wraps the output in a gzip stream (.nii.gz)
	Compress bool

	// Order is the byte order of header and payload; nil means little endian
	Order binary.ByteOrder

	// Description is written to the descrip field, truncated to 79 bytes
	Description string
}

// Encode writes vol as a single-file NIfTI-1 image. Sample values are
// converted to the requested datatype without range checks.
func Encode(w io.Writer, vol *models.Volume, opts EncodeOptions) error {
	if opts.Datatype == 0 {
		opts.Datatype = DTFloat32
	}
	if opts.Order == nil {
		opts.Order = binary.LittleEndian
	}
	size, ok := elementSize(opts.Datatype)
	if !ok {
		return fmt.Errorf("nifti: cannot encode datatype %d", opts.Datatype)
	}

	var gz *gzip.Writer
	if opts.Compress {
		gz = gzip.NewWriter(w)
		w = gz
	}
	bw := bufio.NewWriter(w)

	h := newHeader(vol, opts.Datatype, size, opts.Description)
	if err := binary.Write(bw, opts.Order, h); err != nil {
		return fmt.Errorf("nifti: write header: %w", err)
	}
	// empty extension flag
	if _, err := bw.Write(make([]byte, minVoxOffset-headerSize)); err != nil {
		return fmt.Errorf("nifti: write extension flag: %w", err)
	}
	if err := writeSamples(bw, opts.Order, opts.Datatype, vol.Samples); err != nil {
		return fmt.Errorf("nifti: write voxels: %w", err)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("nifti: flush: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("nifti: close gzip stream: %w", err)
		}
	}
	return nil
}

func newHeader(vol *models.Volume, datatype int16, size int, description string) *Header {
	h := &Header{
		SizeofHdr: headerSize,
		Regular:   'r',
		Datatype:  datatype,
		Bitpix:    int16(size * 8),
		VoxOffset: minVoxOffset,
		SclSlope:  1,
		Magic:     magicSingle,
		XYZTUnits: 2, // mm
	}
	h.Dim = [8]int16{3, int16(vol.Dims.NX), int16(vol.Dims.NY), int16(vol.Dims.NZ), 1, 1, 1, 1}
	h.Pixdim = [8]float32{1, float32(vol.Spacing.X), float32(vol.Spacing.Y), float32(vol.Spacing.Z)}
	copy(h.Descrip[:len(h.Descrip)-1], description)
	return h
}

func writeSamples(w io.Writer, order binary.ByteOrder, datatype int16, s models.Samples) error {
	switch datatype {
	case DTUint8:
		return binary.Write(w, order, convert[uint8](s))
	case DTInt8:
		return binary.Write(w, order, convert[int8](s))
	case DTInt16:
		return binary.Write(w, order, convert[int16](s))
	case DTUint16:
		return binary.Write(w, order, convert[uint16](s))
	case DTInt32:
		return binary.Write(w, order, convert[int32](s))
	case DTUint32:
		return binary.Write(w, order, convert[uint32](s))
	case DTFloat64:
		return binary.Write(w, order, convert[float64](s))
	default:
		return binary.Write(w, order, convert[float32](s))
	}
}

func convert[T models.Scalar](s models.Samples) []T {
	out := make([]T, s.Len())
	for i := range out {
		out[i] = T(s.At(i))
	}
	return out
}
