// Package nifti decodes single-file NIfTI-1 volumes (.nii and gzip-compressed
// .nii.gz) into immutable scalar volumes.
//
// The whole input is held in memory: compressed inputs are fully inflated
// before the header is parsed.
package nifti

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"

	"github.com/klauspost/compress/gzip"

	"niftiview/internal/models"
)

var gzipMagic = []byte{0x1f, 0x8b}

type decodeOptions struct {
	scaling bool
}

// Option customises decoding
type Option func(o *decodeOptions)

// WithoutScaling leaves samples as stored, ignoring scl_slope and scl_inter.
func WithoutScaling() Option {
	return func(o *decodeOptions) {
		o.scaling = false
	}
}

// Decode parses a NIfTI-1 byte stream. Gzip input is detected by its magic bytes.
func Decode(data []byte, opts ...Option) (*models.Volume, error) {
	return decode(data, isGzip(data), opts)
}

// DecodeNamed parses a NIfTI-1 byte stream using the file name as a
// compression hint: a ".gz" suffix forces decompression, anything else falls
// back to probing the magic bytes.
func DecodeNamed(name string, data []byte, opts ...Option) (*models.Volume, error) {
	compressed := strings.HasSuffix(strings.ToLower(name), ".gz") || isGzip(data)
	return decode(data, compressed, opts)
}

func isGzip(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

func decode(data []byte, compressed bool, opts []Option) (*models.Volume, error) {
	o := decodeOptions{scaling: true}
	for _, opt := range opts {
		opt(&o)
	}

	if compressed {
		raw, err := inflate(data)
		if err != nil {
			return nil, err
		}
		data = raw
	}

	h, order, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	dims, err := headerDims(h)
	if err != nil {
		return nil, err
	}

	samples, err := readPayload(h, order, data, dims.Voxels())
	if err != nil {
		return nil, err
	}

	if o.scaling && needsScaling(h) {
		samples = models.ScaledSamples{
			Samples:   samples,
			Slope:     float64(h.SclSlope),
			Intercept: float64(h.SclInter),
		}
	}

	vol, err := models.NewVolume(dims, headerSpacing(h), samples)
	if err != nil {
		return nil, formatError("volume", "%w", err)
	}
	vol.Datatype = h.Datatype
	vol.Description = h.Description()

	return vol, nil
}

// inflate fully decompresses a gzip stream into memory
func inflate(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Kind: ErrDecompression, Op: "gzip header", Err: err}
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, &DecodeError{Kind: ErrDecompression, Op: "gzip stream", Err: err}
	}
	return raw, nil
}

// headerDims reads the spatial dimensions. Axes beyond the third (time,
// components) are ignored and only the first 3D volume is decoded.
func headerDims(h *Header) (models.Dims, error) {
	n := int(h.Dim[0])
	if n < 1 || n > 7 {
		return models.Dims{}, formatError("dims", "dim[0]=%d out of range [1,7]", n)
	}

	axis := func(i int) int {
		if i > n {
			return 1
		}
		return int(h.Dim[i])
	}

	dims := models.Dims{NX: axis(1), NY: axis(2), NZ: axis(3)}
	if dims.NX < 1 || dims.NY < 1 || dims.NZ < 1 {
		return models.Dims{}, formatError("dims", "non-positive dimension %s", dims)
	}
	return dims, nil
}

// headerSpacing reads pixdim[1..3]; missing or zero spacing defaults to 1mm.
func headerSpacing(h *Header) models.Spacing {
	mm := func(v float32) float64 {
		f := math.Abs(float64(v))
		if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return 1
		}
		return f
	}
	return models.Spacing{X: mm(h.Pixdim[1]), Y: mm(h.Pixdim[2]), Z: mm(h.Pixdim[3])}
}

func needsScaling(h *Header) bool {
	slope := float64(h.SclSlope)
	inter := float64(h.SclInter)
	if slope == 0 || math.IsNaN(slope) || math.IsInf(slope, 0) {
		return false
	}
	if math.IsNaN(inter) || math.IsInf(inter, 0) {
		return false
	}
	return slope != 1 || inter != 0
}

// elementSize returns the byte width of a datatype code and whether the code
// is recognised. Unknown codes are read as 32-bit floats.
func elementSize(code int16) (int, bool) {
	switch code {
	case DTUint8, DTInt8:
		return 1, true
	case DTInt16, DTUint16:
		return 2, true
	case DTInt32, DTUint32, DTFloat32:
		return 4, true
	case DTFloat64:
		return 8, true
	}
	return 4, false
}

func dataOffset(h *Header) int {
	off := float64(h.VoxOffset)
	if math.IsNaN(off) || off < minVoxOffset {
		return minVoxOffset
	}
	return int(off)
}

func readPayload(h *Header, order binary.ByteOrder, data []byte, n int) (models.Samples, error) {
	size, _ := elementSize(h.Datatype)
	off := dataOffset(h)
	need := n * size
	if off > len(data) || len(data)-off < need {
		return nil, formatError("payload", "truncated voxel data: need %d bytes at offset %d, have %d",
			need, off, max(len(data)-off, 0))
	}
	payload := data[off : off+need]

	var (
		samples models.Samples
		err     error
	)
	switch h.Datatype {
	case DTUint8:
		buf := make([]uint8, n)
		copy(buf, payload)
		samples = models.TypedSamples[uint8](buf)
	case DTInt8:
		samples, err = readSamples[int8](payload, n, order)
	case DTInt16:
		samples, err = readSamples[int16](payload, n, order)
	case DTUint16:
		samples, err = readSamples[uint16](payload, n, order)
	case DTInt32:
		samples, err = readSamples[int32](payload, n, order)
	case DTUint32:
		samples, err = readSamples[uint32](payload, n, order)
	case DTFloat64:
		samples, err = readSamples[float64](payload, n, order)
	default:
		samples, err = readSamples[float32](payload, n, order)
	}
	if err != nil {
		return nil, formatError("payload", "read voxels: %w", err)
	}
	return samples, nil
}

func readSamples[T models.Scalar](payload []byte, n int, order binary.ByteOrder) (models.Samples, error) {
	buf := make([]T, n)
	if err := binary.Read(bytes.NewReader(payload), order, buf); err != nil {
		return nil, err
	}
	return models.TypedSamples[T](buf), nil
}
