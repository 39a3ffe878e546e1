package nifti

import (
	"bytes"
	"encoding/binary"
	"strings"
)

const (
	headerSize  = 348
	nifti2Size  = 540
	magicOffset = 344

	// minVoxOffset is the first byte after the header and the 4-byte extension flag
	minVoxOffset = 352
)

// Datatype codes from the NIfTI-1 header.
const (
	DTUint8   int16 = 2
	DTInt16   int16 = 4
	DTInt32   int16 = 8
	DTFloat32 int16 = 16
	DTFloat64 int16 = 64
	DTInt8    int16 = 256
	DTUint16  int16 = 512
	DTUint32  int16 = 768
)

var (
	magicSingle = [4]byte{'n', '+', '1', 0}
	magicPair   = [4]byte{'n', 'i', '1', 0}
	magicN2     = []byte("n+2\x00")
	magicN2Pair = []byte("ni2\x00")
)

// Header mirrors the 348-byte NIfTI-1 header field for field.
// encoding/binary reads it without padding, so field order is the on-disk order.
type Header struct {
	SizeofHdr     int32
	DataType      [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XYZTUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	TOffset       float32
	GLMax         int32
	GLMin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// Description returns the descrip field without trailing NULs
func (h *Header) Description() string {
	return strings.TrimRight(string(h.Descrip[:]), "\x00 ")
}

// byteOrder works out the header endianness from sizeof_hdr, which must read as 348.
func byteOrder(data []byte) (binary.ByteOrder, bool) {
	switch {
	case int32(binary.LittleEndian.Uint32(data)) == headerSize:
		return binary.LittleEndian, true
	case int32(binary.BigEndian.Uint32(data)) == headerSize:
		return binary.BigEndian, true
	}
	return nil, false
}

func isNIfTI2(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	if bytes.Equal(data[4:8], magicN2) || bytes.Equal(data[4:8], magicN2Pair) {
		return true
	}
	le := int32(binary.LittleEndian.Uint32(data))
	be := int32(binary.BigEndian.Uint32(data))
	return le == nifti2Size || be == nifti2Size
}

// parseHeader validates the signature and reads the fixed-size header.
func parseHeader(data []byte) (*Header, binary.ByteOrder, error) {
	if isNIfTI2(data) {
		return nil, nil, &DecodeError{Kind: ErrUnsupportedLayout, Op: "header", Err: errNIfTI2}
	}
	if len(data) < headerSize {
		return nil, nil, formatError("header", "truncated header: %d of %d bytes", len(data), headerSize)
	}

	var magic [4]byte
	copy(magic[:], data[magicOffset:magicOffset+4])
	if magic != magicSingle && magic != magicPair {
		return nil, nil, formatError("header", "bad magic %q", magic[:])
	}

	order, ok := byteOrder(data)
	if !ok {
		return nil, nil, formatError("header", "sizeof_hdr is not %d in either byte order", headerSize)
	}

	h := &Header{}
	if err := binary.Read(bytes.NewReader(data[:headerSize]), order, h); err != nil {
		return nil, nil, formatError("header", "read header: %w", err)
	}

	if h.Magic == magicPair {
		return nil, nil, &DecodeError{Kind: ErrUnsupportedLayout, Op: "header", Err: errHeaderOnly}
	}

	return h, order, nil
}
