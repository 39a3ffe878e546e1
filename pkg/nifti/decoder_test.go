package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"niftiview/internal/models"
)

// sequentialVolume builds an nx*ny*nz volume holding 0, 1, 2, ... in storage order
func sequentialVolume(t *testing.T, nx, ny, nz int) *models.Volume {
	t.Helper()
	data := make([]float64, nx*ny*nz)
	for i := range data {
		data[i] = float64(i)
	}
	vol, err := models.NewVolume(models.Dims{NX: nx, NY: ny, NZ: nz},
		models.Spacing{X: 0.5, Y: 0.75, Z: 2}, models.TypedSamples[float64](data))
	if err != nil {
		t.Fatalf("Failed to build volume: %v", err)
	}
	return vol
}

// encodeVolume serialises vol and fails the test on error
func encodeVolume(t *testing.T, vol *models.Volume, opts EncodeOptions) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, vol, opts); err != nil {
		t.Fatalf("Failed to encode volume: %v", err)
	}
	return buf.Bytes()
}

func assertSequential(t *testing.T, vol *models.Volume, n int) {
	t.Helper()
	if vol.Samples.Len() != n {
		t.Fatalf("Expected %d samples, got %d", n, vol.Samples.Len())
	}
	for i := 0; i < n; i++ {
		if got := vol.Samples.At(i); got != float64(i) {
			t.Fatalf("Expected sample %d to be %d, got %f", i, i, got)
		}
	}
}

// TestDecodeDatatypes verifies every supported element type decodes to the same values
func TestDecodeDatatypes(t *testing.T) {
	src := sequentialVolume(t, 4, 4, 2)

	for _, dt := range []int16{DTUint8, DTInt8, DTInt16, DTUint16, DTInt32, DTUint32, DTFloat32, DTFloat64} {
		data := encodeVolume(t, src, EncodeOptions{Datatype: dt})

		vol, err := Decode(data)
		if err != nil {
			t.Fatalf("Datatype %d: decode failed: %v", dt, err)
		}

		if vol.Dims != src.Dims {
			t.Errorf("Datatype %d: expected dims %s, got %s", dt, src.Dims, vol.Dims)
		}
		if vol.Datatype != dt {
			t.Errorf("Expected datatype %d, got %d", dt, vol.Datatype)
		}
		assertSequential(t, vol, 32)
	}
}

// TestDecodeGeometry verifies spacing and description come from the header
func TestDecodeGeometry(t *testing.T) {
	src := sequentialVolume(t, 3, 2, 5)
	data := encodeVolume(t, src, EncodeOptions{Datatype: DTInt16, Description: "phantom"})

	vol, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if vol.Spacing != src.Spacing {
		t.Errorf("Expected spacing %+v, got %+v", src.Spacing, vol.Spacing)
	}
	if vol.Description != "phantom" {
		t.Errorf("Expected description %q, got %q", "phantom", vol.Description)
	}
	if got := vol.At(2, 1, 4); got != float64(2+1*3+4*6) {
		t.Errorf("Expected voxel (2,1,4) to be %d, got %f", 2+1*3+4*6, got)
	}
}

// TestDecodeZeroSpacing verifies missing pixdim values default to 1mm
func TestDecodeZeroSpacing(t *testing.T) {
	src := sequentialVolume(t, 2, 2, 2)
	src.Spacing = models.Spacing{}
	vol, err := Decode(encodeVolume(t, src, EncodeOptions{}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if vol.Spacing != (models.Spacing{X: 1, Y: 1, Z: 1}) {
		t.Errorf("Expected unit spacing, got %+v", vol.Spacing)
	}
}

// TestDecodeBigEndian verifies the byte order is detected from sizeof_hdr
func TestDecodeBigEndian(t *testing.T) {
	src := sequentialVolume(t, 4, 4, 2)
	data := encodeVolume(t, src, EncodeOptions{Datatype: DTInt16, Order: binary.BigEndian})

	vol, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	assertSequential(t, vol, 32)
}

// TestDecodeCompressed verifies gzip input by magic probe and by name hint
func TestDecodeCompressed(t *testing.T) {
	src := sequentialVolume(t, 4, 4, 2)
	data := encodeVolume(t, src, EncodeOptions{Datatype: DTInt16, Compress: true})

	vol, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode of gzip input failed: %v", err)
	}
	assertSequential(t, vol, 32)

	vol, err = DecodeNamed("scan.nii.gz", data)
	if err != nil {
		t.Fatalf("DecodeNamed of gzip input failed: %v", err)
	}
	assertSequential(t, vol, 32)

	raw := encodeVolume(t, src, EncodeOptions{Datatype: DTInt16})
	vol, err = DecodeNamed("scan.nii", raw)
	if err != nil {
		t.Fatalf("DecodeNamed of raw input failed: %v", err)
	}
	assertSequential(t, vol, 32)
}

// TestDecodeRejectsBadInput checks the error taxonomy for malformed input
func TestDecodeRejectsBadInput(t *testing.T) {
	src := sequentialVolume(t, 16, 16, 8)
	raw := encodeVolume(t, src, EncodeOptions{Datatype: DTInt16})
	gz := encodeVolume(t, src, EncodeOptions{Datatype: DTInt16, Compress: true})

	badMagic := bytes.Clone(raw)
	copy(badMagic[magicOffset:], "xxxx")

	corrupt := bytes.Clone(gz)
	for i := len(corrupt) / 2; i < len(corrupt)/2+16; i++ {
		corrupt[i] ^= 0xff
	}

	pair := bytes.Clone(raw)
	copy(pair[magicOffset:], magicPair[:])

	nifti2 := make([]byte, 600)
	binary.LittleEndian.PutUint32(nifti2, nifti2Size)
	copy(nifti2[4:], magicN2)

	badDims := bytes.Clone(raw)
	binary.LittleEndian.PutUint16(badDims[40:], 9)

	tests := []struct {
		name string
		file string
		data []byte
		want error
	}{
		{"empty", "", nil, ErrFormat},
		{"bad magic", "", badMagic, ErrFormat},
		{"truncated header", "", raw[:200], ErrFormat},
		{"truncated payload", "", raw[:len(raw)-10], ErrFormat},
		{"bad dim count", "", badDims, ErrFormat},
		{"corrupt gzip", "", corrupt, ErrDecompression},
		{"raw data named gz", "scan.nii.gz", raw, ErrDecompression},
		{"header only pair", "", pair, ErrUnsupportedLayout},
		{"nifti-2", "", nifti2, ErrUnsupportedLayout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			vol, err := DecodeNamed(tc.file, tc.data)
			if vol != nil {
				t.Errorf("Expected no volume on failure, got %+v", vol.Dims)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("Expected %v, got %v", tc.want, err)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("Expected *DecodeError, got %T", err)
			}
		})
	}
}

// TestDecodeUnknownDatatypeFallsBackToFloat32 covers the lenient datatype policy
func TestDecodeUnknownDatatypeFallsBackToFloat32(t *testing.T) {
	src := sequentialVolume(t, 4, 4, 2)
	data := encodeVolume(t, src, EncodeOptions{Datatype: DTFloat32})
	binary.LittleEndian.PutUint16(data[70:], 1234)

	vol, err := Decode(data)
	if err != nil {
		t.Fatalf("Expected lenient decode, got error: %v", err)
	}
	if vol.Datatype != 1234 {
		t.Errorf("Expected the header datatype to be kept, got %d", vol.Datatype)
	}
	assertSequential(t, vol, 32)
}

// TestDecodeScaling verifies scl_slope/scl_inter are applied on read
func TestDecodeScaling(t *testing.T) {
	src := sequentialVolume(t, 4, 4, 2)
	data := encodeVolume(t, src, EncodeOptions{Datatype: DTInt16})
	binary.LittleEndian.PutUint32(data[112:], math.Float32bits(2))
	binary.LittleEndian.PutUint32(data[116:], math.Float32bits(-1024))

	vol, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	for i := 0; i < 32; i++ {
		want := float64(i)*2 - 1024
		if got := vol.Samples.At(i); got != want {
			t.Fatalf("Expected scaled sample %d to be %f, got %f", i, want, got)
		}
	}

	vol, err = Decode(data, WithoutScaling())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	assertSequential(t, vol, 32)
}

// TestDecodeFirstVolumeOfSeries verifies 4D inputs decode their first 3D volume
func TestDecodeFirstVolumeOfSeries(t *testing.T) {
	src := sequentialVolume(t, 4, 4, 2)
	data := encodeVolume(t, src, EncodeOptions{Datatype: DTUint8})
	binary.LittleEndian.PutUint16(data[40:], 4)
	binary.LittleEndian.PutUint16(data[48:], 3)
	data = append(data, make([]byte, 64)...)

	vol, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if vol.Dims != src.Dims {
		t.Errorf("Expected dims %s, got %s", src.Dims, vol.Dims)
	}
	assertSequential(t, vol, 32)
}
