package slicer

import (
	"errors"
	"testing"

	"niftiview/internal/models"
)

// createTestVolume builds a volume whose voxels hold their own flattened offset
func createTestVolume(t *testing.T, nx, ny, nz int) *models.Volume {
	t.Helper()
	data := make([]int32, nx*ny*nz)
	for i := range data {
		data[i] = int32(i)
	}
	vol, err := models.NewVolume(models.Dims{NX: nx, NY: ny, NZ: nz},
		models.Spacing{X: 1, Y: 1, Z: 1}, models.TypedSamples[int32](data))
	if err != nil {
		t.Fatalf("Failed to create test volume: %v", err)
	}
	return vol
}

// TestExtractScenario checks the 4x4x2 sequential volume slices by hand
func TestExtractScenario(t *testing.T) {
	vol := createTestVolume(t, 4, 4, 2)

	for k := 0; k < 2; k++ {
		r, err := Extract(vol, Axial, k)
		if err != nil {
			t.Fatalf("Failed to extract axial slice %d: %v", k, err)
		}
		if r.Width != 4 || r.Height != 4 {
			t.Fatalf("Expected 4x4 axial raster, got %dx%d", r.Width, r.Height)
		}
		for i, v := range r.Data {
			if v != float64(16*k+i) {
				t.Errorf("Axial %d: expected pixel %d to be %d, got %f", k, i, 16*k+i, v)
			}
		}
	}

	r, err := Extract(vol, Sagittal, 1)
	if err != nil {
		t.Fatalf("Failed to extract sagittal slice: %v", err)
	}
	if r.Width != 4 || r.Height != 2 {
		t.Fatalf("Expected 4x2 sagittal raster, got %dx%d", r.Width, r.Height)
	}
	want := []float64{1, 5, 9, 13, 17, 21, 25, 29}
	for i := range want {
		if r.Data[i] != want[i] {
			t.Errorf("Sagittal: expected pixel %d to be %f, got %f", i, want[i], r.Data[i])
		}
	}
}

// TestExtractAddressing verifies the per-plane offset formulas for every pixel and index
func TestExtractAddressing(t *testing.T) {
	nx, ny, nz := 5, 3, 4
	vol := createTestVolume(t, nx, ny, nz)

	tests := []struct {
		plane         Plane
		width, height int
		count         int
		offset        func(u, v, k int) int
	}{
		{Axial, nx, ny, nz, func(x, y, k int) int { return x + y*nx + k*nx*ny }},
		{Sagittal, ny, nz, nx, func(y, z, k int) int { return k + y*nx + z*nx*ny }},
		{Coronal, nx, nz, ny, func(x, z, k int) int { return x + k*nx + z*nx*ny }},
	}

	for _, tc := range tests {
		if got := SliceCount(vol.Dims, tc.plane); got != tc.count {
			t.Errorf("%v: expected slice count %d, got %d", tc.plane, tc.count, got)
		}
		w, h := Shape(vol.Dims, tc.plane)
		if w != tc.width || h != tc.height {
			t.Errorf("%v: expected shape %dx%d, got %dx%d", tc.plane, tc.width, tc.height, w, h)
		}

		for k := 0; k < tc.count; k++ {
			r, err := Extract(vol, tc.plane, k)
			if err != nil {
				t.Fatalf("%v: failed to extract slice %d: %v", tc.plane, k, err)
			}
			for v := 0; v < tc.height; v++ {
				for u := 0; u < tc.width; u++ {
					want := float64(tc.offset(u, v, k))
					if got := r.At(u, v); got != want {
						t.Fatalf("%v slice %d: expected (%d,%d) = %f, got %f", tc.plane, k, u, v, want, got)
					}
				}
			}
		}
	}
}

// TestExtractOutOfRange verifies the extractor rejects rather than clamps
func TestExtractOutOfRange(t *testing.T) {
	vol := createTestVolume(t, 4, 3, 2)

	for _, p := range Planes {
		count := SliceCount(vol.Dims, p)
		for _, idx := range []int{-1, count, count + 5} {
			if _, err := Extract(vol, p, idx); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("%v index %d: expected ErrIndexOutOfRange, got %v", p, idx, err)
			}
		}
	}

	if _, err := Extract(vol, Plane(7), 0); err == nil {
		t.Error("Expected error for invalid plane, got nil")
	}
}

// TestParsePlane covers names and axis letters
func TestParsePlane(t *testing.T) {
	cases := map[string]Plane{
		"axial": Axial, "Z": Axial,
		"sagittal": Sagittal, "x": Sagittal,
		"Coronal": Coronal, "y": Coronal,
	}
	for in, want := range cases {
		got, err := ParsePlane(in)
		if err != nil || got != want {
			t.Errorf("ParsePlane(%q): expected %v, got %v (err %v)", in, want, got, err)
		}
	}
	if _, err := ParsePlane("oblique"); err == nil {
		t.Error("Expected error for unknown plane, got nil")
	}
}
