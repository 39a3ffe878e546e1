package models

import (
	"fmt"
)

// Scalar is the set of storage element types a decoded volume can carry.
type Scalar interface {
	~uint8 | ~int8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~float32 | ~float64
}

// Samples is read-only access to a flattened voxel buffer, independent of the
// storage width of each element.
type Samples interface {
	// Len is the number of voxels in the buffer
	Len() int

	// At returns voxel i as a float64
	At(i int) float64
}

// TypedSamples stores voxels in their native element type.
type TypedSamples[T Scalar] []T

func (s TypedSamples[T]) Len() int { return len(s) }

func (s TypedSamples[T]) At(i int) float64 { return float64(s[i]) }

// ScaledSamples applies a linear intensity mapping (value*Slope + Intercept)
// on read, leaving the stored samples untouched.
type ScaledSamples struct {
	Samples
	Slope     float64
	Intercept float64
}

func (s ScaledSamples) At(i int) float64 {
	return s.Samples.At(i)*s.Slope + s.Intercept
}

// Dims holds the voxel counts along X, Y and Z.
type Dims struct {
	NX, NY, NZ int
}

// Voxels returns nx*ny*nz
func (d Dims) Voxels() int {
	return d.NX * d.NY * d.NZ
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%dx%d", d.NX, d.NY, d.NZ)
}

// Spacing is the physical size of a voxel in mm along each axis.
type Spacing struct {
	X, Y, Z float64
}

// Volume represents a decoded 3D scalar volume.
// Samples are stored X fastest, then Y, then Z: offset = x + y*nx + z*nx*ny.
// A Volume is immutable once built and safe for concurrent readers.
type Volume struct {
	// Dims are the voxel counts per axis
	Dims Dims

	// Spacing is the voxel size in mm
	Spacing Spacing

	// Samples is the flattened voxel buffer
	Samples Samples

	// Datatype is the header datatype code the samples were decoded from
	Datatype int16

	// Description is the free-text header description, if any
	Description string
}

// NewVolume validates the geometry against the sample buffer and builds a Volume.
func NewVolume(dims Dims, spacing Spacing, samples Samples) (*Volume, error) {
	if dims.NX < 1 || dims.NY < 1 || dims.NZ < 1 {
		return nil, fmt.Errorf("invalid dimensions %s: all must be at least 1", dims)
	}
	if samples == nil {
		return nil, fmt.Errorf("volume has no samples")
	}
	if samples.Len() != dims.Voxels() {
		return nil, fmt.Errorf("sample count %d does not match dimensions %s (%d voxels)",
			samples.Len(), dims, dims.Voxels())
	}

	return &Volume{
		Dims:    dims,
		Spacing: spacing,
		Samples: samples,
	}, nil
}

// Offset returns the flattened index of voxel (x, y, z)
func (v *Volume) Offset(x, y, z int) int {
	return x + y*v.Dims.NX + z*v.Dims.NX*v.Dims.NY
}

// At returns the voxel value at (x, y, z)
func (v *Volume) At(x, y, z int) float64 {
	return v.Samples.At(v.Offset(x, y, z))
}
