// Package slicer cuts 2D cross-sections out of a flattened 3D volume along the
// three orthogonal anatomical planes.
package slicer

import (
	"errors"
	"fmt"
	"strings"

	"niftiview/internal/models"
)

// ErrIndexOutOfRange is returned when a slice index falls outside the plane's slice count
var ErrIndexOutOfRange = errors.New("slice index out of range")

// Plane selects a slicing direction
type Plane int

const (
	// Axial slices are XY planes stacked along Z
	Axial Plane = iota
	// Sagittal slices are YZ planes stacked along X
	Sagittal
	// Coronal slices are XZ planes stacked along Y
	Coronal
)

// Planes lists every plane in display order
var Planes = []Plane{Axial, Sagittal, Coronal}

func (p Plane) String() string {
	switch p {
	case Axial:
		return "Axial"
	case Sagittal:
		return "Sagittal"
	case Coronal:
		return "Coronal"
	}
	return fmt.Sprintf("Plane(%d)", int(p))
}

// ParsePlane accepts a plane name or the matching axis letter (z, x, y)
func ParsePlane(s string) (Plane, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "axial", "z":
		return Axial, nil
	case "sagittal", "x":
		return Sagittal, nil
	case "coronal", "y":
		return Coronal, nil
	}
	return 0, fmt.Errorf("invalid plane: %q (must be axial, sagittal or coronal)", s)
}

// stride describes how an output raster walks the flattened volume:
// offset = index*step + u*du + v*dv for output pixel (u, v).
type stride struct {
	width, height int
	count         int
	step          int
	du, dv        int
}

func (p Plane) stride(d models.Dims) (stride, bool) {
	plane := d.NX * d.NY
	switch p {
	case Axial:
		return stride{width: d.NX, height: d.NY, count: d.NZ, step: plane, du: 1, dv: d.NX}, true
	case Sagittal:
		return stride{width: d.NY, height: d.NZ, count: d.NX, step: 1, du: d.NX, dv: plane}, true
	case Coronal:
		return stride{width: d.NX, height: d.NZ, count: d.NY, step: d.NX, du: 1, dv: plane}, true
	}
	return stride{}, false
}

// SliceCount returns the number of slices along the plane's orthogonal axis,
// or 0 for an unknown plane.
func SliceCount(d models.Dims, p Plane) int {
	s, _ := p.stride(d)
	return s.count
}

// Shape returns the output raster width and height for the plane
func Shape(d models.Dims, p Plane) (width, height int) {
	s, _ := p.stride(d)
	return s.width, s.height
}

// Extract copies slice index of the given plane into a new raster. It only
// reads the volume and allocates a single raster-sized buffer, so concurrent
// calls are safe.
func Extract(vol *models.Volume, p Plane, index int) (*models.Raster, error) {
	s, ok := p.stride(vol.Dims)
	if !ok {
		return nil, fmt.Errorf("invalid plane: %v", p)
	}
	if index < 0 || index >= s.count {
		return nil, fmt.Errorf("%v slice %d of %d: %w", p, index, s.count, ErrIndexOutOfRange)
	}

	r := models.NewRaster(s.width, s.height)
	base := index * s.step
	i := 0
	for v := 0; v < s.height; v++ {
		row := base + v*s.dv
		for u := 0; u < s.width; u++ {
			r.Data[i] = vol.Samples.At(row + u*s.du)
			i++
		}
	}
	return r, nil
}
