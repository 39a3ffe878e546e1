package models

import (
	"fmt"
	"image"
)

// Raster is a 2D scalar cross-section of a volume, row-major with the first
// output axis fastest.
type Raster struct {
	// Data holds Width*Height samples
	Data []float64

	// Width and Height are the raster dimensions in pixels
	Width  int
	Height int
}

// NewRaster allocates a zeroed raster
func NewRaster(width, height int) *Raster {
	return &Raster{
		Data:   make([]float64, width*height),
		Width:  width,
		Height: height,
	}
}

// At returns the sample at output pixel (x, y)
func (r *Raster) At(x, y int) float64 {
	return r.Data[y*r.Width+x]
}

// Frame is a windowed 8-bit grayscale slice ready for a display surface,
// together with the caption data shown alongside it.
type Frame struct {
	// Pixels holds Width*Height luminance bytes, row-major
	Pixels []byte

	Width  int
	Height int

	// Plane is the name of the plane the slice was cut from
	Plane string

	// Index is the 1-based slice number within the plane
	Index int

	// SliceCount is the number of slices along the plane's axis
	SliceCount int

	// Zoom is the display scale factor requested for this frame
	Zoom float64
}

// Caption renders the overlay text for the frame, e.g. "Axial 12/40"
func (f *Frame) Caption() string {
	return fmt.Sprintf("%s %d/%d", f.Plane, f.Index, f.SliceCount)
}

// Gray wraps the frame pixels in an image.Gray without copying
func (f *Frame) Gray() *image.Gray {
	return &image.Gray{
		Pix:    f.Pixels,
		Stride: f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}
