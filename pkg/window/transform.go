// Package window maps physical intensities (e.g. Hounsfield units) to 8-bit
// display luminance with a linear window/level transform.
package window

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"niftiview/internal/models"
)

// MinWidth is the narrowest window accepted; narrower widths are clamped to it.
const MinWidth = 1.0

// ErrInvalidWindow reports a non-positive or non-finite width. Normalize
// corrects it instead of returning it; Validate surfaces it for callers that
// want to reject such input.
var ErrInvalidWindow = errors.New("invalid window")

// Setting is a window center/width pair in the volume's intensity units
type Setting struct {
	Center float64 `yaml:"center"`
	Width  float64 `yaml:"width"`
}

func (s Setting) String() string {
	return fmt.Sprintf("C%g/W%g", s.Center, s.Width)
}

// Bounds returns the intensities mapped to 0 and 255
func (s Setting) Bounds() (lo, hi float64) {
	return s.Center - s.Width/2, s.Center + s.Width/2
}

// Validate reports whether the setting defines a usable transform
func (s Setting) Validate() error {
	if math.IsNaN(s.Center) || math.IsInf(s.Center, 0) {
		return fmt.Errorf("%w: center %v", ErrInvalidWindow, s.Center)
	}
	if !(s.Width > 0) || math.IsInf(s.Width, 0) {
		return fmt.Errorf("%w: width %v must be positive", ErrInvalidWindow, s.Width)
	}
	return nil
}

// Normalize clamps the width to at least minWidth (MinWidth when minWidth <= 0)
// and replaces a non-finite center with 0.
func (s Setting) Normalize(minWidth float64) Setting {
	if !(minWidth > 0) {
		minWidth = MinWidth
	}
	if math.IsNaN(s.Center) || math.IsInf(s.Center, 0) {
		s.Center = 0
	}
	if !(s.Width >= minWidth) || math.IsInf(s.Width, 0) {
		s.Width = minWidth
	}
	return s
}

// Apply windows a raster into 8-bit luminance. The setting is normalized first.
//
//	v <= center-width/2 -> 0
//	v >= center+width/2 -> 255
//	otherwise           -> trunc((v-lo)/width*255)
func Apply(r *models.Raster, s Setting) []byte {
	out := make([]byte, len(r.Data))
	applyRange(out, r.Data, s.Normalize(MinWidth))
	return out
}

// ApplyParallel is Apply split into row bands processed by up to workers
// goroutines. Each band writes a disjoint part of the output.
func ApplyParallel(r *models.Raster, s Setting, workers int) []byte {
	out := make([]byte, len(r.Data))
	s = s.Normalize(MinWidth)

	if workers < 2 || r.Height < 2 {
		applyRange(out, r.Data, s)
		return out
	}
	workers = min(workers, r.Height)

	rowsPer := (r.Height + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < r.Height; y0 += rowsPer {
		lo := y0 * r.Width
		hi := min(y0+rowsPer, r.Height) * r.Width
		g.Go(func() error {
			applyRange(out[lo:hi], r.Data[lo:hi], s)
			return nil
		})
	}
	// bands never fail
	_ = g.Wait()
	return out
}

func applyRange(dst []byte, src []float64, s Setting) {
	lo, hi := s.Bounds()
	scale := 255 / s.Width
	for i, v := range src {
		dst[i] = level(v, lo, hi, scale)
	}
}

func level(v, lo, hi, scale float64) byte {
	switch {
	case math.IsNaN(v), v <= lo:
		return 0
	case v >= hi:
		return 255
	}
	return byte(min(max((v-lo)*scale, 0), 255))
}
