package window

import (
	"gonum.org/v1/gonum/stat"

	"niftiview/internal/models"
)

// AutoOptions tunes the initial window computed at load time
type AutoOptions struct {
	// SampleLimit is the maximum number of samples averaged
	SampleLimit int

	// Floor excludes padding and air: only samples strictly above it are averaged
	Floor float64

	// Width is paired with the computed center
	Width float64

	// FallbackCenter is used when no sample exceeds Floor
	FallbackCenter float64
}

// DefaultAutoOptions averages the first 100000 samples above -1000 and uses an 800-wide window
func DefaultAutoOptions() AutoOptions {
	return AutoOptions{
		SampleLimit:    100000,
		Floor:          -1000,
		Width:          800,
		FallbackCenter: 40,
	}
}

// Auto computes a starting window whose center is the mean of the first
// SampleLimit samples (in storage order) that lie above Floor.
func Auto(samples models.Samples, opts AutoOptions) Setting {
	if opts.SampleLimit <= 0 {
		opts.SampleLimit = DefaultAutoOptions().SampleLimit
	}
	if !(opts.Width > 0) {
		opts.Width = DefaultAutoOptions().Width
	}

	picked := make([]float64, 0, min(opts.SampleLimit, samples.Len()))
	for i := 0; i < samples.Len() && len(picked) < opts.SampleLimit; i++ {
		if v := samples.At(i); v > opts.Floor {
			picked = append(picked, v)
		}
	}

	center := opts.FallbackCenter
	if len(picked) > 0 {
		center = stat.Mean(picked, nil)
	}
	return Setting{Center: center, Width: opts.Width}
}
