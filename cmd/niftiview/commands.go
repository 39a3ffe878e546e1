package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"niftiview/internal/models"
	"niftiview/pkg/config"
	"niftiview/pkg/nifti"
	"niftiview/pkg/session"
	"niftiview/pkg/slicer"
	"niftiview/pkg/visualization"
	"niftiview/pkg/window"
)

// viewFlags select the plane and window shared by export and play
type viewFlags struct {
	Plane  string  `short:"p" default:"axial" help:"Plane: axial, sagittal or coronal."`
	Preset string  `help:"Named window preset (soft-tissue, lung, bone, brain, ...)."`
	Center float64 `help:"Explicit window center, used with --width."`
	Width  float64 `help:"Explicit window width; enables --center."`
	Zoom   float64 `default:"1" help:"Display zoom factor."`
}

// apply configures s from the flags. Explicit center/width wins over a preset.
func (f viewFlags) apply(s *session.Session) (slicer.Plane, error) {
	plane, err := slicer.ParsePlane(f.Plane)
	if err != nil {
		return 0, err
	}
	if err := s.SetPlane(plane); err != nil {
		return 0, err
	}
	switch {
	case f.Width != 0:
		s.SetWindow(window.Setting{Center: f.Center, Width: f.Width})
	case f.Preset != "":
		if err := s.SetPreset(f.Preset); err != nil {
			return 0, err
		}
	}
	s.SetZoom(f.Zoom)
	return plane, nil
}

func openSession(rc *runContext, path string, opts ...func(*session.Options)) (*session.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	so := session.OptionsFromConfig(rc.cfg, rc.log)
	for _, o := range opts {
		o(&so)
	}
	s := session.New(so)
	if err := s.LoadNamed(filepath.Base(path), data); err != nil {
		return nil, err
	}
	return s, nil
}

type infoCmd struct {
	File string `arg:"" type:"existingfile" help:"NIfTI-1 file (.nii or .nii.gz)."`
}

func (c *infoCmd) Run(rc *runContext) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.File, err)
	}
	vol, err := nifti.DecodeNamed(c.File, data)
	if err != nil {
		return err
	}

	values := make([]float64, vol.Samples.Len())
	for i := range values {
		values[i] = vol.Samples.At(i)
	}
	mean, std := stat.MeanStdDev(values, nil)
	auto := window.Auto(vol.Samples, rc.cfg.AutoOptions())

	fmt.Println("================================")
	fmt.Printf("File:        %s\n", c.File)
	if vol.Description != "" {
		fmt.Printf("Description: %s\n", vol.Description)
	}
	fmt.Printf("Dimensions:  %s\n", vol.Dims)
	fmt.Printf("Spacing:     %.3f x %.3f x %.3f mm\n", vol.Spacing.X, vol.Spacing.Y, vol.Spacing.Z)
	fmt.Printf("Datatype:    %d\n", vol.Datatype)
	for _, p := range slicer.Planes {
		w, h := slicer.Shape(vol.Dims, p)
		fmt.Printf("%-12s %d slices of %dx%d\n", p.String()+":", slicer.SliceCount(vol.Dims, p), w, h)
	}
	fmt.Printf("Intensity:   min %.2f  max %.2f  mean %.2f  std %.2f\n",
		floats.Min(values), floats.Max(values), mean, std)
	fmt.Printf("Auto window: %s\n", auto)
	fmt.Printf("Presets:     %s\n", strings.Join(rc.cfg.Presets().Names(), ", "))
	fmt.Println("================================")
	return nil
}

type exportCmd struct {
	File string `arg:"" type:"existingfile" help:"NIfTI-1 file (.nii or .nii.gz)."`
	Out  string `short:"o" default:"slices" type:"path" help:"Output directory."`
	All  bool   `help:"Export all three planes into per-plane subdirectories."`

	View viewFlags `embed:""`
}

func (c *exportCmd) Run(rc *runContext) error {
	s, err := openSession(rc, c.File)
	if err != nil {
		return err
	}
	defer s.Close()

	plane, err := c.View.apply(s)
	if err != nil {
		return err
	}

	v := visualization.NewViewer(s, visualization.Options{
		Format:      rc.cfg.Output.Format,
		JPEGQuality: rc.cfg.Output.JPEGQuality,
		Workers:     rc.cfg.Processing.NumCores,
	})

	planes := []slicer.Plane{plane}
	if c.All {
		planes = slicer.Planes
	}

	start := time.Now()
	for _, p := range planes {
		dir := c.Out
		if c.All {
			dir = filepath.Join(c.Out, strings.ToLower(p.String()))
		}
		n, err := v.SaveSliceSequence(p, dir)
		if err != nil {
			return fmt.Errorf("failed to export %v slices: %w", p, err)
		}
		rc.log.Info("slices exported", "plane", p.String(), "count", n, "dir", dir)
	}
	rc.log.Info("export completed", "elapsed", time.Since(start))
	return nil
}

type playCmd struct {
	File     string        `arg:"" type:"existingfile" help:"NIfTI-1 file (.nii or .nii.gz)."`
	Frames   int           `short:"n" default:"0" help:"Frames to play; 0 plays one full pass."`
	Interval time.Duration `help:"Frame interval; overrides playback.intervalMs."`

	View viewFlags `embed:""`
}

func (c *playCmd) Run(rc *runContext) error {
	ticks := make(chan session.ViewState, 16)
	s, err := openSession(rc, c.File, func(o *session.Options) {
		if c.Interval > 0 {
			o.Interval = c.Interval
		}
		o.OnTick = func(st session.ViewState) {
			select {
			case ticks <- st:
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := c.View.apply(s); err != nil {
		return err
	}

	frames := c.Frames
	if frames <= 0 {
		frames = s.Snapshot().SliceCount
	}
	if err := s.Play(); err != nil {
		return err
	}

	for i := 0; i < frames; i++ {
		<-ticks
		f, err := s.CurrentFrame()
		if err != nil {
			s.Stop()
			return err
		}
		rc.log.Info("frame", "caption", f.Caption(), "mean", meanLuminance(f))
	}
	s.Stop()
	return nil
}

func meanLuminance(f *models.Frame) float64 {
	if len(f.Pixels) == 0 {
		return 0
	}
	var sum int
	for _, p := range f.Pixels {
		sum += int(p)
	}
	return float64(sum) / float64(len(f.Pixels))
}

type phantomCmd struct {
	Out  string  `arg:"" type:"path" help:"Output file; a .gz suffix writes gzip."`
	Size int     `default:"64" help:"Edge length of the cubic volume in voxels."`
	Gap  float64 `default:"1.5" help:"Slice spacing along Z in mm."`
}

// Run writes a CT-like sphere: air background, soft tissue core and a bone shell.
func (c *phantomCmd) Run(rc *runContext) error {
	if c.Size < 2 {
		return fmt.Errorf("size must be at least 2, got %d", c.Size)
	}
	n := c.Size
	data := make([]int16, n*n*n)

	radius := float64(n) / 3
	center := float64(n) / 2
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				dx := float64(x) - center
				dy := float64(y) - center
				dz := float64(z) - center
				dist := math.Sqrt(dx*dx + dy*dy + dz*dz)

				v := int16(-1000)
				switch {
				case dist < radius*0.85:
					v = 40
				case dist < radius:
					v = 700
				}
				data[z*n*n+y*n+x] = v
			}
		}
	}

	vol, err := models.NewVolume(models.Dims{NX: n, NY: n, NZ: n},
		models.Spacing{X: 1, Y: 1, Z: c.Gap}, models.TypedSamples[int16](data))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	opts := nifti.EncodeOptions{
		Datatype:    nifti.DTInt16,
		Compress:    strings.HasSuffix(strings.ToLower(c.Out), ".gz"),
		Description: "niftiview sphere phantom",
	}
	if err := nifti.Encode(&buf, vol, opts); err != nil {
		return err
	}
	if err := os.WriteFile(c.Out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Out, err)
	}
	rc.log.Info("phantom written", "file", c.Out, "dims", vol.Dims.String(), "bytes", buf.Len())
	return nil
}

type initConfigCmd struct {
	Path string `arg:"" optional:"" default:"niftiview.yaml" type:"path" help:"Where to write the configuration."`
}

func (c *initConfigCmd) Run(rc *runContext) error {
	if err := config.CreateDefaultConfigFile(c.Path); err != nil {
		return err
	}
	rc.log.Info("default configuration written", "file", c.Path)
	return nil
}
