// Package session holds a decoded volume together with the view state a
// display surface renders from: plane, slice index, window, zoom and playback.
//
// A Session expects a single writer. Render loops may call Snapshot and
// CurrentFrame concurrently with it.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"niftiview/internal/models"
	"niftiview/pkg/config"
	"niftiview/pkg/nifti"
	"niftiview/pkg/playback"
	"niftiview/pkg/slicer"
	"niftiview/pkg/window"
)

// ErrNoVolume is returned by operations that need a loaded volume
var ErrNoVolume = errors.New("no volume loaded")

// Options configures a Session. Zero values take the defaults noted per field.
type Options struct {
	// Logger receives load and state-change logs; slog.Default() when nil
	Logger *slog.Logger

	// Interval is the playback frame interval; playback.DefaultInterval when zero
	Interval time.Duration

	// Auto tunes the window computed at load; window.DefaultAutoOptions() when zero
	Auto window.AutoOptions

	// Presets are the named windows SetPreset accepts; window.DefaultPresets() when nil
	Presets window.Presets

	// MinWidth is the narrowest window accepted; window.MinWidth when zero
	MinWidth float64

	// MinZoom and MaxZoom bound SetZoom; 0.5 and 3.0 when zero
	MinZoom, MaxZoom float64

	// Workers is the number of goroutines windowing a large slice; runtime.NumCPU() when zero
	Workers int

	// ParallelThreshold is the pixel count at which windowing uses Workers; 512*512 when zero
	ParallelThreshold int

	// Decode is passed to the NIfTI decoder
	Decode []nifti.Option

	// OnTick is called after every playback step with the new state. It runs on
	// the playback goroutine and must not call Play, Stop or any setter.
	OnTick func(ViewState)
}

// OptionsFromConfig maps the YAML configuration onto session options
func OptionsFromConfig(cfg *config.Config, logger *slog.Logger) Options {
	return Options{
		Logger:            logger,
		Interval:          cfg.Interval(),
		Auto:              cfg.AutoOptions(),
		Presets:           cfg.Presets(),
		MinWidth:          cfg.Window.MinWidth,
		MinZoom:           cfg.View.MinZoom,
		MaxZoom:           cfg.View.MaxZoom,
		Workers:           cfg.Processing.NumCores,
		ParallelThreshold: cfg.Processing.ParallelThreshold,
	}
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Interval <= 0 {
		o.Interval = playback.DefaultInterval
	}
	if o.Auto == (window.AutoOptions{}) {
		o.Auto = window.DefaultAutoOptions()
	}
	if o.Presets == nil {
		o.Presets = window.DefaultPresets()
	}
	if !(o.MinWidth > 0) {
		o.MinWidth = window.MinWidth
	}
	if !(o.MinZoom > 0) {
		o.MinZoom = 0.5
	}
	if !(o.MaxZoom >= o.MinZoom) {
		o.MaxZoom = math.Max(3.0, o.MinZoom)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.ParallelThreshold <= 0 {
		o.ParallelThreshold = 512 * 512
	}
	return o
}

// ViewState is a consistent copy of the session's view parameters
type ViewState struct {
	Plane      slicer.Plane
	SliceIndex int
	SliceCount int
	Window     window.Setting
	Zoom       float64
	Playing    bool
}

type frameKey struct {
	vol    *models.Volume
	plane  slicer.Plane
	index  int
	window window.Setting
}

// Session composes decoding, slicing, windowing and playback around one volume.
type Session struct {
	opts Options
	log  *slog.Logger
	seq  *playback.Sequencer

	mu     sync.RWMutex
	vol    *models.Volume
	plane  slicer.Plane
	index  int
	window window.Setting
	zoom   float64

	cacheMu sync.Mutex
	cached  frameKey
	frame   *models.Frame
}

// New creates an empty session
func New(opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		opts: opts,
		log:  opts.Logger,
		zoom: 1,
	}
	s.seq = playback.New(opts.Interval, s.tick)
	return s
}

// Load decodes data and replaces the current volume, resetting the view to
// the middle axial slice with the auto window. On failure the session is left
// empty.
func (s *Session) Load(data []byte) error {
	return s.LoadNamed("", data)
}

// LoadNamed is Load with a file name used as a compression hint
func (s *Session) LoadNamed(name string, data []byte) error {
	s.seq.Stop()

	start := time.Now()
	vol, err := nifti.DecodeNamed(name, data, s.opts.Decode...)
	if err != nil {
		s.reset(nil)
		s.log.Warn("volume load failed", "name", name, "bytes", len(data), "error", err)
		return fmt.Errorf("load volume: %w", err)
	}

	s.reset(vol)
	st := s.Snapshot()
	s.log.Info("volume loaded",
		"name", name,
		"dims", vol.Dims.String(),
		"spacing", fmt.Sprintf("%gx%gx%g", vol.Spacing.X, vol.Spacing.Y, vol.Spacing.Z),
		"datatype", vol.Datatype,
		"window", st.Window.String(),
		"elapsed", time.Since(start))
	return nil
}

// reset installs vol (nil clears the session) with a default view
func (s *Session) reset(vol *models.Volume) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vol = vol
	s.plane = slicer.Axial
	s.index = 0
	s.window = window.Setting{}
	s.zoom = 1
	if vol != nil {
		s.index = slicer.SliceCount(vol.Dims, slicer.Axial) / 2
		s.window = window.Auto(vol.Samples, s.opts.Auto).Normalize(s.opts.MinWidth)
	}

	s.cacheMu.Lock()
	s.cached, s.frame = frameKey{}, nil
	s.cacheMu.Unlock()
}

// Close releases the volume and stops playback
func (s *Session) Close() {
	s.seq.Stop()
	s.reset(nil)
}

// Volume returns the loaded volume, or nil
func (s *Session) Volume() *models.Volume {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vol
}

// Snapshot returns the view state with plane and index read together
func (s *Session) Snapshot() ViewState {
	s.mu.RLock()
	st := ViewState{
		Plane:      s.plane,
		SliceIndex: s.index,
		Window:     s.window,
		Zoom:       s.zoom,
	}
	if s.vol != nil {
		st.SliceCount = slicer.SliceCount(s.vol.Dims, s.plane)
	}
	s.mu.RUnlock()

	st.Playing = s.seq.Running()
	return st
}

// SetPlane switches plane, stopping playback and returning to slice 0
func (s *Session) SetPlane(p slicer.Plane) error {
	if p < slicer.Axial || p > slicer.Coronal {
		return fmt.Errorf("invalid plane: %v", p)
	}
	s.seq.Stop()

	s.mu.Lock()
	s.plane = p
	s.index = 0
	s.mu.Unlock()

	s.log.Debug("plane changed", "plane", p.String())
	return nil
}

// SetSliceIndex stops playback and moves to slice i, clamped into the plane's range
func (s *Session) SetSliceIndex(i int) {
	s.seq.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = s.clampIndex(i)
}

// Next moves one slice forward, stopping at the last slice
func (s *Session) Next() {
	s.step(1)
}

// Prev moves one slice back, stopping at the first slice
func (s *Session) Prev() {
	s.step(-1)
}

func (s *Session) step(delta int) {
	s.seq.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.index = s.clampIndex(s.index + delta)
}

// clampIndex must be called with mu held
func (s *Session) clampIndex(i int) int {
	if s.vol == nil {
		return 0
	}
	count := slicer.SliceCount(s.vol.Dims, s.plane)
	return min(max(i, 0), count-1)
}

// SetWindow sets an explicit window. Widths below the minimum are clamped.
func (s *Session) SetWindow(w window.Setting) {
	n := w.Normalize(s.opts.MinWidth)
	if n != w {
		s.log.Debug("window corrected", "requested", w.String(), "applied", n.String())
	}

	s.mu.Lock()
	s.window = n
	s.mu.Unlock()
}

// SetPreset applies a named window preset. An unknown name leaves the
// current window in place and returns window.ErrUnknownPreset.
func (s *Session) SetPreset(name string) error {
	w, err := s.opts.Presets.Lookup(name)
	if err != nil {
		return err
	}
	s.SetWindow(w)
	s.log.Debug("preset applied", "preset", name, "window", w.String())
	return nil
}

// SetZoom sets the display scale, clamped into the configured range.
// Non-finite values are ignored.
func (s *Session) SetZoom(z float64) {
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return
	}
	s.mu.Lock()
	s.zoom = min(max(z, s.opts.MinZoom), s.opts.MaxZoom)
	s.mu.Unlock()
}

// Play starts cine playback along the current plane
func (s *Session) Play() error {
	if s.Volume() == nil {
		return ErrNoVolume
	}
	if s.seq.Start() {
		s.log.Debug("playback started", "interval", s.seq.Interval())
	}
	return nil
}

// Stop halts playback. No playback step runs after Stop returns.
func (s *Session) Stop() {
	if s.seq.Stop() {
		s.log.Debug("playback stopped")
	}
}

// tick advances one slice with wraparound. The slice count is read from the
// current plane on every call.
func (s *Session) tick() {
	s.mu.Lock()
	if s.vol == nil {
		s.mu.Unlock()
		return
	}
	count := slicer.SliceCount(s.vol.Dims, s.plane)
	s.index = playback.Next(s.index, count)
	st := ViewState{
		Plane:      s.plane,
		SliceIndex: s.index,
		SliceCount: count,
		Window:     s.window,
		Zoom:       s.zoom,
		Playing:    true,
	}
	s.mu.Unlock()

	if s.opts.OnTick != nil {
		s.opts.OnTick(st)
	}
}

// CurrentFrame renders the current slice through the current window.
// The returned pixels may be shared with later calls and must not be modified.
func (s *Session) CurrentFrame() (*models.Frame, error) {
	s.mu.RLock()
	key := frameKey{vol: s.vol, plane: s.plane, index: s.index, window: s.window}
	zoom := s.zoom
	s.mu.RUnlock()

	if key.vol == nil {
		return nil, ErrNoVolume
	}

	s.cacheMu.Lock()
	if s.frame != nil && s.cached == key {
		f := *s.frame
		s.cacheMu.Unlock()
		f.Zoom = zoom
		return &f, nil
	}
	s.cacheMu.Unlock()

	f, err := s.render(key)
	if err != nil {
		return nil, err
	}

	s.cacheMu.Lock()
	s.cached, s.frame = key, f
	s.cacheMu.Unlock()

	out := *f
	out.Zoom = zoom
	return &out, nil
}

// RenderSlice renders an arbitrary slice of the loaded volume without
// touching the view state. The current window is used.
func (s *Session) RenderSlice(p slicer.Plane, index int) (*models.Frame, error) {
	s.mu.RLock()
	key := frameKey{vol: s.vol, plane: p, index: index, window: s.window}
	zoom := s.zoom
	s.mu.RUnlock()

	if key.vol == nil {
		return nil, ErrNoVolume
	}
	f, err := s.render(key)
	if err != nil {
		return nil, err
	}
	f.Zoom = zoom
	return f, nil
}

func (s *Session) render(key frameKey) (*models.Frame, error) {
	r, err := slicer.Extract(key.vol, key.plane, key.index)
	if err != nil {
		return nil, err
	}

	var pix []byte
	if len(r.Data) >= s.opts.ParallelThreshold && s.opts.Workers > 1 {
		pix = window.ApplyParallel(r, key.window, s.opts.Workers)
	} else {
		pix = window.Apply(r, key.window)
	}

	return &models.Frame{
		Pixels:     pix,
		Width:      r.Width,
		Height:     r.Height,
		Plane:      key.plane.String(),
		Index:      key.index + 1,
		SliceCount: slicer.SliceCount(key.vol.Dims, key.plane),
		Zoom:       1,
	}, nil
}
