// Package playback drives cine-style slice playback on a fixed cadence.
package playback

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the frame interval used when none is configured
const DefaultInterval = 150 * time.Millisecond

// State is the sequencer state
type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Sequencer calls a step function on every tick while running.
//
// Ticks run one at a time while the sequencer lock is held, so Stop waits for
// a tick that is already executing and no tick runs after Stop returns, even
// one whose timer fired before the call. The step function must not call back
// into the Sequencer.
type Sequencer struct {
	mu       sync.Mutex
	interval time.Duration
	step     func()

	state   atomic.Int32
	epoch   uint64
	stopped chan struct{}
}

// New creates a stopped sequencer. A non-positive interval means DefaultInterval.
func New(interval time.Duration, step func()) *Sequencer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sequencer{interval: interval, step: step}
}

// Interval returns the tick interval
func (s *Sequencer) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the tick interval. A running sequencer picks it up on its next Start.
func (s *Sequencer) SetInterval(d time.Duration) {
	if d <= 0 {
		d = DefaultInterval
	}
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()
}

// State reports the current state without blocking on a running tick
func (s *Sequencer) State() State {
	return State(s.state.Load())
}

// Running reports whether the sequencer is advancing
func (s *Sequencer) Running() bool {
	return s.State() == Running
}

// Start begins ticking. It returns false if the sequencer was already running.
func (s *Sequencer) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == Running {
		return false
	}
	s.epoch++
	s.stopped = make(chan struct{})
	s.state.Store(int32(Running))

	go s.run(s.epoch, s.interval, s.stopped)
	return true
}

// Stop cancels ticking. It returns false if the sequencer was already stopped.
func (s *Sequencer) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Running {
		return false
	}
	s.state.Store(int32(Stopped))
	s.epoch++
	close(s.stopped)
	return true
}

func (s *Sequencer) run(epoch uint64, interval time.Duration, stopped <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopped:
			return
		case <-ticker.C:
			if !s.fire(epoch) {
				return
			}
		}
	}
}

// fire runs one tick if the epoch it was scheduled for is still current
func (s *Sequencer) fire(epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() != Running || s.epoch != epoch {
		return false
	}
	s.step()
	return true
}

// Next returns the index after index, wrapping to 0 past the last slice.
func Next(index, count int) int {
	if count <= 0 {
		return 0
	}
	return ((index+1)%count + count) % count
}

// Prev returns the index before index, wrapping to the last slice below 0.
func Prev(index, count int) int {
	if count <= 0 {
		return 0
	}
	return ((index-1)%count + count) % count
}
