package measure

import (
	"sync"

	"gonum.org/v1/gonum/stat"
)

// DefaultWindow is roughly one second of frames at display cadence.
const DefaultWindow = 30

// Smoother keeps a bounded FIFO of recent raw measurements and
// exposes their windowed average for display. The smoothed value is
// presentational only: the logging path always samples raw
// measurements and never consults this type.
type Smoother struct {
	mu      sync.Mutex
	window  int
	history []Measurement
}

// NewSmoother returns a smoother bounded at window entries. A
// non-positive window falls back to DefaultWindow.
func NewSmoother(window int) *Smoother {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Smoother{window: window}
}

// Push appends a raw measurement, evicting the oldest entry once the
// window is full.
func (s *Smoother) Push(m Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, m)
	if len(s.history) > s.window {
		s.history = s.history[1:]
	}
}

// Len reports the number of measurements currently held.
func (s *Smoother) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Reset drops the history. Called after recalibration, when old
// millimeter values are no longer comparable.
func (s *Smoother) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Average returns the arithmetic mean of each field over the current
// window, or the zero Measurement when empty. Leaf count is averaged
// as a float and truncated, matching how it is displayed.
func (s *Smoother) Average() Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.history)
	if n == 0 {
		return Measurement{}
	}

	heights := make([]float64, n)
	counts := make([]float64, n)
	areas := make([]float64, n)
	for i, m := range s.history {
		heights[i] = m.HeightMM
		counts[i] = float64(m.LeafCount)
		areas[i] = m.AreaMM2
	}
	return Measurement{
		HeightMM:  stat.Mean(heights, nil),
		LeafCount: int(stat.Mean(counts, nil)),
		AreaMM2:   stat.Mean(areas, nil),
	}
}
