// Package sampling implements best-of-window selection: when a log is
// triggered, raw measurements and frames are re-sampled for a short
// real-time window and the one with the largest leaf area is chosen
// as the value to persist.
package sampling

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/verdantlab/plantmon/measure"
)

// Default window geometry, matching the two-second analysis pass the
// monitor runs before logging.
const (
	DefaultWindow = 2 * time.Second
	DefaultPoll   = 100 * time.Millisecond
)

// ErrNoSamples is returned when the window elapses without a single
// candidate, e.g. because the frame source never produced a frame.
var ErrNoSamples = errors.New("sampling: no candidates collected in window")

// Snapshotter supplies independent snapshot copies of the current raw
// measurement and frame. The returned Mat is owned by the caller.
type Snapshotter interface {
	Snapshot() (measure.Measurement, gocv.Mat, bool)
}

// Sample pairs a candidate measurement with its source frame. The
// winner's frame is owned by the caller of BestOf; all other
// candidate frames are closed before BestOf returns.
type Sample struct {
	Measurement measure.Measurement
	Frame       gocv.Mat
	Taken       time.Time
}

// Close releases the sample's frame.
func (s *Sample) Close() {
	s.Frame.Close()
}

// BestOf polls src at the given cadence for the duration of the
// window, then returns the candidate with the maximum leaf area;
// ties go to the earliest candidate. Context cancellation cuts the
// window short but still evaluates whatever was collected. Returns
// ErrNoSamples when the window produced nothing.
func BestOf(ctx context.Context, src Snapshotter, window, poll time.Duration) (Sample, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if poll <= 0 {
		poll = DefaultPoll
	}

	deadline := time.NewTimer(window)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var candidates []Sample

collect:
	for {
		if m, frame, ok := src.Snapshot(); ok {
			candidates = append(candidates, Sample{Measurement: m, Frame: frame, Taken: time.Now()})
		}
		select {
		case <-ctx.Done():
			break collect
		case <-deadline.C:
			break collect
		case <-ticker.C:
		}
	}

	best, ok := selectBest(candidates)
	if !ok {
		return Sample{}, ErrNoSamples
	}
	return best, nil
}

// selectBest picks the max-area candidate and closes the rest.
func selectBest(candidates []Sample) (Sample, bool) {
	if len(candidates) == 0 {
		return Sample{}, false
	}
	bestIdx := 0
	for i, s := range candidates[1:] {
		if s.Measurement.AreaMM2 > candidates[bestIdx].Measurement.AreaMM2 {
			bestIdx = i + 1
		}
	}
	for i := range candidates {
		if i != bestIdx {
			candidates[i].Close()
		}
	}
	return candidates[bestIdx], true
}
