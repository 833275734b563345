package capture

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/verdantlab/plantmon/measure"
)

// Latest is the single-slot holder for the most recent raw
// measurement and its source frame. The capture cycle publishes into
// it; the sampling cycle only ever reads copies out of it, so a slow
// sampling or logging pass never blocks acquisition and an in-flight
// publish never tears a read.
type Latest struct {
	mu          sync.RWMutex
	measurement measure.Measurement
	frame       gocv.Mat
	hasFrame    bool
}

// NewLatest returns an empty holder.
func NewLatest() *Latest {
	return &Latest{}
}

// Publish replaces the slot with a clone of the given frame and the
// raw measurement. The holder owns its clone; callers keep ownership
// of the frame they pass in.
func (l *Latest) Publish(m measure.Measurement, frame gocv.Mat) {
	clone := frame.Clone()
	l.mu.Lock()
	if l.hasFrame {
		l.frame.Close()
	}
	l.measurement = m
	l.frame = clone
	l.hasFrame = true
	l.mu.Unlock()
}

// Snapshot returns a value copy of the measurement and a fresh clone
// of the frame. The caller owns the returned Mat and must close it.
// ok is false until the first Publish.
func (l *Latest) Snapshot() (measure.Measurement, gocv.Mat, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.hasFrame {
		return measure.Measurement{}, gocv.Mat{}, false
	}
	return l.measurement, l.frame.Clone(), true
}

// Measurement returns the latest raw measurement without the frame.
func (l *Latest) Measurement() (measure.Measurement, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.measurement, l.hasFrame
}

// Close releases the held frame.
func (l *Latest) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasFrame {
		l.frame.Close()
		l.hasFrame = false
	}
}
