// Package monitor runs the continuous capture/calibrate/measure
// cycle and tracks the operator-facing status. It publishes raw
// snapshots for the sampling cadence and smoothed values for display;
// no fault in the cycle terminates it, only context cancellation.
package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/verdantlab/plantmon/calibrate"
	"github.com/verdantlab/plantmon/capture"
	"github.com/verdantlab/plantmon/measure"
	"github.com/verdantlab/plantmon/vision"
)

// retryDelay spaces out retries when the frame source is unavailable.
const retryDelay = 100 * time.Millisecond

// Status is the shared operator status line. Written by the cycle and
// the log runner, read by the API.
type Status struct {
	mu   sync.RWMutex
	text string
}

// Set replaces the status text.
func (s *Status) Set(text string) {
	s.mu.Lock()
	s.text = text
	s.mu.Unlock()
}

// Get returns the current status text.
func (s *Status) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Config assembles the tuning for one monitor.
type Config struct {
	Calibration     calibrate.Config
	Measurement     measure.Config
	SmoothingWindow int
}

// DefaultConfig returns the standard monitor tuning.
func DefaultConfig() Config {
	return Config{
		Calibration:     calibrate.DefaultConfig(),
		Measurement:     measure.DefaultConfig(),
		SmoothingWindow: measure.DefaultWindow,
	}
}

// Monitor drives the measurement cycle over a frame source.
type Monitor struct {
	cfg         Config
	source      capture.Source
	measurer    *measure.Measurer
	calibration *calibrate.State
	smoother    *measure.Smoother
	latest      *capture.Latest
	status      *Status

	// OnFrame, when set, receives the annotated frame each cycle for
	// display. The Mat is only valid for the duration of the call.
	OnFrame func(annotated gocv.Mat)
}

// New assembles a monitor over the given source.
func New(cfg Config, source capture.Source) *Monitor {
	return &Monitor{
		cfg:         cfg,
		source:      source,
		measurer:    measure.New(cfg.Measurement),
		calibration: &calibrate.State{},
		smoother:    measure.NewSmoother(cfg.SmoothingWindow),
		latest:      capture.NewLatest(),
		status:      &Status{},
	}
}

// Calibration exposes the shared calibration state.
func (m *Monitor) Calibration() *calibrate.State { return m.calibration }

// Latest exposes the raw snapshot holder consumed by the sampler.
func (m *Monitor) Latest() *capture.Latest { return m.latest }

// Status exposes the operator status line.
func (m *Monitor) Status() *Status { return m.status }

// Smoothed returns the windowed-average measurement for display.
func (m *Monitor) Smoothed() measure.Measurement {
	return m.smoother.Average()
}

// Recalibrate clears the locked calibration so the next cycle
// recomputes it, and drops the smoothing history since old millimeter
// values are no longer comparable.
func (m *Monitor) Recalibrate() {
	m.calibration.Reset()
	m.smoother.Reset()
	m.status.Set("Recalibrating...")
}

// Run loops until ctx is cancelled. A frame source fault surfaces a
// transient status and is retried; it never ends the loop.
func (m *Monitor) Run(ctx context.Context) error {
	defer m.latest.Close()
	m.status.Set("Calibrating...")

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if ok := m.source.Next(&frame); !ok {
			m.status.Set("Error: webcam feed lost, retrying.")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		m.cycle(frame)
	}
}

// cycle processes one frame: calibrate until locked, measure when
// calibrated, smooth for display, publish the raw snapshot.
func (m *Monitor) cycle(frame gocv.Mat) {
	annotated := frame.Clone()
	defer annotated.Close()

	pixelsPerMM, locked := m.calibration.Get()
	if !locked {
		found, ref := calibrate.Calibrate(frame, m.cfg.Calibration)
		if found > 0 {
			m.calibration.Lock(found)
			calibrate.DrawReference(&annotated, ref)
			m.status.Set("Calibrated! Monitoring.")
			log.Printf("monitor: calibration locked at %.2f px/mm", found)
			pixelsPerMM, locked = found, true
		} else {
			calibrate.DrawFailure(&annotated)
			m.status.Set("Cannot find reference object.")
		}
	} else {
		// Redraw the reference box for operator confirmation.
		if _, ref := calibrate.Calibrate(frame, m.cfg.Calibration); !ref.Rect.Empty() {
			calibrate.DrawReference(&annotated, ref)
		}
	}

	var meas measure.Measurement
	if locked && pixelsPerMM > 0 {
		var contours []vision.Contour
		meas, contours = m.measurer.Measure(frame, pixelsPerMM)
		measure.Annotate(&annotated, contours)
	}

	// Raw values feed both the smoother and the snapshot holder; the
	// smoothed value is display-only.
	m.smoother.Push(meas)
	m.latest.Publish(meas, frame)

	if m.OnFrame != nil {
		m.OnFrame(annotated)
	}
}
