package logbook

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/verdantlab/plantmon/calibrate"
	"github.com/verdantlab/plantmon/sampling"
)

// ErrBusy is returned when a log action is triggered while another is
// still in flight. Triggers are rejected rather than queued so a slow
// spreadsheet append can never pile up concurrent network calls.
var ErrBusy = errors.New("logbook: a log action is already in flight")

// ErrNotCalibrated is returned when logging is requested before the
// calibration is locked.
var ErrNotCalibrated = errors.New("logbook: calibration not locked")

// Saver abstracts the image artifact sink for testing.
type Saver interface {
	Save(frame gocv.Mat) (string, error)
}

// Runner composes best-of-window sampling, the image artifact, the
// spreadsheet append, and the local mirror into one serialized log
// action. At most one action runs at a time; the capture cycle is
// never blocked by it.
type Runner struct {
	latest      sampling.Snapshotter
	calibration *calibrate.State
	appender    Appender
	store       *Store
	sink        Saver

	window time.Duration
	poll   time.Duration

	// OnStatus, when set, receives operator-facing progress updates.
	OnStatus func(string)

	busy atomic.Bool
}

// NewRunner wires the log action. store may be nil to skip the local
// mirror.
func NewRunner(latest sampling.Snapshotter, calibration *calibrate.State, appender Appender, store *Store, sink Saver) *Runner {
	return &Runner{
		latest:      latest,
		calibration: calibration,
		appender:    appender,
		store:       store,
		sink:        sink,
		window:      sampling.DefaultWindow,
		poll:        sampling.DefaultPoll,
	}
}

// SetWindow overrides the sampling window geometry.
func (r *Runner) SetWindow(window, poll time.Duration) {
	r.window = window
	r.poll = poll
}

// Busy reports whether an action is in flight.
func (r *Runner) Busy() bool {
	return r.busy.Load()
}

// Trigger runs one complete log action: sample the window, save the
// winning frame, append the record, mirror it locally. Returns
// ErrBusy if another action is in flight and ErrNotCalibrated before
// calibration. A sampling or append failure is reported and returned;
// in-memory state is untouched, and the next trigger is the retry.
func (r *Runner) Trigger(ctx context.Context, notes string) error {
	if !r.calibration.Locked() {
		return ErrNotCalibrated
	}
	if !r.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer r.busy.Store(false)

	r.status("Analyzing for %.1f seconds...", r.window.Seconds())
	sample, err := sampling.BestOf(ctx, r.latest, r.window, r.poll)
	if err != nil {
		r.status("Analysis failed: %v", err)
		return err
	}
	defer sample.Close()

	imageRef, err := r.sink.Save(sample.Frame)
	if err != nil {
		r.status("Saving image failed: %v", err)
		return err
	}

	rec := NewRecord(sample.Measurement, imageRef, notes)
	if err := r.appender.Append(ctx, rec); err != nil {
		r.status("Logging FAILED: %v", err)
		return err
	}
	if r.store != nil {
		if err := r.store.Insert(rec); err != nil {
			// The external append succeeded; a mirror failure is
			// reported but does not fail the action.
			log.Printf("logbook: mirroring record: %v", err)
		}
	}

	r.status("Logged %s", sample.Measurement)
	return nil
}

// TriggerAsync dispatches Trigger off the caller's goroutine, so the
// cadence that drives capture and display never waits on network
// latency. The outcome arrives through OnStatus.
func (r *Runner) TriggerAsync(ctx context.Context, notes string) {
	go func() {
		if err := r.Trigger(ctx, notes); err != nil {
			log.Printf("logbook: %v", err)
		}
	}()
}

func (r *Runner) status(format string, args ...interface{}) {
	if r.OnStatus != nil {
		r.OnStatus(fmt.Sprintf(format, args...))
	}
}
