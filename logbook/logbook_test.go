package logbook

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/verdantlab/plantmon/calibrate"
	"github.com/verdantlab/plantmon/measure"
)

func TestRecordRowFormatting(t *testing.T) {
	r := Record{
		Timestamp: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		HeightMM:  12.3456,
		LeafCount: 7,
		AreaMM2:   88.999,
		ImageRef:  "captures/plant_x.jpg",
		Notes:     "[scheduled]",
	}

	row := r.Row()

	require.Len(t, row, len(Header))
	assert.Equal(t, "2026-03-14T09:26:53Z", row[0])
	assert.Equal(t, "12.35", row[1], "millimeter values carry two decimals")
	assert.Equal(t, 7, row[2], "leaf count stays an integer")
	assert.Equal(t, "89.00", row[3])
	assert.Equal(t, "captures/plant_x.jpg", row[4])
	assert.Equal(t, "[scheduled]", row[5])
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "plantmon.db"))
	require.NoError(t, err)
	defer store.Close()

	first := NewRecord(measure.Measurement{HeightMM: 10.5, LeafCount: 3, AreaMM2: 42.25}, "a.jpg", "")
	second := NewRecord(measure.Measurement{HeightMM: 11.0, LeafCount: 4, AreaMM2: 50.00}, "b.jpg", "note")
	require.NoError(t, store.Insert(first))
	require.NoError(t, store.Insert(second))

	records, err := store.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a.jpg", records[0].ImageRef)
	assert.InDelta(t, 10.5, records[0].HeightMM, 1e-9)
	assert.Equal(t, 4, records[1].LeafCount)
	assert.Equal(t, "note", records[1].Notes)
}

func TestStoreEmpty(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "plantmon.db"))
	require.NoError(t, err)
	defer store.Close()

	records, err := store.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

// fakeSnapshots replays measurements the way the latest-holder does.
type fakeSnapshots struct {
	mu    sync.Mutex
	areas []float64
	next  int
}

func (f *fakeSnapshots) Snapshot() (measure.Measurement, gocv.Mat, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next >= len(f.areas) {
		return measure.Measurement{}, gocv.Mat{}, false
	}
	area := f.areas[f.next]
	f.next++
	return measure.Measurement{HeightMM: area, LeafCount: 1, AreaMM2: area}, gocv.NewMat(), true
}

type emptySnapshots struct{}

func (emptySnapshots) Snapshot() (measure.Measurement, gocv.Mat, bool) {
	return measure.Measurement{}, gocv.Mat{}, false
}

// captureAppender records appended rows, optionally failing.
type captureAppender struct {
	mu       sync.Mutex
	records  []Record
	failWith error
}

func (a *captureAppender) Append(_ context.Context, r Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.failWith != nil {
		return a.failWith
	}
	a.records = append(a.records, r)
	return nil
}

func (a *captureAppender) appended() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Record(nil), a.records...)
}

// fakeSaver stands in for the artifact sink.
type fakeSaver struct{ path string }

func (f fakeSaver) Save(_ gocv.Mat) (string, error) { return f.path, nil }

func lockedCalibration() *calibrate.State {
	var s calibrate.State
	s.Lock(10)
	return &s
}

func newTestRunner(src *fakeSnapshots, appender Appender) *Runner {
	r := NewRunner(src, lockedCalibration(), appender, nil, fakeSaver{path: "captures/test.jpg"})
	r.SetWindow(50*time.Millisecond, 10*time.Millisecond)
	return r
}

func TestRunnerLogsBestSample(t *testing.T) {
	appender := &captureAppender{}
	runner := newTestRunner(&fakeSnapshots{areas: []float64{1, 5, 3}}, appender)

	err := runner.Trigger(context.Background(), "manual")
	require.NoError(t, err)

	records := appender.appended()
	require.Len(t, records, 1)
	assert.InDelta(t, 5.0, records[0].AreaMM2, 1e-9)
	assert.Equal(t, "captures/test.jpg", records[0].ImageRef)
	assert.Equal(t, "manual", records[0].Notes)
}

func TestRunnerRequiresCalibration(t *testing.T) {
	var unlocked calibrate.State
	runner := NewRunner(emptySnapshots{}, &unlocked, &captureAppender{}, nil, fakeSaver{})

	err := runner.Trigger(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotCalibrated)
}

func TestRunnerFailsCleanlyWithoutSamples(t *testing.T) {
	appender := &captureAppender{}
	runner := NewRunner(emptySnapshots{}, lockedCalibration(), appender, nil, fakeSaver{})
	runner.SetWindow(50*time.Millisecond, 10*time.Millisecond)

	err := runner.Trigger(context.Background(), "")
	require.Error(t, err)
	assert.Empty(t, appender.appended(), "nothing must be appended on a failed window")
	assert.False(t, runner.Busy(), "a failed action must release the in-flight slot")
}

func TestRunnerReportsAppendFailure(t *testing.T) {
	appender := &captureAppender{failWith: assert.AnError}
	runner := newTestRunner(&fakeSnapshots{areas: []float64{2}}, appender)

	var statuses []string
	runner.OnStatus = func(s string) { statuses = append(statuses, s) }

	err := runner.Trigger(context.Background(), "")
	require.Error(t, err)
	assert.False(t, runner.Busy())
	require.NotEmpty(t, statuses)
	assert.Contains(t, statuses[len(statuses)-1], "FAILED")
}

func TestRunnerRejectsOverlappingTriggers(t *testing.T) {
	appender := &captureAppender{}
	runner := newTestRunner(&fakeSnapshots{areas: []float64{1, 2, 3, 4, 5}}, appender)
	runner.SetWindow(200*time.Millisecond, 10*time.Millisecond)

	firstDone := make(chan error, 1)
	go func() { firstDone <- runner.Trigger(context.Background(), "") }()

	assert.Eventually(t, func() bool { return runner.Busy() }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, runner.Trigger(context.Background(), ""), ErrBusy)

	require.NoError(t, <-firstDone)
	assert.Len(t, appender.appended(), 1)
}
