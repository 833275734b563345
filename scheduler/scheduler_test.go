package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalDurations(t *testing.T) {
	tests := []struct {
		interval Interval
		want     time.Duration
		ok       bool
	}{
		{Off, 0, false},
		{EverySecond, time.Second, true},
		{EveryMinute, time.Minute, true},
		{EveryHour, time.Hour, true},
		{EveryDay, 24 * time.Hour, true},
	}
	for _, tt := range tests {
		d, ok := tt.interval.Duration()
		assert.Equal(t, tt.ok, ok, tt.interval.String())
		if ok {
			assert.Equal(t, tt.want, d, tt.interval.String())
		}
	}
}

func TestParseInterval(t *testing.T) {
	iv, err := ParseInterval("minute")
	require.NoError(t, err)
	assert.Equal(t, EveryMinute, iv)

	iv, err = ParseInterval("Every Hour")
	require.NoError(t, err)
	assert.Equal(t, EveryHour, iv)

	_, err = ParseInterval("fortnight")
	assert.Error(t, err)
}

func TestSchedulerFiresImmediatelyThenTicks(t *testing.T) {
	var fired atomic.Int32
	s := New(func() error {
		fired.Add(1)
		return nil
	})

	require.NoError(t, s.Start(EverySecond))
	defer s.Stop()

	assert.Eventually(t, func() bool { return fired.Load() >= 1 }, time.Second, 10*time.Millisecond,
		"first tick should fire without waiting a full interval")
}

func TestSchedulerStopIsObservedMidWait(t *testing.T) {
	s := New(func() error { return nil })
	require.NoError(t, s.Start(EverySecond))
	require.True(t, s.Active())

	start := time.Now()
	s.Stop()

	assert.False(t, s.Active())
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"stop must not wait out the full interval")
}

func TestSchedulerStartWhileActiveIsNoOp(t *testing.T) {
	var fired atomic.Int32
	s := New(func() error {
		fired.Add(1)
		return nil
	})

	require.NoError(t, s.Start(EveryHour))
	defer s.Stop()
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 10*time.Millisecond)

	// Second start neither errors nor spawns a second timer.
	require.NoError(t, s.Start(EverySecond))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
	assert.True(t, s.Active())
}

func TestSchedulerStopWhenInactiveIsNoOp(t *testing.T) {
	s := New(func() error { return nil })
	assert.NotPanics(t, func() { s.Stop() })
	assert.False(t, s.Active())
}

func TestSchedulerRejectsOff(t *testing.T) {
	s := New(func() error { return nil })
	assert.Error(t, s.Start(Off))
	assert.False(t, s.Active())
}

func TestSchedulerSurvivesActionFailure(t *testing.T) {
	var fired atomic.Int32
	s := New(func() error {
		fired.Add(1)
		return assert.AnError
	})

	require.NoError(t, s.Start(EverySecond))
	defer s.Stop()

	assert.Eventually(t, func() bool { return fired.Load() >= 2 }, 3*time.Second, 10*time.Millisecond,
		"a failing action must not stop the schedule")
}

func TestSchedulerRestartAfterStop(t *testing.T) {
	var fired atomic.Int32
	s := New(func() error {
		fired.Add(1)
		return nil
	})

	require.NoError(t, s.Start(EveryHour))
	s.Stop()
	before := fired.Load()

	require.NoError(t, s.Start(EveryHour))
	defer s.Stop()
	assert.Eventually(t, func() bool { return fired.Load() > before }, time.Second, 10*time.Millisecond)
}
