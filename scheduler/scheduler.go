// Package scheduler provides the cancellable periodic trigger that
// drives automatic logging, independent of the measurement cadence.
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Interval is the closed set of auto-log cadences.
type Interval int

const (
	// Off disables automatic logging.
	Off Interval = iota
	EverySecond
	EveryMinute
	EveryHour
	EveryDay
)

var intervalDurations = map[Interval]time.Duration{
	EverySecond: time.Second,
	EveryMinute: time.Minute,
	EveryHour:   time.Hour,
	EveryDay:    24 * time.Hour,
}

var intervalNames = map[Interval]string{
	Off:         "Off",
	EverySecond: "Every Second",
	EveryMinute: "Every Minute",
	EveryHour:   "Every Hour",
	EveryDay:    "Every Day",
}

// Duration returns the interval's wall-clock period. ok is false for
// Off and unknown values.
func (i Interval) Duration() (time.Duration, bool) {
	d, ok := intervalDurations[i]
	return d, ok
}

// String implements fmt.Stringer.
func (i Interval) String() string {
	if name, ok := intervalNames[i]; ok {
		return name
	}
	return "Unknown"
}

// ParseInterval maps an operator-facing name ("minute", "Every Hour")
// to an Interval.
func ParseInterval(s string) (Interval, error) {
	for iv, name := range intervalNames {
		if s == name {
			return iv, nil
		}
	}
	switch s {
	case "off":
		return Off, nil
	case "second", "1s":
		return EverySecond, nil
	case "minute", "1m":
		return EveryMinute, nil
	case "hour", "1h":
		return EveryHour, nil
	case "day", "24h":
		return EveryDay, nil
	}
	return Off, errors.Errorf("unknown interval %q", s)
}

// Action is the logging action invoked at each interval boundary.
// Failures are reported but never stop the schedule.
type Action func() error

// Scheduler is a single-active-timer state machine. At most one timer
// runs at a time; Start while active is an idempotent no-op, and Stop
// while inactive is a no-op. The inter-tick wait is a select on the
// stop channel, so a stop request is observed within channel-wakeup
// latency, never after a full interval.
type Scheduler struct {
	mu     sync.Mutex
	action Action
	stop   chan struct{}
	done   chan struct{}
	active bool
}

// New returns a scheduler that invokes action on each tick.
func New(action Action) *Scheduler {
	return &Scheduler{action: action}
}

// Active reports whether a timer is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Start begins ticking at the given interval. The action fires once
// immediately, then at every interval boundary. Starting while
// already active returns nil without disturbing the running timer.
// Off is rejected.
func (s *Scheduler) Start(interval Interval) error {
	period, ok := interval.Duration()
	if !ok {
		return errors.Errorf("scheduler: cannot start with interval %s", interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return nil
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.active = true
	go s.run(period, s.stop, s.done)
	log.Printf("scheduler: started, logging %s", interval)
	return nil
}

// Stop cancels the running timer and waits for the loop to exit. A
// stop with no active timer is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	log.Print("scheduler: stopped")
}

func (s *Scheduler) run(period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	timer := time.NewTimer(0) // fire immediately on start
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			if err := s.action(); err != nil {
				log.Printf("scheduler: log action failed: %v", err)
			}
			timer.Reset(period)
		}
	}
}
