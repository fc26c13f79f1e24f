package live

import (
	"math"
	"time"

	"signaldash/pkg/signalapi"
)

// Stats counts scheduler transitions.
type Stats struct {
	Starts  int
	Rearms  int
	Cancels int
}

// Scheduler owns the polling timer. It has two states, stopped and running at
// an interval, and holds at most one active timer. Each armed timer gets a new
// generation number which is passed to onTick, so ticks from a cancelled timer
// can be told apart from current ones.
//
// A Scheduler is not safe for concurrent use; the Syncer loop owns it.
type Scheduler struct {
	clock  Clock
	onTick func(gen uint64)

	interval time.Duration
	timer    Timer
	gen      uint64
	stats    Stats
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(clock Clock, onTick func(gen uint64)) *Scheduler {
	if clock == nil {
		clock = System
	}
	return &Scheduler{clock: clock, onTick: onTick}
}

// Start arms a repeating timer at d. It does nothing and returns false when
// already running or when d is not positive.
func (s *Scheduler) Start(d time.Duration) bool {
	if s.timer != nil || d <= 0 {
		return false
	}
	s.arm(d)
	s.stats.Starts++
	return true
}

// Reconcile applies a server-advertised interval in seconds. Absent,
// non-positive and unchanged values are ignored, as is any call while
// stopped. Otherwise the running timer is cancelled once and rearmed once.
// It reports whether a rearm happened.
func (s *Scheduler) Reconcile(seconds signalapi.OptFloat) bool {
	if s.timer == nil {
		return false
	}
	d, ok := toDuration(seconds)
	if !ok || d == s.interval {
		return false
	}
	s.cancel()
	s.arm(d)
	s.stats.Rearms++
	return true
}

// Stop cancels the active timer, if any.
func (s *Scheduler) Stop() {
	if s.timer != nil {
		s.cancel()
	}
}

// Current reports whether gen belongs to the active timer.
func (s *Scheduler) Current(gen uint64) bool {
	return s.timer != nil && gen == s.gen
}

// Running reports whether a timer is armed.
func (s *Scheduler) Running() bool { return s.timer != nil }

// Interval returns the interval last accepted by Start or Reconcile.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Stats returns the transition counters.
func (s *Scheduler) Stats() Stats { return s.stats }

func (s *Scheduler) arm(d time.Duration) {
	s.gen++
	gen := s.gen
	s.interval = d
	s.timer = s.clock.Every(d, func() {
		if s.onTick != nil {
			s.onTick(gen)
		}
	})
}

func (s *Scheduler) cancel() {
	s.timer.Stop()
	s.timer = nil
	s.stats.Cancels++
}

const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

func toDuration(v signalapi.OptFloat) (time.Duration, bool) {
	if !v.Valid || math.IsNaN(v.Value) || v.Value <= 0 || v.Value > maxSeconds {
		return 0, false
	}
	d := time.Duration(v.Value * float64(time.Second))
	return d, d > 0
}
