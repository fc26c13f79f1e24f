package live

import (
	"sync"
	"time"
)

// Timer is a handle to a repeating timer.
type Timer interface {
	Stop()
}

// Clock creates repeating timers. Production code uses System; tests drive a
// FakeClock by hand.
type Clock interface {
	Now() time.Time
	Every(d time.Duration, fn func()) Timer
}

// System is the wall clock.
var System Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Every calls fn on its own goroutine every d until the timer is stopped.
func (systemClock) Every(d time.Duration, fn func()) Timer {
	t := &tickerTimer{ticker: time.NewTicker(d), stop: make(chan struct{})}
	go func() {
		for {
			select {
			case <-t.ticker.C:
				fn()
			case <-t.stop:
				return
			}
		}
	}()
	return t
}

type tickerTimer struct {
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

func (t *tickerTimer) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.stop)
	})
}

// FakeClock is a manually advanced Clock. Timer callbacks run synchronously
// inside Advance, in due order.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	armed  int
}

// NewFakeClock returns a fake clock reading start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Every(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, period: d, next: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	c.armed++
	return t
}

// Advance moves the clock forward by d, firing every timer that comes due.
// It returns the number of callbacks run.
func (c *FakeClock) Advance(d time.Duration) int {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	fired := 0
	for {
		c.mu.Lock()
		var due *fakeTimer
		for _, t := range c.timers {
			if !t.next.After(target) && (due == nil || t.next.Before(due.next)) {
				due = t
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return fired
		}
		c.now = due.next
		due.next = due.next.Add(due.period)
		fn := due.fn
		c.mu.Unlock()

		fn()
		fired++
	}
}

// Active returns the number of running timers.
func (c *FakeClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Armed returns how many timers were ever created.
func (c *FakeClock) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

type fakeTimer struct {
	clock  *FakeClock
	period time.Duration
	next   time.Time
	fn     func()
}

func (t *fakeTimer) Stop() {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.timers {
		if x == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}
