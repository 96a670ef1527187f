package testutil

import (
	"sort"
	"sync"
	"time"
)

// ManualClock is a fake timer source. Timers fire only from Advance, in
// deadline order, on the calling goroutine.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*ManualTimer
	armed  int
}

type ManualTimer struct {
	clock   *ManualClock
	at      time.Duration
	seq     int
	f       func()
	done    bool
	stopped bool
}

func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc arms a timer that fires once the clock has advanced by d.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) *ManualTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed++
	t := &ManualTimer{clock: c, at: c.now + d, seq: c.armed, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs every timer that came due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*ManualTimer
	for _, t := range c.timers {
		if !t.done && !t.stopped && t.at <= c.now {
			t.done = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at == due[j].at {
			return due[i].seq < due[j].seq
		}
		return due[i].at < due[j].at
	})
	for _, t := range due {
		t.f()
	}
}

// Elapsed returns how far the clock has been advanced.
func (c *ManualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Armed returns how many timers were ever armed.
func (c *ManualClock) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

func (t *ManualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done || t.stopped {
		return false
	}
	t.stopped = true
	return true
}
