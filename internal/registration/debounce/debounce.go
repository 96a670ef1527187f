// Package debounce delays a search trigger until the operator pauses typing.
//
// Each logical field owns at most one pending timer. Scheduling again for the
// same field cancels the earlier timer, so a burst of keystrokes yields a
// single callback carrying the last fragment.
package debounce

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc arms a timer that calls f after d. Implementations must not call
// f synchronously.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type pending struct {
	timer Timer
	gen   uint64
}

type Scheduler struct {
	mu        sync.Mutex
	delay     time.Duration
	afterFunc AfterFunc
	pending   map[string]*pending
	gen       uint64
	stopped   bool
}

type Option func(*Scheduler)

// WithAfterFunc replaces time.AfterFunc, for tests.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Scheduler) {
		s.afterFunc = fn
	}
}

func New(delay time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		delay:     delay,
		afterFunc: realAfterFunc,
		pending:   make(map[string]*pending),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

// Schedule cancels any pending callback for field and arms a new one that
// calls fn(fragment) after the delay. It returns false once the scheduler is
// stopped.
func (s *Scheduler) Schedule(field, fragment string, fn func(fragment string)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if p, ok := s.pending[field]; ok {
		p.timer.Stop()
	}
	s.gen++
	gen := s.gen
	p := &pending{gen: gen}
	s.pending[field] = p
	p.timer = s.afterFunc(s.delay, func() {
		s.fire(field, gen, fragment, fn)
	})
	return true
}

// fire runs fn unless the timer was superseded or cancelled after it had
// already been handed to the runtime.
func (s *Scheduler) fire(field string, gen uint64, fragment string, fn func(string)) {
	s.mu.Lock()
	p, ok := s.pending[field]
	if !ok || p.gen != gen || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.pending, field)
	s.mu.Unlock()
	fn(fragment)
}

// Cancel drops the pending callback for field. It reports whether one existed.
func (s *Scheduler) Cancel(field string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[field]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.pending, field)
	return true
}

// Pending reports whether a callback is armed for field.
func (s *Scheduler) Pending(field string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[field]
	return ok
}

// Stop cancels every pending callback and refuses new ones.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for field, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, field)
	}
}
