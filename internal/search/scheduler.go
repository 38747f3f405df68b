package search

import (
	"sync"
	"time"
)

// Scheduler debounces searches: a single pending timer and a generation
// counter that identifies the latest invocation.
type Scheduler struct {
	mu         sync.Mutex
	clock      Clock
	delay      time.Duration
	timer      Timer
	generation uint64
}

// NewScheduler returns a scheduler firing delay after the last Schedule.
func NewScheduler(clock Clock, delay time.Duration) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Scheduler{clock: clock, delay: delay}
}

// Schedule stops any pending run and arranges for fn to be called with
// the new generation once the delay elapses.
func (s *Scheduler) Schedule(fn func(generation uint64)) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.generation++
	gen := s.generation
	s.timer = s.clock.AfterFunc(s.delay, func() { fn(gen) })
	return gen
}

// Cancel stops any pending run and invalidates in-flight ones.
func (s *Scheduler) Cancel() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.generation++
	return s.generation
}

// IsCurrent reports whether generation is still the latest.
func (s *Scheduler) IsCurrent(generation uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return generation == s.generation
}

// Delay returns the debounce delay.
func (s *Scheduler) Delay() time.Duration {
	return s.delay
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
