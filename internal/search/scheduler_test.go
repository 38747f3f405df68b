package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsOnlyTheLatest(t *testing.T) {
	clock := &fakeClock{}
	s := NewScheduler(clock, 100*time.Millisecond)

	var ran []uint64
	first := s.Schedule(func(gen uint64) { ran = append(ran, gen) })
	clock.Advance(60 * time.Millisecond)
	second := s.Schedule(func(gen uint64) { ran = append(ran, gen) })
	clock.Advance(60 * time.Millisecond)
	assert.Empty(t, ran)

	clock.Advance(40 * time.Millisecond)
	assert.Equal(t, []uint64{second}, ran)
	assert.False(t, s.IsCurrent(first))
	assert.True(t, s.IsCurrent(second))
}

func TestSchedulerCancel(t *testing.T) {
	clock := &fakeClock{}
	s := NewScheduler(clock, 0)
	assert.Equal(t, DefaultDebounce, s.Delay())

	ran := false
	gen := s.Schedule(func(uint64) { ran = true })
	next := s.Cancel()
	clock.Advance(time.Second)

	assert.False(t, ran)
	assert.Zero(t, clock.Pending())
	assert.False(t, s.IsCurrent(gen))
	assert.True(t, s.IsCurrent(next))
}
