// Package fake
// Author: momentics <momentics@gmail.com>
//
// Manually driven clock for timer-dependent tests.

package fake

import (
	"sort"
	"sync"
	"time"

	"github.com/momentics/grainws/api"
)

// Scheduler is an api.Scheduler whose time only moves when Advance is called.
// Callbacks run synchronously inside Advance, on the caller's goroutine.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*fakeTimer
}

type fakeTimer struct {
	s        *Scheduler
	seq      uint64
	deadline time.Duration
	fn       func()
	done     bool
}

// NewScheduler creates a scheduler at virtual time zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// AfterFunc arms fn to run once virtual time reaches now+d.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) api.Cancelable {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &fakeTimer{s: s, seq: s.seq, deadline: s.now + d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (t *fakeTimer) Cancel() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.s.removeLocked(t)
	return true
}

func (s *Scheduler) removeLocked(t *fakeTimer) {
	for i, x := range s.timers {
		if x == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			return
		}
	}
}

// Advance moves virtual time forward by d, firing due timers in deadline order.
// Timers armed by a firing callback fire too if they fall within the window.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		sort.Slice(s.timers, func(i, j int) bool {
			if s.timers[i].deadline != s.timers[j].deadline {
				return s.timers[i].deadline < s.timers[j].deadline
			}
			return s.timers[i].seq < s.timers[j].seq
		})
		if len(s.timers) == 0 || s.timers[0].deadline > target {
			s.now = target
			s.mu.Unlock()
			return
		}
		t := s.timers[0]
		s.timers = s.timers[1:]
		t.done = true
		s.now = t.deadline
		s.mu.Unlock()
		t.fn()
	}
}

// Pending reports the number of armed timers.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
