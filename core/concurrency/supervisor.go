// File: core/concurrency/supervisor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Supervisor owns fire-and-forget operations. Each registered Promise is
// watched until it resolves; a failure is handed exactly once to the single
// failure observer and never reaches the issuer or sibling tasks.

package concurrency

import (
	"context"
	"sync"

	"github.com/momentics/grainws/api"
)

// Supervisor tracks in-flight tasks for one owner (an adapter, a store).
type Supervisor struct {
	mu        sync.Mutex
	exec      api.Executor
	onFailure func(error)
	tasks     map[uint64]*api.Promise
	nextID    uint64
	drained   chan struct{} // closed when tasks becomes empty; nil when idle

	observerMu sync.Mutex // serializes observer calls made off the executor
}

// NewSupervisor creates a Supervisor. Completions are observed on exec when
// non-nil (normally the owner's EventLoop); onFailure may be nil to discard.
func NewSupervisor(exec api.Executor, onFailure func(error)) *Supervisor {
	return &Supervisor{
		exec:      exec,
		onFailure: onFailure,
		tasks:     make(map[uint64]*api.Promise),
	}
}

// Add takes ownership of p. It never blocks and returns nothing: the outcome
// is only visible to the failure observer.
func (s *Supervisor) Add(p *api.Promise) {
	if p == nil {
		return
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.tasks[id] = p
	s.mu.Unlock()

	p.OnComplete(func(err error) {
		s.complete(id, err)
	})
}

// Go runs fn as a supervised task on its own goroutine.
func (s *Supervisor) Go(fn func() error) {
	s.Add(api.Go(fn))
}

func (s *Supervisor) complete(id uint64, err error) {
	finish := func() {
		if err != nil && s.onFailure != nil {
			s.onFailure(err)
		}
		s.remove(id)
	}
	if s.exec != nil {
		if s.exec.Submit(finish) == nil {
			return
		}
	}
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	finish()
}

func (s *Supervisor) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	if len(s.tasks) == 0 && s.drained != nil {
		close(s.drained)
		s.drained = nil
	}
}

// Len returns the number of tasks not yet observed.
func (s *Supervisor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Wait blocks until every registered task has been observed or ctx ends.
func (s *Supervisor) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if len(s.tasks) == 0 {
			s.mu.Unlock()
			return nil
		}
		if s.drained == nil {
			s.drained = make(chan struct{})
		}
		ch := s.drained
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
