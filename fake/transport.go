// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the core interfaces.

package fake

import (
	"sync"

	"github.com/momentics/grainws/api"
)

// Sender is a fake api.Sender that records every frame it is handed.
// By default each send resolves immediately with SendError.
// With Hold set, sends stay pending until Complete is called.
type Sender struct {
	mu        sync.Mutex
	frames    [][]byte
	pending   []api.Resolver
	sendError error
	hold      bool
}

// NewSender creates a fake sender that resolves sends successfully.
func NewSender() *Sender {
	return &Sender{}
}

// Send records a copy of frame.
func (s *Sender) Send(frame []byte) *api.Promise {
	cp := make([]byte, len(frame))
	copy(cp, frame)

	s.mu.Lock()
	s.frames = append(s.frames, cp)
	if s.hold {
		p, resolve := api.NewPromise()
		s.pending = append(s.pending, resolve)
		s.mu.Unlock()
		return p
	}
	err := s.sendError
	s.mu.Unlock()
	return api.Resolved(err)
}

// Frames returns a snapshot of all recorded frames.
func (s *Sender) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

// Reset drops recorded frames.
func (s *Sender) Reset() {
	s.mu.Lock()
	s.frames = nil
	s.mu.Unlock()
}

// SetSendError makes subsequent sends fail with err.
func (s *Sender) SetSendError(err error) {
	s.mu.Lock()
	s.sendError = err
	s.mu.Unlock()
}

// SetHold toggles deferred completion of sends.
func (s *Sender) SetHold(hold bool) {
	s.mu.Lock()
	s.hold = hold
	s.mu.Unlock()
}

// Complete resolves every held send with err and reports how many there were.
func (s *Sender) Complete(err error) int {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, resolve := range pending {
		resolve(err)
	}
	return len(pending)
}
