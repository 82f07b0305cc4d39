// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// OrderedSender issues outbound frames to one peer in call order. Send never
// blocks; frames queue in an unbounded FIFO drained by a single writer
// goroutine, which gathers whatever is queued into one vectored write.

package transport

import (
	"io"
	"net"
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/grainws/api"
)

// maxBatch bounds the frames gathered into one write.
const maxBatch = 64

type pendingWrite struct {
	frame   []byte
	resolve api.Resolver
}

// OrderedSender implements api.Sender over an io.Writer.
type OrderedSender struct {
	w io.Writer

	mu      sync.Mutex
	cond    *sync.Cond
	pending *queue.Queue
	closed  bool
	err     error // first write error; later sends fail with it

	done chan struct{}
}

var _ api.Sender = (*OrderedSender)(nil)

// NewOrderedSender starts the writer goroutine for w.
func NewOrderedSender(w io.Writer) *OrderedSender {
	s := &OrderedSender{
		w:       w,
		pending: queue.New(),
		done:    make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.writeLoop()
	return s
}

// Send queues frame. The promise resolves once the frame is written, or with
// a TransportFailure if the writer failed or the sender is closed.
// frame must not be modified afterwards.
func (s *OrderedSender) Send(frame []byte) *api.Promise {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return api.Resolved(api.TransportFailure(api.ErrTransportClosed))
	}
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return api.Resolved(api.TransportFailure(err))
	}
	p, resolve := api.NewPromise()
	s.pending.Add(&pendingWrite{frame: frame, resolve: resolve})
	s.cond.Signal()
	s.mu.Unlock()
	return p
}

// Pending returns the number of queued, unwritten frames.
func (s *OrderedSender) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Length()
}

// Close stops accepting frames. Frames already queued are still written.
func (s *OrderedSender) Close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
}

// Done is closed when the writer goroutine has exited.
func (s *OrderedSender) Done() <-chan struct{} {
	return s.done
}

func (s *OrderedSender) writeLoop() {
	defer close(s.done)
	batch := make([]*pendingWrite, 0, maxBatch)
	for {
		s.mu.Lock()
		for s.pending.Length() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.pending.Length() == 0 {
			s.mu.Unlock()
			return
		}
		for s.pending.Length() > 0 && len(batch) < maxBatch {
			batch = append(batch, s.pending.Remove().(*pendingWrite))
		}
		prevErr := s.err
		s.mu.Unlock()

		err := prevErr
		if err == nil {
			bufs := make(net.Buffers, len(batch))
			for i, pw := range batch {
				bufs[i] = pw.frame
			}
			if _, err = bufs.WriteTo(s.w); err != nil {
				s.mu.Lock()
				if s.err == nil {
					s.err = err
				}
				s.mu.Unlock()
			}
		}
		for i, pw := range batch {
			if err != nil {
				pw.resolve(api.TransportFailure(err))
			} else {
				pw.resolve(nil)
			}
			batch[i] = nil
		}
		batch = batch[:0]
	}
}
