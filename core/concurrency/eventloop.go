// File: core/concurrency/eventloop.go
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// EventLoop is the single-threaded executor every adapter, parser and
// keepalive loop runs on. Tasks are drained in submission order from an
// unbounded FIFO, in batches, by exactly one goroutine. Submit never blocks.

package concurrency

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/momentics/grainws/api"
)

// LoopOption customizes an EventLoop.
type LoopOption func(*EventLoop)

// WithPanicHandler sets the hook invoked when a task panics. The loop keeps running.
func WithPanicHandler(fn func(recovered any)) LoopOption {
	return func(el *EventLoop) {
		el.onPanic = fn
	}
}

// EventLoop serializes task execution on one goroutine.
type EventLoop struct {
	mu        sync.Mutex
	pending   *queue.Queue // of func(); guarded by mu
	closed    bool
	wake      chan struct{} // capacity 1
	quitCh    chan struct{} // closed on Stop()
	doneCh    chan struct{} // closed after Run() exits
	running   atomic.Bool
	batchSize int
	onPanic   func(recovered any)
}

var _ api.Executor = (*EventLoop)(nil)

// NewEventLoop creates an EventLoop running at most batchSize tasks per
// queue lock acquisition.
func NewEventLoop(batchSize int, opts ...LoopOption) *EventLoop {
	if batchSize <= 0 {
		batchSize = 64
	}
	el := &EventLoop{
		pending:   queue.New(),
		wake:      make(chan struct{}, 1),
		quitCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		batchSize: batchSize,
	}
	for _, o := range opts {
		o(el)
	}
	return el
}

// Submit appends task to the loop's queue. It returns ErrLoopClosed once
// Stop has been called.
func (el *EventLoop) Submit(task func()) error {
	if task == nil {
		return api.ErrInvalidArgument
	}
	el.mu.Lock()
	if el.closed {
		el.mu.Unlock()
		return ErrLoopClosed
	}
	el.pending.Add(task)
	el.mu.Unlock()

	select {
	case el.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do submits fn and waits until it has run on the loop or ctx ends. A task
// accepted before Stop always runs, so Do returns ErrLoopClosed only when
// the loop refused fn.
func (el *EventLoop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := el.Submit(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-el.quitCh:
		<-el.doneCh
		select {
		case <-done:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// Run executes tasks until Stop is called and the queue is empty. Calling
// Run on a running or stopped loop is a no-op.
func (el *EventLoop) Run() {
	if !el.running.CompareAndSwap(false, true) {
		return
	}
	defer close(el.doneCh)

	batch := make([]func(), 0, el.batchSize)
	for {
		batch = batch[:0]
		el.mu.Lock()
		for el.pending.Length() > 0 && len(batch) < el.batchSize {
			batch = append(batch, el.pending.Remove().(func()))
		}
		el.mu.Unlock()

		if len(batch) == 0 {
			select {
			case <-el.quitCh:
				el.drain(batch)
				return
			case <-el.wake:
			}
			continue
		}

		for _, task := range batch {
			el.safeExecute(task)
		}
	}
}

// drain runs whatever was queued before Stop. Submit is closed by then, so
// the queue only shrinks.
func (el *EventLoop) drain(batch []func()) {
	for {
		batch = batch[:0]
		el.mu.Lock()
		for el.pending.Length() > 0 && len(batch) < el.batchSize {
			batch = append(batch, el.pending.Remove().(func()))
		}
		el.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, task := range batch {
			el.safeExecute(task)
		}
	}
}

func (el *EventLoop) safeExecute(task func()) {
	defer func() {
		if r := recover(); r != nil && el.onPanic != nil {
			el.onPanic(r)
		}
	}()
	task()
}

// Pending returns the number of queued tasks.
func (el *EventLoop) Pending() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.pending.Length()
}

// Stop rejects further submissions and waits until every task accepted
// before it has run. On a loop that was never started, Stop runs them on
// the calling goroutine.
func (el *EventLoop) Stop() {
	el.mu.Lock()
	if el.closed {
		el.mu.Unlock()
		<-el.doneCh
		return
	}
	el.closed = true
	close(el.quitCh)
	el.mu.Unlock()

	if el.running.CompareAndSwap(false, true) {
		el.drain(make([]func(), 0, el.batchSize))
		close(el.doneCh)
		return
	}
	<-el.doneCh
}
