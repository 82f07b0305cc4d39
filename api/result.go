// File: api/result.go
// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Promise: completion handle for asynchronous operations (outbound sends,
// handler work, keepalive loops). Resolves exactly once.

package api

import (
	"context"
	"fmt"
	"sync"
)

// Resolver completes a Promise. Only the first call has an effect.
type Resolver func(err error)

// Promise is the result of an asynchronous operation that is not awaited by
// its issuer. It resolves once, with nil on success or the failure error.
type Promise struct {
	mu        sync.Mutex
	done      chan struct{}
	err       error
	resolved  bool
	callbacks []func(error)
}

// NewPromise returns an unresolved Promise and the function that resolves it.
func NewPromise() (*Promise, Resolver) {
	p := &Promise{done: make(chan struct{})}
	return p, p.resolve
}

// Resolved returns a Promise already completed with err.
func Resolved(err error) *Promise {
	p, resolve := NewPromise()
	resolve(err)
	return p
}

// Go runs fn on a new goroutine and returns a Promise for its result.
// A panic inside fn resolves the Promise with ErrTaskPanicked.
func Go(fn func() error) *Promise {
	p, resolve := NewPromise()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resolve(fmt.Errorf("%w: %v", ErrTaskPanicked, r))
			}
		}()
		resolve(fn())
	}()
	return p
}

func (p *Promise) resolve(err error) {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return
	}
	p.resolved = true
	p.err = err
	cbs := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, cb := range cbs {
		cb(err)
	}
}

// OnComplete registers fn to run with the outcome. If the Promise is already
// resolved fn runs immediately on the caller's goroutine, otherwise on the
// goroutine that resolves it.
func (p *Promise) OnComplete(fn func(error)) {
	p.mu.Lock()
	if !p.resolved {
		p.callbacks = append(p.callbacks, fn)
		p.mu.Unlock()
		return
	}
	err := p.err
	p.mu.Unlock()
	fn(err)
}

// Done is closed once the Promise resolves.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Err returns the resolution error; nil while pending or on success.
func (p *Promise) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Wait blocks until the Promise resolves or ctx ends.
func (p *Promise) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
