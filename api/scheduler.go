// Package api
// Author: momentics
//
// Scheduler contract for timed callbacks on an event loop.

package api

import "time"

// Cancelable is a pending scheduled callback.
type Cancelable interface {
	// Cancel prevents the callback from running. Returns false if it
	// already ran or was canceled.
	Cancel() bool
}

// Scheduler runs callbacks after a delay on the owner's event loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Cancelable
}
