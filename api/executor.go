// Package api
// Author: momentics
//
// Executor contract for event loop integration.

package api

// Executor runs submitted tasks. Submit never blocks the caller.
type Executor interface {
	Submit(task func()) error
}
