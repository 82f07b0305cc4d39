// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

var (
	// ErrLoopClosed indicates the event loop has been stopped
	ErrLoopClosed = errors.New("event loop is closed")
)
