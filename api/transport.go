// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Outbound send capability of a peer. One call per encoded frame.

package api

// Sender issues one encoded frame to the remote peer. Calls must be issued
// to the wire in call order; the returned Promise resolves when the frame
// has been handed to the transport (or failed).
type Sender interface {
	Send(frame []byte) *Promise
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(frame []byte) *Promise

// Send calls f(frame).
func (f SenderFunc) Send(frame []byte) *Promise {
	return f(frame)
}
