// File: api/handler.go
// Package api defines the MessageHandler contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// MessageType distinguishes the two WebSocket data message kinds.
type MessageType int

const (
	TextMessage MessageType = iota + 1
	BinaryMessage
)

func (t MessageType) String() string {
	switch t {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return "unknown"
	}
}

// Message is one fully reassembled WebSocket data message.
// Text payloads are valid UTF-8.
type Message struct {
	Type    MessageType
	Payload []byte
}

// Text returns the payload as a string.
func (m Message) Text() string {
	return string(m.Payload)
}

// MessageHandler consumes reassembled messages. It is invoked at most once
// per message, in arrival order, on the owning event loop. The returned
// Promise is supervised; its failure is reported, never propagated.
type MessageHandler interface {
	HandleMessage(msg Message) *Promise
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(msg Message) *Promise

// HandleMessage calls f(msg).
func (f MessageHandlerFunc) HandleMessage(msg Message) *Promise {
	return f(msg)
}
