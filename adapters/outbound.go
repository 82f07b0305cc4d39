// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Outbound is the send capability shared by the adapter, its liveness loop
// and handler replies. It is a value: copy it freely.

package adapters

import (
	"sync/atomic"

	"github.com/momentics/grainws/api"
	"github.com/momentics/grainws/protocol"
)

// Outbound encodes server frames and issues them on a Sender. It holds no
// mutable state and is safe for concurrent use when the Sender is.
type Outbound struct {
	sender api.Sender
}

// NewOutbound wraps sender.
func NewOutbound(sender api.Sender) Outbound {
	return Outbound{sender: sender}
}

// Send issues one final frame with the given opcode.
func (o Outbound) Send(op protocol.OpCode, payload []byte) *api.Promise {
	if o.sender == nil {
		return api.Resolved(api.ErrTransportClosed)
	}
	return o.sender.Send(protocol.EncodeFrame(op, payload))
}

func (o Outbound) SendText(text string) *api.Promise {
	return o.Send(protocol.OpText, []byte(text))
}

func (o Outbound) SendBinary(data []byte) *api.Promise {
	return o.Send(protocol.OpBinary, data)
}

// SendMessage replies with a message of the same type.
func (o Outbound) SendMessage(msg api.Message) *api.Promise {
	if msg.Type == api.TextMessage {
		return o.Send(protocol.OpText, msg.Payload)
	}
	return o.Send(protocol.OpBinary, msg.Payload)
}

func (o Outbound) sendPing() *api.Promise {
	return o.Send(protocol.OpPing, nil)
}

func (o Outbound) sendPong() *api.Promise {
	return o.Send(protocol.OpPong, nil)
}

func (o Outbound) sendClose(code uint16, reason string) *api.Promise {
	return o.Send(protocol.OpClose, protocol.EncodeClosePayload(code, reason))
}

// gatedSender refuses frames once its adapter is closed.
type gatedSender struct {
	sender api.Sender
	shut   atomic.Bool
}

func (g *gatedSender) Send(frame []byte) *api.Promise {
	if g.sender == nil {
		return api.Resolved(api.ErrTransportClosed)
	}
	if g.shut.Load() {
		return api.Resolved(api.ErrAdapterClosed)
	}
	return g.sender.Send(frame)
}
