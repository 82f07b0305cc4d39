// File: adapters/websocket_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// WebSocketAdapter turns an ordered stream of inbound byte chunks into
// messages for a MessageHandler, answers Pings, and keeps the peer alive.
// It is not safe for concurrent use: every method, timer callback and
// supervisor completion must run on the same executor (normally one
// concurrency.EventLoop).

package adapters

import (
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/momentics/grainws/api"
	"github.com/momentics/grainws/control"
	"github.com/momentics/grainws/protocol"
)

// TaskSupervisor takes ownership of fire-and-forget operations.
type TaskSupervisor interface {
	Add(p *api.Promise)
}

const closeCodeKey = "close_code"

const maxControlPayload = 125

var nextAdapterID atomic.Uint64

// WebSocketAdapter is the server side of one WebSocket connection.
type WebSocketAdapter struct {
	id      uint64
	handler api.MessageHandler
	out     Outbound
	gate    *gatedSender
	tasks   TaskSupervisor
	opts    options
	log     zerolog.Logger

	parser        protocol.FrameParser
	acc           accumulator
	headerChecked bool
	liveness      *livenessLoop

	closed bool
	failed error
}

// NewWebSocketAdapter creates an adapter and starts its liveness loop.
// sched must fire callbacks on the same executor that calls Receive.
func NewWebSocketAdapter(handler api.MessageHandler, sender api.Sender, tasks TaskSupervisor, sched api.Scheduler, opts ...Option) *WebSocketAdapter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	gate := &gatedSender{sender: sender}
	a := &WebSocketAdapter{
		id:      nextAdapterID.Add(1),
		handler: handler,
		out:     NewOutbound(gate),
		gate:    gate,
		tasks:   tasks,
		opts:    o,
		acc:     newAccumulator(o.maxMessageSize),
	}
	a.log = o.logger.With().Uint64("adapter", a.id).Logger()
	a.liveness = &livenessLoop{
		out:      a.out,
		tasks:    tasks,
		sched:    sched,
		interval: o.pingInterval,
		policy:   o.policy,
		log:      a.log,
		metrics:  o.metrics,
		id:       a.id,
	}
	a.liveness.start()
	return a
}

// ID is a process-unique handle for this adapter.
func (a *WebSocketAdapter) ID() uint64 { return a.id }

// Closed reports whether the adapter reached its terminal state.
func (a *WebSocketAdapter) Closed() bool { return a.closed }

// Outbound returns the send capability for handler replies. Its sends fail
// with api.ErrAdapterClosed once the adapter is closed.
func (a *WebSocketAdapter) Outbound() Outbound { return a.out }

// Receive feeds one inbound chunk. The chunk may hold any number of frames
// or a fragment of one. Protocol violations fail the call and every later
// call; once closed, Receive is a no-op.
func (a *WebSocketAdapter) Receive(data []byte) error {
	if a.closed {
		return nil
	}
	if a.failed != nil {
		return a.failed
	}
	for len(data) > 0 && !a.closed {
		n, frame := a.parser.Advance(data)
		data = data[n:]

		if frame == nil {
			if err := a.checkHeader(); err != nil {
				return a.fail(err)
			}
			continue
		}
		a.headerChecked = false
		a.opts.metrics.Add(control.MetricFramesReceived, 1)
		if err := a.dispatch(frame); err != nil {
			return a.fail(err)
		}
	}
	return nil
}

// checkHeader rejects a frame as soon as its declared length is known to
// exceed what the adapter would accept, before any payload is buffered.
func (a *WebSocketAdapter) checkHeader() error {
	if a.headerChecked {
		return nil
	}
	h, ok := a.parser.Header()
	if !ok {
		return nil
	}
	a.headerChecked = true

	limit := uint64(a.opts.maxMessageSize)
	switch {
	case h.OpCode.IsControl() && !h.OpCode.IsReserved():
		if h.PayloadLen > maxControlPayload {
			return api.ProtocolViolation("%s frame payload of %d bytes exceeds %d", h.OpCode, h.PayloadLen, maxControlPayload)
		}
	case h.OpCode == protocol.OpContinuation:
		if a.acc.empty() {
			return errOrphanContinuation()
		}
		if size := uint64(a.acc.len()) + h.PayloadLen; size > limit {
			a.acc.reset()
			return tooBig(int(min(size, uint64(maxInt))), a.opts.maxMessageSize)
		}
	default:
		if h.PayloadLen > limit {
			return tooBig(int(min(h.PayloadLen, uint64(maxInt))), a.opts.maxMessageSize)
		}
	}
	return nil
}

const maxInt = int(^uint(0) >> 1)

func (a *WebSocketAdapter) dispatch(f *protocol.Frame) error {
	switch f.OpCode {
	case protocol.OpText, protocol.OpBinary:
		typ := api.BinaryMessage
		if f.OpCode == protocol.OpText {
			typ = api.TextMessage
		}
		if err := a.acc.start(typ, f.Payload); err != nil {
			return err
		}
		if f.Fin {
			return a.deliver()
		}

	case protocol.OpContinuation:
		if err := a.acc.append(f.Payload); err != nil {
			return err
		}
		if f.Fin {
			return a.deliver()
		}

	case protocol.OpClose:
		code, reason, _ := protocol.ParseClosePayload(f.Payload)
		a.log.Debug().Uint16("code", code).Str("reason", reason).Msg("peer closed")
		a.Abort()
		if a.opts.onPeerClose != nil {
			a.opts.onPeerClose(code, reason)
		}

	case protocol.OpPing:
		a.opts.metrics.Add(control.MetricPingsReceived, 1)
		a.log.Debug().Int("len", len(f.Payload)).Msg("responding to ping")
		a.tasks.Add(a.out.sendPong())

	case protocol.OpPong:
		a.opts.metrics.Add(control.MetricPongsReceived, 1)
		a.liveness.pong()

	default:
		a.log.Warn().Stringer("opcode", f.OpCode).Bool("fin", f.Fin).Msg("unrecognized websocket opcode")
	}
	return nil
}

func (a *WebSocketAdapter) deliver() error {
	msg, err := a.acc.finish()
	if err != nil {
		return err
	}
	a.opts.metrics.Add(control.MetricMessagesDelivered, 1)
	if a.handler != nil {
		a.tasks.Add(a.handler.HandleMessage(msg))
	}
	return nil
}

func (a *WebSocketAdapter) fail(err error) error {
	a.opts.metrics.Add(control.MetricProtocolViolations, 1)
	a.failed = err
	return err
}

// Abort enters Closed without sending anything, for when the transport is
// already gone. No handler, no more pings, no outbound frames, including
// those issued through Outbound copies held by handlers.
func (a *WebSocketAdapter) Abort() {
	if a.closed {
		return
	}
	a.closed = true
	a.gate.shut.Store(true)
	a.handler = nil
	a.acc.reset()
	a.liveness.stop()
}

// Close sends a Close frame with code and reason, then enters Closed.
// Closing twice is a no-op.
func (a *WebSocketAdapter) Close(code uint16, reason string) {
	if a.closed {
		return
	}
	a.tasks.Add(a.out.sendClose(code, reason))
	a.Abort()
}

// Send issues a final frame unless the adapter is closed.
func (a *WebSocketAdapter) Send(op protocol.OpCode, payload []byte) *api.Promise {
	if a.closed {
		return api.Resolved(api.ErrAdapterClosed)
	}
	return a.out.Send(op, payload)
}

func (a *WebSocketAdapter) SendText(text string) *api.Promise {
	return a.Send(protocol.OpText, []byte(text))
}

func (a *WebSocketAdapter) SendBinary(data []byte) *api.Promise {
	return a.Send(protocol.OpBinary, data)
}

// CloseCodeFor maps a Receive error to the status code the owner should
// close the connection with.
func CloseCodeFor(err error) uint16 {
	var e *api.Error
	if errors.As(err, &e) {
		if code, ok := e.Context[closeCodeKey].(uint16); ok {
			return code
		}
		if code, ok := e.Context[closeCodeKey].(int); ok {
			return uint16(code)
		}
	}
	return protocol.CloseProtocolError
}
