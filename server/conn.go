// File: server/conn.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-connection wiring: one adapter, one supervisor and one ordered sender
// per peer, all driven by the server's event loop. The reading goroutine
// hands each chunk to the loop and waits for it to be consumed before
// reading again.

package server

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/grainws/adapters"
	"github.com/momentics/grainws/api"
	"github.com/momentics/grainws/control"
	"github.com/momentics/grainws/core/concurrency"
	"github.com/momentics/grainws/protocol"
	"github.com/momentics/grainws/transport"
	"github.com/momentics/grainws/transport/tcp"
)

const (
	// closeGrace is how long a closing connection keeps reading for the
	// peer's Close reply.
	closeGrace = time.Second
	// flushTimeout bounds the final write of queued frames.
	flushTimeout = 5 * time.Second
)

type connection struct {
	srv     *Server
	conn    *tcp.Conn
	sender  *transport.OrderedSender
	tasks   *concurrency.Supervisor
	adapter *adapters.WebSocketAdapter
	log     zerolog.Logger

	// loop-confined
	closing  bool
	draining bool // server-initiated close: keep reading until EOF or closeGrace
}

func (s *Server) serveConn(tc *tcp.Conn) {
	c := &connection{
		srv:    s,
		conn:   tc,
		sender: transport.NewOrderedSender(tc),
		log:    s.log.With().Str("remote", tc.RemoteAddr().String()).Logger(),
	}
	if err := s.loop.Do(context.Background(), c.open); err != nil {
		c.sender.Close()
		tc.Close()
		return
	}

	c.readLoop()

	_ = s.loop.Do(context.Background(), c.release)
	c.sender.Close()
	tc.SetWriteDeadline(time.Now().Add(flushTimeout))
	<-c.sender.Done()
	tc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := c.tasks.Wait(ctx); err != nil {
		c.log.Warn().Int("tasks", c.tasks.Len()).Msg("connection closed with tasks still in flight")
	}
}

// open runs on the loop.
func (c *connection) open() {
	s := c.srv
	c.tasks = concurrency.NewSupervisor(s.loop, c.observe)
	// The handler is built from the adapter's Outbound, which stops sending
	// once the adapter closes. Nothing is delivered before open returns.
	var handler api.MessageHandler
	forward := api.MessageHandlerFunc(func(msg api.Message) *api.Promise {
		return handler.HandleMessage(msg)
	})
	c.adapter = adapters.NewWebSocketAdapter(forward, c.sender, c.tasks, s.sched,
		adapters.WithLogger(c.log),
		adapters.WithMetrics(s.ctrl.Metrics()),
		adapters.WithPingInterval(s.cfg.WebSocket.PingInterval),
		adapters.WithMaxMessageSize(s.cfg.WebSocket.MaxMessageSize),
		adapters.WithLivenessPolicy(s.policy),
		adapters.WithPeerCloseHook(c.peerClosed),
	)
	handler = adapters.Chain(s.factory(c.adapter.Outbound()), s.middleware...)
	c.log = c.log.With().Uint64("adapter", c.adapter.ID()).Logger()
	s.conns[c.adapter.ID()] = c
	s.ctrl.Metrics().Add(control.MetricConnectionsActive, 1)
	c.log.Debug().Str("path", c.conn.Upgrade.Request.URL.Path).Msg("connection opened")

	s.mu.Lock()
	down := s.shutdown
	s.mu.Unlock()
	if down {
		c.close(protocol.CloseGoingAway, "server shutdown")
	}
}

func (c *connection) readLoop() {
	if len(c.conn.Buffered) > 0 && !c.deliver(c.conn.Buffered) {
		return
	}
	buf := c.srv.buffers.GetBuffer()
	defer c.srv.buffers.PutBuffer(buf)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 && !c.deliver(buf[:n]) {
			return
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) && !errors.Is(err, os.ErrDeadlineExceeded) {
				c.log.Debug().Err(err).Msg("read failed")
			}
			return
		}
	}
}

// deliver hands chunk to the adapter and reports whether reading should go on.
// chunk is fully consumed when deliver returns, so the read buffer is reused.
func (c *connection) deliver(chunk []byte) bool {
	var open bool
	err := c.srv.loop.Do(context.Background(), func() {
		open = c.receive(chunk)
	})
	return err == nil && open
}

func (c *connection) receive(chunk []byte) bool {
	if err := c.adapter.Receive(chunk); err != nil {
		code := adapters.CloseCodeFor(err)
		c.log.Warn().Err(err).Uint16("code", code).Msg("protocol violation, closing connection")
		c.close(code, "protocol error")
		return true
	}
	if c.adapter.Closed() {
		return c.draining
	}
	return true
}

// close starts a server-initiated close. Runs on the loop.
func (c *connection) close(code uint16, reason string) {
	if c.closing {
		return
	}
	c.closing = true
	c.draining = true
	c.adapter.Close(code, reason)
	c.sender.Close()
	c.conn.SetReadDeadline(time.Now().Add(closeGrace))
}

func (c *connection) peerClosed(code uint16, reason string) {
	c.closing = true
	c.log.Debug().Uint16("code", code).Str("reason", reason).Msg("peer sent close")
}

// release runs on the loop after the reader has stopped.
func (c *connection) release() {
	if !c.adapter.Closed() {
		c.adapter.Abort()
	}
	delete(c.srv.conns, c.adapter.ID())
	c.srv.ctrl.Metrics().Add(control.MetricConnectionsActive, -1)
	c.log.Debug().Msg("connection released")
}

// observe is the supervisor's failure observer: log, count and continue.
func (c *connection) observe(err error) {
	c.srv.ctrl.Metrics().Add(control.MetricTaskFailures, 1)
	c.log.Error().Err(err).Stringer("code", api.CodeOf(err)).Msg("task failed")
	if errors.Is(err, api.ErrLivenessTimeout) && c.srv.cfg.Server.CloseOnLivenessTimeout && c.adapter != nil {
		c.close(protocol.CloseGoingAway, "liveness timeout")
	}
}
