// File: server/types.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/momentics/grainws/adapters"
	"github.com/momentics/grainws/api"
	"github.com/momentics/grainws/control"
	"github.com/momentics/grainws/core/concurrency"
	"github.com/momentics/grainws/pool"
	"github.com/momentics/grainws/transport/tcp"
)

// HandlerFactory builds the MessageHandler for one connection. out sends
// frames to that connection's peer and may be used from any goroutine.
type HandlerFactory func(out adapters.Outbound) api.MessageHandler

// Server is the high-level facade: listener, one event loop shared by every
// connection, and control.
type Server struct {
	cfg        *control.Config
	factory    HandlerFactory
	middleware []adapters.Middleware
	log        zerolog.Logger
	ctrl       *adapters.ControlAdapter
	policy     adapters.LivenessPolicy

	loop     *concurrency.EventLoop
	sched    *concurrency.TimerScheduler
	listener *tcp.Listener
	buffers  *pool.BytePool

	// conns is only touched on loop.
	conns map[uint64]*connection

	mu       sync.Mutex
	started  bool
	shutdown bool
}
