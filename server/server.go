// File: server/server.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server lifecycle: listen, serve, graceful shutdown.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/momentics/grainws/adapters"
	"github.com/momentics/grainws/control"
	"github.com/momentics/grainws/core/concurrency"
	"github.com/momentics/grainws/pool"
	"github.com/momentics/grainws/protocol"
	"github.com/momentics/grainws/transport/tcp"
)

var (
	ErrAlreadyRunning = errors.New("server already running")
	ErrNotStarted     = errors.New("server not started")
	ErrServerClosed   = errors.New("server closed")
)

// loopBatch is the number of tasks the event loop runs per wakeup.
const loopBatch = 64

// New builds the Server facade. cfg nil means control.DefaultConfig().
func New(cfg *control.Config, factory HandlerFactory, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}
	if factory == nil {
		return nil, errors.New("server: nil handler factory")
	}
	policy, err := adapters.ParseLivenessPolicy(cfg.WebSocket.LivenessPolicy)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		factory: factory,
		log:     log.Logger,
		policy:  policy,
		conns:   make(map[uint64]*connection),
	}
	for _, o := range opts {
		o(s)
	}
	if s.ctrl == nil {
		s.ctrl = adapters.NewControlAdapter(cfg)
	}
	s.loop = concurrency.NewEventLoop(loopBatch, concurrency.WithPanicHandler(func(r any) {
		s.log.Error().Interface("panic", r).Msg("panic on event loop")
	}))
	s.sched = concurrency.NewTimerScheduler(s.loop)
	s.buffers = pool.NewBytePool(cfg.Server.ReadBufferSize)
	s.registerProbes()
	return s, nil
}

func (s *Server) registerProbes() {
	s.ctrl.RegisterDebugProbe("metrics", func() any {
		return s.ctrl.Metrics().GetSnapshot()
	})
	s.ctrl.RegisterDebugProbe("connections", func() any {
		return s.Connections()
	})
	s.ctrl.RegisterDebugProbe("loop.pending", func() any {
		return s.loop.Pending()
	})
}

// Start binds the listener and starts the event loop.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown {
		return ErrServerClosed
	}
	if s.started {
		return ErrAlreadyRunning
	}
	logger := s.log
	ln, err := tcp.Listen(tcp.ListenerConfig{
		Addr:             s.cfg.Server.Listen,
		HandshakeTimeout: s.cfg.Server.HandshakeTimeout,
		NoDelay:          s.cfg.Server.TCPNoDelay,
		KeepAlive:        s.cfg.Server.TCPKeepAlive,
		Logger:           &logger,
	})
	if err != nil {
		return err
	}
	s.listener = ln
	s.started = true
	go s.loop.Run()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is done or Shutdown is called.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return ErrNotStarted
	}
	return ln.Serve(ctx, s.serveConn)
}

// ListenAndServe is Start followed by Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Shutdown stops accepting, closes every connection with 1001 Going Away,
// waits for connection tasks to drain and stops the event loop. ctx bounds
// the wait.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	started := s.started
	s.mu.Unlock()
	if !started {
		s.loop.Stop()
		return nil
	}

	s.listener.Close()
	err := s.loop.Do(ctx, func() {
		for _, c := range s.conns {
			c.close(protocol.CloseGoingAway, "server shutdown")
		}
	})

	drained := make(chan struct{})
	go func() {
		s.listener.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		err = errors.Join(err, fmt.Errorf("shutdown: %w", ctx.Err()))
	}
	s.loop.Stop()
	s.log.Info().Msg("server stopped")
	return err
}

// Connections returns the number of open connections.
func (s *Server) Connections() int64 {
	return s.ctrl.Metrics().Counter(control.MetricConnectionsActive)
}

// Control exposes metrics and debug probes.
func (s *Server) Control() *adapters.ControlAdapter {
	return s.ctrl
}

// Stats merges metrics and debug probes.
func (s *Server) Stats() map[string]any {
	return s.ctrl.Stats()
}
