// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp provides the TCP listener/acceptor with the RFC 6455
// upgrade handshake.

package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/momentics/grainws/protocol"
)

// ListenerConfig holds configuration for the TCP listener.
type ListenerConfig struct {
	Addr             string        // TCP address to bind (e.g., ":9000")
	HandshakeTimeout time.Duration // deadline for reading the upgrade request
	NoDelay          bool
	KeepAlive        time.Duration // zero disables keepalive probes
	Logger           *zerolog.Logger
}

// Conn is an upgraded WebSocket connection.
type Conn struct {
	net.Conn
	Upgrade *protocol.Upgrade
	// Buffered holds frame bytes the client sent along with the handshake.
	Buffered []byte
}

// Listener accepts and upgrades connections.
type Listener struct {
	cfg ListenerConfig
	ln  net.Listener
	log zerolog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Listen binds cfg.Addr.
func Listen(cfg ListenerConfig) (*Listener, error) {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("tcp listen failed: %w", err)
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	l := &Listener{cfg: cfg, ln: ln, log: log.Logger}
	if cfg.Logger != nil {
		l.log = *cfg.Logger
	}
	return l, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve runs the accept loop until ctx is done or the listener is closed.
// Each accepted connection is upgraded on its own goroutine; handler runs on
// that goroutine and owns the connection.
func (l *Listener) Serve(ctx context.Context, handler func(*Conn)) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	var delay time.Duration
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				delay = min(max(delay*2, 5*time.Millisecond), time.Second)
				l.log.Warn().Err(err).Dur("retry_in", delay).Msg("accept error")
				time.Sleep(delay)
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}
		delay = 0
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handleConn(conn, handler)
		}()
	}
}

// handleConn performs the handshake and, on success, calls handler.
func (l *Listener) handleConn(conn net.Conn, handler func(*Conn)) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Str("remote", conn.RemoteAddr().String()).Msg("panic in connection")
			conn.Close()
		}
	}()
	if err := tuneConn(conn, l.cfg.NoDelay, l.cfg.KeepAlive); err != nil {
		l.log.Debug().Err(err).Msg("socket tuning failed")
	}

	conn.SetDeadline(time.Now().Add(l.cfg.HandshakeTimeout))
	br := bufio.NewReader(conn)
	up, err := protocol.DoHandshakeCore(br)
	if err != nil {
		l.log.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("handshake rejected")
		protocol.WriteHandshakeError(conn, err)
		conn.Close()
		return
	}
	if err := protocol.WriteHandshakeResponse(conn, up.Response); err != nil {
		conn.Close()
		return
	}
	conn.SetDeadline(time.Time{})

	var buffered []byte
	if n := br.Buffered(); n > 0 {
		buffered = make([]byte, n)
		br.Read(buffered)
	}
	handler(&Conn{Conn: conn, Upgrade: up, Buffered: buffered})
}

// Close stops accepting. Handshakes in progress finish on their own.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() { err = l.ln.Close() })
	return err
}

// Wait blocks until every connection goroutine has returned.
func (l *Listener) Wait() {
	l.wg.Wait()
}
