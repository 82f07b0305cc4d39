// File: server/server_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// End-to-end tests against a real WebSocket client.

package server_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/momentics/grainws/control"
	"github.com/momentics/grainws/server"
)

func testConfig() *control.Config {
	cfg := control.DefaultConfig()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	return cfg
}

func startServer(t *testing.T, cfg *control.Config) (*server.Server, string) {
	t.Helper()
	srv, err := server.New(cfg, server.EchoHandler, server.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
		if err := <-done; err != nil {
			t.Errorf("serve: %v", err)
		}
	})
	return srv, "ws://" + srv.Addr().String() + "/echo"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestEchoText(t *testing.T) {
	_, url := startServer(t, testConfig())
	conn := dial(t, url)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	typ, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if typ != websocket.TextMessage || string(data) != "hello" {
		t.Errorf("got %d %q", typ, data)
	}
}

func TestEchoFragmentedBinary(t *testing.T) {
	_, url := startServer(t, testConfig())
	conn := dial(t, url)

	payload := bytes.Repeat([]byte{0xab, 0xcd, 0x01}, 40000)
	w, err := conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		t.Fatal(err)
	}
	for off := 0; off < len(payload); off += 1000 {
		end := min(off+1000, len(payload))
		if _, err := w.Write(payload[off:end]); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	typ, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if typ != websocket.BinaryMessage || !bytes.Equal(data, payload) {
		t.Errorf("echo mismatch: type %d len %d", typ, len(data))
	}
}

func TestPingAnsweredWithPong(t *testing.T) {
	srv, url := startServer(t, testConfig())
	conn := dial(t, url)

	pong := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		pong <- struct{}{}
		return nil
	})
	if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("after ping")); err != nil {
		t.Fatal(err)
	}
	if _, data, err := conn.ReadMessage(); err != nil || string(data) != "after ping" {
		t.Fatalf("read: %q %v", data, err)
	}
	select {
	case <-pong:
	default:
		t.Fatal("pong was not delivered before the echo")
	}
	if got := srv.Control().Metrics().Counter(control.MetricPingsReceived); got != 1 {
		t.Errorf("pings_received = %d", got)
	}
}

func TestOversizedMessageClosesWith1009(t *testing.T) {
	cfg := testConfig()
	cfg.WebSocket.MaxMessageSize = 1024
	srv, url := startServer(t, cfg)
	conn := dial(t, url)

	if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 2000)); err != nil {
		t.Fatal(err)
	}
	_, _, err := conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.CloseMessageTooBig {
		t.Fatalf("err = %v", err)
	}
	if srv.Control().Metrics().Counter(control.MetricProtocolViolations) != 1 {
		t.Error("violation not counted")
	}
}

func TestLivenessTimeoutCloses(t *testing.T) {
	cfg := testConfig()
	cfg.WebSocket.PingInterval = 50 * time.Millisecond
	cfg.Server.CloseOnLivenessTimeout = true
	srv, url := startServer(t, cfg)
	conn := dial(t, url)

	// Not reading means no automatic pong.
	time.Sleep(300 * time.Millisecond)
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.CloseGoingAway {
		t.Fatalf("err = %v", err)
	}
	if srv.Control().Metrics().Counter(control.MetricLivenessTimeouts) < 1 {
		t.Error("liveness timeout not counted")
	}
}

func TestShutdownSendsGoingAway(t *testing.T) {
	srv, err := server.New(testConfig(), server.EchoHandler, server.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	if err := srv.Start(); !errors.Is(err, server.ErrAlreadyRunning) {
		t.Errorf("second Start: %v", err)
	}
	go srv.Serve(context.Background())

	conn := dial(t, "ws://"+srv.Addr().String()+"/")
	if err := conn.WriteMessage(websocket.TextMessage, []byte("x")); err != nil {
		t.Fatal(err)
	}
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatal(err)
	}
	if srv.Connections() != 1 {
		t.Errorf("connections = %d", srv.Connections())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- srv.Shutdown(ctx) }()

	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.CloseGoingAway {
		t.Fatalf("err = %v", err)
	}
	if err := <-shutdownErr; err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if srv.Connections() != 0 {
		t.Errorf("connections after shutdown = %d", srv.Connections())
	}
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("second shutdown: %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.WebSocket.LivenessPolicy = "maybe"
	if _, err := server.New(cfg, server.EchoHandler); err == nil {
		t.Fatal("expected config error")
	}
	if _, err := server.New(testConfig(), nil); err == nil {
		t.Fatal("expected nil factory error")
	}
}
