package tcp_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/momentics/grainws/transport/tcp"
)

const request = "GET /ws HTTP/1.1\r\n" +
	"Host: localhost\r\n" +
	"Upgrade: websocket\r\n" +
	"Connection: Upgrade\r\n" +
	"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
	"Sec-WebSocket-Version: 13\r\n\r\n"

func startListener(t *testing.T, handler func(*tcp.Conn)) *tcp.Listener {
	t.Helper()
	l, err := tcp.Listen(tcp.ListenerConfig{Addr: "127.0.0.1:0", HandshakeTimeout: time.Second, NoDelay: true, KeepAlive: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Serve(ctx, handler)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		l.Wait()
	})
	return l
}

func TestListenerUpgradeKeepsPipelinedBytes(t *testing.T) {
	got := make(chan *tcp.Conn, 1)
	l := startListener(t, func(c *tcp.Conn) {
		got <- c
		c.Close()
	})

	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	pipelined := "\x81\x00"
	if _, err := io.WriteString(conn, request+pipelined); err != nil {
		t.Fatal(err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("Sec-WebSocket-Accept") != "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=" {
		t.Errorf("accept = %q", resp.Header.Get("Sec-WebSocket-Accept"))
	}

	select {
	case c := <-got:
		if c.Upgrade.Request.URL.Path != "/ws" {
			t.Errorf("path = %q", c.Upgrade.Request.URL.Path)
		}
		// The pipelined frame may or may not have been read with the request.
		if len(c.Buffered) > 0 && string(c.Buffered) != pipelined {
			t.Errorf("buffered = % x", c.Buffered)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}

func TestListenerRejectsBadHandshake(t *testing.T) {
	l := startListener(t, func(c *tcp.Conn) {
		t.Error("handler must not run for a rejected handshake")
		c.Close()
	})
	conn, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	io.WriteString(conn, strings.Replace(request, "Version: 13", "Version: 8", 1))
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
