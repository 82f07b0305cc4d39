// File: protocol/handshake.go
// Package protocol
// Server side of the RFC 6455 opening handshake: read the HTTP upgrade
// request, validate headers, compute Sec-WebSocket-Accept.
package protocol

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	WebSocketGUID            = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	MaxHandshakeHeadersSize  = 8192
	HeaderConnection         = "Connection"
	HeaderUpgrade            = "Upgrade"
	HeaderSecWebSocketKey    = "Sec-WebSocket-Key"
	HeaderSecWebSocketVer    = "Sec-WebSocket-Version"
	HeaderSecWebSocketAccept = "Sec-WebSocket-Accept"
	RequiredWebSocketVersion = "13"
)

var (
	ErrInvalidUpgradeHeaders = errors.New("invalid WebSocket upgrade headers")
	ErrMissingWebSocketKey   = errors.New("missing Sec-WebSocket-Key header")
	ErrBadWebSocketVersion   = errors.New("unsupported WebSocket version; only '13' is supported")
	ErrHeadersTooLarge       = errors.New("handshake headers too large")
	ErrMethodNotAllowed      = errors.New("handshake requires GET")
)

// Upgrade is an accepted opening handshake.
type Upgrade struct {
	Request *http.Request
	// Response carries the 101 headers to send back.
	Response http.Header
}

// DoHandshakeCore reads one HTTP request from br and validates it as a
// WebSocket upgrade. br is not drained beyond the request, so any frame
// bytes the client pipelined after the headers stay buffered in br.
func DoHandshakeCore(br *bufio.Reader) (*Upgrade, error) {
	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, fmt.Errorf("handshake read request: %w", err)
	}
	total := 0
	for k, vs := range req.Header {
		total += len(k)
		for _, v := range vs {
			total += len(v)
			if total > MaxHandshakeHeadersSize {
				return nil, ErrHeadersTooLarge
			}
		}
	}
	if req.Method != http.MethodGet {
		return nil, ErrMethodNotAllowed
	}
	if !headerContainsToken(req.Header, HeaderConnection, "Upgrade") ||
		!headerContainsToken(req.Header, HeaderUpgrade, "websocket") {
		return nil, ErrInvalidUpgradeHeaders
	}
	if req.Header.Get(HeaderSecWebSocketVer) != RequiredWebSocketVersion {
		return nil, ErrBadWebSocketVersion
	}
	key := req.Header.Get(HeaderSecWebSocketKey)
	if key == "" {
		return nil, ErrMissingWebSocketKey
	}

	hdr := make(http.Header)
	hdr.Set(HeaderUpgrade, "websocket")
	hdr.Set(HeaderConnection, "Upgrade")
	hdr.Set(HeaderSecWebSocketAccept, ComputeAcceptKey(key))
	return &Upgrade{Request: req, Response: hdr}, nil
}

// ComputeAcceptKey derives Sec-WebSocket-Accept from the client key (RFC 6455 1.3).
func ComputeAcceptKey(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// headerContainsToken reports whether the comma-separated header contains token.
func headerContainsToken(h http.Header, headerName, token string) bool {
	for _, v := range h.Values(headerName) {
		for _, p := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(p), token) {
				return true
			}
		}
	}
	return false
}
