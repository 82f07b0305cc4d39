// File: protocol/handshake_serializer.go
// Package protocol
// Serialization of handshake responses.
package protocol

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"sort"
)

// WriteHandshakeResponse writes the 101 status line and hdr to w.
func WriteHandshakeResponse(w io.Writer, hdr http.Header) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("HTTP/1.1 101 Switching Protocols\r\n")
	keys := make([]string, 0, len(hdr))
	for k := range hdr {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range hdr[k] {
			fmt.Fprintf(bw, "%s: %s\r\n", k, v)
		}
	}
	bw.WriteString("\r\n")
	return bw.Flush()
}

// WriteHandshakeError rejects an upgrade with a plain-text 400.
func WriteHandshakeError(w io.Writer, cause error) error {
	body := cause.Error()
	_, err := fmt.Fprintf(w,
		"HTTP/1.1 400 Bad Request\r\nContent-Type: text/plain; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		len(body), body)
	return err
}
