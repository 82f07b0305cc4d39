//go:build !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp - portable socket tuning.

package tcp

import (
	"net"
	"time"
)

func tuneConn(conn net.Conn, noDelay bool, keepAlive time.Duration) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tc.SetNoDelay(noDelay); err != nil {
		return err
	}
	if keepAlive <= 0 {
		return tc.SetKeepAlive(false)
	}
	if err := tc.SetKeepAlive(true); err != nil {
		return err
	}
	return tc.SetKeepAlivePeriod(keepAlive)
}
