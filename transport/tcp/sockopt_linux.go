//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp - Linux socket tuning through raw setsockopt.

package tcp

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// tuneConn sets TCP_NODELAY, SO_KEEPALIVE with TCP_KEEPIDLE/TCP_KEEPINTVL,
// and TCP_QUICKACK on the accepted socket.
func tuneConn(conn net.Conn, noDelay bool, keepAlive time.Duration) error {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	raw, err := tc.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		s := int(fd)
		if noDelay {
			if sockErr = unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); sockErr != nil {
				return
			}
			if sockErr = unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_QUICKACK, 1); sockErr != nil {
				return
			}
		}
		if keepAlive > 0 {
			secs := max(int(keepAlive/time.Second), 1)
			if sockErr = unix.SetsockoptInt(s, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); sockErr != nil {
				return
			}
			if sockErr = unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, secs); sockErr != nil {
				return
			}
			sockErr = unix.SetsockoptInt(s, unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, secs)
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}
