// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp accepts TCP connections, applies socket tuning and performs the
// WebSocket opening handshake before handing the connection off.
package tcp
