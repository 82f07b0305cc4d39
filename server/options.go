// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/rs/zerolog"

	"github.com/momentics/grainws/adapters"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithMiddleware wraps every connection's handler, first middleware outermost.
func WithMiddleware(mw ...adapters.Middleware) ServerOption {
	return func(s *Server) {
		s.middleware = append(s.middleware, mw...)
	}
}

// WithLogger replaces the global logger.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// WithControl shares an existing control adapter.
func WithControl(c *adapters.ControlAdapter) ServerOption {
	return func(s *Server) {
		s.ctrl = c
	}
}
