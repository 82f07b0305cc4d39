// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Functional options for WebSocketAdapter.

package adapters

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/momentics/grainws/control"
	"github.com/momentics/grainws/protocol"
)

// DefaultPingInterval is the delay between a Ping and the Pong check.
const DefaultPingInterval = 10 * time.Second

// LivenessPolicy decides what a missed Pong does to the liveness loop.
type LivenessPolicy int

const (
	// LivenessFailOnce resolves the loop with a LivenessTimeout error.
	LivenessFailOnce LivenessPolicy = iota
	// LivenessRetry logs the miss and keeps pinging.
	LivenessRetry
)

func (p LivenessPolicy) String() string {
	switch p {
	case LivenessFailOnce:
		return "fail"
	case LivenessRetry:
		return "retry"
	default:
		return fmt.Sprintf("LivenessPolicy(%d)", int(p))
	}
}

// ParseLivenessPolicy accepts "fail" or "retry".
func ParseLivenessPolicy(s string) (LivenessPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fail", "fail-once", "":
		return LivenessFailOnce, nil
	case "retry":
		return LivenessRetry, nil
	default:
		return 0, fmt.Errorf("unknown liveness policy %q", s)
	}
}

type options struct {
	logger         zerolog.Logger
	metrics        *control.MetricsRegistry
	pingInterval   time.Duration
	maxMessageSize int
	policy         LivenessPolicy
	onPeerClose    func(code uint16, reason string)
}

func defaultOptions() options {
	return options{
		logger:         log.Logger,
		pingInterval:   DefaultPingInterval,
		maxMessageSize: protocol.DefaultMaxMessageSize,
		policy:         LivenessFailOnce,
	}
}

// Option configures a WebSocketAdapter.
type Option func(*options)

// WithLogger sets the adapter logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics enables counter updates on m.
func WithMetrics(m *control.MetricsRegistry) Option {
	return func(o *options) { o.metrics = m }
}

// WithPingInterval overrides DefaultPingInterval.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pingInterval = d
		}
	}
}

// WithMaxMessageSize bounds a reassembled message.
func WithMaxMessageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxMessageSize = n
		}
	}
}

// WithLivenessPolicy selects the missed-Pong policy.
func WithLivenessPolicy(p LivenessPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithPeerCloseHook is called on the adapter's executor when the peer sends Close.
func WithPeerCloseHook(fn func(code uint16, reason string)) Option {
	return func(o *options) { o.onPeerClose = fn }
}
