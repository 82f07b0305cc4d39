// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector. Counters and gauges share one map with dynamic
// registration. All methods are safe on a nil registry and do nothing.

package control

import (
	"sync"
	"time"
)

// Counter names maintained by the adapter and server.
const (
	MetricFramesReceived     = "frames_received"
	MetricMessagesDelivered  = "messages_delivered"
	MetricPingsReceived      = "pings_received"
	MetricPongsReceived      = "pongs_received"
	MetricPingsSent          = "pings_sent"
	MetricProtocolViolations = "protocol_violations"
	MetricTaskFailures       = "task_failures"
	MetricLivenessTimeouts   = "liveness_timeouts"
	MetricConnectionsActive  = "connections_active"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		metrics: make(map[string]any),
	}
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	if mr == nil {
		return
	}
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// Add increments the int64 counter key by delta and returns the new value.
// A key holding a non-counter value is overwritten.
func (mr *MetricsRegistry) Add(key string, delta int64) int64 {
	if mr == nil {
		return 0
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()
	n, _ := mr.metrics[key].(int64)
	n += delta
	mr.metrics[key] = n
	mr.updated = time.Now()
	return n
}

// Counter reads an int64 counter, zero if absent.
func (mr *MetricsRegistry) Counter(key string) int64 {
	if mr == nil {
		return 0
	}
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	n, _ := mr.metrics[key].(int64)
	return n
}

// GetSnapshot returns the latest metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	if mr == nil {
		return map[string]any{}
	}
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// Updated returns the time of the last write.
func (mr *MetricsRegistry) Updated() time.Time {
	if mr == nil {
		return time.Time{}
	}
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}
