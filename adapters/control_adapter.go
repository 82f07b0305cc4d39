// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter: one view over configuration, metrics and debug probes.

package adapters

import (
	"github.com/momentics/grainws/control"
)

// ControlAdapter combines the control primitives of a running server.
type ControlAdapter struct {
	config  *control.Config
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

// NewControlAdapter wires cfg with fresh metrics and platform probes.
func NewControlAdapter(cfg *control.Config) *ControlAdapter {
	adapter := &ControlAdapter{
		config:  cfg,
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

func (c *ControlAdapter) Config() *control.Config { return c.config }
func (c *ControlAdapter) Metrics() *control.MetricsRegistry { return c.metrics }
func (c *ControlAdapter) Debug() *control.DebugProbes { return c.debug }

// Stats merges metric values with probe output under "debug.".
func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	combined := make(map[string]any, len(stats))
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

// RegisterDebugProbe adds a named probe.
func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}
