package control_test

import (
	"sync"
	"testing"

	"github.com/momentics/grainws/control"
)

func TestMetricsCounters(t *testing.T) {
	m := control.NewMetricsRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Add(control.MetricFramesReceived, 1)
			}
		}()
	}
	wg.Wait()
	if got := m.Counter(control.MetricFramesReceived); got != 800 {
		t.Errorf("counter = %d", got)
	}
	m.Set("label", "x")
	snap := m.GetSnapshot()
	if snap["label"] != "x" || snap[control.MetricFramesReceived] != int64(800) {
		t.Errorf("snapshot = %v", snap)
	}
	if m.Updated().IsZero() {
		t.Error("updated time not recorded")
	}
}

func TestMetricsNilRegistry(t *testing.T) {
	var m *control.MetricsRegistry
	m.Add("x", 1)
	m.Set("y", 2)
	if m.Counter("x") != 0 || len(m.GetSnapshot()) != 0 {
		t.Error("nil registry should be inert")
	}
}

func TestDebugProbes(t *testing.T) {
	dp := control.NewDebugProbes()
	control.RegisterPlatformProbes(dp)
	dp.RegisterProbe("answer", func() any { return 42 })
	state := dp.DumpState()
	if state["answer"] != 42 {
		t.Errorf("state = %v", state)
	}
	if _, ok := state["platform.cpus"]; !ok {
		t.Error("platform probe missing")
	}
}

func TestDebugProbesPanicAndRemoval(t *testing.T) {
	dp := control.NewDebugProbes()
	dp.RegisterProbe("ok", func() any { return "fine" })
	dp.RegisterProbe("boom", func() any { panic("kaboom") })

	state := dp.DumpState()
	if state["ok"] != "fine" {
		t.Errorf("ok probe = %v", state["ok"])
	}
	if s, _ := state["boom"].(string); s != "probe panicked: kaboom" {
		t.Errorf("boom probe = %v", state["boom"])
	}

	dp.RegisterProbe("boom", nil)
	names := dp.Names()
	if len(names) != 1 || names[0] != "ok" {
		t.Errorf("names = %v", names)
	}
}

func TestPlatformProbes(t *testing.T) {
	dp := control.NewDebugProbes()
	control.RegisterPlatformProbes(dp)
	state := dp.DumpState()
	for _, name := range []string{"platform.cpus", "platform.gomaxprocs", "platform.goroutines"} {
		if n, ok := state[name].(int); !ok || n <= 0 {
			t.Errorf("%s = %v", name, state[name])
		}
	}
}
