// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Runtime probes shared by every platform.

package control

import "runtime"

// RegisterPlatformProbes installs runtime probes plus whatever the host OS
// can report about connection capacity.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.gomaxprocs", func() any {
		return runtime.GOMAXPROCS(0)
	})
	dp.RegisterProbe("platform.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	registerOSProbes(dp)
}
