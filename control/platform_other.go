//go:build !linux && !windows
// +build !linux,!windows

// control/platform_other.go
// Author: momentics <momentics@gmail.com>
//
// Portable fallback for platforms without a dedicated probe file.

package control

import "runtime"

// RegisterPlatformProbes sets portable debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.total_ram", func() any {
		return TotalSystemMemory()
	})
}

// TotalSystemMemory is unknown on this platform.
func TotalSystemMemory() uint64 {
	return 0
}
