// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

import "runtime"

// SetAffinity pins the calling OS thread to cpuID. The caller must hold the
// thread with runtime.LockOSThread. Unsupported platforms return
// api.ErrNotSupported.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// NumCPU is the number of logical CPUs usable by the process.
func NumCPU() int {
	return runtime.NumCPU()
}
