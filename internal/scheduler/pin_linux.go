//go:build linux

package scheduler

import "golang.org/x/sys/unix"

// pinCurrentThread binds the calling OS thread to a single CPU core (spec
// §6.4 "CPU pinning"). The caller must have already called
// runtime.LockOSThread so the binding sticks to the worker's goroutine.
func pinCurrentThread(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}
