//go:build !linux

package metrics

import "runtime"

// pinToCore locks the calling goroutine to its OS thread. Core affinity is
// only applied on Linux.
func pinToCore(core int) error {
	runtime.LockOSThread()
	return nil
}
