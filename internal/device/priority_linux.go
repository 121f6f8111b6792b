//go:build linux

package device

import "golang.org/x/sys/unix"

// applyLowLatencyHint raises the calling (device-open) goroutine's
// scheduling priority hint before handing control to the driver's own
// playback thread. This is a best-effort nudge only: failures are
// ignored since a device must still work without elevated priority.
func applyLowLatencyHint() {
	pid := unix.Getpid()
	_ = unix.Setpriority(unix.PRIO_PROCESS, pid, -10)
}
