//go:build unix

package process

import (
	"errors"

	"golang.org/x/sys/unix"
)

// watch is a no-op on unix: ReapAll polls with a non-blocking wait4.
func watch(*Handler) {}

// reap reports whether h has been reaped. It never blocks.
func reap(h *Handler) bool {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(h.Pid, &ws, unix.WNOHANG, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if errors.Is(err, unix.ECHILD) {
			// Collected by someone else; nothing left to reap.
			_ = h.proc.Release()
			return true
		}
		if err != nil || pid == 0 {
			return false
		}
		if ws.Exited() {
			h.exitCode = ws.ExitStatus()
		}
		_ = h.proc.Release()
		return true
	}
}
