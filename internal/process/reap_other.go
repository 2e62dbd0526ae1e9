//go:build !unix

package process

// watch waits for h in the background; there is no non-blocking wait outside
// unix, so ReapAll only collects processes the watcher has seen exit.
func watch(h *Handler) {
	go func() {
		state, err := h.proc.Wait()
		if err == nil {
			h.exitCode = state.ExitCode()
		}
		close(h.exited)
	}()
}

func reap(h *Handler) bool {
	select {
	case <-h.exited:
		return true
	default:
		return false
	}
}
