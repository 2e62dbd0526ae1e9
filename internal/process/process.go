// Package process keeps the process-wide table of child processes started on
// behalf of reactors and not yet reaped.
//
// Once a process is tracked, the Reaper owns collecting its exit status:
// callers must not Wait on it themselves. The table is process-global
// bookkeeping, which is why the test matrix drains it between tests.
package process

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"
)

// Handler is a tracked child process awaiting reaping.
type Handler struct {
	Name string
	Pid  int

	proc     *os.Process
	exitCode int
	exited   chan struct{}
	done     chan struct{}
}

func (h *Handler) String() string {
	return fmt.Sprintf("%s[%d]", h.Name, h.Pid)
}

// Reaper tracks child processes until their exit status has been collected.
type Reaper struct {
	mu       sync.Mutex
	handlers map[int]*Handler
}

// NewReaper returns an empty reaper.
func NewReaper() *Reaper {
	return &Reaper{handlers: make(map[int]*Handler)}
}

// Default is the reaper reactors register their helper processes with.
var Default = NewReaper()

// Start starts cmd and tracks the resulting process under name.
func (r *Reaper) Start(cmd *exec.Cmd, name string) (*Handler, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	return r.Track(cmd.Process, name), nil
}

// Track registers an already started process.
func (r *Reaper) Track(p *os.Process, name string) *Handler {
	h := &Handler{
		Name:     name,
		Pid:      p.Pid,
		proc:     p,
		exitCode: -1,
		exited:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.mu.Lock()
	r.handlers[p.Pid] = h
	r.mu.Unlock()
	watch(h)
	return h
}

// Pending returns the handlers still awaiting reaping, formatted as
// "name[pid]" and sorted by pid.
func (r *Reaper) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	pids := make([]int, 0, len(r.handlers))
	for pid := range r.handlers {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	out := make([]string, 0, len(pids))
	for _, pid := range pids {
		out = append(out, r.handlers[pid].String())
	}
	return out
}

// ReapAll collects the exit status of every tracked process that has
// terminated and forgets it. Processes still running stay tracked.
func (r *Reaper) ReapAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for pid, h := range r.handlers {
		if reap(h) {
			delete(r.handlers, pid)
			close(h.done)
		}
	}
}

// Kill sends SIGKILL (or the platform equivalent) to every tracked process.
// The processes stay tracked until ReapAll collects them.
func (r *Reaper) Kill() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, h := range r.handlers {
		if err := h.proc.Kill(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to kill %s: %w", h, err)
		}
	}
	return firstErr
}

// Done is closed once the handler has been reaped.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// ExitStatus returns the collected exit status, or -1 if the process has not
// been reaped or was terminated by a signal.
func (h *Handler) ExitStatus() int {
	select {
	case <-h.done:
	default:
		return -1
	}
	return h.exitCode
}
