//go:build unix

package reactor

import (
	"errors"
	"time"

	"github.com/Quidge/reactortest/internal/backend"
	"golang.org/x/sys/unix"
)

func init() {
	backend.Register(backend.PollReactor, func() (backend.Handle, error) {
		return NewPollReactor()
	})
}

// PollReactor keeps its watch set in user space and checks readiness with
// poll(2).
type PollReactor struct {
	*base
}

// NewPollReactor returns a PollReactor with its waker watched.
func NewPollReactor() (*PollReactor, error) {
	b, err := newBase("poll", nil)
	if err != nil {
		return nil, err
	}
	return &PollReactor{base: b}, nil
}

// Poll waits up to timeout for watched descriptors to become readable and
// returns the ready ones. A pending wakeup is consumed.
func (r *PollReactor) Poll(timeout time.Duration) ([]uintptr, error) {
	watched := r.watched()
	fds := make([]unix.PollFd, len(watched))
	for i, fd := range watched {
		fds[i] = unix.PollFd{Fd: int32(fd), Events: unix.POLLIN}
	}

	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if errors.Is(err, unix.EINTR) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ready := make([]uintptr, 0, n)
	for _, pfd := range fds {
		if pfd.Revents&unix.POLLIN != 0 {
			ready = append(ready, uintptr(pfd.Fd))
		}
	}
	r.consumeWakeup(ready)
	return ready, nil
}

func (b *base) consumeWakeup(ready []uintptr) {
	b.mu.Lock()
	w := b.waker
	b.mu.Unlock()
	for _, fd := range ready {
		if fd == w.Fd() {
			w.drain()
			return
		}
	}
}
