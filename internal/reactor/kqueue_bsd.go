//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package reactor

import (
	"errors"
	"sync"
	"time"

	"github.com/Quidge/reactortest/internal/backend"
	"golang.org/x/sys/unix"
)

func init() {
	backend.Register(backend.KQueueReactor, func() (backend.Handle, error) {
		return NewKQueueReactor()
	})
}

type kqueueSet struct {
	fd int
}

func (s kqueueSet) change(fd, flags int) error {
	var ev unix.Kevent_t
	unix.SetKevent(&ev, fd, unix.EVFILT_READ, flags)
	_, err := unix.Kevent(s.fd, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (s kqueueSet) add(fd int) error {
	return s.change(fd, unix.EV_ADD)
}

func (s kqueueSet) remove(fd int) error {
	return s.change(fd, unix.EV_DELETE)
}

// KQueueReactor mirrors its watch set into a kqueue.
type KQueueReactor struct {
	*base

	kq        int
	closeOnce sync.Once
	closeErr  error
}

// NewKQueueReactor creates the kqueue and returns a reactor with its waker
// registered.
func NewKQueueReactor() (*KQueueReactor, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		if errors.Is(err, unix.ENOSYS) {
			return nil, backend.Unavailable("kqueue not supported")
		}
		return nil, err
	}
	unix.CloseOnExec(kq)

	b, err := newBase("kqueue", kqueueSet{fd: kq})
	if err != nil {
		unix.Close(kq)
		return nil, err
	}
	return &KQueueReactor{base: b, kq: kq}, nil
}

// Poll waits up to timeout for watched descriptors to become readable and
// returns the ready ones. A pending wakeup is consumed.
func (r *KQueueReactor) Poll(timeout time.Duration) ([]uintptr, error) {
	events := make([]unix.Kevent_t, max(r.Readers(), 1))
	ts := unix.NsecToTimespec(int64(timeout))
	n, err := unix.Kevent(r.kq, nil, events, &ts)
	if errors.Is(err, unix.EINTR) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ready := make([]uintptr, 0, n)
	for _, ev := range events[:n] {
		ready = append(ready, uintptr(ev.Ident))
	}
	r.consumeWakeup(ready)
	return ready, nil
}

// Close releases the waker and the kqueue. It is safe to call more than once.
func (r *KQueueReactor) Close() error {
	r.closeOnce.Do(func() {
		r.releaseWaker()
		r.closeErr = unix.Close(r.kq)
	})
	return r.closeErr
}
