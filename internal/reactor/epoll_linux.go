package reactor

import (
	"errors"
	"sync"
	"time"

	"github.com/Quidge/reactortest/internal/backend"
	"golang.org/x/sys/unix"
)

func init() {
	backend.Register(backend.EPollReactor, func() (backend.Handle, error) {
		return NewEPollReactor()
	})
}

type epollSet struct {
	fd int
}

func (s epollSet) add(fd int) error {
	return unix.EpollCtl(s.fd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)})
}

func (s epollSet) remove(fd int) error {
	return unix.EpollCtl(s.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

// EPollReactor mirrors its watch set into an epoll instance.
type EPollReactor struct {
	*base

	epfd      int
	closeOnce sync.Once
	closeErr  error
}

// NewEPollReactor creates the epoll instance and returns a reactor with its
// waker registered. Kernels without epoll report backend.ErrUnavailable.
func NewEPollReactor() (*EPollReactor, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		if errors.Is(err, unix.ENOSYS) {
			return nil, backend.Unavailable("epoll not supported by this kernel")
		}
		return nil, err
	}
	b, err := newBase("epoll", epollSet{fd: epfd})
	if err != nil {
		unix.Close(epfd)
		return nil, err
	}
	return &EPollReactor{base: b, epfd: epfd}, nil
}

// Poll waits up to timeout for watched descriptors to become readable and
// returns the ready ones. A pending wakeup is consumed.
func (r *EPollReactor) Poll(timeout time.Duration) ([]uintptr, error) {
	events := make([]unix.EpollEvent, max(r.Readers(), 1))
	n, err := unix.EpollWait(r.epfd, events, int(timeout.Milliseconds()))
	if errors.Is(err, unix.EINTR) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ready := make([]uintptr, 0, n)
	for _, ev := range events[:n] {
		ready = append(ready, uintptr(ev.Fd))
	}
	r.consumeWakeup(ready)
	return ready, nil
}

// Close releases the waker and the epoll instance. It is safe to call more
// than once.
func (r *EPollReactor) Close() error {
	r.closeOnce.Do(func() {
		r.releaseWaker()
		r.closeErr = unix.Close(r.epfd)
	})
	return r.closeErr
}
