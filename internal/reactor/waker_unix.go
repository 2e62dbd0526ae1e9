//go:build unix

package reactor

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// waker is a non-blocking self-pipe. Writing a byte to it makes the read end
// readable, interrupting a blocking wait on the watch set.
type waker struct {
	mu     sync.Mutex
	r, w   int
	closed bool
}

func newWaker() (*waker, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, fmt.Errorf("set nonblock: %w", err)
		}
	}
	return &waker{r: p[0], w: p[1]}, nil
}

func (w *waker) Fd() uintptr {
	return uintptr(w.r)
}

func (w *waker) wake() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("waker closed")
	}
	_, err := unix.Write(w.w, []byte{'x'})
	if errors.Is(err, unix.EAGAIN) {
		// Pipe already full, so already readable.
		return nil
	}
	return err
}

func (w *waker) drain() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	buf := make([]byte, 64)
	for {
		if n, err := unix.Read(w.r, buf); n <= 0 || err != nil {
			return
		}
	}
}

func (w *waker) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// ConnectionLost closes both ends of the pipe. Calling it again is a no-op.
func (w *waker) ConnectionLost(reason error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	unix.Close(w.r)
	unix.Close(w.w)
}
