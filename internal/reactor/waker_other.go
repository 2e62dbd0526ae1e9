//go:build !unix

package reactor

import (
	"errors"
	"os"
	"sync"
)

type waker struct {
	mu     sync.Mutex
	r, w   *os.File
	closed bool
}

func newWaker() (*waker, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &waker{r: r, w: w}, nil
}

func (w *waker) Fd() uintptr {
	return w.r.Fd()
}

func (w *waker) wake() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("waker closed")
	}
	_, err := w.w.Write([]byte{'x'})
	return err
}

func (w *waker) drain() {}

func (w *waker) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *waker) ConnectionLost(reason error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	w.r.Close()
	w.w.Close()
}
