// Package reactor provides the reference reactor backends the test matrix
// runs against. Each reactor registers itself with the default backend
// catalog from init, gated by build tags, so platform-specific reactors are
// resolvable only where they can exist:
//
//	| Reactor        | Platforms   | Kernel object | io.Closer |
//	|----------------|-------------|---------------|-----------|
//	| SelectReactor  | all         | none          | no        |
//	| PollReactor    | unix        | none          | no        |
//	| EPollReactor   | linux       | epoll fd      | yes       |
//	| KQueueReactor  | darwin, bsd | kqueue fd     | yes       |
//
// The reactors keep the bookkeeping a real reactor has (a watch set, tracked
// connections, a self-pipe waker watched from birth, spawned children) but
// run no event loop.
package reactor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/logging"
	"github.com/Quidge/reactortest/internal/process"
	"github.com/Quidge/reactortest/internal/procstate"
)

// kernelSet mirrors a reactor's watch set into a kernel object.
type kernelSet interface {
	add(fd int) error
	remove(fd int) error
}

// base holds the state shared by every reactor.
type base struct {
	name   string
	logger *slog.Logger
	ks     kernelSet

	mu      sync.Mutex
	readers map[uintptr]backend.Descriptor
	conns   map[io.Closer]struct{}
	waker   *waker
	sigc    chan os.Signal
}

func newBase(name string, ks kernelSet) (*base, error) {
	w, err := newWaker()
	if err != nil {
		return nil, fmt.Errorf("failed to create waker: %w", err)
	}
	b := &base{
		name:    name,
		logger:  logging.For("Reactor").With("reactor", name),
		ks:      ks,
		readers: make(map[uintptr]backend.Descriptor),
		conns:   make(map[io.Closer]struct{}),
		waker:   w,
	}
	if err := b.AddReader(w); err != nil {
		w.ConnectionLost(nil)
		return nil, err
	}
	return b, nil
}

// Name returns the reactor's short name.
func (b *base) Name() string {
	return b.name
}

// AddReader starts watching d for readability.
func (b *base) AddReader(d backend.Descriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fd := d.Fd()
	if _, ok := b.readers[fd]; ok {
		return nil
	}
	if b.ks != nil {
		if err := b.ks.add(int(fd)); err != nil {
			return fmt.Errorf("failed to watch fd %d: %w", fd, err)
		}
	}
	b.readers[fd] = d
	return nil
}

// RemoveReader stops watching d. Removing an unwatched descriptor is a no-op.
func (b *base) RemoveReader(d backend.Descriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()

	fd := d.Fd()
	if _, ok := b.readers[fd]; !ok {
		return
	}
	delete(b.readers, fd)
	if b.ks != nil {
		if err := b.ks.remove(int(fd)); err != nil {
			b.logger.Debug("failed to unwatch descriptor", "fd", fd, "error", err)
		}
	}
}

// Watching reports whether d is in the watch set.
func (b *base) Watching(d backend.Descriptor) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.readers[d.Fd()]
	return ok
}

// Readers returns the number of watched descriptors.
func (b *base) Readers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.readers)
}

func (b *base) watched() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	fds := make([]int, 0, len(b.readers))
	for fd := range b.readers {
		fds = append(fds, int(fd))
	}
	return fds
}

// Track adds c to the connections DisconnectAll closes.
func (b *base) Track(c io.Closer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[c] = struct{}{}
}

// Connections returns the number of tracked connections.
func (b *base) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// DisconnectAll closes and forgets every tracked connection. Descriptors of
// tracked connections are removed from the watch set first.
func (b *base) DisconnectAll() error {
	b.mu.Lock()
	conns := b.conns
	b.conns = make(map[io.Closer]struct{})
	b.mu.Unlock()

	var errs []error
	for c := range conns {
		if d, ok := c.(backend.Descriptor); ok {
			b.RemoveReader(d)
		}
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Waker returns the reactor's waker, or nil once it has been released.
func (b *base) Waker() backend.Waker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.waker == nil || b.waker.isClosed() {
		return nil
	}
	return b.waker
}

// Wakeup makes the waker readable.
func (b *base) Wakeup() error {
	b.mu.Lock()
	w := b.waker
	b.mu.Unlock()
	return w.wake()
}

// Spawn starts cmd as a child of this reactor. The default reaper tracks the
// child, and the reactor is notified of child termination through
// ChildExited from then on.
func (b *base) Spawn(cmd *exec.Cmd, name string) (*process.Handler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sigc == nil {
		sigc := make(chan os.Signal, 1)
		if sigs := procstate.OSSignals(); sigs.Supported() {
			if _, err := sigs.Swap(procstate.NotifyDisposition(sigc)); err != nil {
				return nil, fmt.Errorf("failed to install child signal handler: %w", err)
			}
		}
		b.sigc = sigc
	}

	h, err := process.Default.Start(cmd, name)
	if err != nil {
		return nil, err
	}
	b.logger.Debug("spawned child", "process", h.String())
	return h, nil
}

// ChildExited returns the channel child-termination signals are delivered on,
// or nil before the first Spawn.
func (b *base) ChildExited() <-chan os.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sigc
}

func (b *base) releaseWaker() {
	b.mu.Lock()
	w := b.waker
	b.mu.Unlock()
	if w != nil {
		b.RemoveReader(w)
		w.ConnectionLost(nil)
	}
}
