package conformance

import (
	"io"
	"os"
	"os/exec"
	"slices"
	"testing"
	"time"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/matrix"
	"github.com/Quidge/reactortest/internal/process"
)

// DefaultTimeout bounds every wait in the conformance behaviors.
const DefaultTimeout = 5 * time.Second

// Reactor is the introspection surface a backend needs for the conformance
// behaviors.
type Reactor interface {
	backend.Handle
	backend.WakerOwner

	AddReader(d backend.Descriptor) error
	Watching(d backend.Descriptor) bool
	Track(c io.Closer)
	Connections() int
	Wakeup() error
	Spawn(cmd *exec.Cmd, name string) (*process.Handler, error)
	ChildExited() <-chan os.Signal
}

// Poller is implemented by reactors that can wait for readiness.
type Poller interface {
	Poll(timeout time.Duration) ([]uintptr, error)
}

// TestEnv is a built reactor together with the test it belongs to.
type TestEnv struct {
	T       *testing.T
	Reactor Reactor
}

// NewTestEnv builds the case's backend. Backends that do not implement
// Reactor skip the test.
func NewTestEnv(t *testing.T, b *matrix.Builder) *TestEnv {
	t.Helper()

	h := b.Build()
	r, ok := h.(Reactor)
	if !ok {
		t.Skipf("%s does not expose reactor introspection", b.Backend())
	}
	return &TestEnv{T: t, Reactor: r}
}

// Pipe returns a pipe whose ends are closed when the test ends.
func (e *TestEnv) Pipe() (r, w *os.File) {
	e.T.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		e.T.Fatalf("failed to create pipe: %v", err)
	}
	e.T.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

// MustWaker returns the reactor's waker, failing the test if there is none.
func (e *TestEnv) MustWaker() backend.Waker {
	e.T.Helper()
	w := e.Reactor.Waker()
	if w == nil {
		e.T.Fatal("reactor has no waker")
	}
	return w
}

// AssertWatching fails if d is not in the watch set.
func (e *TestEnv) AssertWatching(d backend.Descriptor) {
	e.T.Helper()
	if !e.Reactor.Watching(d) {
		e.T.Errorf("descriptor %d is not watched", d.Fd())
	}
}

// AssertNotWatching fails if d is in the watch set.
func (e *TestEnv) AssertNotWatching(d backend.Descriptor) {
	e.T.Helper()
	if e.Reactor.Watching(d) {
		e.T.Errorf("descriptor %d should not be watched", d.Fd())
	}
}

// AssertReady polls the reactor and fails unless fd is reported ready.
// Reactors without Poller skip the test.
func (e *TestEnv) AssertReady(fd uintptr) {
	e.T.Helper()
	p, ok := e.Reactor.(Poller)
	if !ok {
		e.T.Skip("reactor cannot wait for readiness")
	}
	ready, err := p.Poll(DefaultTimeout)
	if err != nil {
		e.T.Fatalf("Poll() returned error: %v", err)
	}
	if !slices.Contains(ready, fd) {
		e.T.Errorf("expected fd %d ready, got %v", fd, ready)
	}
}

// Shell returns a command running script under sh, skipping the test when no
// shell is available.
func (e *TestEnv) Shell(script string) *exec.Cmd {
	e.T.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		e.T.Skip("sh not available")
	}
	return exec.Command(sh, "-c", script)
}

// WaitReaped reaps until h has been collected or DefaultTimeout passes.
func (e *TestEnv) WaitReaped(h *process.Handler) {
	e.T.Helper()
	deadline := time.After(DefaultTimeout)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		process.Default.ReapAll()
		select {
		case <-h.Done():
			return
		case <-deadline:
			e.T.Fatalf("%s was not reaped within %v", h, DefaultTimeout)
		case <-e.Reactor.ChildExited():
		case <-tick.C:
		}
	}
}
