package reactor

import (
	"errors"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/backend/conformance"
	"github.com/Quidge/reactortest/internal/matrix"
)

var _ conformance.Reactor = (*SelectReactor)(nil)

func TestSelectReactorRegistered(t *testing.T) {
	f, err := backend.Resolve(backend.SelectReactor)
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	h, err := matrix.Construct(f)
	if err != nil {
		t.Fatalf("Construct() returned error: %v", err)
	}
	t.Cleanup(func() { matrix.Unbuild(h) })

	if _, ok := h.(*SelectReactor); !ok {
		t.Errorf("expected *SelectReactor, got %T", h)
	}
}

func TestWakerWatchedFromBirth(t *testing.T) {
	r, err := NewSelectReactor()
	if err != nil {
		t.Fatalf("NewSelectReactor() returned error: %v", err)
	}
	t.Cleanup(func() { matrix.Unbuild(r) })

	w := r.Waker()
	if w == nil {
		t.Fatal("expected a waker")
	}
	if !r.Watching(w) {
		t.Error("expected waker to be watched")
	}
	if r.Readers() != 1 {
		t.Errorf("expected 1 reader, got %d", r.Readers())
	}
}

func TestUnbuildReleasesWaker(t *testing.T) {
	r, err := NewSelectReactor()
	if err != nil {
		t.Fatalf("NewSelectReactor() returned error: %v", err)
	}
	w := r.Waker()

	if err := matrix.Unbuild(r); err != nil {
		t.Fatalf("Unbuild() returned error: %v", err)
	}
	if r.Watching(w) {
		t.Error("expected waker removed from the watch set")
	}
	if r.Waker() != nil {
		t.Error("expected Waker() to return nil after release")
	}
	if err := r.Wakeup(); err == nil {
		t.Error("expected Wakeup() on a released waker to fail")
	}
}

func TestAddReaderIsIdempotent(t *testing.T) {
	r, err := NewSelectReactor()
	if err != nil {
		t.Fatalf("NewSelectReactor() returned error: %v", err)
	}
	t.Cleanup(func() { matrix.Unbuild(r) })

	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		pr.Close()
		pw.Close()
	})

	for i := 0; i < 2; i++ {
		if err := r.AddReader(pr); err != nil {
			t.Fatalf("AddReader() returned error: %v", err)
		}
	}
	if r.Readers() != 2 {
		t.Errorf("expected waker plus one reader, got %d", r.Readers())
	}
}

type failingConn struct {
	err    error
	closed bool
}

func (c *failingConn) Close() error {
	c.closed = true
	return c.err
}

func TestDisconnectAllReportsErrors(t *testing.T) {
	r, err := NewSelectReactor()
	if err != nil {
		t.Fatalf("NewSelectReactor() returned error: %v", err)
	}
	t.Cleanup(func() { matrix.Unbuild(r) })

	bad := &failingConn{err: errors.New("reset by peer")}
	good := &failingConn{}
	alreadyClosed := &failingConn{err: os.ErrClosed}
	r.Track(bad)
	r.Track(good)
	r.Track(alreadyClosed)

	err = r.DisconnectAll()
	if !errors.Is(err, bad.err) {
		t.Errorf("expected error from failing connection, got %v", err)
	}
	if errors.Is(err, os.ErrClosed) {
		t.Errorf("already closed connections must not be reported, got %v", err)
	}
	if !bad.closed || !good.closed || !alreadyClosed.closed {
		t.Error("expected every connection to be closed")
	}
	if r.Connections() != 0 {
		t.Errorf("expected no connections left, got %d", r.Connections())
	}
	if err := r.DisconnectAll(); err != nil {
		t.Errorf("second DisconnectAll() returned error: %v", err)
	}
}

func TestRegisteredIDsAreKnown(t *testing.T) {
	for _, id := range backend.RegisteredIDs() {
		if !slices.Contains(backend.DefaultRegistry, id) {
			t.Errorf("registered backend %q missing from the default registry", id)
		}
	}
}

func TestDefaultRegistryReportsAbsentReactorsAsSkipped(t *testing.T) {
	m := matrix.Generate(matrix.Behavior{Name: "Foo"}, backend.DefaultRegistry, backend.Default)
	if m.Len() != len(backend.DefaultRegistry) {
		t.Fatalf("expected %d cases, got %d", len(backend.DefaultRegistry), m.Len())
	}

	for _, id := range []string{backend.Glib2Reactor, backend.Gtk2Reactor, backend.Win32Reactor, backend.IOCPReactor} {
		c, ok := m.Case(matrix.CaseName("Foo", id))
		if !ok {
			t.Fatalf("missing case for %s", id)
		}
		if !c.Skip || c.Factory != nil {
			t.Errorf("expected %s to be skipped without a factory, got %+v", id, c)
		}
		if !strings.Contains(c.SkipReason, "no backend registered") {
			t.Errorf("expected skip reason to explain %s is not registered, got %q", id, c.SkipReason)
		}
	}

	if c, _ := m.Case("Foo_SelectReactor"); c.Skip {
		t.Errorf("expected SelectReactor to resolve, got skip %q", c.SkipReason)
	}
}
