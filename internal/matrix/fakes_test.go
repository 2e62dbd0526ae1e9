package matrix

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"testing"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/procstate"
)

// fakeTB captures skips, failures and cleanups without touching the real
// test. Skip and Fatalf end the calling goroutine like their real
// counterparts, so bodies must be run through runFake.
type fakeTB struct {
	testing.TB

	skipped  bool
	failed   bool
	msgs     []string
	cleanups []func()
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Skip(args ...any) {
	f.skipped = true
	f.msgs = append(f.msgs, fmt.Sprint(args...))
	runtime.Goexit()
}

func (f *fakeTB) Fatalf(format string, args ...any) {
	f.failed = true
	f.msgs = append(f.msgs, fmt.Sprintf(format, args...))
	runtime.Goexit()
}

func (f *fakeTB) Errorf(format string, args ...any) {
	f.failed = true
	f.msgs = append(f.msgs, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Logf(format string, args ...any) {
	f.msgs = append(f.msgs, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Log(args ...any) {
	f.msgs = append(f.msgs, fmt.Sprint(args...))
}

func (f *fakeTB) Cleanup(fn func()) {
	f.cleanups = append(f.cleanups, fn)
}

// runFake runs body on its own goroutine, then runs the registered cleanups
// in reverse order.
func runFake(body func(tb *fakeTB)) *fakeTB {
	tb := &fakeTB{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		body(tb)
	}()
	<-done

	for i := len(tb.cleanups) - 1; i >= 0; i-- {
		tb.cleanups[i]()
	}
	return tb
}

type fakeDescriptor uintptr

func (d fakeDescriptor) Fd() uintptr { return uintptr(d) }

type fakeWaker struct {
	fakeDescriptor
	events *[]string
}

func (w *fakeWaker) ConnectionLost(reason error) {
	*w.events = append(*w.events, "connectionLost")
}

// fakeHandle records the teardown calls made on it.
type fakeHandle struct {
	events        []string
	waker         *fakeWaker
	disconnects   int
	disconnectErr error
	panicOn       string
	onDisconnect  func()
}

func newFakeHandle(withWaker bool) *fakeHandle {
	h := &fakeHandle{}
	if withWaker {
		h.waker = &fakeWaker{fakeDescriptor: 3, events: &h.events}
	}
	return h
}

func (h *fakeHandle) RemoveReader(d backend.Descriptor) {
	h.events = append(h.events, fmt.Sprintf("removeReader(%d)", d.Fd()))
}

func (h *fakeHandle) DisconnectAll() error {
	h.disconnects++
	h.events = append(h.events, "disconnectAll")
	if h.onDisconnect != nil {
		h.onDisconnect()
	}
	if h.panicOn == "disconnect" {
		panic("disconnect exploded")
	}
	return h.disconnectErr
}

func (h *fakeHandle) Waker() backend.Waker {
	if h.waker == nil {
		return nil
	}
	return h.waker
}

// closingHandle is a fakeHandle that also owns a closable resource.
type closingHandle struct {
	*fakeHandle
	closeErr error
}

func (h closingHandle) Close() error {
	h.events = append(h.events, "close")
	return h.closeErr
}

// countingFactory returns a factory that hands out h and counts calls.
func countingFactory(h backend.Handle, err error, calls *int) backend.Factory {
	return func() (backend.Handle, error) {
		*calls++
		if err != nil {
			return nil, err
		}
		return h, nil
	}
}

// fakeResolver resolves from fixed tables.
type fakeResolver struct {
	factories map[string]backend.Factory
	errs      map[string]error
}

func (r fakeResolver) Resolve(id string) (backend.Factory, error) {
	if err, ok := r.errs[id]; ok {
		return nil, err
	}
	if f, ok := r.factories[id]; ok {
		return f, nil
	}
	return nil, errors.New("unknown backend " + id)
}

// fakeSignals is an in-memory child signal disposition.
type fakeSignals struct {
	current procstate.Disposition
	swaps   int
}

func (s *fakeSignals) Supported() bool { return true }

func (s *fakeSignals) Swap(d procstate.Disposition) (procstate.Disposition, error) {
	prev := s.current
	s.current = d
	s.swaps++
	return prev, nil
}

// fakeProcesses drops a pending handler once it has survived `lag` reaps.
type fakeProcesses struct {
	pending []string
	lag     int
	reaps   int
	stuck   bool
}

func (p *fakeProcesses) Pending() []string { return append([]string(nil), p.pending...) }

func (p *fakeProcesses) ReapAll() {
	p.reaps++
	if p.stuck || len(p.pending) == 0 {
		return
	}
	if p.lag > 0 {
		p.lag--
		return
	}
	p.pending = p.pending[1:]
}

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
