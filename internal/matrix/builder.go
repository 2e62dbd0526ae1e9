package matrix

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"testing"

	"github.com/Quidge/reactortest/internal/backend"
)

// ErrNilHandle is returned by Construct when a factory reports success but
// returns no handle.
var ErrNilHandle = errors.New("factory returned a nil handle")

// CleanupError reports a teardown step that failed while unbuilding a
// handle. Cleanup failures are logged and never change a test's outcome.
type CleanupError struct {
	Step string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup step %s failed: %v", e.Step, e.Err)
}

func (e *CleanupError) Unwrap() error {
	return e.Err
}

// ConstructionError reports a factory that panicked instead of returning.
type ConstructionError struct {
	Value any
	Stack []byte
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("factory panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *ConstructionError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Construct invokes f. Errors from the factory are returned unchanged so the
// caller can tell backend.ErrUnavailable apart from genuine failures. A panic
// in f is returned as a *ConstructionError, so it fails or skips only the
// case that built it.
func Construct(f backend.Factory) (h backend.Handle, err error) {
	if f == nil {
		return nil, errors.New("no factory bound")
	}
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, &ConstructionError{Value: r, Stack: debug.Stack()}
		}
	}()

	h, err = f()
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrNilHandle
	}
	return h, nil
}

// Unbuild tears down h: the waker, if any, is detached from the watch set and
// marked closed, then every tracked connection is dropped, then h is closed if
// it is an io.Closer. Every step runs even if an earlier one failed. A
// panicking step is reported as a *CleanupError like any other failure.
func Unbuild(h backend.Handle) error {
	if h == nil {
		return nil
	}

	var errs []error
	step := func(name string, fn func() error) {
		defer func() {
			if r := recover(); r != nil {
				errs = append(errs, &CleanupError{Step: name, Err: fmt.Errorf("panic: %v", r)})
			}
		}()
		if err := fn(); err != nil {
			errs = append(errs, &CleanupError{Step: name, Err: err})
		}
	}

	if owner, ok := h.(backend.WakerOwner); ok {
		step("waker", func() error {
			if w := owner.Waker(); w != nil {
				h.RemoveReader(w)
				w.ConnectionLost(nil)
			}
			return nil
		})
	}
	step("disconnect", h.DisconnectAll)
	if c, ok := h.(io.Closer); ok {
		step("close", c.Close)
	}

	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// Builder constructs the backend of the case a test is running under. A
// Builder is valid only for the test it was handed to.
type Builder struct {
	tb     testing.TB
	c      Case
	strict bool
	logger *slog.Logger
}

func newBuilder(tb testing.TB, c Case, strict bool, logger *slog.Logger) *Builder {
	return &Builder{tb: tb, c: c, strict: strict, logger: logger}
}

// Backend returns the identifier of the backend this builder constructs.
func (b *Builder) Backend() string {
	return b.c.Backend
}

// Build constructs a fresh handle and registers its teardown as a test
// cleanup, so it runs exactly once however the test ends.
//
// If construction fails with an error wrapping backend.ErrUnavailable the
// test is skipped with the error as the reason. Other errors, a panicking
// factory included, also skip the test unless the run is strict, in which
// case they fail it.
func (b *Builder) Build() backend.Handle {
	b.tb.Helper()

	if b.c.Skip {
		b.tb.Skip(b.c.SkipReason)
	}

	h, err := Construct(b.c.Factory)
	if err != nil {
		var ce *ConstructionError
		if errors.As(err, &ce) {
			b.logger.Error("backend factory panicked", "backend", b.c.Backend, "panic", ce.Value, "stack", string(ce.Stack))
		}
		if errors.Is(err, backend.ErrUnavailable) || !b.strict {
			b.tb.Skip(err.Error())
		}
		b.tb.Fatalf("failed to build %s: %v", b.c.Backend, err)
	}

	b.tb.Cleanup(func() {
		if err := Unbuild(h); err != nil {
			b.logger.Error("failed to unbuild reactor", "backend", b.c.Backend, "error", err)
			b.tb.Logf("failed to unbuild %s: %v", b.c.Backend, err)
		}
	})
	return h
}
