// Package backend defines the contract every reactor backend exposes to the
// test matrix, together with the catalog that resolves backend identifiers
// to constructors and the ordered registry of identifiers a run covers.
//
// A backend is an interchangeable reactor-style I/O multiplexer. The matrix
// never drives a backend's event loop; it only needs to build one, hand it to
// a test, and tear down whatever the test left behind:
//
//	| Method          | Used by                 | Purpose                       |
//	|-----------------|-------------------------|-------------------------------|
//	| RemoveReader    | matrix.Unbuild          | detach the waker from watches |
//	| DisconnectAll   | matrix.Unbuild          | drop all tracked connections  |
//	| Waker (opt.)    | matrix.Unbuild          | locate the self-pipe waker    |
//	| Close (opt.)    | matrix.Unbuild          | release kernel resources      |
package backend

import (
	"errors"
	"fmt"
)

// Descriptor is anything a reactor can watch for readiness.
type Descriptor interface {
	// Fd returns the underlying file descriptor or handle.
	Fd() uintptr
}

// Handle is a constructed reactor. Handles are built inside a single test and
// never shared across tests.
type Handle interface {
	// RemoveReader stops watching d for readability. Removing a descriptor
	// that is not watched is a no-op.
	RemoveReader(d Descriptor)

	// DisconnectAll discards every connection the reactor is tracking.
	DisconnectAll() error
}

// Waker is the self-pipe (or event object) a reactor uses to interrupt a
// blocking wait.
type Waker interface {
	Descriptor

	// ConnectionLost marks the waker closed and releases its resources.
	ConnectionLost(reason error)
}

// WakerOwner is implemented by handles that keep an internal waker. The waker
// needs explicit detachment before DisconnectAll because generic connection
// teardown does not know to special-case it.
type WakerOwner interface {
	// Waker returns the reactor's waker, or nil if it has none.
	Waker() Waker
}

// Factory is a zero-argument constructor for a Handle. A factory reports
// environment limitations (missing OS feature, absent library) by returning an
// error that wraps ErrUnavailable.
type Factory func() (Handle, error)

// ErrUnavailable marks a backend that cannot be constructed in the current
// environment. It is not a logic failure.
var ErrUnavailable = errors.New("backend unavailable")

// Unavailable returns an error wrapping ErrUnavailable with the given reason.
func Unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}
