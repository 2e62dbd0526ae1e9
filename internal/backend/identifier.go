package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Identifiers of the reference reactors in internal/reactor.
const (
	SelectReactor = "reactortest.reactor.SelectReactor"
	PollReactor   = "reactortest.reactor.PollReactor"
	EPollReactor  = "reactortest.reactor.EPollReactor"
	KQueueReactor = "reactortest.reactor.KQueueReactor"
)

// Identifiers of reactors driven by a GUI main loop or by Windows APIs.
// Nothing in this module implements them; they resolve only in a binary that
// links a package registering them.
const (
	Glib2Reactor = "reactortest.reactor.Glib2Reactor"
	Gtk2Reactor  = "reactortest.reactor.Gtk2Reactor"
	Win32Reactor = "reactortest.reactor.Win32Reactor"
	IOCPReactor  = "reactortest.reactor.IOCPReactor"
)

// DefaultRegistry is the registry used when configuration does not override
// it. Entries resolve only where their reactor is compiled in; elsewhere they
// produce skipped cases.
var DefaultRegistry = Registry{
	SelectReactor,
	PollReactor,
	EPollReactor,
	Glib2Reactor,
	Gtk2Reactor,
	KQueueReactor,
	Win32Reactor,
	IOCPReactor,
}

// ErrInvalidRegistry is returned when a registry contains empty or duplicate
// identifiers.
var ErrInvalidRegistry = errors.New("invalid backend registry")

// Registry is an ordered, duplicate-free list of backend identifiers. Order
// determines the enumeration order of generated cases.
type Registry []string

// NewRegistry validates ids and returns them as a Registry.
func NewRegistry(ids ...string) (Registry, error) {
	seen := make(map[string]bool, len(ids))
	reg := make(Registry, 0, len(ids))
	for i, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: entry %d is empty", ErrInvalidRegistry, i)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %q listed more than once", ErrInvalidRegistry, id)
		}
		seen[id] = true
		reg = append(reg, id)
	}
	return reg, nil
}

// ParseRegistry parses a comma-separated identifier list, ignoring blank
// entries.
func ParseRegistry(s string) (Registry, error) {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return NewRegistry(ids...)
}

// List returns a copy of the identifiers in registry order.
func (r Registry) List() []string {
	out := make([]string, len(r))
	copy(out, r)
	return out
}

// Without returns the registry minus the given identifiers or short names.
func (r Registry) Without(excluded ...string) Registry {
	if len(excluded) == 0 {
		return r
	}
	drop := make(map[string]bool, len(excluded))
	for _, e := range excluded {
		drop[e] = true
	}
	out := make(Registry, 0, len(r))
	for _, id := range r {
		if drop[id] || drop[ShortName(id)] {
			continue
		}
		out = append(out, id)
	}
	return out
}

// ShortName returns the final path segment of an identifier:
// "reactortest.reactor.EPollReactor" becomes "EPollReactor".
func ShortName(id string) string {
	if i := strings.LastIndexAny(id, "./"); i >= 0 {
		return id[i+1:]
	}
	return id
}
