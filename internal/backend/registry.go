package backend

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// ErrNotRegistered is returned when an identifier has no registered factory.
var ErrNotRegistered = errors.New("backend not registered")

// ResolutionError is returned when an identifier cannot be turned into a
// usable factory. Resolution failures are routine (a platform-specific backend
// absent on the current OS) and degrade to a skipped test.
type ResolutionError struct {
	ID     string
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("cannot resolve backend %q: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("cannot resolve backend %q: %s", e.ID, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// Resolver turns a backend identifier into a factory.
type Resolver interface {
	Resolve(id string) (Factory, error)
}

// Catalog holds the registered backend factories, keyed by identifier.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: make(map[string]Factory)}
}

// Register registers a factory for the given identifier.
// It panics on an empty identifier, a nil factory, or a duplicate
// registration; all three are programming errors caught at init time.
func (c *Catalog) Register(id string, factory Factory) {
	if id == "" {
		panic("backend identifier must not be empty")
	}
	if factory == nil {
		panic(fmt.Sprintf("backend %q registered with nil factory", id))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.factories[id]; exists {
		panic(fmt.Sprintf("backend %q already registered", id))
	}
	c.factories[id] = factory
}

// Resolve returns the factory registered for id. It never panics; a missing
// identifier yields a *ResolutionError.
func (c *Catalog) Resolve(id string) (Factory, error) {
	c.mu.RLock()
	factory, ok := c.factories[id]
	c.mu.RUnlock()

	if !ok {
		return nil, &ResolutionError{
			ID:     id,
			Reason: fmt.Sprintf("no backend registered under this name on %s/%s", runtime.GOOS, runtime.GOARCH),
			Err:    ErrNotRegistered,
		}
	}
	return factory, nil
}

// IDs returns every registered identifier in lexical order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.factories))
	for id := range c.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Default is the catalog backends register into from their init functions.
var Default = NewCatalog()

// Register registers a factory in the default catalog.
// This should be called during package init.
func Register(id string, factory Factory) {
	Default.Register(id, factory)
}

// Resolve resolves id against the default catalog.
func Resolve(id string) (Factory, error) {
	return Default.Resolve(id)
}

// RegisteredIDs returns the identifiers registered in the default catalog.
func RegisteredIDs() []string {
	return Default.IDs()
}
