package matrix

import (
	"regexp"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/logging"
)

// nonIdentifier matches runs of characters that cannot appear in a case name.
var nonIdentifier = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// CaseName returns the name of the case generated for behavior and backend id:
// "<behavior>_<short name>", with every run of characters outside
// [A-Za-z0-9_] replaced by a single underscore.
func CaseName(behavior, id string) string {
	return nonIdentifier.ReplaceAllString(behavior+"_"+backend.ShortName(id), "_")
}

// Case is one behavior bound to one backend.
type Case struct {
	Name    string
	Backend string

	// Factory is nil when the backend could not be resolved.
	Factory backend.Factory

	Skip       bool
	SkipReason string
}

// Matrix is the set of cases generated for a behavior, in registry order.
type Matrix struct {
	Behavior Behavior

	cases  []*Case
	byName map[string]*Case
}

// Generate produces one case per registry entry. Entries the resolver cannot
// resolve become skipped cases carrying the resolver's message; their factory
// is never invoked. Generate never fails and never constructs a backend.
//
// Two identifiers sharing a short name produce the same case name; the later
// entry replaces the earlier one in place and a warning is logged.
func Generate(b Behavior, reg backend.Registry, r backend.Resolver) *Matrix {
	if r == nil {
		r = backend.Default
	}
	log := logging.For("Matrix")

	m := &Matrix{
		Behavior: b,
		byName:   make(map[string]*Case, len(reg)),
	}
	for _, id := range reg {
		c := &Case{
			Name:    CaseName(b.Name, id),
			Backend: id,
		}
		f, err := r.Resolve(id)
		switch {
		case err != nil:
			c.Skip = true
			c.SkipReason = err.Error()
		case f == nil:
			c.Skip = true
			c.SkipReason = "resolver returned no factory for " + id
		default:
			c.Factory = f
		}

		if prev, ok := m.byName[c.Name]; ok {
			log.Warn("duplicate case name, later backend wins",
				"case", c.Name, "replaced", prev.Backend, "backend", id)
			*prev = *c
			continue
		}
		m.byName[c.Name] = c
		m.cases = append(m.cases, c)
	}
	return m
}

// Len returns the number of cases.
func (m *Matrix) Len() int {
	return len(m.cases)
}

// Names returns the case names in registry order.
func (m *Matrix) Names() []string {
	names := make([]string, len(m.cases))
	for i, c := range m.cases {
		names[i] = c.Name
	}
	return names
}

// Case returns the case with the given name.
func (m *Matrix) Case(name string) (Case, bool) {
	c, ok := m.byName[name]
	if !ok {
		return Case{}, false
	}
	return *c, true
}

// Cases returns copies of all cases in registry order.
func (m *Matrix) Cases() []Case {
	out := make([]Case, len(m.cases))
	for i, c := range m.cases {
		out[i] = *c
	}
	return out
}
