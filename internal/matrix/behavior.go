package matrix

import "testing"

// Test is one backend-agnostic test. Run receives a Builder bound to the
// backend of the case it is running under.
type Test struct {
	Name string
	Run  func(t *testing.T, b *Builder)
}

// Behavior is a named, ordered group of tests run against every backend.
type Behavior struct {
	Name  string
	Tests []Test
}
