// Package matrix turns a backend-agnostic test behavior into one concrete
// test case per registered backend and runs those cases with process-global
// state reset between every test.
//
// A behavior is declared once:
//
//	var Lifecycle = matrix.Behavior{
//		Name: "Lifecycle",
//		Tests: []matrix.Test{
//			{Name: "DisconnectAll", Run: func(t *testing.T, b *matrix.Builder) {
//				h := b.Build()
//				...
//			}},
//		},
//	}
//
// and run against every backend from an ordinary test function:
//
//	func TestLifecycle(t *testing.T) {
//		matrix.Run(t, Lifecycle)
//	}
//
// which produces subtests named TestLifecycle/Lifecycle_SelectReactor/DisconnectAll,
// TestLifecycle/Lifecycle_EPollReactor/DisconnectAll, and so on. Backends that
// cannot be resolved on the current platform show up as skipped subtests.
//
// Cases always run sequentially. Every test is bracketed by a
// procstate.Guard, so it starts with the default child-termination signal
// disposition and finishes only after every child process it spawned has been
// reaped. A guard failure poisons the Runner: once shared process state can no
// longer be trusted, every later test fails fast with the original cause.
package matrix
