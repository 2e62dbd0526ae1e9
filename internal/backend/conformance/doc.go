// Package conformance provides backend-agnostic behaviors that verify
// reactors honor the contract the test matrix relies on: a waker watched from
// birth and detachable by Unbuild, connections dropped by DisconnectAll,
// idempotent teardown, and children that are reaped before the next test.
//
// # Running Conformance Tests
//
// The behaviors run against every backend in the configured registry:
//
//	go test ./internal/backend/conformance
//
// Restrict the run to some backends with the REACTORTEST_BACKENDS environment
// variable or a .reactortest.yaml file:
//
//	REACTORTEST_BACKENDS=reactortest.reactor.EPollReactor go test ./internal/backend/conformance
//
// Backends absent on the current platform appear as skipped subtests.
//
// # Adding a New Backend
//
//  1. Register a factory from init, gated by build tags where needed:
//
//     func init() {
//     backend.Register("example.MyReactor", func() (backend.Handle, error) { return NewMyReactor() })
//     }
//
//  2. Implement Reactor (and Poller if the backend can wait for readiness).
//
//  3. Add the identifier to the registry in .reactortest.yaml.
//
// # Behavior Categories
//
//   - Lifecycle: waker detachment, connection teardown, idempotent unbuild
//   - Readers: watch set bookkeeping and wakeups
//   - Processes: spawning children and leaving process state clean
package conformance
