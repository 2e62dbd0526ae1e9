package conformance

import (
	"errors"
	"os"
	"testing"

	"github.com/Quidge/reactortest/internal/matrix"
	"github.com/Quidge/reactortest/internal/process"
	"github.com/Quidge/reactortest/internal/procstate"
)

// Behaviors returns every conformance behavior, in the order they should run.
func Behaviors() []matrix.Behavior {
	return []matrix.Behavior{Lifecycle, Readers, Processes}
}

// Lifecycle verifies construction and teardown.
var Lifecycle = matrix.Behavior{
	Name: "Lifecycle",
	Tests: []matrix.Test{
		{Name: "WakerWatchedFromBirth", Run: testWakerWatchedFromBirth},
		{Name: "UnbuildReleasesWaker", Run: testUnbuildReleasesWaker},
		{Name: "DisconnectAllClosesConnections", Run: testDisconnectAll},
		{Name: "UnbuildIsIdempotent", Run: testUnbuildIdempotent},
	},
}

func testWakerWatchedFromBirth(t *testing.T, b *matrix.Builder) {
	env := NewTestEnv(t, b)
	env.AssertWatching(env.MustWaker())
}

func testUnbuildReleasesWaker(t *testing.T, b *matrix.Builder) {
	env := NewTestEnv(t, b)
	w := env.MustWaker()

	if err := matrix.Unbuild(env.Reactor); err != nil {
		t.Fatalf("Unbuild() returned error: %v", err)
	}
	env.AssertNotWatching(w)
	if env.Reactor.Waker() != nil {
		t.Error("expected no waker after Unbuild")
	}
}

func testDisconnectAll(t *testing.T, b *matrix.Builder) {
	env := NewTestEnv(t, b)
	r1, w1 := env.Pipe()
	_, w2 := env.Pipe()

	if err := env.Reactor.AddReader(r1); err != nil {
		t.Fatalf("AddReader() returned error: %v", err)
	}
	env.Reactor.Track(r1)
	env.Reactor.Track(w2)
	if got := env.Reactor.Connections(); got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}

	if err := env.Reactor.DisconnectAll(); err != nil {
		t.Fatalf("DisconnectAll() returned error: %v", err)
	}
	if got := env.Reactor.Connections(); got != 0 {
		t.Errorf("expected 0 connections, got %d", got)
	}
	if _, err := w2.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("expected tracked connection closed, write returned %v", err)
	}
	if _, err := w1.Write([]byte("x")); err == nil {
		t.Error("expected write to a pipe with a closed reader to fail")
	}
}

func testUnbuildIdempotent(t *testing.T, b *matrix.Builder) {
	env := NewTestEnv(t, b)
	for i := 0; i < 2; i++ {
		if err := matrix.Unbuild(env.Reactor); err != nil {
			t.Fatalf("Unbuild() #%d returned error: %v", i+1, err)
		}
	}
}

// Readers verifies watch set bookkeeping.
var Readers = matrix.Behavior{
	Name: "Readers",
	Tests: []matrix.Test{
		{Name: "AddRemoveReader", Run: testAddRemoveReader},
		{Name: "WakeupMakesWakerReady", Run: testWakeupReady},
		{Name: "ReadableDescriptorIsReady", Run: testReadableReady},
	},
}

func testAddRemoveReader(t *testing.T, b *matrix.Builder) {
	env := NewTestEnv(t, b)
	r, _ := env.Pipe()

	if err := env.Reactor.AddReader(r); err != nil {
		t.Fatalf("AddReader() returned error: %v", err)
	}
	env.AssertWatching(r)

	env.Reactor.RemoveReader(r)
	env.AssertNotWatching(r)

	// Removing again is a no-op.
	env.Reactor.RemoveReader(r)
	env.AssertWatching(env.MustWaker())
}

func testWakeupReady(t *testing.T, b *matrix.Builder) {
	env := NewTestEnv(t, b)
	if err := env.Reactor.Wakeup(); err != nil {
		t.Fatalf("Wakeup() returned error: %v", err)
	}
	env.AssertReady(env.MustWaker().Fd())
}

func testReadableReady(t *testing.T, b *matrix.Builder) {
	env := NewTestEnv(t, b)
	r, w := env.Pipe()
	if err := env.Reactor.AddReader(r); err != nil {
		t.Fatalf("AddReader() returned error: %v", err)
	}
	if _, err := w.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	env.AssertReady(r.Fd())
}

// Processes verifies that children a reactor spawns never outlive the test
// that spawned them.
var Processes = matrix.Behavior{
	Name: "Processes",
	Tests: []matrix.Test{
		{Name: "SpawnedChildIsReaped", Run: testSpawnReaped},
		{Name: "StrayChildLeftBehind", Run: testStrayChild},
		{Name: "StartsWithCleanProcessState", Run: testCleanProcessState},
	},
}

func testSpawnReaped(t *testing.T, b *matrix.Builder) {
	env := NewTestEnv(t, b)
	h, err := env.Reactor.Spawn(env.Shell("exit 7"), "exit7")
	if err != nil {
		t.Fatalf("Spawn() returned error: %v", err)
	}
	env.WaitReaped(h)
	if got := h.ExitStatus(); got != 7 {
		t.Errorf("expected exit status 7, got %d", got)
	}
}

// testStrayChild leaves a running child behind on purpose; the guard around
// the test reaps it before the next test starts.
func testStrayChild(t *testing.T, b *matrix.Builder) {
	env := NewTestEnv(t, b)
	if _, err := env.Reactor.Spawn(env.Shell("sleep 0.1"), "stray"); err != nil {
		t.Fatalf("Spawn() returned error: %v", err)
	}
}

func testCleanProcessState(t *testing.T, b *matrix.Builder) {
	if pending := process.Default.Pending(); len(pending) != 0 {
		t.Errorf("expected no pending children, got %v", pending)
	}

	sigs := procstate.OSSignals()
	if !sigs.Supported() {
		return
	}
	prev, err := sigs.Swap(procstate.DefaultDisposition)
	if err != nil {
		t.Fatalf("Swap() returned error: %v", err)
	}
	if prev != procstate.DefaultDisposition {
		t.Errorf("expected default child signal disposition, got %s", prev)
	}
}
