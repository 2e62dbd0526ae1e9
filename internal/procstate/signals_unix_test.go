//go:build unix

package procstate

import (
	"os"
	"testing"
)

func TestOSSignalsSwap(t *testing.T) {
	sigs := OSSignals()
	if !sigs.Supported() {
		t.Fatal("expected child signal support on unix")
	}

	c := make(chan os.Signal, 1)
	prev, err := sigs.Swap(NotifyDisposition(c))
	if err != nil {
		t.Fatalf("Swap returned error: %v", err)
	}
	t.Cleanup(func() {
		if _, err := sigs.Swap(prev); err != nil {
			t.Errorf("failed to restore disposition: %v", err)
		}
	})

	got, err := sigs.Swap(DefaultDisposition)
	if err != nil {
		t.Fatalf("Swap returned error: %v", err)
	}
	if got != NotifyDisposition(c) {
		t.Errorf("expected notify disposition back, got %s", got)
	}
}

func TestOSSignalsRejectsNilChannel(t *testing.T) {
	if _, err := OSSignals().Swap(Disposition{Kind: KindNotify}); err == nil {
		t.Error("expected error for notify disposition without channel")
	}
}

func TestOSEnv(t *testing.T) {
	env := OS()
	if env.Signals == nil || env.Processes == nil {
		t.Fatal("OS env must provide signals and processes")
	}

	g := NewGuard(env)
	if err := g.Begin(); err != nil {
		t.Fatalf("Begin returned error: %v", err)
	}
	if err := g.End(); err != nil {
		t.Fatalf("End returned error: %v", err)
	}
}
