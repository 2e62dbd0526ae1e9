package procstate

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrStuckReap is returned when child processes remain pending after the reap
// loop has exhausted its attempts.
var ErrStuckReap = errors.New("child processes still pending")

// StuckReapError reports the handlers that never went away.
type StuckReapError struct {
	Attempts int
	Pending  []string
}

func (e *StuckReapError) Error() string {
	return fmt.Sprintf("%s after %d reap attempts: %v", ErrStuckReap.Error(), e.Attempts, e.Pending)
}

func (e *StuckReapError) Unwrap() error {
	return ErrStuckReap
}

// ReapPolicy bounds the reap loop run at the end of every test.
type ReapPolicy struct {
	// MaxAttempts is the number of ReapAll calls before giving up.
	// Zero means keep reaping until the pending set empties.
	MaxAttempts int

	// InitialInterval is the pause after the first unsuccessful attempt.
	InitialInterval time.Duration

	// MaxInterval caps the exponentially growing pause.
	MaxInterval time.Duration
}

// DefaultReapPolicy returns the policy used when configuration does not
// override it.
func DefaultReapPolicy() ReapPolicy {
	return ReapPolicy{
		MaxAttempts:     100,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

func (p ReapPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	if b.MaxInterval < b.InitialInterval {
		b.MaxInterval = b.InitialInterval
	}
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

// Guard brackets a single test: Begin resets the child-termination signal to
// its default disposition, End restores what Begin replaced and reaps any
// child processes the test left behind. A Guard is used for exactly one test.
type Guard struct {
	env      Env
	logger   *slog.Logger
	policy   ReapPolicy
	sleep    func(time.Duration)
	snapshot *Disposition
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the logger reap diagnostics are written to.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithReapPolicy overrides DefaultReapPolicy.
func WithReapPolicy(p ReapPolicy) Option {
	return func(g *Guard) { g.policy = p }
}

// NewGuard returns a Guard over env.
func NewGuard(env Env, opts ...Option) *Guard {
	g := &Guard{
		env:    env,
		logger: slog.Default(),
		policy: DefaultReapPolicy(),
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Begin records the current child-termination disposition and installs the
// default one, so every test starts from the state of a fresh process.
// Platforms without the signal are skipped silently.
func (g *Guard) Begin() error {
	if g.env.Signals == nil || !g.env.Signals.Supported() {
		return nil
	}
	prev, err := g.env.Signals.Swap(DefaultDisposition)
	if err != nil {
		return fmt.Errorf("failed to reset child signal disposition: %w", err)
	}
	g.snapshot = &prev
	g.logger.Debug("reset child signal disposition", "previous", prev.String())
	return nil
}

// Captured reports whether Begin recorded a disposition that End has not yet
// restored.
func (g *Guard) Captured() bool {
	return g.snapshot != nil
}

// End restores the disposition recorded by Begin, at most once, then reaps
// child processes until none are pending. Errors from either step are joined;
// both mean shared process state can no longer be trusted.
func (g *Guard) End() error {
	var errs []error

	if g.snapshot != nil {
		prev := *g.snapshot
		g.snapshot = nil
		if _, err := g.env.Signals.Swap(prev); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore child signal disposition %s: %w", prev, err))
		}
	}

	if err := g.reap(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (g *Guard) reap() error {
	if g.env.Processes == nil {
		return nil
	}

	b := g.policy.newBackOff()
	pending := g.env.Processes.Pending()
	for attempt := 1; len(pending) > 0; attempt++ {
		if g.policy.MaxAttempts > 0 && attempt > g.policy.MaxAttempts {
			return &StuckReapError{Attempts: attempt - 1, Pending: pending}
		}

		g.logger.Info("reaping leftover child processes", "pending", pending, "attempt", attempt)
		g.env.Processes.ReapAll()

		pending = g.env.Processes.Pending()
		if len(pending) > 0 {
			if d := b.NextBackOff(); d > 0 {
				g.sleep(d)
			}
		}
	}
	return nil
}
