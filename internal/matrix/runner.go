package matrix

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/config"
	"github.com/Quidge/reactortest/internal/logging"
	"github.com/Quidge/reactortest/internal/procstate"
	"github.com/google/uuid"
)

// BackendsEnv names an environment variable holding a comma-separated backend
// list that replaces the configured registry for Run.
const BackendsEnv = "REACTORTEST_BACKENDS"

// Runner runs generated cases sequentially, each test bracketed by a
// procstate.Guard.
type Runner struct {
	// ID tags every diagnostic the runner logs, so output from one test
	// binary can be told apart from another writing to the same place.
	ID string

	Env procstate.Env

	// Logger receives guard and cleanup diagnostics. When nil each test gets
	// a logger writing through t.Log.
	Logger *slog.Logger

	// Level is the minimum level of the per-test logger used when Logger
	// is nil.
	Level logging.Level

	Strict bool
	Reap   procstate.ReapPolicy

	mu       sync.Mutex
	poisoned error
}

// NewRunner returns a Runner configured from cfg over env.
func NewRunner(cfg config.MergedConfig, env procstate.Env) *Runner {
	// Merge has already validated the level.
	level, _ := logging.ParseLevel(cfg.LogLevel)
	return &Runner{
		ID:     uuid.NewString(),
		Env:    env,
		Level:  level,
		Strict: cfg.Strict,
		Reap:   cfg.Reap.Policy(),
	}
}

// Err returns the guard failure that poisoned the runner, if any.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.poisoned
}

func (r *Runner) poison(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.poisoned == nil {
		r.poisoned = err
	}
}

// Run registers every case of m as a subtest of t, in registry order.
func (r *Runner) Run(t *testing.T, m *Matrix) {
	t.Helper()
	for _, c := range m.Cases() {
		t.Run(c.Name, func(t *testing.T) {
			r.RunCase(t, c, m.Behavior.Tests)
		})
	}
}

// RunCase runs tests as subtests of t against the backend of c. A skipped
// case skips t without running any test or touching process state.
func (r *Runner) RunCase(t *testing.T, c Case, tests []Test) {
	t.Helper()
	if c.Skip {
		t.Skip(c.SkipReason)
	}
	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			logger := r.logger(t)
			r.guard(t, logger)
			test.Run(t, newBuilder(t, c, r.Strict, logger))
		})
	}
}

func (r *Runner) logger(tb testing.TB) *slog.Logger {
	logger := r.Logger
	if logger == nil {
		logger = logging.NewTestLoggerAt(tb, "Matrix", r.Level)
	}
	if r.ID != "" {
		logger = logger.With("run", r.ID)
	}
	return logger
}

// guard begins a procstate.Guard for tb and registers its End as the first
// cleanup, so it runs after every cleanup the test body registers.
func (r *Runner) guard(tb testing.TB, logger *slog.Logger) {
	tb.Helper()

	if err := r.Err(); err != nil {
		tb.Fatalf("process state is no longer trusted: %v", err)
	}

	g := procstate.NewGuard(r.Env, procstate.WithLogger(logger), procstate.WithReapPolicy(r.Reap))
	if err := g.Begin(); err != nil {
		r.poison(err)
		tb.Fatalf("failed to prepare process state: %v", err)
	}
	tb.Cleanup(func() {
		if err := g.End(); err != nil {
			r.poison(err)
			tb.Errorf("failed to restore process state: %v", err)
		}
	})
}

// session is shared by every Run call in a test binary, so a poisoned
// process state outlives the behavior that caused it.
type session struct {
	runner   *Runner
	registry backend.Registry
}

var defaultSession = sync.OnceValues(func() (*session, error) {
	var flags config.FlagOverrides
	if v := os.Getenv(BackendsEnv); v != "" {
		flags.Backends = []string{v}
	}
	cfg, err := config.LoadFromCwd(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.For("Matrix").Debug("loaded configuration",
		"project", cfg.ProjectPath, "backends", len(cfg.Backends), "strict", cfg.Strict)
	return &session{
		runner:   NewRunner(cfg, procstate.OS()),
		registry: cfg.Registry(),
	}, nil
})

// Run generates the cases of b against the configured registry and the
// default backend catalog, then runs them.
func Run(t *testing.T, b Behavior) {
	t.Helper()

	s, err := defaultSession()
	if err != nil {
		t.Fatal(err)
	}
	s.runner.Run(t, Generate(b, s.registry, backend.Default))
}
