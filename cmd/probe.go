package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/config"
	"github.com/Quidge/reactortest/internal/logging"
	"github.com/Quidge/reactortest/internal/matrix"
	"github.com/Quidge/reactortest/internal/procstate"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe [BACKEND...]",
	Short: "Build and tear down each backend",
	Long: `Build each backend and tear it down again, the same way a generated
test would, with process state saved before and restored after.

Without arguments every backend in the registry is probed. Backends may be
given by full identifier or short name.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

// Probe outcomes.
const (
	probeAvailable   = "available"
	probeUnavailable = "unavailable"
	probeCleanup     = "cleanup error"
	probeFailed      = "failed"
)

type probeResult struct {
	ID     string
	Status string
	Detail string
}

// probeBackend builds and unbuilds id inside a procstate.Guard.
func probeBackend(id string, r backend.Resolver, env procstate.Env, cfg config.MergedConfig) (res probeResult) {
	res = probeResult{ID: id, Status: probeAvailable}

	logger := logging.For("Probe").With("backend", id)
	g := procstate.NewGuard(env,
		procstate.WithLogger(logger),
		procstate.WithReapPolicy(cfg.Reap.Policy()))
	if err := g.Begin(); err != nil {
		return probeResult{ID: id, Status: probeFailed, Detail: err.Error()}
	}
	defer func() {
		if strays := killStrays(env.Processes, logger); len(strays) > 0 {
			res.Detail = joinDetail(res.Detail, "killed leftover children: "+strings.Join(strays, ", "))
		}
		if err := g.End(); err != nil {
			res.Status = probeFailed
			res.Detail = joinDetail(res.Detail, err.Error())
		}
	}()

	f, err := r.Resolve(id)
	if err != nil {
		return probeResult{ID: id, Status: probeUnavailable, Detail: resolutionReason(err)}
	}

	h, err := matrix.Construct(f)
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) || !cfg.Strict {
			return probeResult{ID: id, Status: probeUnavailable, Detail: err.Error()}
		}
		return probeResult{ID: id, Status: probeFailed, Detail: err.Error()}
	}

	if err := matrix.Unbuild(h); err != nil {
		return probeResult{ID: id, Status: probeCleanup, Detail: err.Error()}
	}
	return res
}

// killer is a process table that can terminate what it tracks.
type killer interface {
	Kill() error
}

// killStrays terminates the children a backend left running before the guard
// reaps them, and returns what was pending.
func killStrays(p procstate.Processes, logger *slog.Logger) []string {
	k, ok := p.(killer)
	if !ok {
		return nil
	}
	pending := p.Pending()
	if len(pending) == 0 {
		return nil
	}
	if err := k.Kill(); err != nil {
		logger.Warn("failed to kill leftover children", "pending", pending, "error", err)
	}
	return pending
}

func joinDetail(a, b string) string {
	if a == "" {
		return b
	}
	return a + "; " + b
}

// selectBackends maps arguments to registry identifiers. Arguments that are
// neither an identifier nor a short name in the registry are used verbatim.
func selectBackends(reg backend.Registry, args []string) []string {
	if len(args) == 0 {
		return reg.List()
	}
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		id := arg
		for _, candidate := range reg {
			if candidate == arg || backend.ShortName(candidate) == arg {
				id = candidate
				break
			}
		}
		ids = append(ids, id)
	}
	return ids
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ids := selectBackends(cfg.Registry(), args)
	env := procstate.OS()

	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"BACKEND", "STATUS", "DETAIL"})
	var failed int
	for _, id := range ids {
		res := probeBackend(id, backend.Default, env, cfg)
		status := res.Status
		switch res.Status {
		case probeAvailable:
			status = paint(text.FgGreen, status)
		case probeUnavailable:
			status = paint(text.FgYellow, status)
		default:
			failed++
			status = paint(text.FgRed, status)
		}
		t.AppendRow(table.Row{res.ID, status, res.Detail})
	}
	t.Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d backends failed", failed, len(ids))
	}
	return nil
}
