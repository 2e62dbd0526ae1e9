package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/config"
	"github.com/Quidge/reactortest/internal/procstate"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default so commands can be executed
// repeatedly within one test binary.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// setupTestDir switches to an empty working directory with no global config.
func setupTestDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(config.GlobalConfigEnv, filepath.Join(t.TempDir(), "reactortest", "config.yaml"))
	return dir
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBackendsCommand(t *testing.T) {
	setupTestDir(t)

	t.Run("table", func(t *testing.T) {
		out, err := executeCommand(t, "backends", "--backends", "reactortest.reactor.SelectReactor,pkg.Missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"SelectReactor", "resolved", "pkg.Missing", "skip"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := executeCommand(t, "backends", "--json", "--backends", "reactortest.reactor.SelectReactor,pkg.Missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var infos []backendInfo
		if err := json.Unmarshal([]byte(out), &infos); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if len(infos) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(infos))
		}
		if !infos[0].Resolved || infos[0].Short != "SelectReactor" {
			t.Errorf("expected resolved SelectReactor first, got %+v", infos[0])
		}
		if infos[1].Resolved || infos[1].Reason == "" {
			t.Errorf("expected unresolved pkg.Missing with a reason, got %+v", infos[1])
		}
	})

	t.Run("duplicate backends", func(t *testing.T) {
		_, err := executeCommand(t, "backends", "--backends", "pkg.A,pkg.A")
		if !errors.Is(err, backend.ErrInvalidRegistry) {
			t.Errorf("expected ErrInvalidRegistry, got %v", err)
		}
	})
}

func TestMatrixCommand(t *testing.T) {
	setupTestDir(t)

	t.Run("lists cases", func(t *testing.T) {
		out, err := executeCommand(t, "matrix", "Foo", "--backends", "pkg.A,reactortest.reactor.SelectReactor")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Foo_A", "Foo_SelectReactor", "skip", "run"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
	})

	t.Run("requires behavior", func(t *testing.T) {
		if _, err := executeCommand(t, "matrix"); err == nil {
			t.Error("expected error without a behavior name")
		}
	})
}

func TestProbeCommand(t *testing.T) {
	setupTestDir(t)

	out, err := executeCommand(t, "probe", "--backends", "reactortest.reactor.SelectReactor,pkg.Missing")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "available") || !strings.Contains(out, "unavailable") {
		t.Errorf("expected available and unavailable rows, got:\n%s", out)
	}
}

func TestSelectBackends(t *testing.T) {
	reg := backend.Registry{"pkg.A", "pkg.B"}

	if got := selectBackends(reg, nil); !reflect.DeepEqual(got, []string{"pkg.A", "pkg.B"}) {
		t.Errorf("expected whole registry, got %v", got)
	}
	got := selectBackends(reg, []string{"B", "pkg.A", "other.C"})
	want := []string{"pkg.B", "pkg.A", "other.C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

type stubHandle struct {
	disconnectErr error
}

func (stubHandle) RemoveReader(backend.Descriptor) {}
func (h stubHandle) DisconnectAll() error         { return h.disconnectErr }

func TestProbeBackend(t *testing.T) {
	catalog := backend.NewCatalog()
	catalog.Register("pkg.OK", func() (backend.Handle, error) { return stubHandle{}, nil })
	catalog.Register("pkg.Leaky", func() (backend.Handle, error) {
		return stubHandle{disconnectErr: errors.New("connection reset")}, nil
	})
	catalog.Register("pkg.NoKernel", func() (backend.Handle, error) {
		return nil, backend.Unavailable("no kernel support")
	})
	catalog.Register("pkg.Broken", func() (backend.Handle, error) {
		return nil, errors.New("out of file descriptors")
	})
	catalog.Register("pkg.Panics", func() (backend.Handle, error) {
		panic("platform library missing")
	})

	lenient := config.MergedConfig{Reap: config.DefaultGlobalConfig().Reap}
	strictCfg := lenient
	strictCfg.Strict = true

	tests := []struct {
		id     string
		cfg    config.MergedConfig
		status string
	}{
		{"pkg.OK", lenient, probeAvailable},
		{"pkg.Leaky", lenient, probeCleanup},
		{"pkg.NoKernel", strictCfg, probeUnavailable},
		{"pkg.Broken", lenient, probeUnavailable},
		{"pkg.Broken", strictCfg, probeFailed},
		{"pkg.Panics", lenient, probeUnavailable},
		{"pkg.Panics", strictCfg, probeFailed},
		{"pkg.Missing", strictCfg, probeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.id+"/"+tt.status, func(t *testing.T) {
			res := probeBackend(tt.id, catalog, procstate.Env{}, tt.cfg)
			if res.Status != tt.status {
				t.Errorf("expected status %q, got %q (%s)", tt.status, res.Status, res.Detail)
			}
		})
	}
}

// killableProcesses is a process table whose children exit once killed.
type killableProcesses struct {
	pending []string
	killed  bool
}

func (p *killableProcesses) Pending() []string { return append([]string(nil), p.pending...) }

func (p *killableProcesses) ReapAll() {
	if p.killed {
		p.pending = nil
	}
}

func (p *killableProcesses) Kill() error {
	p.killed = true
	return nil
}

func TestProbeBackendKillsLeftoverChildren(t *testing.T) {
	procs := &killableProcesses{pending: []string{"sleep[42]"}}
	catalog := backend.NewCatalog()
	catalog.Register("pkg.Spawner", func() (backend.Handle, error) { return stubHandle{}, nil })

	cfg := config.MergedConfig{Reap: config.DefaultGlobalConfig().Reap}
	res := probeBackend("pkg.Spawner", catalog, procstate.Env{Processes: procs}, cfg)

	if res.Status != probeAvailable {
		t.Errorf("expected status %q, got %q (%s)", probeAvailable, res.Status, res.Detail)
	}
	if !procs.killed {
		t.Error("expected leftover children to be killed")
	}
	if len(procs.pending) != 0 {
		t.Errorf("expected guard to reap killed children, got %v", procs.pending)
	}
	if !strings.Contains(res.Detail, "sleep[42]") {
		t.Errorf("expected detail to name the killed child, got %q", res.Detail)
	}
}

func TestInitCommand(t *testing.T) {
	dir := setupTestDir(t)
	configPath := filepath.Join(dir, config.ProjectConfigFilename)

	if _, err := executeCommand(t, "init"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("expected %s to be created: %v", configPath, err)
	}
	if string(data) != config.ProjectConfigTemplate {
		t.Error("expected project template contents")
	}

	if _, err := executeCommand(t, "init"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected already exists error, got %v", err)
	}
	if _, err := executeCommand(t, "init", "--force"); err != nil {
		t.Errorf("expected --force to overwrite, got %v", err)
	}
}

func TestInitGlobal(t *testing.T) {
	setupTestDir(t)
	globalPath, err := config.GlobalConfigPath()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := executeCommand(t, "init", "--global"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		t.Fatalf("written global config does not load: %v", err)
	}
	if !reflect.DeepEqual(cfg, config.DefaultGlobalConfig()) {
		t.Errorf("expected template to load as defaults, got %+v", cfg)
	}
	if _, err := os.Stat(globalPath); err != nil {
		t.Errorf("expected %s to exist: %v", globalPath, err)
	}
}

func TestConfigShow(t *testing.T) {
	dir := setupTestDir(t)

	content := `version: 1
backends:
  - pkg.A
  - pkg.B
exclude:
  - B
strict: true
`
	if err := os.WriteFile(filepath.Join(dir, config.ProjectConfigFilename), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := executeCommand(t, "config", "show")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"# project: ", config.ProjectConfigFilename, "- pkg.A", "strict: true", "max_attempts: 100", "initial_interval: 10ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "pkg.B") {
		t.Errorf("expected excluded backend to be absent, got:\n%s", out)
	}

	out, err = executeCommand(t, "config", "show", "--strict=false")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "strict: false") {
		t.Errorf("expected flag to override project strict, got:\n%s", out)
	}
}

func TestConfigShowInvalidProject(t *testing.T) {
	dir := setupTestDir(t)
	if err := os.WriteFile(filepath.Join(dir, config.ProjectConfigFilename), []byte("backends: [oops"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := executeCommand(t, "config", "show"); err == nil {
		t.Error("expected error for invalid project config")
	}
}

func TestConfigPath(t *testing.T) {
	setupTestDir(t)

	out, err := executeCommand(t, "config", "path")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "project: (none)") {
		t.Errorf("expected no project config, got:\n%s", out)
	}
	if !strings.Contains(out, filepath.Join("reactortest", "config.yaml")) {
		t.Errorf("expected global path, got:\n%s", out)
	}
}

func TestPaintWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	if isTerminal(&buf) {
		t.Fatal("a buffer is not a terminal")
	}

	colorOutput = false
	if got := paint(text.FgRed, "failed"); got != "failed" {
		t.Errorf("expected plain text, got %q", got)
	}
}
