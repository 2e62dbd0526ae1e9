package config

import (
	"fmt"
	"os"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/logging"
)

// FlagOverrides contains CLI flag (or environment) values that override
// configuration.
type FlagOverrides struct {
	Backends []string
	Strict   *bool
	LogLevel string
}

// Merge combines global config, project config, and CLI flag overrides
// following the precedence order: defaults → global → project → flags.
// Returns the merged configuration ready for use.
func Merge(global GlobalConfig, project ProjectConfig, flags FlagOverrides) (MergedConfig, error) {
	merged := MergedConfig{
		Strict:   global.Strict,
		LogLevel: global.LogLevel,
		Reap:     global.Reap,
	}

	// Determine the registry
	ids := backend.DefaultRegistry.List()
	if len(project.Backends) > 0 {
		ids = ExpandBackends(project.Backends)
	}
	if len(flags.Backends) > 0 {
		ids = ExpandBackends(flags.Backends)
	}

	reg, err := backend.NewRegistry(ids...)
	if err != nil {
		return MergedConfig{}, err
	}
	reg = reg.Without(ExpandBackends(project.Exclude)...)
	merged.Backends = reg.List()

	// Project config overrides global settings
	if project.Strict != nil {
		merged.Strict = *project.Strict
	}
	if project.Reap.MaxAttempts != nil {
		merged.Reap.MaxAttempts = project.Reap.MaxAttempts
	}
	if project.Reap.InitialInterval != 0 {
		merged.Reap.InitialInterval = project.Reap.InitialInterval
	}
	if project.Reap.MaxInterval != 0 {
		merged.Reap.MaxInterval = project.Reap.MaxInterval
	}

	// CLI flags override everything
	if flags.Strict != nil {
		merged.Strict = *flags.Strict
	}
	if flags.LogLevel != "" {
		merged.LogLevel = flags.LogLevel
	}

	if _, err := logging.ParseLevel(merged.LogLevel); err != nil {
		return MergedConfig{}, err
	}
	if n := merged.Reap.Attempts(); n < 0 {
		return MergedConfig{}, fmt.Errorf("reap.max_attempts must not be negative, got %d", n)
	}

	return merged, nil
}

// Load merges the global configuration, the project configuration nearest to
// startDir, and flags. The result records which project file was used.
func Load(startDir string, flags FlagOverrides) (MergedConfig, error) {
	global, err := LoadGlobalConfig()
	if err != nil {
		return MergedConfig{}, fmt.Errorf("failed to load global config: %w", err)
	}

	project, err := DiscoverProjectConfig(startDir)
	if err != nil {
		return MergedConfig{}, fmt.Errorf("failed to load project config: %w", err)
	}

	merged, err := Merge(global, project.Config, flags)
	if err != nil {
		return MergedConfig{}, err
	}
	merged.ProjectPath = project.Path
	return merged, nil
}

// LoadFromCwd is Load starting from the current working directory.
func LoadFromCwd(flags FlagOverrides) (MergedConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return MergedConfig{}, fmt.Errorf("failed to get current directory: %w", err)
	}
	return Load(cwd, flags)
}
