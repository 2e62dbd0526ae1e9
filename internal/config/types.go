package config

import (
	"time"

	"github.com/Quidge/reactortest/internal/backend"
	"github.com/Quidge/reactortest/internal/procstate"
)

// GlobalConfig represents the global configuration loaded from
// ~/.config/reactortest/config.yaml
type GlobalConfig struct {
	Version  int        `yaml:"version"`
	LogLevel string     `yaml:"log_level"`
	Strict   bool       `yaml:"strict"`
	Reap     ReapConfig `yaml:"reap"`
}

// ReapConfig bounds the reap loop run after every generated test.
type ReapConfig struct {
	// MaxAttempts is a pointer so an explicit 0, meaning reap until no
	// children are pending, can be told apart from an unset field.
	MaxAttempts     *int          `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// Policy converts the configuration to a procstate.ReapPolicy.
// An unset MaxAttempts uses the default bound.
func (r ReapConfig) Policy() procstate.ReapPolicy {
	p := procstate.DefaultReapPolicy()
	if r.MaxAttempts != nil {
		p.MaxAttempts = *r.MaxAttempts
	}
	if r.InitialInterval != 0 {
		p.InitialInterval = r.InitialInterval
	}
	if r.MaxInterval != 0 {
		p.MaxInterval = r.MaxInterval
	}
	return p
}

// Attempts returns MaxAttempts, or the default bound when it is unset.
func (r ReapConfig) Attempts() int {
	return r.Policy().MaxAttempts
}

// ProjectConfig represents the project configuration loaded from
// .reactortest.yaml in the repository root.
type ProjectConfig struct {
	Version int `yaml:"version"`

	// Backends replaces the default registry. Order is the order generated
	// cases run in.
	Backends []string `yaml:"backends"`

	// Exclude drops identifiers (or short names) from the registry.
	Exclude []string `yaml:"exclude"`

	// Strict overrides the global strict setting when present.
	Strict *bool `yaml:"strict"`

	// Reap overrides individual global reap settings when set.
	Reap ReapConfig `yaml:"reap"`
}

// MergedConfig represents the final merged configuration
// after applying precedence rules (defaults → global → project → flags).
type MergedConfig struct {
	// Backends is the validated, ordered registry for the run.
	Backends []string `yaml:"backends"`

	// Strict fails tests whose backend construction errors without wrapping
	// backend.ErrUnavailable instead of skipping them.
	Strict bool `yaml:"strict"`

	LogLevel string     `yaml:"log_level"`
	Reap     ReapConfig `yaml:"reap"`

	// ProjectPath is the project file that was merged, empty if none.
	ProjectPath string `yaml:"-"`
}

// Registry returns the merged backend list as a backend.Registry.
func (m MergedConfig) Registry() backend.Registry {
	return backend.Registry(m.Backends)
}

// DefaultGlobalConfig returns a GlobalConfig with sensible defaults.
func DefaultGlobalConfig() GlobalConfig {
	policy := procstate.DefaultReapPolicy()
	return GlobalConfig{
		Version:  1,
		LogLevel: "info",
		Strict:   false,
		Reap: ReapConfig{
			MaxAttempts:     &policy.MaxAttempts,
			InitialInterval: policy.InitialInterval,
			MaxInterval:     policy.MaxInterval,
		},
	}
}

// DefaultProjectConfig returns a ProjectConfig with sensible defaults.
func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
	}
}
