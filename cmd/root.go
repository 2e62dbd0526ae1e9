package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Quidge/reactortest/internal/config"
	"github.com/Quidge/reactortest/internal/logging"
	_ "github.com/Quidge/reactortest/internal/reactor" // Register reference reactors
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	backends string
	strict   bool
	verbose  bool

	// colorOutput is set when stdout is a terminal
	colorOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "reactortest",
	Short: "Inspect the reactor test matrix",
	Long: `reactortest inspects the test matrix that runs every backend-agnostic
reactor behavior once per registered reactor backend. It shows which
backends resolve on this platform, the case names a behavior expands to,
and whether each backend can be built and torn down cleanly.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: initLogging,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backends, "backends", "", "comma-separated backend identifiers (overrides configuration)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "treat construction errors that are not unavailability as failures")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// flagOverrides collects the global flags the user actually set.
func flagOverrides(cmd *cobra.Command) config.FlagOverrides {
	var flags config.FlagOverrides
	if strings.TrimSpace(backends) != "" {
		flags.Backends = []string{backends}
	}
	if cmd.Flags().Changed("strict") {
		s := strict
		flags.Strict = &s
	}
	if verbose {
		flags.LogLevel = "debug"
	}
	return flags
}

// loadConfig loads the merged configuration for the current directory.
func loadConfig(cmd *cobra.Command) (config.MergedConfig, error) {
	return config.LoadFromCwd(flagOverrides(cmd))
}

func initLogging(cmd *cobra.Command, _ []string) error {
	// Configuration errors are reported by the command itself.
	level := logging.LevelInfo
	if cfg, err := loadConfig(cmd); err == nil {
		level, _ = logging.ParseLevel(cfg.LogLevel)
	}
	logging.Init(level, cmd.ErrOrStderr())
	colorOutput = isTerminal(cmd.OutOrStdout())
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
