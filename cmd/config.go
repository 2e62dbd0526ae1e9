package cmd

import (
	"fmt"
	"os"

	"github.com/Quidge/reactortest/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View configuration",
	Long: `View the reactortest configuration.

Subcommands:
  show   Print the merged configuration
  path   Print the configuration file locations`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the merged configuration",
	Long: `Print the configuration a test run would use, after merging defaults,
the global file, the project file, and flags.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file locations",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	w := cmd.OutOrStdout()
	if cfg.ProjectPath != "" {
		fmt.Fprintf(w, "# project: %s\n", cfg.ProjectPath)
	}
	_, err = w.Write(out)
	return err
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	globalPath, err := config.GlobalConfigPath()
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}
	projectPath, err := config.FindProjectConfig(cwd)
	if err != nil {
		return err
	}
	if projectPath == "" {
		projectPath = "(none)"
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "global:  %s\n", globalPath)
	fmt.Fprintf(w, "project: %s\n", projectPath)
	return nil
}
