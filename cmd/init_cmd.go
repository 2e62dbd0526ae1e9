package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Quidge/reactortest/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a .reactortest.yaml template",
	Long: `Create a .reactortest.yaml template in the current directory.

The template includes commented examples for all configuration options.
With --global, write the global configuration template instead.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "overwrite existing file")
	initCmd.Flags().Bool("global", false, "write the global configuration file")
}

func runInit(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")
	global, _ := cmd.Flags().GetBool("global")

	configPath, template, err := initTarget(global)
	if err != nil {
		return err
	}

	// Check if file already exists
	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}
	}

	if global {
		if err := config.EnsureGlobalConfigDir(); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	// Write the template
	if err := os.WriteFile(configPath, []byte(template), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", configPath)
	return nil
}

func initTarget(global bool) (path, template string, err error) {
	if global {
		path, err = config.GlobalConfigPath()
		return path, config.GlobalConfigTemplate, err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return filepath.Join(cwd, config.ProjectConfigFilename), config.ProjectConfigTemplate, nil
}
