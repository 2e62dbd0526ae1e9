package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfigFilename is the name of the project configuration file.
const ProjectConfigFilename = ".reactortest.yaml"

// ProjectFile is a project configuration and the file it was read from.
// Path is empty when no file was found, in which case Config holds defaults.
type ProjectFile struct {
	Path   string
	Config ProjectConfig
}

// FindProjectConfig returns the path of the nearest .reactortest.yaml in
// startDir or one of its parents, or "" if there is none. Directories that
// cannot be inspected are passed over.
func FindProjectConfig(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", startDir, err)
	}
	for {
		candidate := filepath.Join(dir, ProjectConfigFilename)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// DiscoverProjectConfig loads the nearest project configuration at or above
// startDir.
func DiscoverProjectConfig(startDir string) (ProjectFile, error) {
	path, err := FindProjectConfig(startDir)
	if err != nil {
		return ProjectFile{}, err
	}
	if path == "" {
		return ProjectFile{Config: DefaultProjectConfig()}, nil
	}
	cfg, err := LoadProjectConfig(path)
	if err != nil {
		return ProjectFile{}, err
	}
	return ProjectFile{Path: path, Config: cfg}, nil
}

// LoadProjectConfig reads the project configuration at path. A missing file
// yields defaults; a file that is not valid YAML is an error naming the path.
func LoadProjectConfig(path string) (ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultProjectConfig(), nil
	}
	if err != nil {
		return ProjectConfig{}, fmt.Errorf("failed to read project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProjectConfig{}, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if cfg.Version == 0 {
		cfg.Version = DefaultProjectConfig().Version
	}
	return cfg, nil
}
