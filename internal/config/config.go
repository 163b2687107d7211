package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mirrorbox/mirrorbox/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".mirrorbox", "config.json")
	DefaultLogPath    = filepath.Join(home, ".mirrorbox", "logs", "mirrorbox.log")

	// DefaultExclusions are path components that never sync.
	DefaultExclusions = []string{
		".git",
		".hg",
		".svn",
		"node_modules",
		"__pycache__",
		".DS_Store",
	}
)

// Config is the persisted configuration of the mirrorbox CLI. Values
// map one-to-one onto viper keys so flags can override them.
type Config struct {
	SourceDir     string   `json:"source_dir"`
	DestDir       string   `json:"dest_dir"`
	Exclusions    []string `json:"exclusions"`
	IncludeHidden bool     `json:"include_hidden"`
	InitialDiff   bool     `json:"initial_diff"`
	LogFile       string   `json:"log_file"`
	Path          string   `json:"-"`
}

func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("source_dir is required")
	}
	src, err := utils.ResolvePath(c.SourceDir)
	if err != nil {
		return fmt.Errorf("source_dir: %w", err)
	}
	if !utils.DirExists(src) {
		return fmt.Errorf("source_dir %q is not a directory", c.SourceDir)
	}
	c.SourceDir = src

	if c.DestDir != "" {
		dst, err := utils.ResolvePath(c.DestDir)
		if err != nil {
			return fmt.Errorf("dest_dir: %w", err)
		}
		c.DestDir = dst
	}
	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		Exclusions:  DefaultExclusions,
		InitialDiff: true,
		LogFile:     DefaultLogPath,
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.Path = path
	return &cfg, nil
}
