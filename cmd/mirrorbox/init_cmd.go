package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrorbox/mirrorbox/internal/config"
	"github.com/mirrorbox/mirrorbox/internal/utils"
)

var initCmd = &cobra.Command{
	Use:   "init SOURCE DEST",
	Short: "Write a starter config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if err := writeStarterConfig(path, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", green(path))
		return nil
	},
}

// writeStarterConfig validates the directories and persists a default
// configuration. An existing config file is never overwritten.
func writeStarterConfig(path, sourceDir, destDir string) error {
	if utils.FileExists(path) {
		existing, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("config at %s exists but is unreadable: %w", path, err)
		}
		return fmt.Errorf("config already exists at %s (source %s)", path, existing.SourceDir)
	}

	cfg := &config.Config{
		SourceDir:   sourceDir,
		DestDir:     destDir,
		Exclusions:  config.DefaultExclusions,
		InitialDiff: true,
		LogFile:     config.DefaultLogPath,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return cfg.Save(path)
}
