package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mirrorbox/mirrorbox/internal/config"
	"github.com/mirrorbox/mirrorbox/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync [SOURCE DEST]",
	Short: "Mirror a source tree into a destination tree",
	Long: "Computes an initial diff of the two trees, applies it, then keeps\n" +
		"mirroring live changes until interrupted. SOURCE and DEST default to\n" +
		"source_dir and dest_dir from the config file.",
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := syncConfig(cmd, args)
		if err != nil {
			return err
		}

		once, _ := cmd.Flags().GetBool("once")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		orch, err := syncer.New(syncer.Config{
			SourceDir:     cfg.SourceDir,
			DestDir:       cfg.DestDir,
			Exclusions:    cfg.Exclusions,
			IncludeHidden: cfg.IncludeHidden,
			// --once is meaningless without a snapshot pass.
			InitialDiff: once || cfg.InitialDiff,
		})
		if err != nil {
			return err
		}

		exec := syncer.NewExecutor(cfg.DestDir)
		exec.SetDryRun(dryRun)
		if !dryRun {
			if err := exec.Acquire(); err != nil {
				return err
			}
			defer exec.Release()
		}

		events, err := orch.Start(cmd.Context())
		if err != nil {
			return err
		}

		cmd.SilenceUsage = true
		showHeader()
		fmt.Printf("mirroring %s -> %s\n", green(cfg.SourceDir), green(cfg.DestDir))

		for ev := range events {
			switch ev.Kind {
			case syncer.LifecycleInitialDiff:
				if err := exec.ApplyAll(ev.Ops); err != nil {
					slog.Warn("initial sync incomplete", "error", err)
				}
				stats := exec.Stats()
				fmt.Printf("initial sync: %d ops, %s copied\n",
					stats.Applied, humanize.Bytes(uint64(stats.BytesCopied)))
				if once {
					orch.Stop()
				}
			case syncer.LifecycleOperation:
				if err := exec.Apply(ev.Op); err != nil {
					slog.Error("sync apply failed", "error", err)
				}
			case syncer.LifecycleStopped:
				stats := exec.Stats()
				fmt.Printf("done: %d ops applied, %d failed, %s copied\n",
					stats.Applied, stats.Failed, humanize.Bytes(uint64(stats.BytesCopied)))
			}
		}
		return nil
	},
}

// syncConfig merges the config file's viper keys, the command's flags
// and the positional arguments into the validated run configuration.
// Arguments replace the file's directories; flags widen its exclusion
// and hidden settings.
func syncConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := &config.Config{
		SourceDir:     viper.GetString("source_dir"),
		DestDir:       viper.GetString("dest_dir"),
		Exclusions:    viper.GetStringSlice("exclusions"),
		IncludeHidden: viper.GetBool("include_hidden"),
		InitialDiff:   viper.GetBool("initial_diff"),
		LogFile:       viper.GetString("log_file"),
	}

	switch len(args) {
	case 2:
		cfg.SourceDir, cfg.DestDir = args[0], args[1]
	case 1:
		return nil, errors.New("sync needs both SOURCE and DEST, or neither")
	}

	if hidden, _ := cmd.Flags().GetBool("hidden"); hidden {
		cfg.IncludeHidden = true
	}
	excludes, _ := cmd.Flags().GetStringSlice("exclude")
	cfg.Exclusions = append(cfg.Exclusions, excludes...)
	// The executor's own guard file must never be mirrored or deleted.
	cfg.Exclusions = append(cfg.Exclusions, syncer.LockFileName)

	if cfg.DestDir == "" {
		return nil, errors.New("dest_dir is required (config file or DEST argument)")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	syncCmd.Flags().Bool("once", false, "apply the initial diff and exit")
	syncCmd.Flags().Bool("dry-run", false, "print operations without applying them")
	syncCmd.Flags().Bool("hidden", false, "include hidden files")
	syncCmd.Flags().StringSlice("exclude", nil, "path component to exclude (repeatable)")
}
