package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mirrorbox/mirrorbox/internal/utils"
	"github.com/mirrorbox/mirrorbox/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Print change events for a directory tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := utils.ResolvePath(args[0])
		if err != nil {
			return err
		}

		mode := watch.ModeRecursive
		if shallow, _ := cmd.Flags().GetBool("shallow"); shallow {
			mode = watch.ModeShallow
		}

		source, err := watch.NewFSSource()
		if err != nil {
			return err
		}
		defer source.Close()

		engine := watch.New(root, source, watch.Config{Mode: mode})
		if err := engine.Start(cmd.Context()); err != nil {
			return err
		}
		defer engine.Stop()

		cmd.SilenceUsage = true
		showHeader()
		fmt.Printf("watching %s (%s, %d directories)\n", green(root), mode, engine.WatchedCount())

		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case ev, ok := <-engine.Events():
				if !ok {
					slog.Info("watch stream ended")
					return nil
				}
				fmt.Printf("%-14s %-9s %s\n", ev.Kinds, ev.Item, ev.RelPath)
			}
		}
	},
}

func init() {
	watchCmd.Flags().Bool("shallow", false, "watch only the root directory, not the whole tree")
}
