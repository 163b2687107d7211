package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mirrorbox/mirrorbox/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", version.AppName, version.Detailed())
	},
}
