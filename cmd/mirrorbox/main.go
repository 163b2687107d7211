package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mirrorbox/mirrorbox/internal/config"
	"github.com/mirrorbox/mirrorbox/internal/utils"
	"github.com/mirrorbox/mirrorbox/internal/version"
)

var (
	home, _        = os.UserHomeDir()
	configFileName = "config"
)

var (
	cyan  = color.New(color.FgHiCyan).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:     "mirrorbox",
	Short:   "Watch a directory tree and mirror it elsewhere",
	Version: version.Detailed(),
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}
		return setupLogging()
	}

	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "mirrorbox config file")
	rootCmd.PersistentFlags().String("log-file", config.DefaultLogPath, "log file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "debug logging on stdout")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".mirrorbox"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	viper.SetDefault("exclusions", config.DefaultExclusions)
	viper.SetDefault("initial_diff", true)
	viper.SetDefault("log_file", config.DefaultLogPath)

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	viper.BindPFlag("log_file", cmd.Flags().Lookup("log-file"))
	return nil
}

func setupLogging() error {
	stdoutLevel := slog.LevelInfo
	if v, _ := rootCmd.PersistentFlags().GetBool("verbose"); v {
		stdoutLevel = slog.LevelDebug
	}

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      stdoutLevel,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	logFile := viper.GetString("log_file")
	if err := utils.EnsureParent(logFile); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	rotated := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
	}
	fileHandler := slog.NewTextHandler(rotated, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)))
	return nil
}

func showHeader() {
	fmt.Println(cyan(version.Short()))
}
