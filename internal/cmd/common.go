package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/dbfc/internal/config"
	"github.com/harrison/dbfc/internal/engine"
	"github.com/harrison/dbfc/internal/history"
	"github.com/harrison/dbfc/internal/logger"
)

// loadConfig reads the config file chosen by --config and applies the
// global flags on top. It returns the resolved config path too.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	explicit, _ := cmd.Flags().GetString("config")
	path := config.ResolvePath(explicit)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	var levelPtr, dirPtr *string
	if cmd.Flags().Changed("log-level") {
		level, _ := cmd.Flags().GetString("log-level")
		levelPtr = &level
	}
	if cmd.Flags().Changed("log-dir") {
		dir, _ := cmd.Flags().GetString("log-dir")
		dirPtr = &dir
	}
	cfg.MergeWithFlags(levelPtr, dirPtr, nil, nil)

	return cfg, path, nil
}

// buildLogger returns the console logger, plus a file logger when a log
// directory is configured. The returned func closes the file logger.
func buildLogger(cmd *cobra.Command, cfg *config.Config) (engine.Logger, func()) {
	console := logger.NewConsoleLogger(cmd.OutOrStdout(), cfg.LogLevel)
	if cfg.LogDir == "" {
		return console, func() {}
	}

	fileLogger, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		console.LogWarn(fmt.Sprintf("file logging disabled: %v", err))
		return console, func() {}
	}
	return logger.NewMultiLogger(console, fileLogger), func() { fileLogger.Close() }
}

// historyPath returns the attempt database for a batch rooted at sourceDir.
func historyPath(cfg *config.Config, sourceDir string) string {
	if cfg.History.DBPath != "" {
		return cfg.History.DBPath
	}
	return history.DefaultPath(sourceDir)
}

// openHistory opens the attempt database. With create false a missing
// database yields (nil, nil).
func openHistory(cfg *config.Config, sourceDir string, create bool) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	path := historyPath(cfg, sourceDir)
	if !create {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, nil
		}
	}
	return history.NewStore(path)
}

// workingDir returns --dir or the current directory.
func workingDir(cmd *cobra.Command) (string, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}
