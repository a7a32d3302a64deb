package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for dbfc
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbfc",
		Short: "Resumable batch file converter",
		Long: `dbfc converts every file of a directory tree with an external command
chosen by file extension, writing results into a mirrored destination tree.

A batch job is created once with "init", which records a SHA-256 fingerprint
of every source file. "run" then processes pending jobs and can be repeated:
finished jobs are never run again, so an interrupted batch resumes where it
stopped.

Configuration is loaded from .dbfc/config.yaml if present.
CLI flags override configuration file settings.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .dbfc/config.yaml, or $DBFC_CONFIG)")
	cmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.PersistentFlags().String("log-dir", "", "Directory for run log files (empty string disables file logs)")

	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewRuleCommand())
	cmd.AddCommand(NewStatusCommand())

	return cmd
}
