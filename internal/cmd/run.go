package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/dbfc/internal/command"
	"github.com/harrison/dbfc/internal/engine"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Process the pending jobs of a batch",
		Long: `Process every pending job of batch <name> in order. For each job the
command rule matching the file extension is run with $file_path replaced by
the source file and $file_path_out by the mirrored destination path.

Jobs end as Done or Error and are never retried by later runs. A failing job
does not stop the batch. The batch state is saved once at the end of the run,
also after Ctrl-C, which stops before the next job and leaves the rest pending.

Examples:
  dbfc run movies --dir /media/raw
  dbfc run movies --timeout 2h       # Kill any single command after 2 hours
  dbfc run movies --log-level debug  # Show command output`,
		Args: cobra.ExactArgs(1),
		RunE: runCommand,
	}

	cmd.Flags().String("dir", "", "Source directory of the batch (default: current directory)")
	cmd.Flags().String("timeout", "", "Maximum time per job command (e.g., 30m, 2h)")
	cmd.Flags().Bool("no-history", false, "Do not record attempts in the history database")

	return cmd
}

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var timeoutPtr *time.Duration
	if cmd.Flags().Changed("timeout") {
		timeoutStr, _ := cmd.Flags().GetString("timeout")
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return fmt.Errorf("invalid timeout format %q: %w", timeoutStr, err)
		}
		timeoutPtr = &timeout
	}
	var historyPtr *bool
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		disabled := false
		historyPtr = &disabled
	}
	cfg.MergeWithFlags(nil, nil, timeoutPtr, historyPtr)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir, err := workingDir(cmd)
	if err != nil {
		return err
	}

	log, closeLog := buildLogger(cmd, cfg)
	defer closeLog()

	opts := engine.Options{
		Runner: command.NewExecRunner(cfg.JobTimeout),
		Logger: log,
	}
	e, err := engine.Open(dir, args[0], opts)
	if err != nil {
		return err
	}

	store, err := openHistory(cfg, e.Batch().SourceDir, true)
	if err != nil {
		log.LogWarn(fmt.Sprintf("attempt history disabled: %v", err))
	}
	if store != nil {
		defer store.Close()
		opts.Recorder = store
		e = engine.New(e.Batch(), opts)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := e.Run(ctx)
	if err != nil {
		return err
	}
	if result.Interrupted {
		return fmt.Errorf("run interrupted: %d jobs remain pending: %w", result.Remaining, context.Canceled)
	}
	return nil
}
