package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrison/dbfc/internal/engine"
	"github.com/harrison/dbfc/internal/report"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show the progress of a batch",
		Long: `Show job counts of batch <name> and list failed jobs. When attempt
history is enabled, each failed job shows the reason of its last failure.

Examples:
  dbfc status movies --dir /media/raw
  dbfc status movies --format markdown
  dbfc status movies --format html --output report.html`,
		Args: cobra.ExactArgs(1),
		RunE: statusCommand,
	}

	cmd.Flags().String("dir", "", "Source directory of the batch (default: current directory)")
	cmd.Flags().String("format", "text", "Output format: text, markdown, html")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")

	return cmd
}

func statusCommand(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	dir, err := workingDir(cmd)
	if err != nil {
		return err
	}
	e, err := engine.Open(dir, args[0], engine.Options{})
	if err != nil {
		return err
	}

	r := report.Report{Batch: e.Batch()}
	store, err := openHistory(cfg, r.Batch.SourceDir, false)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: attempt history unavailable: %v\n", err)
	}
	if store != nil {
		defer store.Close()
		if r.Failures, err = store.LastFailures(cmd.Context(), r.Batch.Name); err != nil {
			return err
		}
		if r.Runs, err = store.Runs(cmd.Context(), r.Batch.Name); err != nil {
			return err
		}
	}

	var out io.Writer = cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return report.Write(out, r, format)
}
