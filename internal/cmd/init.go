package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/dbfc/internal/display"
	"github.com/harrison/dbfc/internal/engine"
	"github.com/harrison/dbfc/internal/filelock"
	"github.com/harrison/dbfc/internal/state"
)

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <name>",
		Short: "Create a batch job from a source tree",
		Long: `Create a batch job named <name> for every regular file under the source
directory. Each file is fingerprinted (SHA-256) and recorded as a pending job.
The batch is stored in <source>/dbfc/<name>.bj; an existing batch with the
same name is never overwritten.

dbfc's own files are never scanned: the dbfc/ control directory, .dbfc/,
the log directory and the config file. Directory names listed in the
exclude_dirs config setting or passed with --exclude-dir are skipped too.

The conversion rules in effect (built-in defaults plus the config file) are
copied into the batch, so later rule changes do not affect it.

Examples:
  dbfc init movies -s /media/raw -d /media/converted`,
		Args: cobra.ExactArgs(1),
		RunE: initCommand,
	}

	cmd.Flags().StringP("source", "s", "", "Source directory to scan (required)")
	cmd.Flags().StringP("destination", "d", "", "Destination directory for converted files (required)")
	cmd.Flags().StringSlice("exclude-dir", nil, "Directory name to leave out of the scan (repeatable)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")

	return cmd
}

func initCommand(cmd *cobra.Command, args []string) error {
	cfg, cfgPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, closeLog := buildLogger(cmd, cfg)
	defer closeLog()

	source, _ := cmd.Flags().GetString("source")
	destination, _ := cmd.Flags().GetString("destination")
	excludeDirs, _ := cmd.Flags().GetStringSlice("exclude-dir")

	e, err := engine.Init(cmd.Context(), engine.InitRequest{
		Name:           args[0],
		SourceDir:      source,
		DestinationDir: destination,
		Rules:          cfg.RuleTable(),
		ExcludeDirs:    append(append([]string{}, cfg.ExcludeDirs...), excludeDirs...),
		ExcludePaths:   []string{cfg.LogDir, cfgPath, cfgPath + filelock.LockSuffix},
		SkipHidden:     cfg.SkipHidden,
	}, engine.Options{Logger: log})
	if err != nil {
		return err
	}

	b := e.Batch()
	if skipped := e.Skipped(); len(skipped) > 0 {
		files := make([]string, 0, len(skipped))
		for _, path := range skipped {
			files = append(files, displayRel(b.SourceDir, path))
		}
		display.WarnSkippedEntries(files).Display(cmd.ErrOrStderr())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created batch %s with %d jobs: %s\n", b.Name, len(b.Jobs), state.Path(b.SourceDir, b.Name))
	return nil
}

func displayRel(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
