package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewRuleCommand creates the rule command group
func NewRuleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage extension to command rules",
		Long: `Manage the rules that map a file extension to a command template.

Templates are split on whitespace. The tokens $file_path and $file_path_out
are replaced by the source file and the destination file. Rules are stored in
the config file and copied into each batch when it is created.`,
	}

	cmd.AddCommand(newRuleAddCommand())
	cmd.AddCommand(newRuleListCommand())

	return cmd
}

func newRuleAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a rule",
		Long: `Add or replace the rule for an extension in the config file.

Examples:
  dbfc rule add -e mkv -c "ffmpeg -i $file_path -c:v libx264 $file_path_out"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ext, _ := cmd.Flags().GetString("extension")
			template, _ := cmd.Flags().GetString("command")
			if err := cfg.AddRule(ext, template); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Rule for .%s saved to %s\n", ext, path)
			return nil
		},
	}

	cmd.Flags().StringP("extension", "e", "", "File extension without the dot (required)")
	cmd.Flags().StringP("command", "c", "", "Command template (required)")
	_ = cmd.MarkFlagRequired("extension")
	_ = cmd.MarkFlagRequired("command")

	return cmd
}

func newRuleListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the rules new batches will use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			table := cfg.RuleTable()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EXTENSION\tCOMMAND")
			for _, ext := range table.Extensions() {
				fmt.Fprintf(w, "%s\t%s\n", ext, table[ext])
			}
			return w.Flush()
		},
	}
}
