package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// AnswersOptions holds options for the answers command.
type AnswersOptions struct {
	Format string
}

// NewAnswersCommand creates the answers command.
func NewAnswersCommand() *cobra.Command {
	opts := &AnswersOptions{}

	cmd := &cobra.Command{
		Use:   "answers",
		Short: "List the answers the ball can give",
		Long: `List every answer the ball picks from.

The built-in set is replaced by the answers list in the config file or by
MAGIC8BALL_ANSWERS (comma separated).`,
		Example: `  magic8ball answers
  magic8ball answers --format markdown`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnswers(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "table", "Output format (table|markdown|csv|json)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "markdown", "csv", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runAnswers(cmd *cobra.Command, opts *AnswersOptions) error {
	teller, err := newTeller(getConfig())
	if err != nil {
		return err
	}
	answers := teller.Answers()
	out := cmd.OutOrStdout()

	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(answers)
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Answer"})
	for i, a := range answers {
		t.AppendRow(table.Row{i + 1, a})
	}

	switch opts.Format {
	case "table", "":
		t.Render()
		_, _ = fmt.Fprintf(out, "%d answers\n", len(answers))
	case "markdown":
		t.RenderMarkdown()
	case "csv":
		t.RenderCSV()
	default:
		return fmt.Errorf("unknown format %q (want table, markdown, csv or json)", opts.Format)
	}
	return nil
}
