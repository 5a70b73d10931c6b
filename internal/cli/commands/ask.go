package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/magic8ball/internal/fortune"
)

// AskOptions holds options for the ask command.
type AskOptions struct {
	JSON bool
}

// NewAskCommand creates the ask command.
func NewAskCommand() *cobra.Command {
	opts := &AskOptions{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the Magic 8 Ball a question",
		Long: `Ask a yes/no question and print the ball's answer.

The ball pauses for the configured thinking time before answering.`,
		Example: `  magic8ball ask "Will it rain tomorrow?"

  # Answer straight away, as JSON
  magic8ball ask --thinking 0s --json Should I deploy on Friday`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output the answer as JSON")
	cmd.Flags().Duration("thinking", 0, "Pause before answering (default from config)")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, opts *AskOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	answer, err := cc.Teller.Ask(question)
	if err != nil {
		return err
	}
	if err := think(cmd.Context(), cc.Cfg.Thinking); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}
	printAnswer(out, cc.Styles, answer)
	return nil
}

// think waits d, or until ctx is done.
func think(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func printAnswer(w io.Writer, s *Styles, a fortune.Answer) {
	if a.Question != "" {
		_, _ = fmt.Fprintln(w, s.Question.Render(a.Question+"?"))
	}
	_, _ = fmt.Fprintln(w, s.Ball.Render(s.Answer.Render(a.Text)))
}
