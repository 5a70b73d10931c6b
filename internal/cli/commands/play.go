package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/magic8ball/internal/fortune"
)

const playPrompt = "8ball> "

// lineReader is the part of *readline.Instance the play loop uses.
type lineReader interface {
	Readline() (string, error)
}

// NewPlayCommand creates the play command.
func NewPlayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Ask questions interactively",
		Long: `Start an interactive session with the Magic 8 Ball.

Type a question and press enter to shake the ball. Type quit or exit
(or press Ctrl+D) to leave.`,
		RunE: runPlay,
	}
}

func runPlay(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	// History lives next to the preference database when there is one
	var historyFile string
	if cc.Cfg.StatePath != "" {
		historyFile = filepath.Join(filepath.Dir(cc.Cfg.StatePath), "play_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          playPrompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "Welcome to the Magic 8 Ball. Ask a yes/no question, or type quit to leave.")
	_, _ = fmt.Fprintln(out)

	return playLoop(cmd.Context(), rl, out, cc)
}

// playLoop reads questions until quit, EOF or ctx is done.
func playLoop(ctx context.Context, rl lineReader, out io.Writer, cc *CommandContext) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "quit", "exit":
			_, _ = fmt.Fprintln(out, cc.Styles.Muted.Render("Goodbye!"))
			return nil
		}

		answer, err := cc.Teller.Ask(line)
		if errors.Is(err, fortune.ErrEmptyQuestion) {
			_, _ = fmt.Fprintln(out, cc.Styles.Error.Render("You must ask a question!"))
			continue
		}
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(out, cc.Styles.Muted.Render("Shaking the ball..."))
		if err := think(ctx, cc.Cfg.Thinking); err != nil {
			return err
		}
		printAnswer(out, cc.Styles, answer)
		_, _ = fmt.Fprintln(out)
	}

	_, _ = fmt.Fprintln(out, cc.Styles.Muted.Render("Goodbye!"))
	return nil
}
