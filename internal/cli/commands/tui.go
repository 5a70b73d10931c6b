package commands

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/magic8ball/internal/fortune"
)

// NewTUICommand creates the tui command.
func NewTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Full-screen Magic 8 Ball in the terminal",
		Long: `Open a terminal UI: type a question, press enter and watch the ball shake.

Press Esc or Ctrl+C to leave.`,
		RunE: runTUI,
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	p := tea.NewProgram(
		newTUIModel(cc.Teller, cc.Styles, cc.Cfg.Thinking),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

type tuiState int

const (
	tuiAsking tuiState = iota
	tuiShaking
	tuiAnswered
)

// answerMsg reveals an answer once the ball has finished shaking.
type answerMsg struct {
	answer fortune.Answer
}

type tuiModel struct {
	input    textinput.Model
	spinner  spinner.Model
	teller   *fortune.Teller
	styles   *Styles
	thinking time.Duration

	state    tuiState
	answer   fortune.Answer
	warning  string
	quitting bool
}

func newTUIModel(teller *fortune.Teller, styles *Styles, thinking time.Duration) tuiModel {
	input := textinput.New()
	input.Placeholder = "Will it rain tomorrow?"
	input.Prompt = "Ask: "
	input.CharLimit = 200
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Answer

	return tuiModel{
		input:    input,
		spinner:  sp,
		teller:   teller,
		styles:   styles,
		thinking: thinking,
	}
}

func (m tuiModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.ask()
		}

	case answerMsg:
		m.state = tuiAnswered
		m.answer = msg.answer
		m.input.Reset()
		return m, nil

	case spinner.TickMsg:
		if m.state != tuiShaking {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.state == tuiShaking {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m tuiModel) ask() (tea.Model, tea.Cmd) {
	if m.state == tuiShaking {
		return m, nil
	}

	question := strings.TrimSpace(m.input.Value())
	switch strings.ToLower(question) {
	case "quit", "exit":
		m.quitting = true
		return m, tea.Quit
	}

	answer, err := m.teller.Ask(question)
	if err != nil {
		m.warning = "You must ask a question!"
		return m, nil
	}

	m.warning = ""
	m.state = tuiShaking
	return m, tea.Batch(m.spinner.Tick, reveal(answer, m.thinking))
}

// reveal delivers the answer after d.
func reveal(a fortune.Answer, d time.Duration) tea.Cmd {
	if d <= 0 {
		return func() tea.Msg { return answerMsg{answer: a} }
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return answerMsg{answer: a} })
}

func (m tuiModel) View() string {
	if m.quitting {
		return m.styles.Muted.Render("Goodbye!") + "\n"
	}

	var b strings.Builder
	b.WriteString(m.styles.Answer.Render("Magic 8 Ball"))
	b.WriteString("\n\n")

	switch m.state {
	case tuiShaking:
		b.WriteString(m.spinner.View() + " Shaking the ball...")
	case tuiAnswered:
		if m.answer.Question != "" {
			b.WriteString(m.styles.Question.Render(m.answer.Question+"?") + "\n")
		}
		b.WriteString(m.styles.Ball.Render(m.styles.Answer.Render(m.answer.Text)))
	default:
		b.WriteString(m.styles.Muted.Render("Ask a yes/no question."))
	}
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	if m.warning != "" {
		b.WriteString("\n" + m.styles.Error.Render(m.warning))
	}
	b.WriteString("\n\n" + m.styles.Muted.Render("enter: shake • esc: quit"))
	return b.String()
}
