package commands

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/magic8ball/internal/fortune"
)

func newTestTUIModel(t *testing.T) tuiModel {
	t.Helper()
	teller, err := fortune.New([]string{"Yes"})
	require.NoError(t, err)
	return newTUIModel(teller, NewStyles(io.Discard), 0)
}

func update(t *testing.T, m tuiModel, msg tea.Msg) (tuiModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(tuiModel)
	require.True(t, ok)
	return model, cmd
}

func TestTUIModel_AskAndReveal(t *testing.T) {
	m := newTestTUIModel(t)
	assert.Contains(t, m.View(), "Ask a yes/no question.")

	m.input.SetValue("Will it rain?")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tuiShaking, m.state)
	assert.Contains(t, m.View(), "Shaking the ball...")

	// Enter is ignored while the ball shakes
	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, tuiShaking, m.state)

	m, _ = update(t, m, answerMsg{answer: fortune.Answer{Text: "Yes", Question: "Will it rain"}})
	assert.Equal(t, tuiAnswered, m.state)
	assert.Empty(t, m.input.Value())

	view := m.View()
	assert.Contains(t, view, "Will it rain?")
	assert.Contains(t, view, "Yes")
}

func TestTUIModel_BlankQuestion(t *testing.T) {
	m := newTestTUIModel(t)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, tuiAsking, m.state)
	assert.Contains(t, m.View(), "You must ask a question!")

	// The warning clears on the next good question
	m.input.SetValue("Really?")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotContains(t, m.View(), "You must ask a question!")
}

func TestTUIModel_Quit(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   tea.KeyMsg
	}{
		{name: "esc", key: tea.KeyMsg{Type: tea.KeyEsc}},
		{name: "ctrl+c", key: tea.KeyMsg{Type: tea.KeyCtrlC}},
		{name: "quit typed", input: "quit", key: tea.KeyMsg{Type: tea.KeyEnter}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestTUIModel(t)
			m.input.SetValue(tt.input)

			m, cmd := update(t, m, tt.key)
			require.NotNil(t, cmd)
			assert.Equal(t, tea.Quit(), cmd())
			assert.True(t, m.quitting)
			assert.Contains(t, m.View(), "Goodbye!")
		})
	}
}

func TestTUIModel_Typing(t *testing.T) {
	m := newTestTUIModel(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("Hi")})
	assert.Equal(t, "Hi", m.input.Value())
}

func TestReveal(t *testing.T) {
	a := fortune.Answer{Text: "Yes"}

	msg := reveal(a, 0)()
	assert.Equal(t, answerMsg{answer: a}, msg)

	// A thinking delay defers the reveal through a tick
	assert.NotNil(t, reveal(a, time.Millisecond))
}
