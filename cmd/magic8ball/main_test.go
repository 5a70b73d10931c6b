// Package main provides tests for the magic8ball CLI.
package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/magic8ball/internal/cli"
	"github.com/leapstack-labs/magic8ball/internal/cli/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Cleanup(config.ResetConfig)
	t.Setenv("BASE_URL", "")

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := execute(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}

	if !strings.Contains(output, "magic8ball") {
		t.Errorf("version output should contain 'magic8ball', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := execute(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"serve", "build", "ask", "play", "tui", "answers", "sessions", "config", "completion"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestAskThroughRoot(t *testing.T) {
	t.Setenv("MAGIC8BALL_ANSWERS", "Signs point to yes")
	t.Setenv("NO_COLOR", "1")

	output, err := execute(t, "ask", "--thinking", "0s", "--json", "Is the root wired?")
	if err != nil {
		t.Fatalf("ask command error = %v", err)
	}
	if !strings.Contains(output, `"text": "Signs point to yes"`) {
		t.Errorf("ask output should contain the configured answer, got: %s", output)
	}
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("MAGIC8BALL_UI__PORT", "70000")

	_, err := execute(t, "answers")
	if err == nil || !strings.Contains(err.Error(), "ui.port") {
		t.Errorf("expected a ui.port validation error, got: %v", err)
	}
}

func TestCompletionCommand(t *testing.T) {
	output, err := execute(t, "completion", "bash")
	if err != nil {
		t.Errorf("completion command error = %v", err)
	}
	if !strings.Contains(output, "magic8ball") {
		t.Errorf("completion script should mention magic8ball, got: %s", output)
	}
}
