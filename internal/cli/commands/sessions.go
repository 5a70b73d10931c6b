package commands

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored browser preferences",
		Long: `Show how many browser sessions have preferences in the state database.

Use "sessions forget <id>" to drop one session's preferences.`,
		RunE: runSessions,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "forget <session-id>",
		Short: "Delete the stored preferences of one session",
		Args:  cobra.ExactArgs(1),
		RunE:  runForget,
	})

	return cmd
}

var errNoState = errors.New("no state database configured (state_path is empty)")

func runSessions(cmd *cobra.Command, _ []string) error {
	cfg := getConfig()
	store, cleanup, err := openState(cfg, getLogger(cmd))
	if err != nil {
		return err
	}
	defer cleanup()
	if store == nil {
		return errNoState
	}

	count, err := store.CountSessions(cmd.Context())
	if err != nil {
		return err
	}
	version, err := store.GetMigrationVersion()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Database", store.Path()},
		{"Schema version", version},
		{"Sessions", count},
	})
	t.Render()
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	cfg := getConfig()
	store, cleanup, err := openState(cfg, getLogger(cmd))
	if err != nil {
		return err
	}
	defer cleanup()
	if store == nil {
		return errNoState
	}

	if err := store.DeletePreferences(cmd.Context(), args[0]); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Forgot preferences of session %s\n", args[0])
	return nil
}
