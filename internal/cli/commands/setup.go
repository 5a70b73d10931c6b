package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/magic8ball/internal/cli/config"
	"github.com/leapstack-labs/magic8ball/internal/fortune"
	"github.com/leapstack-labs/magic8ball/internal/settings"
	"github.com/leapstack-labs/magic8ball/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Teller *fortune.Teller
	Styles *Styles
}

// NewCommandContext creates a CommandContext with a teller built from the
// configured answers.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	teller, err := newTeller(cfg)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:    cfg,
		Logger: getLogger(cmd),
		Teller: teller,
		Styles: NewStyles(cmd.OutOrStdout()),
	}, nil
}

// getConfig returns the current configuration, or the defaults when no
// configuration has been loaded (commands run outside the root command).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func getLogger(cmd *cobra.Command) *slog.Logger {
	return config.GetLogger(cmd.Context())
}

func newTeller(cfg *config.Config) (*fortune.Teller, error) {
	answers := fortune.DefaultAnswers
	if len(cfg.Answers) > 0 {
		answers = cfg.Answers
	}
	return fortune.New(answers)
}

// openState opens the preference database at cfg.StatePath. It returns a
// nil store when persistence is off. The cleanup func is always non-nil.
func openState(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, func(), error) {
	if cfg.StatePath == "" {
		return nil, func() {}, nil
	}

	// Ensure state directory exists
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, func() {}, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, func() {}, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, func() {}, err
	}
	return store, func() { _ = store.Close() }, nil
}

// openRegistry creates the per-session settings registry, backed by the
// preference database when one is configured. Like openState, the cleanup
// func is never nil.
func openRegistry(cfg *config.Config, logger *slog.Logger) (*settings.Registry, func(), error) {
	store, closeStore, err := openState(cfg, logger)
	if err != nil {
		return nil, closeStore, err
	}

	var persister settings.Persister
	if store != nil {
		persister = store
		logger.Debug("persisting preferences", "path", store.Path())
	}

	registry := settings.NewRegistry(persister, logger)
	return registry, func() {
		registry.Close()
		closeStore()
	}, nil
}
