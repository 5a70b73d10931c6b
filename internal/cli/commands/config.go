package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/magic8ball/internal/cli/config"
)

const redacted = "********"

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file,
BASE_URL, MAGIC8BALL_* environment variables and flags.

The output is valid magic8ball.yaml. The session secret is masked unless
--show-secrets is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfig(cmd, showSecrets)
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print the session secret in clear")

	return cmd
}

func runConfig(cmd *cobra.Command, showSecrets bool) error {
	raw := config.Raw()
	if !showSecrets {
		if ui, ok := raw["ui"].(map[string]any); ok {
			if _, ok := ui["session_secret"]; ok {
				ui["session_secret"] = redacted
			}
		}
	}
	// Flags that are not config keys
	delete(raw, "config")

	out := cmd.OutOrStdout()
	if file := config.GetConfigFileUsed(); file != "" {
		_, _ = fmt.Fprintf(out, "# config file: %s\n", file)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(raw); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}
