package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/magic8ball/internal/frontend"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// EnvPrefix prefixes every environment override. A double underscore
// descends into a section: MAGIC8BALL_UI__PORT sets ui.port.
const EnvPrefix = "MAGIC8BALL_"

// configNames are searched for in the working directory, in order.
var configNames = []string{"magic8ball.yaml", "magic8ball.yml"}

// flagKeys maps command-line flags onto config keys. Flags not listed here
// map to their own name with dashes turned into underscores.
var flagKeys = map[string]string{
	"host":           "ui.host",
	"port":           "ui.port",
	"base":           "ui.base",
	"dev":            "ui.dev",
	"watch":          "ui.watch",
	"open":           "ui.auto_open",
	"assets-dir":     "ui.assets_dir",
	"secure-cookies": "ui.secure_cookies",
	"shake-limit":    "ui.shake_limit",
	"state":          "state_path",
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// findConfigFile finds the config file to use.
// Priority: explicit path > magic8ball.yaml > magic8ball.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from defaults, the config file, the
// environment and flags.
// Precedence (highest to lowest): flags > MAGIC8BALL_* > BASE_URL > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// 1. Load defaults
	def := Default()
	if err := k.Load(confmap.Provider(map[string]any{
		"verbose":           def.Verbose,
		"state_path":        def.StatePath,
		"thinking":          def.Thinking.String(),
		"ui.host":           def.UI.Host,
		"ui.port":           def.UI.Port,
		"ui.base":           def.UI.Base,
		"ui.dev":            def.UI.Dev,
		"ui.watch":          def.UI.Watch,
		"ui.auto_open":      def.UI.AutoOpen,
		"ui.session_secret": def.UI.SessionSecret,
		"ui.shake_limit":    def.UI.ShakeLimit,
		"ui.thinking":       def.UI.Thinking.String(),
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	fileK := koanf.New(".")
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := fileK.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
		if err := k.Merge(fileK); err != nil {
			return nil, fmt.Errorf("error merging config file %s: %w", configFileUsed, err)
		}
	}

	// 3. BASE_URL, shared with the frontend build
	if base, ok := os.LookupEnv(frontend.EnvBaseURL); ok && base != "" {
		if err := k.Set("ui.base", base); err != nil {
			return nil, fmt.Errorf("failed to apply %s: %w", frontend.EnvBaseURL, err)
		}
	}

	// 4. Load environment variables (MAGIC8BALL_ prefix)
	// Transform: MAGIC8BALL_UI__PORT -> ui.port
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 6. Unmarshal into Config struct
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.UI.Base = frontend.NormalizeBase(cfg.UI.Base)
	cfg.Answers = compact(cfg.Answers)

	// Paths set in the config file are relative to it.
	if configFileUsed != "" {
		dir := filepath.Dir(configFileUsed)
		cfg.StatePath = resolveFromFile(cfg.StatePath, fileK.String("state_path"), dir)
		cfg.UI.AssetsDir = resolveFromFile(cfg.UI.AssetsDir, fileK.String("ui.assets_dir"), dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// All returns the merged configuration as a flat key map.
func All() map[string]any {
	return k.All()
}

// Raw returns a copy of the merged configuration as a nested map.
func Raw() map[string]any {
	return k.Raw()
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() any {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func flagKey(name string) string {
	if key, ok := flagKeys[name]; ok {
		return key
	}
	return strings.ReplaceAll(name, "-", "_")
}

// resolveFromFile resolves value against dir when it is a relative path
// that came from the config file rather than a later override.
func resolveFromFile(value, fromFile, dir string) string {
	if value == "" || value != fromFile || filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(dir, value)
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
