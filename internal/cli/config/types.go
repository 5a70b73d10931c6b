// Package config provides configuration management for the magic8ball CLI.
package config

import (
	"time"
)

// UIConfig holds configuration for the web server.
type UIConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
	// Base is the URL path the app is served under. BASE_URL sets it too.
	Base          string        `koanf:"base"`
	Dev           bool          `koanf:"dev"`
	Watch         bool          `koanf:"watch"`
	AutoOpen      bool          `koanf:"auto_open"`
	AssetsDir     string        `koanf:"assets_dir" validate:"omitempty,dir"`
	SessionSecret string        `koanf:"session_secret" validate:"min=16"`
	SecureCookies bool          `koanf:"secure_cookies"`
	ShakeLimit    int           `koanf:"shake_limit" validate:"min=0"`
	Thinking      time.Duration `koanf:"thinking" validate:"min=0"`
}

// Config holds all CLI configuration options.
type Config struct {
	Verbose bool `koanf:"verbose"`
	// StatePath is the SQLite file preferences are kept in. Empty keeps
	// them in memory for the life of the process.
	StatePath string `koanf:"state_path"`
	// Answers replaces the built-in answer set when non-empty.
	Answers []string `koanf:"answers"`
	// Thinking is how long "play" and "ask" pause before answering.
	Thinking time.Duration `koanf:"thinking" validate:"min=0"`
	UI       UIConfig      `koanf:"ui"`
}

// Default configuration values.
const (
	DefaultHost          = "localhost"
	DefaultPort          = 8765
	DefaultStateFile     = ".magic8ball/state.db"
	DefaultShakeLimit    = 60
	DefaultThinking      = 600 * time.Millisecond
	DefaultSessionSecret = "magic8ball-dev-secret-change-in-production" //nolint:gosec
)

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		StatePath: DefaultStateFile,
		Thinking:  DefaultThinking,
		UI: UIConfig{
			Host:          DefaultHost,
			Port:          DefaultPort,
			Base:          "/",
			AutoOpen:      false,
			SessionSecret: DefaultSessionSecret,
			ShakeLimit:    DefaultShakeLimit,
			Thinking:      DefaultThinking,
		},
	}
}
