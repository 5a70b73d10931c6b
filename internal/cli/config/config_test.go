package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches into a fresh temp dir so no stray magic8ball.yaml is found.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Cleanup(ResetConfig)
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "magic8ball.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func serveFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.Int("port", 0, "")
	fs.String("base", "", "")
	fs.String("state", "", "")
	fs.Bool("verbose", false, "")
	fs.Duration("thinking", 0, "")
	fs.Int("shake-limit", 0, "")
	return fs
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdir(t)
	t.Setenv("BASE_URL", "")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.UI.Port)
	assert.Equal(t, DefaultHost, cfg.UI.Host)
	assert.Equal(t, "/", cfg.UI.Base)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, DefaultThinking, cfg.Thinking)
	assert.Equal(t, DefaultShakeLimit, cfg.UI.ShakeLimit)
	assert.Nil(t, cfg.Answers)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestLoadConfig_File(t *testing.T) {
	dir := chdir(t)
	t.Setenv("BASE_URL", "")
	writeConfig(t, dir, `
state_path: data/prefs.db
thinking: 2s
answers:
  - Yes
  - "  "
  - Ask again later
ui:
  port: 9000
  base: magic-8-ball
  session_secret: a-much-longer-secret-value
`)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "magic8ball.yaml", GetConfigFileUsed())
	assert.Equal(t, 9000, cfg.UI.Port)
	assert.Equal(t, "/magic-8-ball/", cfg.UI.Base)
	assert.Equal(t, 2*time.Second, cfg.Thinking)
	assert.Equal(t, []string{"Yes", "Ask again later"}, cfg.Answers)
	assert.Equal(t, filepath.Join(".", "data", "prefs.db"), cfg.StatePath)
	assert.False(t, cfg.UsesDefaultSecret())
}

func TestLoadConfig_ExplicitFileResolvesPaths(t *testing.T) {
	chdir(t)
	other := t.TempDir()
	path := writeConfig(t, other, "state_path: prefs.db\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(other, "prefs.db"), cfg.StatePath)
}

func TestLoadConfig_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		env      map[string]string
		args     []string
		wantPort int
		wantBase string
	}{
		{
			name:     "file over defaults",
			file:     "ui:\n  port: 9001\n",
			wantPort: 9001,
			wantBase: "/",
		},
		{
			name:     "env over file",
			file:     "ui:\n  port: 9001\n",
			env:      map[string]string{"MAGIC8BALL_UI__PORT": "9002"},
			wantPort: 9002,
			wantBase: "/",
		},
		{
			name:     "flag over env",
			env:      map[string]string{"MAGIC8BALL_UI__PORT": "9002"},
			args:     []string{"--port", "9003"},
			wantPort: 9003,
			wantBase: "/",
		},
		{
			name:     "BASE_URL over file",
			file:     "ui:\n  base: /from-file/\n",
			env:      map[string]string{"BASE_URL": "/from-env"},
			wantPort: DefaultPort,
			wantBase: "/from-env/",
		},
		{
			name:     "prefixed env over BASE_URL",
			env:      map[string]string{"BASE_URL": "/generic/", "MAGIC8BALL_UI__BASE": "/specific/"},
			wantPort: DefaultPort,
			wantBase: "/specific/",
		},
		{
			name:     "base flag wins",
			env:      map[string]string{"BASE_URL": "/generic/"},
			args:     []string{"--base", "flag"},
			wantPort: DefaultPort,
			wantBase: "/flag/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdir(t)
			t.Setenv("BASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if tt.file != "" {
				writeConfig(t, dir, tt.file)
			}
			fs := serveFlags()
			require.NoError(t, fs.Parse(tt.args))

			cfg, err := LoadConfig("", fs)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPort, cfg.UI.Port)
			assert.Equal(t, tt.wantBase, cfg.UI.Base)
		})
	}
}

func TestLoadConfig_FlagKeys(t *testing.T) {
	chdir(t)
	t.Setenv("BASE_URL", "")

	fs := serveFlags()
	require.NoError(t, fs.Parse([]string{"--state", "", "--thinking", "0s", "--shake-limit", "5", "--verbose"}))

	cfg, err := LoadConfig("", fs)
	require.NoError(t, err)

	assert.Empty(t, cfg.StatePath, "--state '' keeps preferences in memory")
	assert.Zero(t, cfg.Thinking)
	assert.Equal(t, 5, cfg.UI.ShakeLimit)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_EnvAnswers(t *testing.T) {
	chdir(t)
	t.Setenv("MAGIC8BALL_ANSWERS", "Yes,No,Maybe")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Yes", "No", "Maybe"}, cfg.Answers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		errText string
	}{
		{name: "port out of range", file: "ui:\n  port: 70000\n", errText: "ui.port must be at most 65535"},
		{name: "short secret", file: "ui:\n  session_secret: short\n", errText: "ui.session_secret must be at least 16"},
		{name: "negative limit", file: "ui:\n  shake_limit: -1\n", errText: "ui.shake_limit"},
		{name: "missing assets dir", file: "ui:\n  assets_dir: /does/not/exist\n", errText: "directory does not exist"},
		{name: "bad duration", file: "thinking: soon\n", errText: "unable to decode config"},
		{name: "bad yaml", file: "ui: [\n", errText: "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdir(t)
			writeConfig(t, dir, tt.file)

			_, err := LoadConfig("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "ui.port", envKey("MAGIC8BALL_UI__PORT"))
	assert.Equal(t, "state_path", envKey("MAGIC8BALL_STATE_PATH"))
	assert.Equal(t, "ui.session_secret", envKey("MAGIC8BALL_UI__SESSION_SECRET"))
}

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "ui.assets_dir", flagKey("assets-dir"))
	assert.Equal(t, "state_path", flagKey("state"))
	assert.Equal(t, "verbose", flagKey("verbose"))
}
