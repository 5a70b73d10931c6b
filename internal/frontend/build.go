// Package frontend bundles the browser sources under web/ with esbuild and
// owns the deployment base path.
package frontend

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// EnvBaseURL names the environment variable holding the deployment base path.
const EnvBaseURL = "BASE_URL"

// DefaultBase is used when EnvBaseURL is unset.
const DefaultBase = "/"

// BuildConfig describes one frontend build.
type BuildConfig struct {
	// Base is the URL path the app is served under, e.g. "/" or "/magic-8-ball/".
	Base string
	// SourceDir holds src/main.ts. Defaults to SourceDirectory().
	SourceDir string
	// OutDir receives app.js and app.css. Empty keeps the output in memory.
	OutDir string
	Minify bool
}

// BuildResult contains the compiled JS and CSS from the frontend build.
type BuildResult struct {
	JS  string
	CSS string
}

// BaseFromEnv reads EnvBaseURL, falling back to DefaultBase.
func BaseFromEnv() string {
	return NormalizeBase(os.Getenv(EnvBaseURL))
}

// NormalizeBase returns base with exactly one leading and one trailing slash.
// Full URLs are reduced to their path.
func NormalizeBase(base string) string {
	base = strings.TrimSpace(base)
	if i := strings.Index(base, "://"); i >= 0 {
		rest := base[i+3:]
		if j := strings.Index(rest, "/"); j >= 0 {
			base = rest[j:]
		} else {
			base = ""
		}
	}
	base = strings.Trim(base, "/")
	if base == "" {
		return DefaultBase
	}
	return "/" + base + "/"
}

// Build compiles src/main.ts and the CSS it imports into a single IIFE bundle.
// The base path is baked in as import.meta.env.BASE_URL and as the public
// path for any emitted asset URLs.
func Build(cfg BuildConfig) (*BuildResult, error) {
	srcDir := cfg.SourceDir
	if srcDir == "" {
		dir, err := SourceDirectory()
		if err != nil {
			return nil, err
		}
		srcDir = dir
	}
	base := NormalizeBase(cfg.Base)
	baseJSON, _ := json.Marshal(base)

	buildOpts := api.BuildOptions{
		EntryPoints: []string{filepath.Join(srcDir, "src", "main.ts")},
		Bundle:      true,
		Write:       false,

		// Virtual output directory (required for CSS bundling even with Write: false)
		Outdir:     "out",
		EntryNames: "app",
		PublicPath: base + "static/",

		Loader: map[string]api.Loader{
			".ts":  api.LoaderTS,
			".css": api.LoaderCSS,
			".svg": api.LoaderFile,
		},

		Platform: api.PlatformBrowser,
		Format:   api.FormatIIFE,
		Target:   api.ES2020,

		TreeShaking: api.TreeShakingTrue,
		Sourcemap:   api.SourceMapNone,

		Define: map[string]string{
			"import.meta.env.BASE_URL": string(baseJSON),
		},

		LogLevel: api.LogLevelWarning,
	}

	if cfg.Minify {
		buildOpts.MinifyWhitespace = true
		buildOpts.MinifyIdentifiers = true
		buildOpts.MinifySyntax = true
	}

	result := api.Build(buildOpts)

	if len(result.Errors) > 0 {
		var errMsg strings.Builder
		for _, err := range result.Errors {
			if err.Location != nil {
				fmt.Fprintf(&errMsg, "%s:%d:%d: %s\n", err.Location.File, err.Location.Line, err.Location.Column, err.Text)
			} else {
				fmt.Fprintf(&errMsg, "%s\n", err.Text)
			}
		}
		return nil, fmt.Errorf("esbuild errors:\n%s", errMsg.String())
	}

	buildResult := &BuildResult{}
	for _, file := range result.OutputFiles {
		switch filepath.Ext(file.Path) {
		case ".js":
			buildResult.JS = string(file.Contents)
		case ".css":
			buildResult.CSS = string(file.Contents)
		}
	}

	if buildResult.JS == "" {
		return nil, fmt.Errorf("no JavaScript output generated")
	}

	if cfg.OutDir != "" {
		if err := buildResult.WriteTo(cfg.OutDir); err != nil {
			return nil, err
		}
	}

	return buildResult, nil
}

// WriteTo writes app.js and app.css into dir.
func (r *BuildResult) WriteTo(dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte(r.JS), 0600); err != nil {
		return fmt.Errorf("failed to write app.js: %w", err)
	}
	if r.CSS != "" {
		if err := os.WriteFile(filepath.Join(dir, "app.css"), []byte(r.CSS), 0600); err != nil {
			return fmt.Errorf("failed to write app.css: %w", err)
		}
	}
	return nil
}

// SourceDirectory returns the absolute path of the web/ directory in the
// source tree. Only meaningful when running from a checkout.
func SourceDirectory() (string, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to get current file path")
	}
	return filepath.Join(filepath.Dir(currentFile), "..", "..", "web"), nil
}
