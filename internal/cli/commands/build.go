package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"

	"github.com/leapstack-labs/magic8ball/internal/frontend"
	"github.com/leapstack-labs/magic8ball/internal/ui/bootstrap"
	"github.com/leapstack-labs/magic8ball/internal/ui/resources"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	OutDir    string
	SourceDir string
	Minify    bool
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Bundle the browser app for deployment",
		Long: `Bundle web/src into app.js and app.css and write the page shell.

Asset URLs are resolved against the base path, taken from --base, BASE_URL
or the config file, in that order. The default base is "/".

Serve the result with: magic8ball serve --assets-dir <out>`,
		Example: `  # Build for the site root
  magic8ball build

  # Build for a sub path
  BASE_URL=/magic-8-ball/ magic8ball build --out public`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.OutDir, "out", "dist", "Output directory")
	cmd.Flags().StringVar(&opts.SourceDir, "source-dir", "", "Directory holding src/main.ts (default: web/ in the source tree)")
	cmd.Flags().BoolVar(&opts.Minify, "minify", true, "Minify the bundle")
	cmd.Flags().String("base", "/", "URL path the app is served under (overrides BASE_URL)")

	return cmd
}

func runBuild(cmd *cobra.Command, opts *BuildOptions) error {
	cfg := getConfig()
	base := cfg.UI.Base

	result, err := frontend.Build(frontend.BuildConfig{
		Base:      base,
		SourceDir: opts.SourceDir,
		OutDir:    opts.OutDir,
		Minify:    opts.Minify,
	})
	if err != nil {
		return err
	}

	shell, err := writeShell(opts.OutDir, base)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"File", "Size"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.AppendRow(table.Row{filepath.Join(opts.OutDir, "app.js"), formatSize(len(result.JS))})
	if result.CSS != "" {
		t.AppendRow(table.Row{filepath.Join(opts.OutDir, "app.css"), formatSize(len(result.CSS))})
	}
	t.AppendRow(table.Row{filepath.Join(opts.OutDir, resources.ShellFile), formatSize(shell)})
	t.Render()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Built for base path %s\n", base)

	return nil
}

// writeShell writes the page shell with asset references under base and
// returns its size.
func writeShell(dir, base string) (int, error) {
	doc, err := bootstrap.LoadShell(resources.FS(), resources.ShellFile)
	if err != nil {
		return 0, err
	}
	frontend.RewriteAssetRefs(doc, base)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return 0, fmt.Errorf("failed to render page shell: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, resources.ShellFile), buf.Bytes(), 0600); err != nil {
		return 0, fmt.Errorf("failed to write page shell: %w", err)
	}
	return buf.Len(), nil
}

func formatSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f kB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
