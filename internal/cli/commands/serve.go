package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/magic8ball/internal/cli/config"
	"github.com/leapstack-labs/magic8ball/internal/ui"
	"github.com/leapstack-labs/magic8ball/internal/ui/bootstrap"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"ui"},
		Short:   "Start the Magic 8 Ball web app",
		Long: `Start a local web server hosting the Magic 8 Ball.

The page keeps shake detection, text-to-speech and the selected voice per
browser session. Preferences survive restarts when a state database is set.

Set BASE_URL (or --base) to serve the app under a sub path, e.g. /magic-8-ball/.`,
		Example: `  # Start on the default port
  magic8ball serve

  # Serve under a sub path with live rebuilds of web/src
  BASE_URL=/magic-8-ball/ magic8ball serve --watch

  # Keep preferences in memory only
  magic8ball serve --state ""`,
		RunE: runServe,
	}

	cmd.Flags().String("host", config.DefaultHost, "Host to listen on")
	cmd.Flags().Int("port", config.DefaultPort, "Port to serve on")
	cmd.Flags().String("base", "/", "URL path to serve under (overrides BASE_URL)")
	cmd.Flags().Bool("dev", false, "Enable the browser reload stream")
	cmd.Flags().Bool("watch", false, "Rebuild web/src on change and reload the browser")
	cmd.Flags().Bool("open", false, "Open the app in a browser")
	cmd.Flags().String("assets-dir", "", "Serve a prebuilt bundle from this directory")
	cmd.Flags().Bool("secure-cookies", false, "Mark the session cookie Secure")
	cmd.Flags().Int("shake-limit", config.DefaultShakeLimit, "Shakes per minute per client (0 disables)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, logger := cc.Cfg, cc.Logger

	registry, cleanup, err := openRegistry(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	defer cleanup()

	if cfg.UsesDefaultSecret() {
		logger.Warn("sessions are signed with the built-in development secret; set ui.session_secret for production")
	}

	server := ui.NewServer(ui.Config{
		Host:          cfg.UI.Host,
		Port:          cfg.UI.Port,
		Base:          cfg.UI.Base,
		Dev:           cfg.UI.Dev,
		Watch:         cfg.UI.Watch,
		AssetsDir:     cfg.UI.AssetsDir,
		SessionSecret: cfg.UI.SessionSecret,
		SecureCookies: cfg.UI.SecureCookies,
		Registry:      registry,
		Teller:        cc.Teller,
		Thinking:      cfg.UI.Thinking,
		ShakeLimit:    cfg.UI.ShakeLimit,
		Logger:        logger,
	})

	url := appURL(cfg.UI)
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Starting Magic 8 Ball on %s\n", url)
	_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")

	// Open browser if configured
	if cfg.UI.AutoOpen {
		go openBrowser(url)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := server.Serve(ctx); err != nil {
		if errors.Is(err, bootstrap.ErrMountPointMissing) {
			return fmt.Errorf("page shell has no #%s element: %w", bootstrap.MountPointID, err)
		}
		return err
	}
	return nil
}

// appURL is the address printed and opened on start.
func appURL(c config.UIConfig) string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(c.Port)) + c.Base
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
