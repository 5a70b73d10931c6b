// Package ui serves the Magic 8 Ball web app.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/magic8ball/internal/fortune"
	"github.com/leapstack-labs/magic8ball/internal/frontend"
	"github.com/leapstack-labs/magic8ball/internal/settings"
	"github.com/leapstack-labs/magic8ball/internal/ui/bootstrap"
	"github.com/leapstack-labs/magic8ball/internal/ui/components"
	"github.com/leapstack-labs/magic8ball/internal/ui/features/common"
	eightballFeature "github.com/leapstack-labs/magic8ball/internal/ui/features/eightball"
	"github.com/leapstack-labs/magic8ball/internal/ui/notifier"
	"github.com/leapstack-labs/magic8ball/internal/ui/resources"
	"github.com/leapstack-labs/magic8ball/internal/ui/router"
)

// rebuildDebounce collapses bursts of editor writes into one rebuild.
const rebuildDebounce = 100 * time.Millisecond

// registryPruneInterval is how often idle session stores are dropped.
const registryPruneInterval = time.Minute

// Server is the main UI server.
type Server struct {
	cfg          Config
	sessionStore *sessions.CookieStore
	logger       *slog.Logger
	notifier     *notifier.Notifier
	app          *bootstrap.App
}

// Config holds configuration for the UI server.
type Config struct {
	Host string
	Port int
	// Base is the URL path the app is served under.
	Base string

	// Dev enables the reload stream. Watch also rebuilds the client bundle
	// from SourceDir whenever it changes.
	Dev       bool
	Watch     bool
	SourceDir string
	// AssetsDir serves a prebuilt bundle (and optionally a custom shell)
	// instead of the embedded one.
	AssetsDir string

	SessionSecret string
	SecureCookies bool

	Registry   *settings.Registry
	Teller     *fortune.Teller
	Thinking   time.Duration
	ShakeLimit int

	Logger *slog.Logger
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	cfg.Base = frontend.NormalizeBase(cfg.Base)
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	sessionStore := common.NewCookieStore(cfg.SessionSecret, cfg.SecureCookies)
	sessionStore.Options.Path = cfg.Base

	return &Server{
		cfg:          cfg,
		sessionStore: sessionStore,
		logger:       cfg.Logger,
		notifier:     notifier.New(),
	}
}

// Handler mounts the app into the page shell and builds the route tree.
// It fails when the shell has no mount point.
func (s *Server) Handler(ctx context.Context) (http.Handler, error) {
	if s.cfg.Registry == nil || s.cfg.Teller == nil {
		return nil, errors.New("ui: registry and teller are required")
	}

	app, err := s.mount(ctx)
	if err != nil {
		return nil, err
	}
	s.app = app

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	handlers := eightballFeature.NewHandlers(app, s.cfg.Registry, s.cfg.Teller, s.sessionStore, s.logger, s.cfg.Thinking)
	if err := router.SetupRoutes(r, router.Deps{
		Eightball:  handlers,
		Notifier:   s.notifier,
		AssetsDir:  s.cfg.AssetsDir,
		ShakeLimit: s.cfg.ShakeLimit,
		IsDev:      s.IsDev(),
	}); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	if s.cfg.Base == frontend.DefaultBase {
		return r, nil
	}
	return s.underBase(r), nil
}

// underBase serves h below the base path. The base without its trailing
// slash redirects to the slash form, the only path the session cookie is
// scoped to.
func (s *Server) underBase(h http.Handler) http.Handler {
	prefix := strings.TrimSuffix(s.cfg.Base, "/")
	stripped := http.StripPrefix(prefix, h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == prefix {
			target := s.cfg.Base
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
		stripped.ServeHTTP(w, r)
	})
}

func (s *Server) mount(ctx context.Context) (*bootstrap.App, error) {
	shell := resources.Overlay(s.cfg.AssetsDir, resources.FS())
	doc, err := bootstrap.LoadShell(shell, resources.ShellFile)
	if err != nil {
		return nil, err
	}
	frontend.RewriteAssetRefs(doc, s.cfg.Base)

	app, err := bootstrap.Mount(ctx, doc, bootstrap.MountPointID, components.App(components.Props{
		Base:    s.cfg.Base,
		Initial: settings.DefaultPreferences(),
		IsDev:   s.IsDev(),
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to mount app: %w", err)
	}
	return app, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if s.cfg.Watch && s.cfg.AssetsDir == "" {
		dir, err := os.MkdirTemp("", "magic8ball-assets-")
		if err != nil {
			return fmt.Errorf("failed to create assets directory: %w", err)
		}
		defer func() { _ = os.RemoveAll(dir) }()
		s.cfg.AssetsDir = dir
	}
	if s.cfg.Watch {
		if err := s.rebuild(); err != nil {
			return err
		}
	}

	handler, err := s.Handler(ctx)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	s.logger.Info("starting UI server", "addr", fmt.Sprintf("http://%s%s", displayHost(s.cfg.Host, s.cfg.Port), s.cfg.Base))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start file watcher if enabled
	if s.cfg.Watch {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		s.cfg.Registry.Run(egctx, registryPruneInterval)
		return nil
	})

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev reports whether the reload stream is served.
func (s *Server) IsDev() bool {
	return s.cfg.Dev || s.cfg.Watch || resources.IsDev()
}

// Notifier returns the notifier that drives page reloads.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// App returns the mounted app, once Handler has run.
func (s *Server) App() *bootstrap.App {
	return s.app
}

func (s *Server) rebuild() error {
	start := time.Now()
	if _, err := frontend.Build(frontend.BuildConfig{
		Base:      s.cfg.Base,
		SourceDir: s.cfg.SourceDir,
		OutDir:    s.cfg.AssetsDir,
	}); err != nil {
		return fmt.Errorf("frontend build failed: %w", err)
	}
	s.logger.Debug("frontend rebuilt", "out", s.cfg.AssetsDir, "took", time.Since(start))
	return nil
}

// watchFiles rebuilds the client bundle when a source file changes and
// reloads every open page.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	srcDir := s.cfg.SourceDir
	if srcDir == "" {
		if srcDir, err = frontend.SourceDirectory(); err != nil {
			return err
		}
	}

	if err := watchDirRecursive(watcher, srcDir); err != nil {
		s.logger.Error("failed to watch frontend sources", "dir", srcDir, "error", err)
		// Don't fail - continue without watching
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSourceChange(event) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(rebuildDebounce, func() {
				s.logger.Debug("source changed, rebuilding", "file", event.Name)
				if err := s.rebuild(); err != nil {
					s.logger.Error("rebuild failed", "error", err)
					return
				}
				s.notifier.Broadcast()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func isSourceChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	switch filepath.Ext(event.Name) {
	case ".ts", ".css", ".svg":
		return true
	}
	return false
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func displayHost(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, fmt.Sprint(port))
}
