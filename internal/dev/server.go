package dev

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hubro-apparatus/hubro/internal/build"
	"github.com/hubro-apparatus/hubro/internal/config"
	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
	"github.com/hubro-apparatus/hubro/pkg/middleware"
	"github.com/hubro-apparatus/hubro/pkg/render"
	"github.com/hubro-apparatus/hubro/pkg/router"
)

// Options configures the development server.
type Options struct {
	Config *config.Config

	// Bundler defaults to esbuild working in the source directory.
	Bundler build.Bundler

	// Snapshot returns the current snapshot. Required.
	Snapshot func() *hierarchy.Snapshot

	// Rebuild rescans the hierarchy and swaps the router. Required.
	Rebuild func(ctx context.Context) error

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnReload is called after browsers were told to reload.
	OnReload func(clients int)
}

// Server is the development companion of an application. It does not
// listen itself; the application mounts its handlers and runs it next to
// the HTTP server.
type Server struct {
	config  *config.Config
	options Options
	log     *slog.Logger
	reload  *ReloadServer
	assets  *Assets
}

// NewServer creates a new development server.
func NewServer(options Options) *Server {
	cfg := options.Config
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}
	bundler := options.Bundler
	if bundler == nil {
		bundler = build.NewEsbuild(cfg.SrcDir())
	}

	return &Server{
		config:  cfg,
		options: options,
		log:     log,
		reload:  NewReloadServer(log),
		assets:  NewAssets(bundler, options.Snapshot, cfg.JSDir(), cfg.URLPathToJs(""), log),
	}
}

// Reload returns the websocket reload server.
func (s *Server) Reload() *ReloadServer { return s.reload }

// Assets returns the in-memory bundle handler.
func (s *Server) Assets() *Assets { return s.assets }

// ScriptPath is the URL path of the reload client.
func (s *Server) ScriptPath() string { return s.config.URLPathDev("reload.js") }

// Mounts returns the development endpoints: the reload websocket, the
// reload client and the bundles.
func (s *Server) Mounts() []router.Mount {
	script := ReloadScript(s.config.URLPathDev("reload"))
	return []router.Mount{
		{Pattern: s.config.URLPathDev("reload"), Handler: s.reload},
		{Pattern: s.ScriptPath(), Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", ContentTypeJS)
			w.Header().Set("Cache-Control", "no-store")
			w.Write(script)
		})},
		{Pattern: s.config.URLPathToJs("") + "*", Handler: s.assets},
	}
}

// Adapter adds the reload client to every page rendered below it.
func (s *Server) Adapter() middleware.Adapter {
	src := s.ScriptPath()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header, ok := render.HeaderFrom(r.Context())
			if !ok {
				header = render.NewHeader()
				r = r.WithContext(render.WithHeader(r.Context(), header))
			}
			header.SetScript(src)
			next.ServeHTTP(w, r)
		})
	}
}

// WatchPaths are the directories whose changes trigger a rebuild.
func (s *Server) WatchPaths() []string {
	cfg := s.config
	return []string{
		cfg.PagesDir(),
		cfg.SystemDir(),
		cfg.ComponentsDir(),
		cfg.LayoutsDir(),
		cfg.PublicDir(),
	}
}

// Run watches the source tree until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ignore := append(append([]string(nil), DefaultIgnore...), s.config.Dev.Ignore...)
	w, err := NewWatcher(WatcherConfig{
		Paths:    s.WatchPaths(),
		Ignore:   ignore,
		Debounce: s.config.Dev.Debounce,
		Logger:   s.log,
	})
	if err != nil {
		return err
	}
	defer w.Close()
	defer s.reload.Close()

	s.log.Info("watching for changes", "paths", len(s.WatchPaths()))
	err = w.Run(ctx, func(changes []Change) { s.handleChanges(ctx, changes) })
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// handleChanges applies one batch of changes. Stylesheet-only batches
// reload stylesheets; anything else rebuilds and reloads the page.
func (s *Server) handleChanges(ctx context.Context, changes []Change) {
	s.assets.Invalidate()

	cssOnly := true
	for _, c := range changes {
		if c.Type != ChangeCSS {
			cssOnly = false
			break
		}
	}
	if cssOnly && len(changes) > 0 {
		s.log.Info("stylesheet changed", "file", changes[0].Path)
		s.reload.NotifyCSS(changes[0].Path)
		return
	}

	start := time.Now()
	if err := s.options.Rebuild(ctx); err != nil {
		s.log.Error("rebuild failed", "error", err)
		s.reload.NotifyError(err.Error())
		return
	}
	s.log.Info("rebuilt", "changes", len(changes), "duration", time.Since(start).Round(time.Millisecond))

	s.reload.NotifyReload()
	if s.options.OnReload != nil {
		s.options.OnReload(s.reload.ClientCount())
	}
}
