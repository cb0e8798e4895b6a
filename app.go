package hubro

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hubro-apparatus/hubro/internal/build"
	"github.com/hubro-apparatus/hubro/internal/config"
	"github.com/hubro-apparatus/hubro/internal/dev"
	"github.com/hubro-apparatus/hubro/internal/errors"
	"github.com/hubro-apparatus/hubro/internal/logging"
	"github.com/hubro-apparatus/hubro/internal/report"
	"github.com/hubro-apparatus/hubro/pkg/assets"
	"github.com/hubro-apparatus/hubro/pkg/defaults"
	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
	"github.com/hubro-apparatus/hubro/pkg/middleware"
	"github.com/hubro-apparatus/hubro/pkg/module"
	"github.com/hubro-apparatus/hubro/pkg/router"
	"github.com/hubro-apparatus/hubro/pkg/server"
)

// defaultShutdownTimeout applies when server.shutdown_timeout is not set.
const defaultShutdownTimeout = 10 * time.Second

// =============================================================================
// App
// =============================================================================

// App is a Hubro application. It owns the resolver and serves the router
// built from the latest snapshot. Rebuilding swaps the router atomically;
// requests in flight finish on the router they started on.
type App struct {
	cfg *config.Config
	log *slog.Logger

	modules    *module.Registry
	appSource  module.Source
	source     module.Source
	adapters   []server.Adapter
	middleware []middleware.Adapter
	reporter   router.Reporter
	registerer prometheus.Registerer
	bundler    build.Bundler

	srv      *server.Server
	resolver *hierarchy.Resolver
	system   hierarchy.System
	metrics  *middleware.Metrics
	assets   assets.Resolver
	manifest *assets.Manifest
	dev      *dev.Server

	rebuildMu sync.Mutex
	router    atomic.Pointer[router.Router]
}

// New creates an application for cfg and builds its first router. It
// fails if the config is invalid, a system resource cannot be resolved or
// the pages directory cannot be scanned. Routes that fail to register are
// logged and skipped.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, stderrors.New("hubro: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		modules: module.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logging.New(logging.Options{
			Name:        cfg.LogName(),
			Level:       cfg.Logging.Level,
			Development: cfg.Development(),
		})
	}
	if a.appSource == nil {
		a.appSource = a.modules
	}

	packaged := defaults.Registry()
	a.source = module.Overlay(a.appSource, packaged)
	a.resolver = hierarchy.NewResolver(hierarchy.Options{
		PagesDir:  cfg.PagesDir(),
		SystemDir: cfg.SystemDir(),
		SrcDir:    cfg.SrcDir(),
		Base:      cfg.URLPathBase(),
		Packaged:  packaged,
		Logger:    a.log,
	})

	system, err := a.resolver.ResolveSystem()
	if err != nil {
		return nil, err
	}
	a.system = system

	if a.reporter == nil {
		sentry, err := report.FromConfig(cfg.Sentry, Version)
		if err != nil {
			return nil, err
		}
		if sentry != nil {
			a.reporter = sentry
			a.adapters = append(a.adapters, sentry)
		}
	}

	a.srv = server.New(cfg, a.log)
	for _, adapter := range a.adapters {
		if err := a.srv.SetAdapter(adapter); err != nil {
			return nil, err
		}
	}

	if cfg.Metrics.Enabled {
		metricsOpts := []middleware.MetricsOption{middleware.WithNamespace("hubro")}
		if a.registerer != nil {
			metricsOpts = append(metricsOpts, middleware.WithRegistry(a.registerer))
		}
		a.metrics = middleware.NewMetrics(metricsOpts...)
	}

	if cfg.Development() {
		a.dev = dev.NewServer(dev.Options{
			Config:   cfg,
			Bundler:  a.bundler,
			Snapshot: a.resolver.Snapshot,
			Rebuild:  a.Rebuild,
			Logger:   a.log,
			OnReload: func(clients int) {
				a.log.Debug("browsers reloaded", "clients", clients)
			},
		})
	}
	a.assets = a.loadAssets()

	if err := a.Rebuild(context.Background()); err != nil {
		return nil, err
	}
	return a, nil
}

// =============================================================================
// Rebuild
// =============================================================================

// Rebuild rescans the pages directory and swaps in a router for the new
// snapshot. Concurrent calls are serialized. On failure the previous
// router keeps serving.
func (a *App) Rebuild(ctx context.Context) error {
	a.rebuildMu.Lock()
	defer a.rebuildMu.Unlock()

	start := time.Now()
	snap, err := a.resolver.Rebuild(ctx)
	if a.metrics != nil {
		a.metrics.RecordRebuild(err)
	}
	if err != nil {
		return err
	}

	rt, err := router.New(ctx, router.Options{
		Config:     a.cfg,
		Snapshot:   snap,
		System:     a.system,
		Source:     a.source,
		Server:     a.srv,
		Middleware: a.chain(),
		Assets:     a.assets,
		Mounts:     a.mounts(),
		Reporter:   a.reporter,
		Metrics:    a.metrics,
		Logger:     a.log,
	})
	if err != nil {
		return err
	}
	if a.metrics != nil {
		a.metrics.RecordHierarchy(snap.Counts())
	}
	a.checkManifest(snap)

	a.router.Store(rt)
	a.log.Info("routes ready",
		"version", snap.Version(),
		"entries", snap.Len(),
		"routes", len(rt.Routes()),
		"failures", len(rt.Failures()),
		"duration", time.Since(start))
	return nil
}

// chain returns the middleware around every route. The first adapter is
// the outermost.
func (a *App) chain() []middleware.Adapter {
	cfg := a.cfg
	chain := []middleware.Adapter{middleware.RequestID()}
	if cfg.Tracing {
		chain = append(chain, middleware.OpenTelemetry(middleware.WithTracerName("hubro")))
	}
	if a.metrics != nil {
		chain = append(chain, a.metrics.Middleware())
	}
	if cfg.Logging.Requests {
		chain = append(chain, middleware.LogRequests(a.log))
	}
	if cfg.CORS.Enabled {
		chain = append(chain, middleware.CORS(cfg.CORS.Origins))
	}
	if cfg.Compression {
		chain = append(chain, middleware.Compress())
	}
	if a.dev != nil {
		chain = append(chain, a.dev.Adapter())
	}
	return append(chain, a.middleware...)
}

// mounts returns the handlers served next to the entry routes.
func (a *App) mounts() []router.Mount {
	cfg := a.cfg
	var mounts []router.Mount

	public := cfg.URLPathPublic()
	if public == cfg.URLPathBase() {
		a.log.Warn("paths.public equals paths.base, static files are not served", "path", public)
	} else {
		dir := cfg.BuildDir()
		if cfg.Development() {
			dir = cfg.PublicDir()
		}
		mounts = append(mounts, router.Mount{
			Pattern: public + "*",
			Handler: newStaticHandler(dir, public, cfg.Development()),
		})
	}

	if a.metrics != nil {
		mounts = append(mounts, router.Mount{Pattern: cfg.URLPathMetrics(), Handler: a.metrics.Handler()})
	}
	if a.dev != nil {
		mounts = append(mounts, a.dev.Mounts()...)
	}
	return mounts
}

// loadAssets returns the bundle URL resolver. Production uses the build
// manifest when there is one.
func (a *App) loadAssets() assets.Resolver {
	prefix := a.cfg.URLPathToJs("")
	if a.cfg.Development() {
		return assets.NewPassthroughResolver(prefix)
	}

	file := filepath.Join(a.cfg.BuildDir(), assets.FileName)
	m, err := assets.Load(file)
	switch {
	case os.IsNotExist(err):
		a.log.Warn("build manifest not found, run `hubro build`", "path", file)
		return assets.NewPassthroughResolver(prefix)
	case err != nil:
		a.log.Warn("build manifest could not be read", "path", file, "error", err)
		return assets.NewPassthroughResolver(prefix)
	}
	a.manifest = m
	return assets.NewResolver(m, prefix)
}

// checkManifest warns about client bundles the last build did not produce.
func (a *App) checkManifest(snap *hierarchy.Snapshot) {
	if a.manifest == nil {
		return
	}
	for _, e := range snap.Entries() {
		if e.Bundle() && !a.manifest.Has(assets.PageName(e.Hash())) {
			a.log.Warn("client bundle missing from build, run `hubro build`", "route", e.Route(), "hash", e.Hash())
		}
	}
}

// =============================================================================
// Accessors
// =============================================================================

// Config returns the application config.
func (a *App) Config() *config.Config { return a.cfg }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.log }

// Server returns the server object handed to every handler.
func (a *App) Server() *server.Server { return a.srv }

// Router returns the router currently serving requests.
func (a *App) Router() *router.Router { return a.router.Load() }

// Snapshot returns the snapshot the current router was built from.
func (a *App) Snapshot() *hierarchy.Snapshot {
	if rt := a.router.Load(); rt != nil {
		return rt.Snapshot()
	}
	return nil
}

// Dev returns the development server, or nil in production.
func (a *App) Dev() *dev.Server { return a.dev }

// =============================================================================
// Serving
// =============================================================================

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt := a.router.Load()
	if rt == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	rt.ServeHTTP(w, r)
}

// Run listens on the configured address and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	addr := a.cfg.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.New("E161").WithDetailf("could not listen on %s", addr).Wrap(err)
	}
	return a.Serve(ctx, ln)
}

// Serve readies the adapters and serves on ln until ctx is done. In
// development it watches the source tree next to the listener. Shutdown
// waits for requests in flight up to server.shutdown_timeout, then closes
// the adapters in reverse order.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.srv.Ready(ctx); err != nil {
		ln.Close()
		return err
	}

	hs := &http.Server{
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(a.log.Handler(), slog.LevelWarn),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		if err := hs.Serve(ln); !stderrors.Is(err, http.ErrServerClosed) {
			errc <- errors.New("E161").Wrap(err)
		}
	}()

	var watching sync.WaitGroup
	if a.dev != nil {
		watching.Add(1)
		go func() {
			defer watching.Done()
			if err := a.dev.Run(ctx); err != nil {
				a.log.Error("watcher stopped", "error", err)
			}
		}()
	}

	a.log.Info("server started",
		"address", ln.Addr().String(),
		"base", a.cfg.URLPathBase(),
		"development", a.cfg.Development())

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}
	cancel()

	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()

	if err := hs.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("graceful shutdown timed out", "error", err)
		hs.Close()
	}
	watching.Wait()

	if err := a.srv.Close(shutdownCtx); err != nil {
		runErr = stderrors.Join(runErr, err)
	}
	a.log.Info("server stopped")
	return runErr
}
