package hubro

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hubro-apparatus/hubro/internal/build"
	"github.com/hubro-apparatus/hubro/pkg/middleware"
	"github.com/hubro-apparatus/hubro/pkg/module"
	"github.com/hubro-apparatus/hubro/pkg/router"
	"github.com/hubro-apparatus/hubro/pkg/server"
)

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger. By default one is built from the logging
// section of the config.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) {
		a.log = log
	}
}

// WithModules adds application modules. Later registries win on
// duplicate keys.
func WithModules(regs ...*module.Registry) Option {
	return func(a *App) {
		for _, reg := range regs {
			a.modules.Merge(reg)
		}
	}
}

// WithSource replaces the application module source. Packaged defaults
// are still served from pkg/defaults.
func WithSource(src module.Source) Option {
	return func(a *App) {
		a.appSource = src
	}
}

// WithAdapter registers a server adapter. Adapters with a Ready method are
// readied before the listener starts and closed in reverse order after it
// stops.
func WithAdapter(adapters ...server.Adapter) Option {
	return func(a *App) {
		a.adapters = append(a.adapters, adapters...)
	}
}

// WithMiddleware adds net/http middleware around every route, inside the
// built in request id, tracing and metrics middleware.
func WithMiddleware(adapters ...middleware.Adapter) Option {
	return func(a *App) {
		a.middleware = append(a.middleware, adapters...)
	}
}

// WithReporter sets where server errors are reported. It overrides the
// Sentry reporter built from the config.
func WithReporter(r router.Reporter) Option {
	return func(a *App) {
		a.reporter = r
	}
}

// WithRegisterer sets the Prometheus registry metrics are registered on.
// Defaults to prometheus.DefaultRegisterer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *App) {
		a.registerer = reg
	}
}

// WithBundler sets the bundler used for development assets.
func WithBundler(b build.Bundler) Option {
	return func(a *App) {
		a.bundler = b
	}
}
