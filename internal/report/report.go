// Package report sends server errors to Sentry.
//
// A Sentry reporter is handed to the router, which reports every error
// that ends in a 5xx response. It is also a server adapter so pending
// events are flushed on shutdown.
package report

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/hubro-apparatus/hubro/internal/config"
	"github.com/hubro-apparatus/hubro/pkg/middleware"
	"github.com/hubro-apparatus/hubro/pkg/server"
)

// DefaultFlushTimeout bounds Close when the context has no deadline.
const DefaultFlushTimeout = 2 * time.Second

// Sentry reports errors to one Sentry project.
type Sentry struct {
	hub *sentry.Hub
}

// New returns a reporter for the given client options.
func New(opts sentry.ClientOptions) (*Sentry, error) {
	if opts.IgnoreErrors == nil {
		opts.IgnoreErrors = []string{"write: broken pipe", "context canceled"}
	}
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// FromConfig returns a reporter for cfg, or nil if no DSN is configured.
func FromConfig(cfg config.SentryConfig, release string) (*Sentry, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	return New(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     release,
	})
}

// Report sends err with the request it failed.
func (s *Sentry) Report(ctx context.Context, r *http.Request, err error) {
	hub := s.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		if r != nil {
			scope.SetRequest(r)
		}
		if id := middleware.RequestIDFrom(ctx); id != "" {
			scope.SetTag("request_id", id)
		}
		scope.SetTag("status", strconv.Itoa(server.StatusOf(err)))
		scope.SetLevel(sentry.LevelError)
		hub.CaptureException(err)
	})
}

// Name implements server.Adapter.
func (s *Sentry) Name() string { return "sentry" }

// Close flushes pending events until the context deadline.
func (s *Sentry) Close(ctx context.Context) error {
	timeout := DefaultFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !s.hub.Flush(timeout) {
		return context.DeadlineExceeded
	}
	return nil
}
