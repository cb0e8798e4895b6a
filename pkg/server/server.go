package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"sync"

	"github.com/hubro-apparatus/hubro/internal/config"
	"github.com/hubro-apparatus/hubro/internal/errors"
)

// Adapter is an integration with a backend service, such as a database
// connection, shared by all handlers. Name must be unique per Server.
type Adapter interface {
	Name() string
}

// ReadyAdapter is implemented by adapters that must connect before the
// server accepts requests.
type ReadyAdapter interface {
	Adapter
	Ready(ctx context.Context) error
}

// CloseAdapter is implemented by adapters that hold resources.
type CloseAdapter interface {
	Adapter
	Close(ctx context.Context) error
}

// Server holds process wide state handed to middleware and handlers.
// It is safe for concurrent use.
type Server struct {
	cfg *config.Config
	log *slog.Logger

	mu       sync.RWMutex
	adapters []Adapter
	byName   map[string]Adapter
}

// New creates a Server. A nil logger uses slog.Default().
func New(cfg *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		log:    log,
		byName: make(map[string]Adapter),
	}
}

// Config returns the application configuration.
func (s *Server) Config() *config.Config { return s.cfg }

// Log returns the application logger.
func (s *Server) Log() *slog.Logger { return s.log }

// Env returns the value of an environment variable.
func (s *Server) Env(key string) string { return os.Getenv(key) }

// SetAdapter registers an adapter. Registering a second adapter with the
// same name fails.
func (s *Server) SetAdapter(a Adapter) error {
	name := a.Name()
	if name == "" {
		return errors.New("E160").WithDetail("adapter has no name")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byName[name]; ok {
		return errors.New("E160").WithDetailf("adapter %q is already registered", name)
	}
	s.byName[name] = a
	s.adapters = append(s.adapters, a)
	return nil
}

// Adapter returns the adapter registered under name.
func (s *Server) Adapter(name string) (Adapter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byName[name]
	return a, ok
}

// Adapters returns the adapters in registration order.
func (s *Server) Adapters() []Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Adapter, len(s.adapters))
	copy(out, s.adapters)
	return out
}

// Ready runs Ready on every adapter in registration order and stops at the
// first failure.
func (s *Server) Ready(ctx context.Context) error {
	for _, a := range s.Adapters() {
		ra, ok := a.(ReadyAdapter)
		if !ok {
			continue
		}
		if err := ra.Ready(ctx); err != nil {
			return errors.New("E160").WithDetailf("adapter %q is not ready", a.Name()).Wrap(err)
		}
		s.log.Debug("adapter ready", "adapter", a.Name())
	}
	return nil
}

// Close runs Close on every adapter in reverse registration order. All
// adapters are closed even if some fail.
func (s *Server) Close(ctx context.Context) error {
	adapters := s.Adapters()
	var errs []error
	for i := len(adapters) - 1; i >= 0; i-- {
		ca, ok := adapters[i].(CloseAdapter)
		if !ok {
			continue
		}
		if err := ca.Close(ctx); err != nil {
			errs = append(errs, errors.New("E160").WithDetailf("adapter %q failed to close", ca.Name()).Wrap(err))
		}
	}
	return stderrors.Join(errs...)
}
