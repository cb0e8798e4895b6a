package module

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
)

// ErrNotFound is returned by a Source that has no unit for a locator.
var ErrNotFound = stderrors.New("module not found")

// Source opens the unit behind a locator.
type Source interface {
	Open(ctx context.Context, loc hierarchy.Locator) (Unit, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, loc hierarchy.Locator) (Unit, error)

func (f SourceFunc) Open(ctx context.Context, loc hierarchy.Locator) (Unit, error) {
	return f(ctx, loc)
}

// Registry is a Source backed by units registered by key. It is safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	units map[string]Unit
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]Unit)}
}

// Register stores u under key, replacing any previous unit. Keys are slash
// paths relative to the source directory such as "pages/blog/page.js".
func (r *Registry) Register(key string, u Unit) *Registry {
	r.mu.Lock()
	r.units[normalizeKey(key)] = u
	r.mu.Unlock()
	return r
}

// Has reports whether a unit is registered under key.
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.units[normalizeKey(key)]
	return ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.units))
	for k := range r.units {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Open implements Source.
func (r *Registry) Open(ctx context.Context, loc hierarchy.Locator) (Unit, error) {
	if err := ctx.Err(); err != nil {
		return Unit{}, err
	}
	key := normalizeKey(loc.Key)
	r.mu.RLock()
	u, ok := r.units[key]
	r.mu.RUnlock()
	if !ok {
		return Unit{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return u, nil
}

// Merge copies every unit of other into r.
func (r *Registry) Merge(other *Registry) *Registry {
	other.mu.RLock()
	defer other.mu.RUnlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, u := range other.units {
		r.units[k] = u
	}
	return r
}

func normalizeKey(key string) string {
	key = strings.ReplaceAll(key, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+key), "/")
}

// Overlay returns a Source that opens packaged locators from packaged and
// everything else from app.
func Overlay(app, packaged Source) Source {
	return SourceFunc(func(ctx context.Context, loc hierarchy.Locator) (Unit, error) {
		if loc.Packaged {
			return packaged.Open(ctx, loc)
		}
		return app.Open(ctx, loc)
	})
}
