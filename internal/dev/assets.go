package dev

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/hubro-apparatus/hubro/internal/build"
	"github.com/hubro-apparatus/hubro/pkg/defaults"
	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
)

// ErrNoAsset is returned for names that have no bundle.
var ErrNoAsset = stderrors.New("dev: no such asset")

// ContentTypeJS is the content type of served bundles.
const ContentTypeJS = "text/javascript; charset=utf-8"

// Assets bundles client files on request and keeps the result in memory
// until the snapshot changes or Invalidate is called.
type Assets struct {
	bundler  build.Bundler
	snapshot func() *hierarchy.Snapshot
	outDir   string
	prefix   string
	log      *slog.Logger

	mu      sync.Mutex
	version uint64
	cache   map[string][]byte
}

// NewAssets serves bundles below the URL path prefix. outDir is where the
// bundler would place output and only names the files.
func NewAssets(bundler build.Bundler, snapshot func() *hierarchy.Snapshot, outDir, prefix string, log *slog.Logger) *Assets {
	if log == nil {
		log = slog.Default()
	}
	return &Assets{
		bundler:  bundler,
		snapshot: snapshot,
		outDir:   outDir,
		prefix:   strings.TrimSuffix(prefix, "/"),
		log:      log,
		cache:    make(map[string][]byte),
	}
}

// Invalidate drops every cached bundle.
func (a *Assets) Invalidate() {
	a.mu.Lock()
	a.cache = make(map[string][]byte)
	a.mu.Unlock()
}

// Asset returns the contents of the logical name, such as
// "pages/<hash>.js" or "lit/hydration.js".
func (a *Assets) Asset(ctx context.Context, name string) ([]byte, error) {
	if name == defaults.HydrationPath {
		return defaults.Hydration, nil
	}

	hash, ok := strings.CutPrefix(name, "pages/")
	if !ok {
		return nil, ErrNoAsset
	}
	hash, ok = strings.CutSuffix(hash, ".js")
	if !ok {
		return nil, ErrNoAsset
	}

	snap := a.snapshot()
	if data, ok := a.cached(snap.Version(), name); ok {
		return data, nil
	}

	entry, ok := snap.EntryByHash(hash)
	if !ok {
		return nil, ErrNoAsset
	}
	client, ok := entry.Client()
	if !ok {
		return nil, ErrNoAsset
	}

	files, err := a.bundler.Bundle(ctx, build.BundleRequest{
		Entries: []string{client.Path},
		OutDir:  a.outDir,
		Name:    build.EntryName(snap),
	})
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if strings.HasSuffix(f.Path, ".js") {
			a.store(snap.Version(), name, f.Contents)
			return f.Contents, nil
		}
	}
	return nil, ErrNoAsset
}

func (a *Assets) cached(version uint64, name string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if version != a.version {
		a.version = version
		a.cache = make(map[string][]byte)
		return nil, false
	}
	data, ok := a.cache[name]
	return data, ok
}

func (a *Assets) store(version uint64, name string, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if version == a.version {
		a.cache[name] = data
	}
}

func (a *Assets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, a.prefix), "/")

	data, err := a.Asset(r.Context(), name)
	switch {
	case stderrors.Is(err, ErrNoAsset):
		http.NotFound(w, r)
		return
	case err != nil:
		a.log.Error("bundling failed", "asset", name, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", ContentTypeJS)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}
