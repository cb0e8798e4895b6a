package hierarchy

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/hubro-apparatus/hubro/internal/errors"
	"github.com/hubro-apparatus/hubro/internal/logging"
)

// Packaged reports which packaged default resources exist, by key.
type Packaged interface {
	Has(key string) bool
}

// Options configures a Resolver.
type Options struct {
	// PagesDir is the absolute root of the route tree.
	PagesDir string

	// SystemDir holds the application's system overrides.
	SystemDir string

	// SrcDir is what locator keys are relative to. Defaults to the parent
	// of PagesDir.
	SrcDir string

	// Base prefixes every route, e.g. "/" or "/app/".
	Base string

	// Packaged provides the fallback system resources.
	Packaged Packaged

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Resolver scans the pages directory into snapshots and resolves the
// system resources.
type Resolver struct {
	opts    Options
	log     *slog.Logger
	current atomic.Pointer[Snapshot]

	// rebuildMu serializes rebuilds.
	rebuildMu sync.Mutex

	systemMu sync.Mutex
	system   map[SystemResource]Locator
}

// NewResolver creates a resolver. It does not scan; call Rebuild.
func NewResolver(opts Options) *Resolver {
	if opts.SrcDir == "" {
		opts.SrcDir = filepath.Dir(opts.PagesDir)
	}
	if opts.Base == "" {
		opts.Base = "/"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Resolver{
		opts:   opts,
		log:    log,
		system: make(map[SystemResource]Locator),
	}
	r.current.Store(newSnapshot(0, nil))
	return r
}

// Snapshot returns the current snapshot. It is safe for concurrent use.
func (r *Resolver) Snapshot() *Snapshot {
	return r.current.Load()
}

// Rebuild scans the pages directory and swaps in a new snapshot. A missing
// pages directory yields an empty snapshot. On error the previous snapshot
// stays current. A rebuild that starts while another is running waits for
// it to finish.
func (r *Resolver) Rebuild(ctx context.Context) (*Snapshot, error) {
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	entries, err := r.scan(ctx)
	if err != nil {
		return r.current.Load(), err
	}

	snap := newSnapshot(r.current.Load().version+1, entries)
	r.current.Store(snap)
	r.log.Debug("hierarchy rebuilt", "version", snap.version, "entries", snap.Len())
	return snap, nil
}

func (r *Resolver) scan(ctx context.Context) ([]*Entry, error) {
	root := r.opts.PagesDir
	info, err := os.Stat(root)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			r.log.Warn("pages directory does not exist", "path", root)
			return nil, nil
		}
		return nil, errors.New("E120").WithPath(root).Wrap(err)
	}
	if !info.IsDir() {
		return nil, errors.New("E120").WithPath(root).WithDetail("not a directory")
	}

	var (
		order    []*entryBuilder
		builders = make(map[string]*entryBuilder)
	)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		role, ok := roleOf(d.Name())
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		route := RoutePath(r.opts.Base, filepath.ToSlash(rel))

		b, ok := builders[route]
		if !ok {
			b = newEntryBuilder(route)
			builders[route] = b
			order = append(order, b)
		}

		loc, err := r.locate(path)
		if err != nil {
			return err
		}
		b.set(role, loc)
		logging.Trace(ctx, r.log, "hierarchy file", "role", role, "hash", b.hash, "path", path)
		return nil
	})
	if err != nil {
		return nil, errors.New("E120").WithPath(root).Wrap(err)
	}

	entries := make([]*Entry, 0, len(order))
	for _, b := range order {
		entries = append(entries, b.finalize())
	}
	return entries, nil
}

// locate builds the locator of a file inside the source directory.
func (r *Resolver) locate(path string) (Locator, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Locator{}, err
	}
	key, err := filepath.Rel(r.opts.SrcDir, abs)
	if err != nil {
		return Locator{}, err
	}
	return Locator{Path: abs, Key: filepath.ToSlash(key)}, nil
}
