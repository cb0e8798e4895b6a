package build

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hubro-apparatus/hubro/internal/config"
	"github.com/hubro-apparatus/hubro/internal/errors"
	"github.com/hubro-apparatus/hubro/pkg/assets"
	"github.com/hubro-apparatus/hubro/pkg/defaults"
	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
)

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Bundles are the absolute paths of the written entry bundles.
	Bundles []string

	// Public is the number of files copied from the public directory.
	Public int

	// Manifest maps logical names to paths below the JS directory.
	Manifest *assets.Manifest
}

// Options configures the builder.
type Options struct {
	// Bundler defaults to esbuild working in the source directory.
	Bundler Bundler

	// Minify and SourceMaps are or'ed with the build configuration.
	Minify     bool
	SourceMaps bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder handles production builds.
type Builder struct {
	config  *config.Config
	options Options
	log     *slog.Logger
}

// New creates a new builder.
func New(cfg *config.Config, options Options) *Builder {
	if !options.Minify && cfg.Build.Minify {
		options.Minify = true
	}
	if !options.SourceMaps && cfg.Build.SourceMaps {
		options.SourceMaps = true
	}
	if options.Bundler == nil {
		options.Bundler = NewEsbuild(cfg.SrcDir())
	}
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Builder{
		config:  cfg,
		options: options,
		log:     log,
	}
}

// Build performs a production build of snap into the build directory.
// The directory is removed first.
func (b *Builder) Build(ctx context.Context, snap *hierarchy.Snapshot) (*Result, error) {
	start := time.Now()
	result := &Result{Manifest: assets.NewManifest()}

	buildDir := b.config.BuildDir()
	jsDir := b.config.JSDir()

	b.progress("Cleaning build directory...")
	if err := os.RemoveAll(buildDir); err != nil {
		return nil, errors.New("E142").WithPath(buildDir).Wrap(err)
	}
	if err := os.MkdirAll(jsDir, 0755); err != nil {
		return nil, errors.New("E142").WithPath(jsDir).Wrap(err)
	}

	b.progress("Bundling entries...")
	files, err := b.BundleEntries(ctx, snap)
	if err != nil {
		return nil, err
	}
	files, logical := fingerprint(files)
	for _, f := range files {
		if err := writeOutput(f.Path, f.Contents); err != nil {
			return nil, err
		}
		if strings.HasSuffix(f.Path, ".map") {
			continue
		}
		name, err := filepath.Rel(jsDir, f.Path)
		if err != nil {
			return nil, errors.New("E142").WithPath(f.Path).Wrap(err)
		}
		key, err := filepath.Rel(jsDir, logical[f.Path])
		if err != nil {
			return nil, errors.New("E142").WithPath(f.Path).Wrap(err)
		}
		result.Manifest.Set(filepath.ToSlash(key), filepath.ToSlash(name))
		result.Bundles = append(result.Bundles, f.Path)
	}

	b.progress("Writing system files...")
	if err := b.buildSystem(result.Manifest); err != nil {
		return nil, err
	}

	b.progress("Copying public files...")
	n, err := b.copyPublic(ctx, buildDir)
	if err != nil {
		return nil, err
	}
	result.Public = n

	b.progress("Writing manifest...")
	manifestPath := filepath.Join(buildDir, assets.FileName)
	if err := result.Manifest.Save(manifestPath); err != nil {
		return nil, errors.New("E142").WithPath(manifestPath).Wrap(err)
	}

	result.Duration = time.Since(start)
	b.log.Info("build finished",
		"bundles", len(result.Bundles),
		"public", result.Public,
		"duration", result.Duration,
	)
	return result, nil
}

// BundleEntries bundles every entry of snap that has a client file.
// Nothing is written; output paths are below the JS directory.
func (b *Builder) BundleEntries(ctx context.Context, snap *hierarchy.Snapshot) ([]OutputFile, error) {
	entries := snap.ToBundle()
	if len(entries) == 0 {
		return nil, nil
	}
	files, err := b.options.Bundler.Bundle(ctx, BundleRequest{
		Entries:    entries,
		OutDir:     b.config.JSDir(),
		Name:       EntryName(snap),
		Minify:     b.options.Minify,
		SourceMaps: b.options.SourceMaps,
	})
	if err != nil {
		return nil, errors.FromError(err, "E140")
	}
	return files, nil
}

// EntryName names the bundle of a client file after the hash of its
// entry. A path with no entry in snap is E141.
func EntryName(snap *hierarchy.Snapshot) func(path string) (string, error) {
	return func(path string) (string, error) {
		e, ok := snap.EntryByPath(path)
		if !ok {
			return "", errors.New("E141").WithPath(path)
		}
		return strings.TrimSuffix(assets.PageName(e.Hash()), ".js"), nil
	}
}

// buildSystem writes the packaged hydration runtime.
func (b *Builder) buildSystem(m *assets.Manifest) error {
	name := assets.Fingerprint(defaults.HydrationPath, assets.ContentHash(defaults.Hydration))
	dst := filepath.Join(b.config.JSDir(), filepath.FromSlash(name))
	if err := writeOutput(dst, defaults.Hydration); err != nil {
		return err
	}
	m.Set(defaults.HydrationPath, name)
	return nil
}

// copyPublic copies the public directory into dst. A missing public
// directory copies nothing. Files that would land on the manifest or
// inside the JS directory are E143.
func (b *Builder) copyPublic(ctx context.Context, dst string) (int, error) {
	srcDir := b.config.PublicDir()
	info, err := os.Stat(srcDir)
	if os.IsNotExist(err) || (err == nil && !info.IsDir()) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.New("E142").WithPath(srcDir).Wrap(err)
	}

	manifest := filepath.Join(dst, assets.FileName)
	jsDir := b.config.JSDir()

	count := 0
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if target == manifest || within(jsDir, target) {
			return errors.New("E143").WithPath(path).
				WithDetailf("it would overwrite %s", target)
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, errors.FromError(err, "E142")
	}
	return count, nil
}

// progress reports build progress.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.New("E142").WithPath(path).Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E142").WithPath(path).Wrap(err)
	}
	return nil
}

// copyFile copies a file, creating the parent directory of dst.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

// within reports whether path is dir or below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Clean removes the build output directory.
func (b *Builder) Clean() error {
	return os.RemoveAll(b.config.BuildDir())
}
