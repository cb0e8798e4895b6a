package build

import (
	"context"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/hubro-apparatus/hubro/internal/errors"
)

// BundleRequest describes one bundling pass.
type BundleRequest struct {
	// Entries are absolute paths of the files to bundle.
	Entries []string

	// OutDir is the directory output paths are relative to.
	OutDir string

	// Name returns the output path of an entry, relative to OutDir and
	// without extension, e.g. "pages/4f6c2a9e1b0d3c57".
	Name func(path string) (string, error)

	Minify     bool
	SourceMaps bool

	// Write makes the bundler write its output below OutDir. Without it
	// the output is only returned.
	Write bool
}

// OutputFile is one file produced by a Bundler.
type OutputFile struct {
	// Path is absolute and below the OutDir of the request.
	Path     string
	Contents []byte
}

// Bundler turns entry files into browser bundles.
type Bundler interface {
	Bundle(ctx context.Context, req BundleRequest) ([]OutputFile, error)
}

// Esbuild bundles with the esbuild Go API into ES modules for the browser.
type Esbuild struct {
	// WorkingDir resolves relative imports and node_modules. It must be
	// absolute.
	WorkingDir string
}

// NewEsbuild returns an esbuild Bundler working in dir.
func NewEsbuild(dir string) *Esbuild {
	return &Esbuild{WorkingDir: dir}
}

func (e *Esbuild) Bundle(ctx context.Context, req BundleRequest) ([]OutputFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(req.Entries) == 0 {
		return nil, nil
	}

	points := make([]api.EntryPoint, 0, len(req.Entries))
	for _, p := range req.Entries {
		name := strings.TrimSuffix(p, ".js")
		if req.Name != nil {
			var err error
			if name, err = req.Name(p); err != nil {
				return nil, err
			}
		}
		points = append(points, api.EntryPoint{InputPath: p, OutputPath: name})
	}

	sourcemap := api.SourceMapNone
	if req.SourceMaps {
		sourcemap = api.SourceMapLinked
	}

	result := api.Build(api.BuildOptions{
		EntryPointsAdvanced: points,
		Outdir:              req.OutDir,
		AbsWorkingDir:       e.WorkingDir,
		Bundle:              true,
		Format:              api.FormatESModule,
		Platform:            api.PlatformBrowser,
		Target:              api.ES2020,
		MinifyWhitespace:    req.Minify,
		MinifyIdentifiers:   req.Minify,
		MinifySyntax:        req.Minify,
		Sourcemap:           sourcemap,
		Write:               req.Write,
		LogLevel:            api.LogLevelSilent,
	})

	if len(result.Errors) > 0 {
		return nil, errors.New("E140").WithDetail(formatMessages(result.Errors))
	}

	out := make([]OutputFile, 0, len(result.OutputFiles))
	for _, f := range result.OutputFiles {
		out = append(out, OutputFile{Path: f.Path, Contents: f.Contents})
	}
	return out, nil
}

func formatMessages(msgs []api.Message) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		line := m.Text
		if m.Location != nil {
			line = m.Location.File + ": " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "; ")
}
