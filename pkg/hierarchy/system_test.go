package hierarchy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hubro-apparatus/hubro/internal/errors"
	"github.com/hubro-apparatus/hubro/internal/logging"
)

func TestResolveSystemFallback(t *testing.T) {
	r, _ := newTestResolver(t, "/")

	sys, err := r.ResolveSystem()
	if err != nil {
		t.Fatalf("ResolveSystem: %v", err)
	}
	for name, loc := range map[string]Locator{
		"middleware": sys.Middleware,
		"document":   sys.Document,
		"page":       sys.Page,
		"not-found":  sys.NotFound,
		"error":      sys.Error,
	} {
		if !loc.Packaged {
			t.Errorf("%s: want packaged default, got %+v", name, loc)
		}
		if loc.Key != "system/"+name+".js" {
			t.Errorf("%s: Key = %q", name, loc.Key)
		}
		if loc.Path != PackagedScheme+loc.Key {
			t.Errorf("%s: Path = %q", name, loc.Path)
		}
	}
}

func TestResolveSystemOverride(t *testing.T) {
	r, src := newTestResolver(t, "/", "system/document.js", "system/error.js")

	doc, err := r.ResolveDocument()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Packaged || doc.Path != filepath.Join(src, "system", "document.js") || doc.Key != "system/document.js" {
		t.Errorf("ResolveDocument() = %+v", doc)
	}

	errPage, err := r.ResolveError()
	if err != nil {
		t.Fatal(err)
	}
	if errPage.Packaged {
		t.Errorf("ResolveError() = %+v, want application file", errPage)
	}

	nf, err := r.ResolveNotFound()
	if err != nil {
		t.Fatal(err)
	}
	if !nf.Packaged {
		t.Errorf("ResolveNotFound() = %+v, want packaged", nf)
	}
}

func TestResolveSystemDirectoryIsNotUsed(t *testing.T) {
	r, src := newTestResolver(t, "/")
	if err := os.MkdirAll(filepath.Join(src, "system", "page.js"), 0755); err != nil {
		t.Fatal(err)
	}

	loc, err := r.ResolvePage()
	if err != nil {
		t.Fatal(err)
	}
	if !loc.Packaged {
		t.Errorf("a directory named page.js should not override, got %+v", loc)
	}
}

func TestResolveSystemMemoized(t *testing.T) {
	r, src := newTestResolver(t, "/")

	first, err := r.ResolveMiddleware()
	if err != nil {
		t.Fatal(err)
	}
	writeTree(t, src, "system/middleware.js")

	second, err := r.ResolveMiddleware()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("resolution not memoized: %+v then %+v", first, second)
	}
}

func TestResolveSystemMissingFallback(t *testing.T) {
	src := t.TempDir()
	r := NewResolver(Options{
		PagesDir:  filepath.Join(src, "pages"),
		SystemDir: filepath.Join(src, "system"),
		Packaged:  packagedKeys{"system/document.js": true},
		Logger:    logging.Discard(),
	})

	if _, err := r.ResolveDocument(); err != nil {
		t.Errorf("ResolveDocument: %v", err)
	}
	_, err := r.ResolveSystem()
	if !errors.HasCode(err, "E101") {
		t.Fatalf("ResolveSystem error = %v, want E101", err)
	}
}
