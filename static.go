package hubro

import (
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/hubro-apparatus/hubro/internal/publish"
	"github.com/hubro-apparatus/hubro/pkg/assets"
)

// =============================================================================
// Static File Serving
// =============================================================================

// staticHandler serves a directory under a URL prefix. Production serves
// the build directory; development serves the public directory and never
// caches.
type staticHandler struct {
	root   http.Dir
	prefix string
	dev    bool
}

func newStaticHandler(dir, prefix string, dev bool) *staticHandler {
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &staticHandler{root: http.Dir(dir), prefix: prefix, dev: dev}
}

// relPath returns the sanitized path of a request below the prefix. It
// rejects traversal and absolute path tricks so a request cannot escape
// the served directory.
func (s *staticHandler) relPath(urlPath string) (string, bool) {
	if !strings.HasPrefix(urlPath, s.prefix) {
		return "", false
	}
	rel := strings.TrimPrefix(urlPath, s.prefix)
	if rel == "" {
		return "", false
	}

	// NUL can appear via %00.
	if strings.IndexByte(rel, 0) != -1 {
		return "", false
	}
	if strings.Contains(rel, "\\") {
		return "", false
	}
	// "/public//etc/passwd" leaves "/etc/passwd".
	if strings.HasPrefix(rel, "/") {
		return "", false
	}

	// Dot segments are rejected before cleaning so they cannot be cleaned
	// away into a different path.
	for _, seg := range strings.Split(rel, "/") {
		if seg == "." || seg == ".." {
			return "", false
		}
	}

	clean := path.Clean(rel)
	if clean == "." || clean == "" || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "/") {
		return "", false
	}

	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}

func (s *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	rel, ok := s.relPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	f, err := s.root.Open(rel)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Cache-Control", s.cacheControl(rel))
	http.ServeContent(w, r, rel, info.ModTime(), f)
}

// cacheControl matches the headers `hubro publish` uploads with, so a
// build behaves the same served from here or from a bucket.
func (s *staticHandler) cacheControl(rel string) string {
	if s.dev {
		return "no-store"
	}
	if assets.IsFingerprinted(rel) {
		return publish.CacheImmutable
	}
	return publish.CacheRevalidate
}
