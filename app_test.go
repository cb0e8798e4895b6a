package hubro

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hubro-apparatus/hubro/internal/config"
	"github.com/hubro-apparatus/hubro/internal/errors"
	"github.com/hubro-apparatus/hubro/internal/logging"
	"github.com/hubro-apparatus/hubro/pkg/assets"
	"github.com/hubro-apparatus/hubro/pkg/middleware"
	"github.com/hubro-apparatus/hubro/pkg/module"
	"github.com/hubro-apparatus/hubro/pkg/render"
	"github.com/hubro-apparatus/hubro/pkg/server"
)

// =============================================================================
// Helpers
// =============================================================================

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func textPage(s string) module.PageHandler {
	return func(ctx context.Context, args server.Args) (render.View, error) {
		return render.View{Body: render.Text(s)}, nil
	}
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func newApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	app, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return app
}

type recordingAdapter struct {
	name     string
	readyErr error

	mu     sync.Mutex
	events []string
}

func (a *recordingAdapter) Name() string { return a.name }

func (a *recordingAdapter) Ready(ctx context.Context) error {
	a.record("ready")
	return a.readyErr
}

func (a *recordingAdapter) Close(ctx context.Context) error {
	a.record("close")
	return nil
}

func (a *recordingAdapter) record(e string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAdapter) Events() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

// =============================================================================
// App
// =============================================================================

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) should fail")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.New(t.TempDir(), false)
	cfg.Directories.Pages = "/abs/pages"

	_, err := New(cfg, WithLogger(logging.Discard()))
	if !errors.HasCode(err, "E102") {
		t.Fatalf("New error = %v, want E102", err)
	}
}

func TestAppServesRoutes(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"pages/page.js":           "export default {}",
		"pages/api/hello/route.js": "export default {}",
	})
	reg := module.NewRegistry().
		Register("pages/page.js", module.Unit{Page: textPage("home")}).
		Register("pages/api/hello/route.js", module.Unit{GET: func(ctx context.Context, args server.Args) (any, error) {
			return map[string]string{"hello": "world"}, nil
		}})

	app := newApp(t, config.New(dir, false), WithModules(reg))

	w := get(app, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "home") {
		t.Errorf("GET / body = %q", w.Body.String())
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("response has no request id")
	}

	w = get(app, "/api/hello")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/hello status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"hello":"world"`) {
		t.Errorf("GET /api/hello body = %q", w.Body.String())
	}

	if got := app.Snapshot().Len(); got != 2 {
		t.Errorf("Snapshot().Len() = %d, want 2", got)
	}
}

func TestAppRebuildSwapsRouter(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"pages/page.js": "export default {}"})
	reg := module.NewRegistry().Register("pages/page.js", module.Unit{Page: textPage("home")})

	app := newApp(t, config.New(dir, false), WithSource(reg))
	before := app.Router()

	if w := get(app, "/news/"); w.Code != http.StatusNotFound {
		t.Fatalf("GET /news/ before rebuild status = %d", w.Code)
	}

	writeFiles(t, dir, map[string]string{"pages/news/page.js": "export default {}"})
	reg.Register("pages/news/page.js", module.Unit{Page: textPage("news")})

	if err := app.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if app.Router() == before {
		t.Fatal("Rebuild did not swap the router")
	}
	if app.Snapshot().Version() <= before.Snapshot().Version() {
		t.Error("snapshot version did not increase")
	}

	w := get(app, "/news/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "news") {
		t.Fatalf("GET /news/ after rebuild = %d %q", w.Code, w.Body.String())
	}

	// The previous router still serves its own snapshot.
	if w := get(before, "/news/"); w.Code != http.StatusNotFound {
		t.Errorf("old router GET /news/ status = %d", w.Code)
	}
}

func TestAppConcurrentRebuild(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"pages/page.js": "export default {}"})
	reg := module.NewRegistry().Register("pages/page.js", module.Unit{Page: textPage("home")})
	app := newApp(t, config.New(dir, false), WithModules(reg))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := app.Rebuild(context.Background()); err != nil {
				t.Errorf("Rebuild: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if w := get(app, "/"); w.Code != http.StatusOK {
				t.Errorf("GET / status = %d", w.Code)
			}
		}()
	}
	wg.Wait()

	if got := app.Snapshot().Version(); got != 9 {
		t.Errorf("Version() = %d, want 9", got)
	}
}

func TestAppMiddlewareOption(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"pages/page.js": "export default {}"})
	reg := module.NewRegistry().Register("pages/page.js", module.Unit{Page: textPage("home")})

	var seen string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = middleware.RequestIDFrom(r.Context())
			w.Header().Set("X-Custom", "yes")
			next.ServeHTTP(w, r)
		})
	}
	app := newApp(t, config.New(dir, false), WithModules(reg), WithMiddleware(mw))

	w := get(app, "/")
	if w.Header().Get("X-Custom") != "yes" {
		t.Error("custom middleware did not run")
	}
	if seen == "" || seen != w.Header().Get(middleware.RequestIDHeader) {
		t.Errorf("custom middleware saw request id %q, response has %q", seen, w.Header().Get(middleware.RequestIDHeader))
	}
}

func TestAppMetrics(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"pages/page.js": "export default {}"})
	reg := module.NewRegistry().Register("pages/page.js", module.Unit{Page: textPage("home")})

	cfg := config.New(dir, false)
	cfg.Metrics.Enabled = true
	app := newApp(t, cfg, WithModules(reg), WithRegisterer(prometheus.NewRegistry()))

	get(app, "/")

	w := get(app, "/_/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /_/metrics status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`hubro_hierarchy_entries{kind="page"} 1`,
		`hubro_hierarchy_rebuilds_total{result="success"} 1`,
		`hubro_http_requests_total`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestAppDuplicateAdapter(t *testing.T) {
	dir := t.TempDir()
	_, err := New(config.New(dir, false),
		WithLogger(logging.Discard()),
		WithAdapter(&recordingAdapter{name: "db"}, &recordingAdapter{name: "db"}))
	if err == nil {
		t.Fatal("New should reject duplicate adapter names")
	}
}

func TestAppManifestAssets(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"pages/shop/page.js":   "export default {}",
		"pages/shop/client.js": "export default {}",
	})
	reg := module.NewRegistry().Register("pages/shop/page.js", module.Unit{Page: textPage("shop")})

	cfg := config.New(dir, false)

	// Write a manifest for the entry hash the resolver will compute.
	scan := newApp(t, cfg, WithModules(reg))
	var hash string
	for _, e := range scan.Snapshot().Entries() {
		if e.Bundle() {
			hash = e.Hash()
		}
	}
	if hash == "" {
		t.Fatal("no entry with a bundle")
	}
	m := assets.NewManifest()
	m.Set(assets.PageName(hash), "pages/"+hash+".min.js")
	if err := m.Save(filepath.Join(cfg.BuildDir(), assets.FileName)); err != nil {
		t.Fatal(err)
	}

	app := newApp(t, cfg, WithModules(reg))
	w := get(app, "/shop/")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /shop/ status = %d", w.Code)
	}
	want := `src="/public/js/pages/` + hash + `.min.js"`
	if !strings.Contains(w.Body.String(), want) {
		t.Errorf("page does not reference %s:\n%s", want, w.Body.String())
	}
}

// =============================================================================
// Run / Serve
// =============================================================================

func waitFor(t *testing.T, url string) *http.Response {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAppServe(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"pages/page.js": "export default {}"})
	reg := module.NewRegistry().Register("pages/page.js", module.Unit{Page: textPage("home")})
	db := &recordingAdapter{name: "db"}
	cache := &recordingAdapter{name: "cache"}

	app := newApp(t, config.New(dir, false), WithModules(reg), WithAdapter(db, cache))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	resp := waitFor(t, "http://"+ln.Addr().String()+"/")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "home") {
		t.Fatalf("GET / = %d %q", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	for _, a := range []*recordingAdapter{db, cache} {
		if got := strings.Join(a.Events(), ","); got != "ready,close" {
			t.Errorf("%s events = %q, want ready,close", a.name, got)
		}
	}
}

func TestAppServeReadyFailure(t *testing.T) {
	dir := t.TempDir()
	broken := &recordingAdapter{name: "db", readyErr: stderrors.New("connection refused")}
	app := newApp(t, config.New(dir, false), WithAdapter(broken))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	err = app.Serve(context.Background(), ln)
	if !errors.HasCode(err, "E160") {
		t.Fatalf("Serve error = %v, want E160", err)
	}

	// The listener was closed.
	if _, err := ln.Accept(); err == nil {
		t.Error("listener still accepts")
	}
}

func TestAppRunListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := config.New(t.TempDir(), false)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port
	app := newApp(t, cfg)

	err = app.Run(context.Background())
	if !errors.HasCode(err, "E161") {
		t.Fatalf("Run error = %v, want E161", err)
	}
}
