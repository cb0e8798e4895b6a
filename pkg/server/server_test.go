package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hubro-apparatus/hubro/internal/config"
	"github.com/hubro-apparatus/hubro/internal/errors"
)

func TestNewRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.com/blog/42?draft=1", nil)
	r.Header.Set("Accept", "text/html")

	req, err := NewRequest(r, map[string]string{"id": "42"}, "req-1")
	if err != nil {
		t.Fatal(err)
	}
	if req.Method() != http.MethodGet {
		t.Errorf("Method() = %q", req.Method())
	}
	if got := req.URL().String(); got != "http://example.com/blog/42?draft=1" {
		t.Errorf("URL() = %q", got)
	}
	if req.Param("id") != "42" {
		t.Errorf("Param(id) = %q", req.Param("id"))
	}
	if req.ID() != "req-1" {
		t.Errorf("ID() = %q", req.ID())
	}
	if req.Header().Get("Accept") != "text/html" {
		t.Error("Header() lost Accept")
	}
	if req.Form() != nil {
		t.Error("GET request should have no form")
	}
	if req.HTTP() != r {
		t.Error("HTTP() should return the raw request")
	}
}

func TestRequestIsReadOnly(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.Header.Set("X-Test", "a")
	req, err := NewRequest(r, map[string]string{"id": "1"}, "")
	if err != nil {
		t.Fatal(err)
	}

	req.Params()["id"] = "2"
	req.Header().Set("X-Test", "b")
	req.URL().Path = "/y"

	if req.Param("id") != "1" {
		t.Error("Params() leaked internal map")
	}
	if req.Header().Get("X-Test") != "a" {
		t.Error("Header() leaked internal header")
	}
	if req.URL().Path != "/x" {
		t.Error("URL() leaked internal URL")
	}
}

func TestNewRequestForm(t *testing.T) {
	body := url.Values{"title": {"Hello"}, "tag": {"a", "b"}}.Encode()
	r := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req, err := NewRequest(r, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	form := req.Form()
	if form.Get("title") != "Hello" {
		t.Errorf("title = %q", form.Get("title"))
	}
	if len(form["tag"]) != 2 {
		t.Errorf("tag = %v", form["tag"])
	}
	if req.Params() == nil {
		t.Error("Params() should never be nil")
	}
}

func TestNewRequestBadForm(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/posts", strings.NewReader("%zz"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err := NewRequest(r, nil, "")
	if StatusOf(err) != http.StatusBadRequest {
		t.Errorf("StatusOf(%v) = %d, want 400", err, StatusOf(err))
	}
}

func TestResponseDefaults(t *testing.T) {
	res := NewResponse()
	if res.Status() != http.StatusOK {
		t.Errorf("Status() = %d", res.Status())
	}
	if res.Type() != TypeHTML {
		t.Errorf("Type() = %q", res.Type())
	}
	if res.Location() != "" || res.Context() != nil {
		t.Error("Location and Context should start empty")
	}

	res.SetStatus(201)
	res.SetType(TypeJSON)
	res.SetLocation("/done")
	res.SetContext(map[string]string{"user": "ada"})
	res.Header().Set("X-Trace", "1")

	rec := httptest.NewRecorder()
	res.CopyHeaders(rec)
	if rec.Header().Get("X-Trace") != "1" {
		t.Error("CopyHeaders did not copy X-Trace")
	}
	if res.Context().(map[string]string)["user"] != "ada" {
		t.Error("Context() lost value")
	}
}

type testAdapter struct {
	name     string
	readyErr error
	closeErr error
	log      *[]string
}

func (a *testAdapter) Name() string { return a.name }

func (a *testAdapter) Ready(context.Context) error {
	*a.log = append(*a.log, "ready "+a.name)
	return a.readyErr
}

func (a *testAdapter) Close(context.Context) error {
	*a.log = append(*a.log, "close "+a.name)
	return a.closeErr
}

type nameOnly string

func (n nameOnly) Name() string { return string(n) }

func TestServerAdapters(t *testing.T) {
	var log []string
	s := New(config.New(t.TempDir(), true), nil)

	for _, a := range []Adapter{
		&testAdapter{name: "db", log: &log},
		nameOnly("cache"),
		&testAdapter{name: "queue", log: &log},
	} {
		if err := s.SetAdapter(a); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.SetAdapter(nameOnly("db")); !errors.HasCode(err, "E160") {
		t.Errorf("duplicate adapter error = %v, want E160", err)
	}
	if err := s.SetAdapter(nameOnly("")); err == nil {
		t.Error("unnamed adapter should be rejected")
	}

	if a, ok := s.Adapter("cache"); !ok || a.Name() != "cache" {
		t.Errorf("Adapter(cache) = %v, %v", a, ok)
	}
	if len(s.Adapters()) != 3 {
		t.Errorf("Adapters() = %d", len(s.Adapters()))
	}

	ctx := context.Background()
	if err := s.Ready(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}

	want := "ready db,ready queue,close queue,close db"
	if strings.Join(log, ",") != want {
		t.Errorf("lifecycle = %v, want %s", log, want)
	}
}

func TestServerLifecycleErrors(t *testing.T) {
	var log []string
	s := New(nil, nil)
	boom := fmt.Errorf("boom")
	_ = s.SetAdapter(&testAdapter{name: "a", readyErr: boom, closeErr: boom, log: &log})
	_ = s.SetAdapter(&testAdapter{name: "b", closeErr: boom, log: &log})

	ctx := context.Background()
	if err := s.Ready(ctx); !stderrors.Is(err, boom) {
		t.Errorf("Ready() = %v, want boom", err)
	}
	if len(log) != 1 {
		t.Errorf("Ready should stop at the first failure, log = %v", log)
	}

	err := s.Close(ctx)
	if !stderrors.Is(err, boom) {
		t.Errorf("Close() = %v", err)
	}
	if !strings.Contains(err.Error(), `"a"`) || !strings.Contains(err.Error(), `"b"`) {
		t.Errorf("Close() should report both adapters: %v", err)
	}
}

func TestServerEnv(t *testing.T) {
	t.Setenv("HUBRO_TEST_ENV", "yes")
	if New(nil, nil).Env("HUBRO_TEST_ENV") != "yes" {
		t.Error("Env() did not read the environment")
	}
}

type statusErr int

func (s statusErr) Error() string { return "status" }
func (s statusErr) Status() int { return int(s) }

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 200},
		{"plain", fmt.Errorf("x"), 500},
		{"not found", NotFound(), 404},
		{"wrapped", fmt.Errorf("load: %w", Forbidden()), 403},
		{"status method", statusErr(418), 418},
		{"out of range", statusErr(200), 500},
		{"bad request", BadRequest(nil), 400},
		{"unauthorized", Unauthorized(), 401},
		{"method", MethodNotAllowed("DELETE"), 405},
		{"internal", InternalError(fmt.Errorf("db")), 500},
		{"custom", NewHTTPError(409, "conflict on %s", "slug"), 409},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHTTPError(t *testing.T) {
	cause := fmt.Errorf("db down")
	err := InternalError(cause)
	if err.Error() != "internal server error: db down" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("Unwrap should expose cause")
	}
}
