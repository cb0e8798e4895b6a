package render

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/a-h/templ"
)

func quietComposer() *Composer {
	return NewComposer(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func delayed(name string, d time.Duration) Fragment {
	return Deferred(name, func(ctx context.Context) (templ.Component, error) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return Text("content " + name), nil
	})
}

func TestStreamShell(t *testing.T) {
	w := httptest.NewRecorder()

	shell := Shell{
		Lang:    "nb",
		Title:   "Front <page>",
		Scripts: []string{"/_/js/lit/hydration.js"},
		Styles:  []string{"/public/site.css"},
		Body:    Text("Streamed Content"),
	}
	if err := quietComposer().Stream(context.Background(), w, shell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	html := w.Body.String()
	if !strings.HasPrefix(html, "<!doctype html>") {
		t.Errorf("should start with doctype, got %q", html[:20])
	}
	for _, want := range []string{
		`<html lang="nb">`,
		"<title>Front &lt;page&gt;</title>",
		`<script type="module" src="/_/js/lit/hydration.js"></script>`,
		`<link rel="stylesheet" href="/public/site.css">`,
		"<body>\nStreamed Content",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if !strings.HasSuffix(html, "</body>\n</html>\n") {
		t.Errorf("should end with closing tags")
	}
}

func TestStreamDefaultLang(t *testing.T) {
	var buf bytes.Buffer
	if err := quietComposer().Stream(context.Background(), &buf, Shell{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `<html lang="en">`) {
		t.Errorf("expected lang=en, got %q", buf.String())
	}
	if strings.Contains(buf.String(), "<title>") {
		t.Errorf("empty title should be omitted")
	}
}

func TestStreamDeclaredOrder(t *testing.T) {
	var buf bytes.Buffer
	shell := Shell{
		Fragments: []Fragment{
			delayed("c", 10*time.Millisecond),
			delayed("a", 50*time.Millisecond),
			delayed("b", 200*time.Millisecond),
		},
	}

	start := time.Now()
	if err := quietComposer().Stream(context.Background(), &buf, shell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	html := buf.String()
	ic := strings.Index(html, `<div slot="c">`)
	ia := strings.Index(html, `<div slot="a">`)
	ib := strings.Index(html, `<div slot="b">`)
	if ic < 0 || ia < 0 || ib < 0 {
		t.Fatalf("missing fragments in %q", html)
	}
	if !(ic < ia && ia < ib) {
		t.Errorf("fragments out of order: c=%d a=%d b=%d", ic, ia, ib)
	}

	// Producers run concurrently, so the total is about the slowest one.
	if elapsed > 400*time.Millisecond {
		t.Errorf("producers appear to run sequentially: %v", elapsed)
	}
}

func TestStreamLaterFragmentWaits(t *testing.T) {
	var buf bytes.Buffer
	shell := Shell{
		Fragments: []Fragment{
			delayed("slow", 100*time.Millisecond),
			delayed("fast", 0),
		},
	}
	if err := quietComposer().Stream(context.Background(), &buf, shell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := buf.String()
	if strings.Index(html, `slot="fast"`) < strings.Index(html, `slot="slow"`) {
		t.Errorf("fast fragment emitted before slow one: %q", html)
	}
}

// orderWriter records a snapshot of the output at every flush.
type orderWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	chunks []string
}

func (w *orderWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *orderWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chunks = append(w.chunks, w.buf.String())
}

func TestStreamShellFlushedBeforeFragments(t *testing.T) {
	w := &orderWriter{}
	release := make(chan struct{})
	shell := Shell{
		Body: Text("shell body"),
		Fragments: []Fragment{
			Deferred("late", func(ctx context.Context) (templ.Component, error) {
				<-release
				return Text("late content"), nil
			}),
		},
	}

	done := make(chan error, 1)
	go func() {
		done <- quietComposer().Stream(context.Background(), w, shell)
	}()

	deadline := time.After(time.Second)
	for {
		w.mu.Lock()
		n := len(w.chunks)
		w.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("shell was not flushed while fragment was pending")
		case <-time.After(5 * time.Millisecond):
		}
	}

	w.mu.Lock()
	first := w.chunks[0]
	w.mu.Unlock()
	if !strings.Contains(first, "shell body") {
		t.Errorf("first flush should contain the shell, got %q", first)
	}
	if strings.Contains(first, "late content") {
		t.Errorf("first flush should not contain the pending fragment")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStreamFlushCount(t *testing.T) {
	var buf bytes.Buffer
	fw := &FlushableWriter{Writer: &buf}

	shell := Shell{
		Fragments: []Fragment{delayed("a", 0), delayed("b", 0)},
	}
	if err := quietComposer().Stream(context.Background(), fw, shell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One for the shell, one per fragment, one at the end.
	if fw.FlushCount != 4 {
		t.Errorf("expected 4 flushes, got %d", fw.FlushCount)
	}
}

func TestStreamFragmentFailure(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")
	cancelled := make(chan struct{})

	shell := Shell{
		Fragments: []Fragment{
			delayed("ok", 0),
			Deferred("bad", func(ctx context.Context) (templ.Component, error) {
				return nil, boom
			}),
			Deferred("after", func(ctx context.Context) (templ.Component, error) {
				<-ctx.Done()
				close(cancelled)
				return nil, ctx.Err()
			}),
		},
	}

	err := quietComposer().Stream(context.Background(), &buf, shell)
	var fe *FragmentError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FragmentError, got %v", err)
	}
	if fe.Name != "bad" {
		t.Errorf("expected failing fragment 'bad', got %q", fe.Name)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error should wrap the producer's error")
	}

	html := buf.String()
	if !strings.Contains(html, `<div slot="ok">`) {
		t.Errorf("fragments before the failure should be written")
	}
	if strings.Contains(html, "</html>") {
		t.Errorf("failed stream should be truncated")
	}

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Error("remaining producers were not cancelled")
	}
}

func TestStreamFragmentPanic(t *testing.T) {
	var buf bytes.Buffer
	shell := Shell{
		Fragments: []Fragment{
			Deferred("boom", func(ctx context.Context) (templ.Component, error) {
				panic("kaboom")
			}),
		},
	}

	err := quietComposer().Stream(context.Background(), &buf, shell)
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("expected panic to surface as error, got %v", err)
	}
}

func TestStreamContextCancelled(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())

	shell := Shell{
		Fragments: []Fragment{
			Deferred("stuck", func(ctx context.Context) (templ.Component, error) {
				cancel()
				<-ctx.Done()
				return nil, ctx.Err()
			}),
		},
	}

	err := quietComposer().Stream(ctx, &buf, shell)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStreamEscapesSlotNames(t *testing.T) {
	var buf bytes.Buffer
	shell := Shell{Fragments: []Fragment{delayed(`x"y`, 0)}}
	if err := quietComposer().Stream(context.Background(), &buf, shell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `<div slot="x&#34;y">`) {
		t.Errorf("slot name not escaped: %q", buf.String())
	}
}

func TestStreamEscapesHeadAttributes(t *testing.T) {
	var buf bytes.Buffer
	shell := Shell{
		Lang:    `en"><script>`,
		Scripts: []string{`/a.js?x="1"&y=<2>`},
		Styles:  []string{`/it's.css`},
	}
	if err := quietComposer().Stream(context.Background(), &buf, shell); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<html lang="en&#34;&gt;&lt;script&gt;">`,
		`src="/a.js?x=&#34;1&#34;&amp;y=&lt;2&gt;"`,
		`href="/it&#39;s.css"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}
