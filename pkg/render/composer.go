package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hubro-apparatus/hubro/pkg/render"

// FragmentError reports a fragment whose producer or render failed.
type FragmentError struct {
	Name string
	Err  error
}

func (e *FragmentError) Error() string {
	return fmt.Sprintf("render: fragment %q: %v", e.Name, e.Err)
}

func (e *FragmentError) Unwrap() error {
	return e.Err
}

// Composer streams Shells. It is safe for concurrent use.
type Composer struct {
	log    *slog.Logger
	tracer trace.Tracer
}

// NewComposer creates a composer. A nil logger uses slog.Default().
func NewComposer(log *slog.Logger) *Composer {
	if log == nil {
		log = slog.Default()
	}
	return &Composer{
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
}

type fragmentResult struct {
	component templ.Component
	err       error
}

// Stream writes shell to w. If w implements http.Flusher the shell is
// flushed before any fragment is awaited and again after every fragment.
func (c *Composer) Stream(ctx context.Context, w io.Writer, shell Shell) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	// Producers start before the shell is written so slow fragments
	// overlap with the first flush.
	pending := make([]chan fragmentResult, len(shell.Fragments))
	for i, f := range shell.Fragments {
		ch := make(chan fragmentResult, 1)
		pending[i] = ch
		go c.produce(ctx, f, ch)
	}

	if err := c.writeOpen(ctx, w, shell); err != nil {
		return err
	}
	flush()

	for i, f := range shell.Fragments {
		var res fragmentResult
		select {
		case res = <-pending[i]:
		case <-ctx.Done():
			return &FragmentError{Name: f.Name, Err: ctx.Err()}
		}
		if res.err != nil {
			cancel()
			c.log.Error("fragment failed", "fragment", f.Name, "error", res.err)
			return &FragmentError{Name: f.Name, Err: res.err}
		}

		markup, err := String(ctx, res.component)
		if err != nil {
			cancel()
			c.log.Error("fragment render failed", "fragment", f.Name, "error", err)
			return &FragmentError{Name: f.Name, Err: err}
		}
		if _, err := fmt.Fprintf(w, "<div slot=\"%s\">%s</div>\n", templ.EscapeString(f.Name), markup); err != nil {
			return err
		}
		flush()
	}

	if _, err := io.WriteString(w, "</body>\n</html>\n"); err != nil {
		return err
	}
	flush()
	return nil
}

func (c *Composer) produce(ctx context.Context, f Fragment, out chan<- fragmentResult) {
	ctx, span := c.tracer.Start(ctx, "hubro.fragment",
		trace.WithAttributes(attribute.String("hubro.fragment", f.Name)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			out <- fragmentResult{err: err}
		}
	}()

	if f.Produce == nil {
		out <- fragmentResult{}
		return
	}
	comp, err := f.Produce(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	out <- fragmentResult{component: comp, err: err}
}

func (c *Composer) writeOpen(ctx context.Context, w io.Writer, shell Shell) error {
	lang := shell.Lang
	if lang == "" {
		lang = "en"
	}

	var b strings.Builder
	b.WriteString("<!doctype html>\n")
	fmt.Fprintf(&b, "<html lang=\"%s\">\n", templ.EscapeString(lang))
	b.WriteString("<head>\n")
	b.WriteString("<meta charset=\"utf-8\">\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	if shell.Title != "" {
		fmt.Fprintf(&b, "<title>%s</title>\n", templ.EscapeString(shell.Title))
	}
	for _, href := range shell.Styles {
		fmt.Fprintf(&b, "<link rel=\"stylesheet\" href=\"%s\">\n", templ.EscapeString(href))
	}
	for _, src := range shell.Scripts {
		fmt.Fprintf(&b, "<script type=\"module\" src=\"%s\"></script>\n", templ.EscapeString(src))
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	if shell.Head != nil {
		if err := shell.Head.Render(ctx, w); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "</head>\n<body>\n"); err != nil {
		return err
	}
	if shell.Body != nil {
		if err := shell.Body.Render(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

// FlushableWriter wraps an io.Writer with flushing capability. Tests use it
// to observe streaming without an http.ResponseWriter.
type FlushableWriter struct {
	io.Writer
	FlushCount int
}

// Flush implements http.Flusher.
func (w *FlushableWriter) Flush() {
	w.FlushCount++
}
