// Package defaults holds the system resources used when an application
// does not provide its own.
package defaults

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
	"github.com/hubro-apparatus/hubro/pkg/module"
	"github.com/hubro-apparatus/hubro/pkg/render"
	"github.com/hubro-apparatus/hubro/pkg/server"
)

// Hydration is the client runtime served at js/lit/hydration.js.
//
//go:embed js/hydration.js
var Hydration []byte

// HydrationPath is the path of the runtime below the js directory.
const HydrationPath = "lit/hydration.js"

// Registry returns a new registry holding the packaged system modules.
func Registry() *module.Registry {
	return module.NewRegistry().
		Register(hierarchy.SystemMiddleware.Key(), module.Unit{Middleware: Middleware}).
		Register(hierarchy.SystemDocument.Key(), module.Unit{Document: Document}).
		Register(hierarchy.SystemPage.Key(), module.Unit{Page: Page}).
		Register(hierarchy.SystemNotFound.Key(), module.Unit{Page: NotFound}).
		Register(hierarchy.SystemError.Key(), module.Unit{Page: Error})
}

// Middleware does nothing.
func Middleware(ctx context.Context, args server.Args) (any, error) {
	return nil, nil
}

// Document wraps a view in a plain document using the accumulated header.
// A view with fragments gets a declarative shadow root on <body>: the view
// body fills the default slot and every fragment a slot named after it.
func Document(view render.View, header *render.Header) render.Shell {
	shell := render.Shell{
		Body:      view.Body,
		Fragments: view.Fragments,
	}
	if len(view.Fragments) > 0 {
		shell.Body = slotted(view)
	}
	if header != nil {
		shell.Lang = header.Lang()
		shell.Title = header.Title()
		shell.Scripts = header.Scripts()
		shell.Styles = header.Styles()
	}
	return shell
}

// Page is the wrapper for client only entries. The entry's bundle renders
// into the mount point.
func Page(ctx context.Context, args server.Args) (render.View, error) {
	return render.View{Body: templ.Raw(`<main id="hubro"></main>`)}, nil
}

// NotFound renders the 404 page.
func NotFound(ctx context.Context, args server.Args) (render.View, error) {
	setTitle(ctx, "Not found")
	return render.View{Body: statusBody(http.StatusNotFound, "The page you requested could not be found.")}, nil
}

// Error renders the error page for every status other than 404.
func Error(ctx context.Context, args server.Args) (render.View, error) {
	status := http.StatusInternalServerError
	if args.Response != nil && args.Response.Status() >= 400 {
		status = args.Response.Status()
	}
	setTitle(ctx, http.StatusText(status))
	return render.View{Body: statusBody(status, "Something went wrong.")}, nil
}

func setTitle(ctx context.Context, title string) {
	if h, ok := render.HeaderFrom(ctx); ok && h.Title() == "" {
		h.SetTitle(title)
	}
}

func slotted(view render.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString("<template shadowrootmode=\"open\">\n<slot></slot>\n")
		for _, f := range view.Fragments {
			fmt.Fprintf(&b, "<slot name=\"%s\"></slot>\n", templ.EscapeString(f.Name))
		}
		b.WriteString("</template>\n")
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if view.Body == nil {
			return nil
		}
		return view.Body.Render(ctx, w)
	})
}

func statusBody(status int, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<main>\n<h1>%d %s</h1>\n<p>%s</p>\n</main>\n",
			status, templ.EscapeString(http.StatusText(status)), templ.EscapeString(message))
		return err
	})
}
