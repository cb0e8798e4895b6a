package module

import (
	"context"

	"github.com/hubro-apparatus/hubro/pkg/render"
	"github.com/hubro-apparatus/hubro/pkg/server"
)

// APIHandler serves one HTTP method of a route file. The returned value is
// written as the response body.
type APIHandler func(ctx context.Context, args server.Args) (any, error)

// ActionHandler handles a form submission. The response is a redirect.
type ActionHandler func(ctx context.Context, args server.Args) error

// MiddlewareHandler runs before a handler. A non nil value is stored with
// Response.SetContext.
type MiddlewareHandler func(ctx context.Context, args server.Args) (any, error)

// PageHandler produces the view of a page.
type PageHandler func(ctx context.Context, args server.Args) (render.View, error)

// DocumentHandler wraps a view into a full document.
type DocumentHandler func(view render.View, header *render.Header) render.Shell

// Unit is the set of exports of one module. Which fields must be set
// depends on the role the module is loaded for.
type Unit struct {
	GET  APIHandler
	PUT  APIHandler
	POST APIHandler

	Action   ActionHandler
	Page     PageHandler
	Document DocumentHandler

	// Middleware is inline middleware. It takes precedence over a
	// co-located middleware file.
	Middleware MiddlewareHandler
}

// IsZero reports whether the unit exports nothing.
func (u Unit) IsZero() bool {
	return u.GET == nil && u.PUT == nil && u.POST == nil &&
		u.Action == nil && u.Page == nil && u.Document == nil && u.Middleware == nil
}
