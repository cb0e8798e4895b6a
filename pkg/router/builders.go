package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hubro-apparatus/hubro/internal/logging"
	"github.com/hubro-apparatus/hubro/pkg/assets"
	"github.com/hubro-apparatus/hubro/pkg/defaults"
	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
	"github.com/hubro-apparatus/hubro/pkg/module"
	"github.com/hubro-apparatus/hubro/pkg/render"
	"github.com/hubro-apparatus/hubro/pkg/server"
)

// builderInput is what every route builder receives.
type builderInput struct {
	ctx      context.Context
	entry    *hierarchy.Entry
	log      *slog.Logger
	source   module.Source
	system   hierarchy.System
	document module.DocumentHandler
	composer *render.Composer
	assets   assets.Resolver
}

// builder returns the routes of one role of an entry.
type builder func(in builderInput) ([]Descriptor, error)

// importError is a builder failure to load the module of a role.
type importError struct {
	role hierarchy.Role
	path string
	err  error
}

func (e *importError) Error() string {
	return fmt.Sprintf("could not import %s at path %s: %v", e.role, e.path, e.err)
}

func (e *importError) Unwrap() error {
	return e.err
}

type roleBuilder struct {
	role  hierarchy.Role
	build builder
}

// buildersFor returns the builders that apply to e.
func buildersFor(e *hierarchy.Entry) []roleBuilder {
	var out []roleBuilder
	switch e.Kind() {
	case hierarchy.KindAPI:
		out = append(out, roleBuilder{hierarchy.RoleRoute, buildAPI})
	case hierarchy.KindPage:
		if _, ok := e.Action(); ok {
			out = append(out, roleBuilder{hierarchy.RoleAction, buildAction})
		}
		if _, ok := e.Page(); ok {
			out = append(out, roleBuilder{hierarchy.RolePage, buildPage})
		}
	case hierarchy.KindClient:
		out = append(out, roleBuilder{hierarchy.RoleClient, buildClient})
	}
	return out
}

// resolveMiddleware picks the entry middleware: inline first, then the
// co-located file. A co-located file that fails to load counts as none.
func resolveMiddleware(in builderInput, inline module.MiddlewareHandler) module.MiddlewareHandler {
	if inline != nil {
		logging.Trace(in.ctx, in.log, "Loaded inline middleware for route "+in.entry.Route())
		return inline
	}
	loc, ok := in.entry.Middleware()
	if !ok {
		return nil
	}
	mw, err := module.LoadMiddleware(in.ctx, in.source, loc)
	if err != nil {
		in.log.Debug("co-located middleware not loaded", "route", in.entry.Route(), "path", loc.Path, "error", err)
		return nil
	}
	logging.Trace(in.ctx, in.log, "Loaded external middleware for route "+in.entry.Route())
	return mw
}

func preHandler(mw module.MiddlewareHandler) func(ctx context.Context, args server.Args) error {
	if mw == nil {
		return nil
	}
	return func(ctx context.Context, args server.Args) error {
		v, err := mw(ctx, args)
		if err != nil {
			return err
		}
		if v != nil {
			args.Response.SetContext(v)
		}
		return nil
	}
}

func buildAPI(in builderInput) ([]Descriptor, error) {
	loc, _ := in.entry.APIRoute()
	m, err := module.Load(in.ctx, in.source, loc, hierarchy.RoleRoute)
	if err != nil {
		return nil, &importError{role: hierarchy.RoleRoute, path: loc.Path, err: err}
	}
	api := m.(module.API)

	pattern := MapRoute(in.entry.Route())
	pre := preHandler(resolveMiddleware(in, api.Middleware))

	routes := make([]Descriptor, 0, len(api.Methods))
	for _, method := range api.Methods {
		routes = append(routes, Descriptor{
			Method:     method.Name,
			Pattern:    pattern,
			Entry:      in.entry,
			Role:       hierarchy.RoleRoute,
			Path:       loc.Path,
			PreHandler: pre,
			Handler:    apiHandler(method.Handler),
		})
	}
	return routes, nil
}

func apiHandler(h module.APIHandler) func(ctx context.Context, w http.ResponseWriter, args server.Args) error {
	return func(ctx context.Context, w http.ResponseWriter, args server.Args) error {
		body, err := h(ctx, args)
		if err != nil {
			return err
		}
		res := args.Response
		res.CopyHeaders(w)
		w.Header().Set("Content-Type", res.Type())
		return writeBody(w, res.Status(), body)
	}
}

// writeBody writes strings, byte slices and readers as they are and
// encodes anything else as JSON. A nil body writes only the status.
func writeBody(w http.ResponseWriter, status int, body any) error {
	switch v := body.(type) {
	case nil:
		w.WriteHeader(status)
		return nil
	case string:
		w.WriteHeader(status)
		_, err := io.WriteString(w, v)
		return err
	case []byte:
		w.WriteHeader(status)
		_, err := w.Write(v)
		return err
	case io.Reader:
		w.WriteHeader(status)
		_, err := io.Copy(w, v)
		return err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return server.InternalError(fmt.Errorf("encode response: %w", err))
	}
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func buildAction(in builderInput) ([]Descriptor, error) {
	loc, _ := in.entry.Action()
	m, err := module.Load(in.ctx, in.source, loc, hierarchy.RoleAction)
	if err != nil {
		return nil, &importError{role: hierarchy.RoleAction, path: loc.Path, err: err}
	}
	action := m.(module.Action)

	return []Descriptor{{
		Method:     http.MethodPost,
		Pattern:    MapRoute(in.entry.Route()),
		Entry:      in.entry,
		Role:       hierarchy.RoleAction,
		Path:       loc.Path,
		PreHandler: preHandler(resolveMiddleware(in, action.Middleware)),
		Handler: func(ctx context.Context, w http.ResponseWriter, args server.Args) error {
			if err := action.Handler(ctx, args); err != nil {
				return err
			}
			res := args.Response
			res.CopyHeaders(w)
			w.Header().Set("Content-Type", res.Type())
			w.Header().Set("Location", res.Location())
			w.WriteHeader(res.Status())
			return nil
		},
	}}, nil
}

func buildPage(in builderInput) ([]Descriptor, error) {
	loc, _ := in.entry.Page()
	m, err := module.Load(in.ctx, in.source, loc, hierarchy.RolePage)
	if err != nil {
		return nil, &importError{role: hierarchy.RolePage, path: loc.Path, err: err}
	}
	page := m.(module.Page)

	return []Descriptor{{
		Method:     http.MethodGet,
		Pattern:    MapRoute(in.entry.Route()),
		Entry:      in.entry,
		Role:       hierarchy.RolePage,
		Path:       loc.Path,
		PreHandler: preHandler(resolveMiddleware(in, page.Middleware)),
		Handler:    pageHandler(in, page.Handler),
	}}, nil
}

// buildClient routes a client only entry through the system page, which
// provides the mount point the entry's bundle renders into.
func buildClient(in builderInput) ([]Descriptor, error) {
	loc := in.system.Page
	m, err := module.Load(in.ctx, in.source, loc, hierarchy.RoleClient)
	if err != nil {
		return nil, &importError{role: hierarchy.RoleClient, path: loc.Path, err: err}
	}
	shell := m.(module.Client)

	client, _ := in.entry.Client()
	return []Descriptor{{
		Method:     http.MethodGet,
		Pattern:    MapRoute(in.entry.Route()),
		Entry:      in.entry,
		Role:       hierarchy.RoleClient,
		Path:       client.Path,
		PreHandler: preHandler(resolveMiddleware(in, shell.Middleware)),
		Handler:    pageHandler(in, shell.Handler),
	}}, nil
}

func pageHandler(in builderInput, h module.PageHandler) func(ctx context.Context, w http.ResponseWriter, args server.Args) error {
	entry, resolver, document, composer := in.entry, in.assets, in.document, in.composer

	return func(ctx context.Context, w http.ResponseWriter, args server.Args) error {
		header, ok := render.HeaderFrom(ctx)
		if !ok {
			header = render.NewHeader()
			ctx = render.WithHeader(ctx, header)
		}
		if entry.Bundle() {
			header.SetScript(resolver.Asset(defaults.HydrationPath))
			header.SetScript(resolver.Asset(assets.PageName(entry.Hash())))
		}

		view, err := h(ctx, args)
		if err != nil {
			return err
		}
		shell := document(view, header)

		res := args.Response
		res.CopyHeaders(w)
		w.Header().Set("Content-Type", res.Type())
		w.WriteHeader(res.Status())
		return composer.Stream(ctx, w, shell)
	}
}
