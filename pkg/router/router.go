package router

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hubro-apparatus/hubro/internal/config"
	"github.com/hubro-apparatus/hubro/internal/errors"
	"github.com/hubro-apparatus/hubro/pkg/assets"
	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
	"github.com/hubro-apparatus/hubro/pkg/middleware"
	"github.com/hubro-apparatus/hubro/pkg/module"
	"github.com/hubro-apparatus/hubro/pkg/render"
	"github.com/hubro-apparatus/hubro/pkg/server"
)

// Mount is a handler served outside the entry pipeline, such as static
// files or development endpoints. Pattern is a chi pattern.
type Mount struct {
	Pattern string
	Handler http.Handler
}

// Options configures a Router.
type Options struct {
	Config   *config.Config
	Snapshot *hierarchy.Snapshot
	System   hierarchy.System
	Source   module.Source

	// Server is handed to every handler. Defaults to a new Server.
	Server *server.Server

	// Composer defaults to render.NewComposer(Logger).
	Composer *render.Composer

	// Middleware wraps every request, first is outermost.
	Middleware []middleware.Adapter

	// Assets resolves bundle URLs. Defaults to a passthrough resolver
	// rooted at the JS URL path of Config.
	Assets assets.Resolver

	Mounts   []Mount
	Reporter Reporter
	Metrics  *middleware.Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Router serves one snapshot. It is immutable once built; a new snapshot
// needs a new Router.
type Router struct {
	mux      *chi.Mux
	log      *slog.Logger
	cfg      *config.Config
	srv      *server.Server
	snapshot *hierarchy.Snapshot
	systemMW module.MiddlewareHandler
	errors   *errorHandler
	metrics  *middleware.Metrics

	routes   []Descriptor
	failures []Failure
}

// New builds the router for opts.Snapshot. It fails only if the system
// resources cannot be loaded; entries that cannot be routed are skipped
// and reported by Failures.
func New(ctx context.Context, opts Options) (*Router, error) {
	if opts.Config == nil {
		return nil, stderrors.New("router: Config is required")
	}
	if opts.Snapshot == nil {
		return nil, stderrors.New("router: Snapshot is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	srv := opts.Server
	if srv == nil {
		srv = server.New(opts.Config, log)
	}
	composer := opts.Composer
	if composer == nil {
		composer = render.NewComposer(log)
	}
	resolver := opts.Assets
	if resolver == nil {
		resolver = assets.NewPassthroughResolver(opts.Config.URLPathToJs(""))
	}

	systemMW, err := module.LoadMiddleware(ctx, opts.Source, opts.System.Middleware)
	if err != nil {
		return nil, err
	}
	document, err := module.LoadDocument(ctx, opts.Source, opts.System.Document)
	if err != nil {
		return nil, err
	}
	notFound, err := loadPage(ctx, opts.Source, opts.System.NotFound)
	if err != nil {
		return nil, err
	}
	errorPage, err := loadPage(ctx, opts.Source, opts.System.Error)
	if err != nil {
		return nil, err
	}

	rt := &Router{
		mux:      chi.NewRouter(),
		log:      log,
		cfg:      opts.Config,
		srv:      srv,
		snapshot: opts.Snapshot,
		systemMW: systemMW,
		metrics:  opts.Metrics,
		errors: &errorHandler{
			log:       log,
			srv:       srv,
			composer:  composer,
			document:  document,
			notFound:  notFound,
			errorPage: errorPage,
			reporter:  opts.Reporter,
		},
	}

	for _, mw := range opts.Middleware {
		if mw != nil {
			rt.mux.Use(mw)
		}
	}
	rt.mux.Use(chimw.CleanPath, chimw.StripSlashes, rt.attach)

	rt.mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.handle(w, r, server.NotFound())
	})
	rt.mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		rt.errors.handle(w, r, server.MethodNotAllowed(r.Method))
	})

	for _, m := range opts.Mounts {
		if err := rt.mount(m); err != nil {
			return nil, err
		}
	}

	in := builderInput{
		ctx:      ctx,
		log:      log,
		source:   opts.Source,
		system:   opts.System,
		document: document,
		composer: composer,
		assets:   resolver,
	}
	for _, entry := range opts.Snapshot.Entries() {
		in.entry = entry
		rt.addEntry(in)
	}

	log.Debug("router built",
		"version", opts.Snapshot.Version(),
		"routes", len(rt.routes),
		"failures", len(rt.failures))
	return rt, nil
}

func loadPage(ctx context.Context, src module.Source, loc hierarchy.Locator) (module.PageHandler, error) {
	m, err := module.Load(ctx, src, loc, hierarchy.RolePage)
	if err != nil {
		return nil, err
	}
	return m.(module.Page).Handler, nil
}

func (rt *Router) mount(m Mount) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("E132").WithDetailf("mount %s: %v", m.Pattern, r)
		}
	}()
	rt.mux.Handle(m.Pattern, m.Handler)
	return nil
}

// addEntry registers every role of one entry. Failures are recorded and
// never stop the other entries.
func (rt *Router) addEntry(in builderInput) {
	for _, b := range buildersFor(in.entry) {
		routes, err := b.build(in)
		if err != nil {
			path := ""
			var ie *importError
			if stderrors.As(err, &ie) {
				path = ie.path
				err = ie.err
			}
			rt.log.Warn(fmt.Sprintf("Router could not import %s at path %s", b.role, path))
			rt.log.Error(err.Error(), "route", in.entry.Route(), "role", b.role)
			rt.fail(in.entry, b.role, path, err)
			continue
		}

		for _, d := range routes {
			if err := rt.register(d); err != nil {
				rt.log.Warn(fmt.Sprintf("Router could not register %s at path %s", d.Role, d.Path))
				rt.log.Error(err.Error(), "route", in.entry.Route(), "pattern", d.Pattern.Path)
				rt.fail(in.entry, d.Role, d.Path, err)
				continue
			}
			rt.routes = append(rt.routes, d)
			rt.log.Debug("route registered", "method", d.Method, "pattern", d.Pattern.Path, "role", d.Role)
		}
	}
}

func (rt *Router) fail(e *hierarchy.Entry, role hierarchy.Role, path string, err error) {
	rt.failures = append(rt.failures, Failure{Route: e.Route(), Role: role, Path: path, Err: err})
	if rt.metrics != nil {
		rt.metrics.RecordRouteFailure(role)
	}
}

// register adds d to the mux. chi reports invalid patterns by panicking.
func (rt *Router) register(d Descriptor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("E132").WithDetailf("%s %s: %v", d.Method, d.Pattern.Path, r)
		}
	}()
	rt.mux.Method(d.Method, d.Pattern.Path, rt.handler(d))
	return nil
}

// attach gives each request a writer that records whether the response is
// committed, and a header accumulator unless an outer middleware already
// placed one in the context.
func (rt *Router) attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &trackingWriter{ResponseWriter: w}
		if _, ok := render.HeaderFrom(r.Context()); !ok {
			r = r.WithContext(render.WithHeader(r.Context(), render.NewHeader()))
		}
		next.ServeHTTP(tw, r)
	})
}

func (rt *Router) handler(d Descriptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				rt.errors.handle(w, r, server.InternalError(fmt.Errorf("panic: %v", p)))
			}
		}()

		args, err := rt.systemStage(r, d)
		if err != nil {
			rt.errors.handle(w, r, err)
			return
		}

		ctx := r.Context()
		if d.PreHandler != nil {
			if err := d.PreHandler(ctx, args); err != nil {
				rt.errors.handle(w, r, err)
				return
			}
		}
		if err := d.Handler(ctx, w, args); err != nil {
			rt.errors.handle(w, r, err)
		}
	}
}

// systemStage builds the request and response for d and runs the system
// middleware.
func (rt *Router) systemStage(r *http.Request, d Descriptor) (server.Args, error) {
	ctx := r.Context()

	params := make(map[string]string, len(d.Pattern.Params))
	for _, name := range d.Pattern.Params {
		if name == d.Pattern.CatchAll {
			continue
		}
		params[name] = chi.URLParam(r, name)
	}
	if d.Pattern.CatchAll != "" {
		rest := chi.URLParam(r, "*")
		params["*"] = rest
		params[d.Pattern.CatchAll] = rest
	}

	req, err := server.NewRequest(r, params, middleware.RequestIDFrom(ctx))
	if err != nil {
		return server.Args{}, err
	}
	res := server.NewResponse()

	switch d.Role {
	case hierarchy.RoleAction:
		res.SetLocation(req.URL().String())
		res.SetStatus(http.StatusSeeOther)
		res.SetType(server.TypeText)
	case hierarchy.RoleRoute:
		res.SetType(server.TypeJSON)
	}

	args := server.Args{Request: req, Response: res, Server: rt.srv}

	if rt.systemMW != nil {
		v, err := rt.systemMW(ctx, args)
		if err != nil {
			rt.log.Error("system middleware failed", "path", r.URL.Path, "error", err)
		} else if v != nil {
			res.SetContext(v)
		}
	}
	return args, nil
}

// ServeHTTP implements http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mux.ServeHTTP(w, r)
}

// Snapshot returns the snapshot the router was built from.
func (rt *Router) Snapshot() *hierarchy.Snapshot {
	return rt.snapshot
}

// Routes returns the registered routes in registration order.
func (rt *Router) Routes() []Descriptor {
	return append([]Descriptor(nil), rt.routes...)
}

// Failures returns the entries that could not be routed.
func (rt *Router) Failures() []Failure {
	return append([]Failure(nil), rt.failures...)
}
