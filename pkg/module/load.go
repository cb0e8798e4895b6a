package module

import (
	"context"

	"github.com/hubro-apparatus/hubro/internal/errors"
	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
)

// RouteModule is a loaded module checked against its role. It is one of
// API, Action, Page or Client.
type RouteModule interface {
	Role() hierarchy.Role
	routeModule()
}

// Method pairs an HTTP method with its handler.
type Method struct {
	Name    string
	Handler APIHandler
}

// API is a route module.
type API struct {
	Methods    []Method
	Middleware MiddlewareHandler
}

// Action is an action module.
type Action struct {
	Handler    ActionHandler
	Middleware MiddlewareHandler
}

// Page is a page module.
type Page struct {
	Handler    PageHandler
	Middleware MiddlewareHandler
}

// Client is the page a client only entry renders through, the system page
// providing the mount point its bundle renders into.
type Client struct {
	Handler    PageHandler
	Middleware MiddlewareHandler
}

func (API) Role() hierarchy.Role    { return hierarchy.RoleRoute }
func (Action) Role() hierarchy.Role { return hierarchy.RoleAction }
func (Page) Role() hierarchy.Role   { return hierarchy.RolePage }
func (Client) Role() hierarchy.Role { return hierarchy.RoleClient }

func (API) routeModule()    {}
func (Action) routeModule() {}
func (Page) routeModule()   {}
func (Client) routeModule() {}

// Load opens loc and returns the module for role. It fails with E130 when
// the unit cannot be opened and E131 when it lacks the exports role needs.
func Load(ctx context.Context, src Source, loc hierarchy.Locator, role hierarchy.Role) (RouteModule, error) {
	u, err := open(ctx, src, loc)
	if err != nil {
		return nil, err
	}

	switch role {
	case hierarchy.RoleRoute:
		var methods []Method
		for _, m := range []Method{{"GET", u.GET}, {"PUT", u.PUT}, {"POST", u.POST}} {
			if m.Handler != nil {
				methods = append(methods, m)
			}
		}
		if len(methods) == 0 {
			return nil, shapeError(loc, "a route module must export at least one of GET, PUT or POST")
		}
		return API{Methods: methods, Middleware: u.Middleware}, nil

	case hierarchy.RoleAction:
		if u.Action == nil {
			return nil, shapeError(loc, "an action module must export Action")
		}
		return Action{Handler: u.Action, Middleware: u.Middleware}, nil

	case hierarchy.RolePage:
		if u.Page == nil {
			return nil, shapeError(loc, "a page module must export Page")
		}
		return Page{Handler: u.Page, Middleware: u.Middleware}, nil

	case hierarchy.RoleClient:
		if u.Page == nil {
			return nil, shapeError(loc, "the page a client entry renders through must export Page")
		}
		return Client{Handler: u.Page, Middleware: u.Middleware}, nil
	}

	return nil, shapeError(loc, "role "+string(role)+" has no route module")
}

// LoadMiddleware opens a middleware module.
func LoadMiddleware(ctx context.Context, src Source, loc hierarchy.Locator) (MiddlewareHandler, error) {
	u, err := open(ctx, src, loc)
	if err != nil {
		return nil, err
	}
	if u.Middleware == nil {
		return nil, shapeError(loc, "a middleware module must export Middleware")
	}
	return u.Middleware, nil
}

// LoadDocument opens a document module.
func LoadDocument(ctx context.Context, src Source, loc hierarchy.Locator) (DocumentHandler, error) {
	u, err := open(ctx, src, loc)
	if err != nil {
		return nil, err
	}
	if u.Document == nil {
		return nil, shapeError(loc, "a document module must export Document")
	}
	return u.Document, nil
}

func open(ctx context.Context, src Source, loc hierarchy.Locator) (Unit, error) {
	if src == nil {
		return Unit{}, errors.New("E130").WithDetail("no module source configured").WithPath(loc.Path)
	}
	u, err := src.Open(ctx, loc)
	if err != nil {
		return Unit{}, errors.New("E130").WithPath(loc.Path).Wrap(err)
	}
	return u, nil
}

func shapeError(loc hierarchy.Locator, detail string) error {
	return errors.New("E131").WithDetail(detail).WithPath(loc.Path)
}
