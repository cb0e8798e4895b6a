// Package hubro assembles a file system routed application.
//
// The pages directory is the route tree. Each directory below it is a
// route, and the files in it decide what the route does:
//
//	pages/page.js             page rendered on the server
//	pages/blog/[id]/route.js  API route
//	pages/contact/action.js   form action, redirects back on success
//	pages/shop/client.js      client bundle, hydrated in the browser
//	pages/admin/middleware.js runs before every handler of the route
//
// The server side behaviour of each file is a Go value registered under
// the file's path:
//
//	reg := module.NewRegistry().
//		Register("pages/page.js", module.Unit{Page: home}).
//		Register("pages/blog/[id]/route.js", module.Unit{GET: post})
//
//	app, err := hubro.New(cfg, hubro.WithModules(reg))
//	if err != nil {
//		return err
//	}
//	return app.Run(ctx)
//
// System resources (document, page, not found and error pages, global
// middleware) fall back to the defaults in pkg/defaults when the system
// directory does not override them.
package hubro

// Version is the release of the module, reported by `hubro version` and
// attached to error reports.
var Version = "0.4.0"
