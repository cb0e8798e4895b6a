// Package router turns a hierarchy snapshot into an http.Handler.
//
// Each entry of the snapshot is handed to the builders for its kind:
//
//	api     route.js   one route per exported GET, PUT and POST
//	page    action.js  POST, redirects when done
//	page    page.js    GET, streams the page through the system document
//	client  client.js  GET, streams the system page with the entry bundle
//
// Directory names map to chi patterns: [id] becomes {id}, [id:int]
// becomes {id:[0-9]+} and [...slug] becomes a catch-all whose value is
// available under both "*" and "slug".
//
// # Request pipeline
//
// Every request passes the outer middleware (request ids, logging, metrics,
// tracing, CORS and compression), path cleaning and the header accumulator.
// Matched routes then run, in order:
//
//  1. the system stage, which builds the server.Request and
//     server.Response, applies the defaults of the route's role and runs
//     system/middleware.js. Its errors are logged and do not stop the
//     request.
//  2. the entry middleware: inline Unit.Middleware, else the co-located
//     middleware.js. Its value is stored with Response.SetContext.
//  3. the handler.
//
// Errors from any stage go to a single error handler that picks the status
// with server.StatusOf and negotiates the error body on Accept. Once a
// page has started streaming its status is committed; a later failure is
// logged and the response ends truncated.
//
// # Failures
//
// An entry whose module cannot be loaded, or whose pattern chi rejects, is
// skipped. The failure is logged as one warning and one error and listed by
// Failures; every other entry is still served.
package router
