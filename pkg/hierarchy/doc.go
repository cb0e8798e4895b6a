// Package hierarchy discovers routes from the file system.
//
// A pages directory is scanned for five conventionally named files:
//
//	middleware.{js,ts}  runs before the handlers of the directory
//	client.{js,ts}      browser entry point, bundled as <hash>.js
//	action.{js,ts}      POST form handler answered with a redirect
//	route.{js,ts}       JSON API handlers (GET, PUT, POST)
//	page.{js,ts}        server rendered page
//
// Files in one directory belong to one Entry. The entry's route is the
// directory relative to the pages root, prefixed with the base path, and
// its hash is a SHAKE256 digest of the route. The hash names the client
// bundle, so server routes and browser assets can be matched without a
// lookup table.
//
// Entries are classified into a Kind when a scan completes:
//
//	route present            api
//	page or action present   page
//	only client present      client
//	nothing routable         empty
//
// Each Rebuild produces a new immutable Snapshot which is swapped in
// atomically; readers never observe a partial scan.
//
// System resources (middleware, document, page, not-found and error)
// resolve to a file in the system directory when present, otherwise to a
// packaged default.
package hierarchy
