// Package render streams server rendered documents.
//
// A page produces a View: a body rendered immediately and any number of
// named fragments whose content is produced asynchronously. The system
// document turns the View and the request's Header into a Shell, and the
// Composer writes the Shell to the response:
//
//	<!doctype html>, <head>, <body> and the view body   flushed at once
//	<div slot="a">...</div>                             flushed as a resolves
//	<div slot="b">...</div>                             flushed as b resolves
//	</body></html>
//
// All fragment producers start when streaming starts, so the total time is
// bounded by the slowest fragment rather than their sum. Fragments are
// nonetheless written in declared order: a fragment that resolves early
// waits for the ones declared before it. The body typically declares a
// template with one <slot> per fragment so the browser places each one.
//
// # Failure
//
// If a producer fails, the remaining producers are cancelled and Stream
// returns a *FragmentError. The shell has already been flushed by then, so
// the status code is committed; callers log the error and the response
// ends truncated.
//
// The Composer sets no timeouts. A producer that never returns holds the
// response open; bound request duration at the HTTP server.
package render
