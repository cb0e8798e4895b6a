package middleware

import (
	"net/http"
)

// An Adapter wraps a handler with additional behaviour.
type Adapter func(http.Handler) http.Handler

// Chain glues the set of adapters to the handler. The first adapter is the
// outermost.
func Chain(handler http.Handler, adapters ...Adapter) http.Handler {
	for i := len(adapters) - 1; i >= 0; i-- {
		if adapters[i] != nil {
			handler = adapters[i](handler)
		}
	}
	return handler
}

// Noop returns the handler unchanged.
func Noop(h http.Handler) http.Handler {
	return h
}
