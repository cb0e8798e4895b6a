package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/hubro-apparatus/hubro/pkg/hierarchy"
	"github.com/hubro-apparatus/hubro/pkg/server"
)

// Descriptor is one registered route.
type Descriptor struct {
	Method  string
	Pattern Pattern
	Entry   *hierarchy.Entry
	Role    hierarchy.Role

	// Path is the file the route was built from.
	Path string

	// PreHandler runs the entry middleware. It is nil when the entry has
	// none.
	PreHandler func(ctx context.Context, args server.Args) error

	// Handler writes the response.
	Handler func(ctx context.Context, w http.ResponseWriter, args server.Args) error
}

// Failure is an entry role that could not be routed.
type Failure struct {
	Route string
	Role  hierarchy.Role
	Path  string
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s at %s: %v", f.Route, f.Role, f.Path, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}
