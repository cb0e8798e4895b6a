package render

import (
	"context"
	"strings"

	"github.com/a-h/templ"
)

// Fragment is a named piece of a document produced asynchronously.
type Fragment struct {
	// Name is the slot the fragment fills.
	Name string

	// Produce renders the fragment. It runs on its own goroutine and must
	// honor ctx cancellation.
	Produce func(ctx context.Context) (templ.Component, error)
}

// View is what a page handler returns.
type View struct {
	Body      templ.Component
	Fragments []Fragment
}

// Shell is a complete document ready to stream.
type Shell struct {
	Lang    string
	Title   string
	Scripts []string
	Styles  []string

	// Head is rendered inside <head> after the title, scripts and styles.
	Head templ.Component

	// Body is rendered right after <body> and flushed with the head. It
	// usually carries a <template shadowrootmode="open"> declaring a
	// <slot name="..."> per fragment.
	Body templ.Component

	Fragments []Fragment
}

// String renders c into a string.
func String(ctx context.Context, c templ.Component) (string, error) {
	if c == nil {
		return "", nil
	}
	var b strings.Builder
	if err := c.Render(ctx, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text returns a component writing escaped text.
func Text(s string) templ.Component {
	return templ.Raw(templ.EscapeString(s))
}

// Deferred builds a Fragment.
func Deferred(name string, fn func(ctx context.Context) (templ.Component, error)) Fragment {
	return Fragment{Name: name, Produce: fn}
}
