package router

import (
	"regexp"
	"strings"
)

// segmentRe matches bracket notation: [param], [param:type] or [...param].
var segmentRe = regexp.MustCompile(`\[([.\w-]+)(?::(\w+))?\]`)

// paramTypes maps a type annotation to the chi regexp constraining it.
var paramTypes = map[string]string{
	"int":  "[0-9]+",
	"uuid": "[0-9a-fA-F-]{36}",
}

// Pattern is a chi route pattern derived from an entry route.
type Pattern struct {
	// Path is the chi pattern, e.g. "/blog/{id}" or "/docs/*".
	Path string

	// Params are the parameter names in order of appearance.
	Params []string

	// CatchAll is the name of the catch-all parameter, if any. chi stores
	// its value under "*".
	CatchAll string
}

// MapRoute converts an entry route to a chi pattern:
//
//	/blog/[id]/        → /blog/{id}
//	/blog/[id:int]/    → /blog/{id:[0-9]+}
//	/docs/[...slug]/   → /docs/*
//
// The trailing slash is trimmed except for the root route.
func MapRoute(route string) Pattern {
	var p Pattern

	path := segmentRe.ReplaceAllStringFunc(route, func(match string) string {
		sub := segmentRe.FindStringSubmatch(match)
		name, typ := sub[1], sub[2]

		if strings.HasPrefix(name, "...") {
			p.CatchAll = name[3:]
			p.Params = append(p.Params, p.CatchAll)
			return "*"
		}

		p.Params = append(p.Params, name)
		if re, ok := paramTypes[typ]; ok {
			return "{" + name + ":" + re + "}"
		}
		return "{" + name + "}"
	})

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	p.Path = path
	return p
}
