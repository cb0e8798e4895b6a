package hierarchy

import (
	"path/filepath"
	"strings"
)

// Kind classifies an Entry by the role files found for its route.
type Kind string

const (
	KindAPI    Kind = "api"
	KindPage   Kind = "page"
	KindClient Kind = "client"
	KindEmpty  Kind = "empty"
)

// Role is the conventional base name of a file in the pages directory.
type Role string

const (
	RoleMiddleware Role = "middleware"
	RoleClient     Role = "client"
	RoleAction     Role = "action"
	RoleRoute      Role = "route"
	RolePage       Role = "page"
)

// Roles lists every file role in the order they are reported.
var Roles = []Role{RoleMiddleware, RoleClient, RoleAction, RoleRoute, RolePage}

// Extensions are the file extensions a role file may have.
var Extensions = []string{".js", ".ts"}

// roleOf returns the role of a file name such as "page.ts".
func roleOf(name string) (Role, bool) {
	ext := filepath.Ext(name)
	if ext != ".js" && ext != ".ts" {
		return "", false
	}
	base := Role(strings.TrimSuffix(name, ext))
	for _, r := range Roles {
		if r == base {
			return r, true
		}
	}
	return "", false
}

// Locator references a discovered resource.
type Locator struct {
	// Path is the absolute file path, or a hubro: URI for packaged defaults.
	Path string

	// Key is the slash separated path relative to the source directory,
	// e.g. "pages/blog/page.js" or "system/document.js". Modules are
	// registered under this key.
	Key string

	// Packaged is true for defaults shipped with Hubro.
	Packaged bool
}

// IsZero reports whether the locator is unset.
func (l Locator) IsZero() bool {
	return l.Path == ""
}

func (l Locator) String() string {
	return l.Path
}

// Entry is one route location. It aggregates the role files found in one
// directory under a stable hash. Entries are immutable once a scan
// completes.
type Entry struct {
	hash       string
	route      string
	middleware Locator
	client     Locator
	action     Locator
	apiRoute   Locator
	page       Locator
	kind       Kind
}

// Hash is the stable identity of the entry and the file stem of its bundle.
func (e *Entry) Hash() string { return e.hash }

// Route is the base prefixed URL path of the entry, with a trailing slash.
func (e *Entry) Route() string { return e.route }

// Kind is derived from the set locators when the entry is finalized.
func (e *Entry) Kind() Kind { return e.kind }

// Bundle reports whether a browser bundle must be built for the entry.
func (e *Entry) Bundle() bool { return !e.client.IsZero() }

func (e *Entry) Middleware() (Locator, bool) { return e.middleware, !e.middleware.IsZero() }
func (e *Entry) Client() (Locator, bool) { return e.client, !e.client.IsZero() }
func (e *Entry) Action() (Locator, bool) { return e.action, !e.action.IsZero() }
func (e *Entry) APIRoute() (Locator, bool) { return e.apiRoute, !e.apiRoute.IsZero() }
func (e *Entry) Page() (Locator, bool) { return e.page, !e.page.IsZero() }

// Locator returns the locator for a role.
func (e *Entry) Locator(r Role) (Locator, bool) {
	switch r {
	case RoleMiddleware:
		return e.Middleware()
	case RoleClient:
		return e.Client()
	case RoleAction:
		return e.Action()
	case RoleRoute:
		return e.APIRoute()
	case RolePage:
		return e.Page()
	}
	return Locator{}, false
}

// entryBuilder collects role files for one route during a scan.
type entryBuilder struct {
	hash     string
	route    string
	locators map[Role]Locator
}

func newEntryBuilder(route string) *entryBuilder {
	return &entryBuilder{
		hash:     Hash(route),
		route:    route,
		locators: make(map[Role]Locator, len(Roles)),
	}
}

// set records a role file. A later file of the same role (page.ts after
// page.js) replaces the earlier one.
func (b *entryBuilder) set(r Role, loc Locator) {
	b.locators[r] = loc
}

func (b *entryBuilder) finalize() *Entry {
	e := &Entry{
		hash:       b.hash,
		route:      b.route,
		middleware: b.locators[RoleMiddleware],
		client:     b.locators[RoleClient],
		action:     b.locators[RoleAction],
		apiRoute:   b.locators[RoleRoute],
		page:       b.locators[RolePage],
	}
	e.kind = classify(e)
	return e
}

// classify applies the kind precedence: route, then page or action, then
// client.
func classify(e *Entry) Kind {
	switch {
	case !e.apiRoute.IsZero():
		return KindAPI
	case !e.page.IsZero(), !e.action.IsZero():
		return KindPage
	case !e.client.IsZero():
		return KindClient
	default:
		return KindEmpty
	}
}
