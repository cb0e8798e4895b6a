package hierarchy

import (
	"os"
	"path/filepath"

	"github.com/hubro-apparatus/hubro/internal/errors"
)

// SystemResource names one of the process wide system files.
type SystemResource string

const (
	SystemMiddleware SystemResource = "middleware"
	SystemDocument   SystemResource = "document"
	SystemPage       SystemResource = "page"
	SystemNotFound   SystemResource = "not-found"
	SystemError      SystemResource = "error"
)

// SystemResources lists every system resource.
var SystemResources = []SystemResource{
	SystemMiddleware, SystemDocument, SystemPage, SystemNotFound, SystemError,
}

// Key is the module key of the resource, e.g. "system/not-found.js".
func (s SystemResource) Key() string {
	return "system/" + string(s) + ".js"
}

// PackagedScheme prefixes the path of packaged default locators.
const PackagedScheme = "hubro:"

// System holds the resolved system resources.
type System struct {
	Middleware Locator
	Document   Locator
	Page       Locator
	NotFound   Locator
	Error      Locator
}

// ResolveSystem resolves all system resources. Any failure is a
// configuration error.
func (r *Resolver) ResolveSystem() (System, error) {
	var sys System
	targets := map[SystemResource]*Locator{
		SystemMiddleware: &sys.Middleware,
		SystemDocument:   &sys.Document,
		SystemPage:       &sys.Page,
		SystemNotFound:   &sys.NotFound,
		SystemError:      &sys.Error,
	}
	for _, res := range SystemResources {
		loc, err := r.resolveSystem(res)
		if err != nil {
			return System{}, err
		}
		*targets[res] = loc
	}
	return sys, nil
}

func (r *Resolver) ResolveMiddleware() (Locator, error) { return r.resolveSystem(SystemMiddleware) }
func (r *Resolver) ResolveDocument() (Locator, error) { return r.resolveSystem(SystemDocument) }
func (r *Resolver) ResolvePage() (Locator, error) { return r.resolveSystem(SystemPage) }
func (r *Resolver) ResolveNotFound() (Locator, error) { return r.resolveSystem(SystemNotFound) }
func (r *Resolver) ResolveError() (Locator, error) { return r.resolveSystem(SystemError) }

// resolveSystem prefers a regular file in the system directory and falls
// back to the packaged default. Results are memoized.
func (r *Resolver) resolveSystem(res SystemResource) (Locator, error) {
	r.systemMu.Lock()
	defer r.systemMu.Unlock()

	if loc, ok := r.system[res]; ok {
		return loc, nil
	}

	file := filepath.Join(r.opts.SystemDir, string(res)+".js")
	if info, err := os.Stat(file); err == nil && info.Mode().IsRegular() {
		loc, err := r.locate(file)
		if err != nil {
			return Locator{}, err
		}
		r.system[res] = loc
		r.log.Debug("using application system resource", "resource", res, "path", loc.Path)
		return loc, nil
	}

	key := res.Key()
	if r.opts.Packaged == nil || !r.opts.Packaged.Has(key) {
		return Locator{}, errors.New("E101").
			WithDetailf("No %s.js in the system directory and no packaged default", res).
			WithPath(file)
	}
	loc := Locator{Path: PackagedScheme + key, Key: key, Packaged: true}
	r.system[res] = loc
	r.log.Debug("using packaged system resource", "resource", res)
	return loc, nil
}
