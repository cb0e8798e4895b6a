package assets

import "path"

// Resolver turns a logical asset name into the URL path it is served at.
type Resolver interface {
	Asset(name string) string
}

type manifestResolver struct {
	manifest *Manifest
	prefix   string
}

// NewResolver resolves names through m and joins them onto prefix,
// the URL path of the JS output directory.
func NewResolver(m *Manifest, prefix string) Resolver {
	return &manifestResolver{
		manifest: m,
		prefix:   prefix,
	}
}

func (r *manifestResolver) Asset(name string) string {
	return path.Join("/", r.prefix, r.manifest.Resolve(name))
}

type passthrough struct {
	prefix string
}

// NewPassthroughResolver joins names onto prefix unchanged. Development
// serves bundles under their logical names, so it needs no manifest.
func NewPassthroughResolver(prefix string) Resolver {
	return &passthrough{prefix: prefix}
}

func (p *passthrough) Asset(name string) string {
	return path.Join("/", p.prefix, name)
}
