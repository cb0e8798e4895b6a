// Package assets maps the logical names of built JavaScript to the files
// the build wrote.
//
// The build writes a manifest.json next to its output:
//
//	{
//	  "lit/hydration.js": "lit/hydration.6d1e0f2a9b3c4d58.js",
//	  "pages/4f6c2a9e1b0d3c57.js": "pages/4f6c2a9e1b0d3c57.9a0b1c2d3e4f5a6b.js"
//	}
//
// Keys are what pages ask for, values are paths relative to the JS output
// directory. A Resolver turns them into URL paths:
//
//	manifest, _ := assets.Load("build/manifest.json")
//	resolver := assets.NewResolver(manifest, "/public/js")
//	resolver.Asset("lit/hydration.js") // "/public/js/lit/hydration.6d1e0f2a9b3c4d58.js"
package assets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileName is the name of the manifest in the build directory.
const FileName = "manifest.json"

// Manifest holds the mapping from logical names to output paths.
// It is safe for concurrent use.
type Manifest struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
	}
}

// Load reads a manifest file written by Save.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]string)
	}

	return &Manifest{entries: entries}, nil
}

// Save writes the manifest to path, creating parent directories. The file
// is written to a temporary name first and renamed into place.
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.entries, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Resolve returns the output path for name, or name itself if the
// manifest has no entry for it.
func (m *Manifest) Resolve(name string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resolved, ok := m.entries[name]; ok {
		return resolved
	}
	return name
}

// Has reports whether the manifest contains name.
func (m *Manifest) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.entries[name]
	return ok
}

// Set adds or updates an entry.
func (m *Manifest) Set(name, output string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[name] = output
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// Names returns the logical names in sorted order.
func (m *Manifest) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.entries))
	for k := range m.entries {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// All returns a copy of all entries.
func (m *Manifest) All() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		result[k] = v
	}
	return result
}

// PageName is the logical name of the client bundle of the entry with
// the given hash.
func PageName(hash string) string {
	return "pages/" + hash + ".js"
}
