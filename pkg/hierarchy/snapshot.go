package hierarchy

import "time"

// Snapshot is an immutable registry of entries produced by one scan.
// Entries keep discovery order.
type Snapshot struct {
	version uint64
	builtAt time.Time
	entries []*Entry
	byHash  map[string]*Entry
}

func newSnapshot(version uint64, entries []*Entry) *Snapshot {
	byHash := make(map[string]*Entry, len(entries))
	for _, e := range entries {
		byHash[e.hash] = e
	}
	return &Snapshot{
		version: version,
		builtAt: time.Now(),
		entries: entries,
		byHash:  byHash,
	}
}

// Version increases by one with every successful rebuild. The empty
// snapshot held before the first rebuild has version 0.
func (s *Snapshot) Version() uint64 { return s.version }

// BuiltAt is when the scan completed.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.entries) }

// Entries returns the entries in discovery order.
func (s *Snapshot) Entries() []*Entry {
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// EntryByHash returns the entry with the given hash.
func (s *Snapshot) EntryByHash(hash string) (*Entry, bool) {
	e, ok := s.byHash[hash]
	return e, ok
}

// EntryByPath returns the entry whose client file is at path. The bundler
// calls this to name its outputs.
func (s *Snapshot) EntryByPath(path string) (*Entry, bool) {
	for _, e := range s.entries {
		if !e.client.IsZero() && e.client.Path == path {
			return e, true
		}
	}
	return nil, false
}

// ToBundle returns the client file paths of every entry that needs a
// bundle, in discovery order.
func (s *Snapshot) ToBundle() []string {
	var paths []string
	for _, e := range s.entries {
		if e.Bundle() {
			paths = append(paths, e.client.Path)
		}
	}
	return paths
}

// Counts returns the number of entries per kind.
func (s *Snapshot) Counts() map[Kind]int {
	counts := map[Kind]int{KindAPI: 0, KindPage: 0, KindClient: 0, KindEmpty: 0}
	for _, e := range s.entries {
		counts[e.kind]++
	}
	return counts
}
