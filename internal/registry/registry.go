// Package registry stores the chats that receive doorbell notifications.
//
// The backing file keeps the layout the bot has always used:
//
//	{"<chat id>": {"name": "Kitchen group", "enabled": 1}}
//
// New chats start disabled; an administrator flips "enabled" by hand and
// sends /reload (or waits for the next ring, which reloads the file).
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Destination is one registered chat.
type Destination struct {
	ID      string
	Name    string
	Enabled bool
}

// record is the on-disk form. enabled is 0/1 for compatibility.
type record struct {
	Name    string `json:"name"`
	Enabled int    `json:"enabled"`
}

// Store is a file-backed destination registry. Safe for concurrent use.
type Store struct {
	path     string
	autosave bool

	mu    sync.RWMutex
	dests map[string]Destination
}

// Open loads the registry at path. A missing file yields an empty registry;
// the file is created on the first save.
func Open(path string, autosave bool) (*Store, error) {
	s := &Store{
		path:     path,
		autosave: autosave,
		dests:    make(map[string]Destination),
	}
	if err := s.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return s, nil
}

// NewMemory creates a registry that never touches disk. Used by tests and by
// callers that manage persistence themselves.
func NewMemory(dests ...Destination) *Store {
	s := &Store{dests: make(map[string]Destination)}
	for _, d := range dests {
		s.dests[d.ID] = d
	}
	return s
}

// Path returns the backing file path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Reload replaces the in-memory view with the file contents. On error the
// previous view is kept.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	body, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read registry %q: %w", s.path, err)
	}

	var raw map[string]record
	if len(body) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return fmt.Errorf("parse registry %q: %w", s.path, err)
		}
	}

	dests := make(map[string]Destination, len(raw))
	for id, rec := range raw {
		dests[id] = Destination{ID: id, Name: rec.Name, Enabled: rec.Enabled == 1}
	}

	s.mu.Lock()
	s.dests = dests
	s.mu.Unlock()
	return nil
}

// Enabled returns a point-in-time snapshot of enabled destinations sorted by id.
func (s *Store) Enabled() []Destination {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Destination, 0, len(s.dests))
	for _, d := range s.dests {
		if d.Enabled {
			out = append(out, d)
		}
	}
	sortByID(out)
	return out
}

// All returns every destination sorted by id.
func (s *Store) All() []Destination {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Destination, 0, len(s.dests))
	for _, d := range s.dests {
		out = append(out, d)
	}
	sortByID(out)
	return out
}

// Lookup returns the destination with id.
func (s *Store) Lookup(id string) (Destination, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dests[id]
	return d, ok
}

// Add registers id as a disabled destination. It reports false when id is
// already present.
func (s *Store) Add(id, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dests[id]; ok {
		return false, nil
	}
	s.dests[id] = Destination{ID: id, Name: name}
	return true, s.saveLocked()
}

// Remove deletes id. It reports false when id was not present.
func (s *Store) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.dests[id]; !ok {
		return false, nil
	}
	delete(s.dests, id)
	return true, s.saveLocked()
}

// SetEnabled flips the enabled flag of id. It reports false when id is unknown.
func (s *Store) SetEnabled(id string, enabled bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dests[id]
	if !ok {
		return false, nil
	}
	d.Enabled = enabled
	s.dests[id] = d
	return true, s.saveLocked()
}

// Save writes the registry to disk regardless of autosave.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeLocked()
}

func (s *Store) saveLocked() error {
	if !s.autosave {
		return nil
	}
	return s.writeLocked()
}

// writeLocked writes through a temp file and rename so a crash never leaves
// a truncated registry behind.
func (s *Store) writeLocked() error {
	if s.path == "" {
		return nil
	}

	raw := make(map[string]record, len(s.dests))
	for id, d := range s.dests {
		rec := record{Name: d.Name}
		if d.Enabled {
			rec.Enabled = 1
		}
		raw[id] = rec
	}
	body, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".registry-*.json")
	if err != nil {
		return fmt.Errorf("create temp registry: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp registry: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace registry %q: %w", s.path, err)
	}
	return nil
}

func sortByID(ds []Destination) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
}
