// Package store persists the project registry: a JSON mapping from
// project name to the location of its materialized content and, for
// remote-backed projects, the origin URL and last-fetched commit hash.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/stencil-dev/stencil/internal/config"
)

const (
	registryFileName = "registry.json"
	cacheDirName     = "cache"
)

// ErrNotFound is returned when a named project is not in the registry.
var ErrNotFound = errors.New("project not found")

// Record describes where a project's content lives. Remote and Hash are
// either both set (remote-backed) or both empty (local).
type Record struct {
	Path   string `json:"path"`
	Remote string `json:"remote,omitempty"`
	Hash   string `json:"hash,omitempty"`
}

// RemoteBacked reports whether the record's content came from a remote
// archive.
func (r Record) RemoteBacked() bool {
	return r.Remote != "" && r.Hash != ""
}

// Change records an entry added during this run, under its final
// (possibly disambiguated) name.
type Change struct {
	Name string
	Path string
}

// Store is the in-memory registry plus its on-disk location. Methods
// are safe for concurrent use within one process; the file itself is
// assumed to be owned exclusively by the running command.
type Store struct {
	dir string

	mu       sync.Mutex
	projects map[string]Record
	counters map[string]int // per-base-name disambiguation, this run only
	changes  []Change
}

// DefaultDir returns the per-user registry directory (~/.stencil, or
// the STENCIL_HOME override).
func DefaultDir() string {
	return config.Dir()
}

// Open loads the registry rooted at dir, creating the directory, the
// cache subdirectory, and an empty registry file on first run.
func Open(dir string) (*Store, error) {
	s := &Store{
		dir:      dir,
		projects: make(map[string]Record),
		counters: make(map[string]int),
	}

	if err := os.MkdirAll(s.CacheDir(), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := os.ReadFile(s.RegistryPath())
	if os.IsNotExist(err) {
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	if err := validateRegistry(data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.projects); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}

	return s, nil
}

// RegistryPath returns the path of the persisted registry file.
func (s *Store) RegistryPath() string {
	return filepath.Join(s.dir, registryFileName)
}

// CacheDir returns the directory holding extracted remote project trees.
func (s *Store) CacheDir() string {
	return filepath.Join(s.dir, cacheDirName)
}

// Save writes the registry as pretty-printed JSON, replacing the
// previous contents via a temp file and rename.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.projects, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, registryFileName+".*")
	if err != nil {
		return fmt.Errorf("creating registry temp file: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing registry temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.RegistryPath()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing registry file: %w", err)
	}
	return nil
}

// Add stores rec under name, disambiguating collisions by appending
// "-<n>" with a per-base-name counter that starts at 1 and skips names
// already present in the loaded registry. Returns the final name.
func (s *Store) Add(name string, rec Record) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	final := name
	if _, exists := s.projects[final]; exists {
		for {
			s.counters[name]++
			candidate := fmt.Sprintf("%s-%d", name, s.counters[name])
			if _, taken := s.projects[candidate]; !taken {
				final = candidate
				break
			}
		}
	}

	s.projects[final] = rec
	s.changes = append(s.changes, Change{Name: final, Path: rec.Path})
	return final
}

// Get returns the record for name.
func (s *Store) Get(name string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.projects[name]
	return rec, ok
}

// Set replaces the record for an existing name.
func (s *Store) Set(name string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[name] = rec
}

// Remove deletes the named entry. Returns ErrNotFound if absent.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(s.projects, name)
	return nil
}

// Prune removes entries whose path no longer exists on disk and
// returns the removed names.
func (s *Store) Prune() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for name, rec := range s.projects {
		if _, err := os.Stat(rec.Path); err != nil {
			delete(s.projects, name)
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	return removed
}

// Names returns all project names in sorted order.
func (s *Store) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.projects))
	for name := range s.projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered projects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects)
}

// Changes returns the entries added during this run, in insertion order.
func (s *Store) Changes() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Change(nil), s.changes...)
}
