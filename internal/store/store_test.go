package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenInitializesLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stencil-home")

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if _, err := os.Stat(s.CacheDir()); err != nil {
		t.Error("cache directory should be created")
	}
	if _, err := os.Stat(s.RegistryPath()); err != nil {
		t.Error("empty registry file should be created")
	}
	if s.Len() != 0 {
		t.Errorf("fresh registry has %d entries, want 0", s.Len())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")

	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s.Add("local-proj", Record{Path: "/tmp/local-proj"})
	s.Add("widgets", Record{
		Path:   "/tmp/cache/widgets",
		Remote: "https://github.com/acme/widgets.git",
		Hash:   "a94a8fe5ccb19ba61c4c0873d391e987982fbbd3",
	})
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Open(dir)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}

	if loaded.Len() != 2 {
		t.Fatalf("loaded %d entries, want 2", loaded.Len())
	}
	rec, ok := loaded.Get("widgets")
	if !ok {
		t.Fatal("widgets entry missing after round trip")
	}
	if !rec.RemoteBacked() {
		t.Error("widgets should be remote-backed")
	}
	if rec.Hash != "a94a8fe5ccb19ba61c4c0873d391e987982fbbd3" {
		t.Errorf("hash = %q after round trip", rec.Hash)
	}
}

func TestAddDisambiguatesCollisions(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "home"))
	if err != nil {
		t.Fatal(err)
	}

	first := s.Add("proj", Record{Path: "/a"})
	second := s.Add("proj", Record{Path: "/b"})
	third := s.Add("proj", Record{Path: "/c"})

	if first != "proj" {
		t.Errorf("first add = %q, want proj", first)
	}
	if second != "proj-1" {
		t.Errorf("second add = %q, want proj-1", second)
	}
	if third != "proj-2" {
		t.Errorf("third add = %q, want proj-2", third)
	}

	// Original entry must not be overwritten.
	rec, _ := s.Get("proj")
	if rec.Path != "/a" {
		t.Errorf("original entry path = %q, want /a", rec.Path)
	}
}

func TestAddSkipsNamesLoadedFromDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")

	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s.Add("proj", Record{Path: "/a"})
	s.Add("proj", Record{Path: "/b"}) // proj-1
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	// A new run's counter starts over but must skip persisted keys.
	reopened, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := reopened.Add("proj", Record{Path: "/c"})
	if got != "proj-2" {
		t.Errorf("add after reload = %q, want proj-2", got)
	}
}

func TestRemove(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "home"))
	if err != nil {
		t.Fatal(err)
	}
	s.Add("proj", Record{Path: "/a"})

	if err := s.Remove("proj"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := s.Get("proj"); ok {
		t.Error("entry should be gone after Remove")
	}

	err = s.Remove("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove(missing) = %v, want ErrNotFound", err)
	}
}

func TestPruneDropsMissingPaths(t *testing.T) {
	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, "real")
	if err := os.MkdirAll(existing, 0755); err != nil {
		t.Fatal(err)
	}

	s, err := Open(filepath.Join(tmpDir, "home"))
	if err != nil {
		t.Fatal(err)
	}
	s.Add("real", Record{Path: existing})
	s.Add("gone", Record{Path: filepath.Join(tmpDir, "deleted")})

	removed := s.Prune()
	if len(removed) != 1 || removed[0] != "gone" {
		t.Errorf("Prune = %v, want [gone]", removed)
	}
	if _, ok := s.Get("real"); !ok {
		t.Error("existing entry should survive prune")
	}
}

func TestOpenRejectsInvalidRegistry(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	// remote without hash violates the record invariant.
	bad := `{"widgets": {"path": "/x", "remote": "https://github.com/a/b.git"}}`
	if err := os.WriteFile(filepath.Join(dir, "registry.json"), []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(dir)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "invalid") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSavedRegistryIsPrettyPrinted(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	s.Add("proj", Record{Path: "/a"})
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(s.RegistryPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n  \"proj\"") {
		t.Errorf("registry should be indented, got:\n%s", data)
	}
}
