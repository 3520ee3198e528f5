package fetch

import (
	"archive/zip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	f, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestDownloadWritesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "archive-bytes")
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "repo.zip")
	if err := newTestClient(t).Download(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "archive-bytes" {
		t.Errorf("downloaded %q, want %q", data, "archive-bytes")
	}
}

func TestDownloadFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "redirected-content")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "repo.zip")
	if err := newTestClient(t).Download(context.Background(), srv.URL+"/start", dest); err != nil {
		t.Fatalf("Download: %v", err)
	}

	data, _ := os.ReadFile(dest)
	if string(data) != "redirected-content" {
		t.Errorf("downloaded %q, want %q", data, "redirected-content")
	}
}

func TestDownloadCapsRedirectHops(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Redirect to self forever.
		http.Redirect(w, r, r.URL.Path, http.StatusFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "repo.zip")
	err := newTestClient(t).Download(context.Background(), srv.URL+"/loop", dest)
	if err == nil {
		t.Fatal("expected error for redirect loop")
	}
	if !strings.Contains(err.Error(), "too many redirects") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDownloadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "repo.zip")
	err := newTestClient(t).Download(context.Background(), srv.URL, dest)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should embed status code: %v", err)
	}
}

// writeArchive creates a zip at path whose entries live under rootName.
func writeArchive(t *testing.T, path, rootName string, files map[string]string) {
	t.Helper()

	out, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for name, content := range files {
		w, err := zw.Create(rootName + "/" + name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestUnpackNormalizesRootName(t *testing.T) {
	cacheDir := t.TempDir()
	archive := filepath.Join(cacheDir, "widgets-a94a8fe.zip")
	writeArchive(t, archive, "widgets-a94a8fe", map[string]string{
		"README.md":    "# widgets",
		"src/index.js": "module.exports = {}",
	})

	dir, err := Unpack(archive)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}

	if dir != filepath.Join(cacheDir, "widgets") {
		t.Errorf("Unpack = %q, want %q", dir, filepath.Join(cacheDir, "widgets"))
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "index.js")); err != nil {
		t.Error("extracted file missing")
	}
	if _, err := os.Stat(archive); err == nil {
		t.Error("archive file should be deleted after unpack")
	}
}

func TestUnpackReplacesExistingTree(t *testing.T) {
	cacheDir := t.TempDir()

	first := filepath.Join(cacheDir, "widgets-1111111.zip")
	writeArchive(t, first, "widgets-1111111", map[string]string{"old.txt": "old"})
	if _, err := Unpack(first); err != nil {
		t.Fatalf("first Unpack: %v", err)
	}

	second := filepath.Join(cacheDir, "widgets-2222222.zip")
	writeArchive(t, second, "widgets-2222222", map[string]string{"new.txt": "new"})
	if _, err := Unpack(second); err != nil {
		t.Fatalf("second Unpack: %v", err)
	}

	// Exactly one tree, with only the second archive's content.
	entries, err := os.ReadDir(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "widgets" {
		t.Errorf("cache entries = %v, want single widgets dir", entries)
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "widgets", "old.txt")); err == nil {
		t.Error("stale file from first unpack should be gone")
	}
	if _, err := os.Stat(filepath.Join(cacheDir, "widgets", "new.txt")); err != nil {
		t.Error("file from second unpack missing")
	}
}

func TestUnpackRejectsEscapingEntries(t *testing.T) {
	cacheDir := t.TempDir()
	archive := filepath.Join(cacheDir, "evil-1234567.zip")

	out, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(out)
	w, err := zw.Create("../escape.txt")
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("nope"))
	zw.Close()
	out.Close()

	if _, err := Unpack(archive); err == nil {
		t.Fatal("expected error for path traversal entry")
	}
}
