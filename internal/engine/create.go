package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stencil-dev/stencil/internal/fsutil"
	"github.com/stencil-dev/stencil/internal/remote"
	"github.com/stencil-dev/stencil/internal/store"
)

// CreateResult reports what Create did.
type CreateResult struct {
	Target    string
	Refreshed bool     // the remote cache was re-fetched before copying
	Warnings  []string // non-fatal degradations, e.g. stale-check failure
}

// Create materializes the named project into targetDir (defaulting to
// ./<name>). For remote-backed projects the remote's HEAD is re-checked
// first: a changed hash triggers a re-fetch of the cache, a failed
// lookup degrades to the cached copy with a warning. The registry is
// persisted immediately after a successful refresh.
func (e *Engine) Create(ctx context.Context, name, targetDir string, overwrite bool) (*CreateResult, error) {
	rec, ok := e.store.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}

	result := &CreateResult{}

	if rec.RemoteBacked() {
		refreshed, warning, err := e.refresh(ctx, name, &rec)
		if err != nil {
			return nil, err
		}
		result.Refreshed = refreshed
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}

	target := targetDir
	if target == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		target = filepath.Join(cwd, name)
	}
	target, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolving target %s: %w", target, err)
	}
	result.Target = target

	source, err := filepath.Abs(rec.Path)
	if err != nil {
		return nil, fmt.Errorf("resolving source %s: %w", rec.Path, err)
	}
	if target == source {
		return nil, fmt.Errorf("%w: %s", ErrSameSourceAndTarget, target)
	}
	if !fsutil.IsDir(source) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}

	if overwrite {
		if err := os.RemoveAll(target); err != nil {
			return nil, fmt.Errorf("removing target %s: %w", target, err)
		}
	} else if _, err := os.Stat(target); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, target)
	}

	if err := fsutil.CopyDir(source, target); err != nil {
		return nil, fmt.Errorf("copying %s to %s: %w", source, target, err)
	}

	return result, nil
}

// refresh re-checks the remote HEAD for a remote-backed record and
// re-fetches the cache when the hash has drifted. A failed HEAD lookup
// is non-fatal: the cached copy is served with a warning. On a
// successful refresh the updated record is persisted before returning.
func (e *Engine) refresh(ctx context.Context, name string, rec *store.Record) (bool, string, error) {
	head, err := e.headHash(ctx, rec.Remote)
	if err != nil {
		return false, fmt.Sprintf("could not check %s for updates, using cached copy: %v", rec.Remote, err), nil
	}
	if head == rec.Hash {
		return false, "", nil
	}

	id := remote.Parse(rec.Remote)
	if id == nil {
		return false, "", fmt.Errorf("%w: %s", ErrInvalidRemote, rec.Remote)
	}

	// Re-unpacking replaces the tree at the same normalized cache path,
	// so rec.Path stays valid for both whole-repo and subdirectory
	// entries; only the hash moves.
	if _, err := e.fetchIntoCache(ctx, id, head); err != nil {
		return false, "", fmt.Errorf("refreshing %s: %w", name, err)
	}

	rec.Hash = head
	e.store.Set(name, *rec)
	if err := e.store.Save(); err != nil {
		return false, "", err
	}

	return true, "", nil
}
