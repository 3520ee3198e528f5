package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/stencil-dev/stencil/internal/fetch"
	"github.com/stencil-dev/stencil/internal/fsutil"
	"github.com/stencil-dev/stencil/internal/remote"
	"github.com/stencil-dev/stencil/internal/store"
)

// Report aggregates the settled outcomes of one add invocation.
type Report struct {
	Successes int
	Failures  []string // human-readable, one per failed input
	Added     []store.Change
}

// Add registers each input as a project. Inputs matching the remote URL
// pattern are fetched from their origin; everything else is treated as
// a local path. Depth 0 registers the input itself; depth 1 registers
// each immediate non-hidden subdirectory as its own project.
//
// Local inputs run as one concurrent batch, then remote inputs as a
// second. A failed input never aborts its siblings; every outcome lands
// in the report. The registry is persisted once, after all attempts.
func (e *Engine) Add(ctx context.Context, inputs []string, depth int) (*Report, error) {
	if depth != 0 && depth != 1 {
		return nil, fmt.Errorf("depth must be 0 or 1, got %d", depth)
	}

	var locals, remotes []string
	for _, input := range inputs {
		if remote.Parse(input) != nil {
			remotes = append(remotes, input)
		} else {
			locals = append(locals, input)
		}
	}

	outcomes := runBatch(ctx, locals, func(ctx context.Context, input string) error {
		return e.addLocal(input, depth)
	})
	outcomes = append(outcomes, runBatch(ctx, remotes, func(ctx context.Context, input string) error {
		return e.addRemote(ctx, input, depth)
	})...)

	report := &Report{Added: e.store.Changes()}
	for _, oc := range outcomes {
		if oc.err != nil {
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", oc.input, oc.err))
		} else {
			report.Successes++
		}
	}

	if err := e.store.Save(); err != nil {
		return report, err
	}
	return report, nil
}

type outcome struct {
	input string
	err   error
}

// runBatch runs fn for every input concurrently and collects the
// settled outcomes in input order.
func runBatch(ctx context.Context, inputs []string, fn func(ctx context.Context, input string) error) []outcome {
	outcomes := make([]outcome, len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input string) {
			defer wg.Done()
			outcomes[i] = outcome{input: input, err: fn(ctx, input)}
		}(i, input)
	}
	wg.Wait()

	return outcomes
}

// addLocal registers a local directory (depth 0) or each of its
// immediate subdirectories (depth 1).
func (e *Engine) addLocal(input string, depth int) error {
	abs, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", input, err)
	}
	if !fsutil.IsDir(abs) {
		return fmt.Errorf("%w: %s", ErrNotADirectory, input)
	}

	if depth == 0 {
		e.store.Add(filepath.Base(abs), store.Record{Path: abs})
		return nil
	}

	subdirs, err := fsutil.Subdirs(abs)
	if err != nil {
		return err
	}
	for _, name := range subdirs {
		e.store.Add(name, store.Record{Path: filepath.Join(abs, name)})
	}
	return nil
}

// addRemote resolves the remote's HEAD, downloads the archive for that
// commit into the cache, unpacks it, and registers the result.
func (e *Engine) addRemote(ctx context.Context, input string, depth int) error {
	id := remote.Parse(input)
	if id == nil {
		return fmt.Errorf("%w: %s", ErrInvalidRemote, input)
	}

	hash, err := e.headHash(ctx, input)
	if err != nil {
		return fmt.Errorf("resolving HEAD of %s: %w", input, err)
	}

	dir, err := e.fetchIntoCache(ctx, id, hash)
	if err != nil {
		return err
	}

	rec := store.Record{Path: dir, Remote: input, Hash: hash}
	if depth == 0 {
		e.store.Add(id.Repo, rec)
		return nil
	}

	subdirs, err := fsutil.Subdirs(dir)
	if err != nil {
		return err
	}
	for _, name := range subdirs {
		sub := rec
		sub.Path = filepath.Join(dir, name)
		e.store.Add(name, sub)
	}
	return nil
}

// fetchIntoCache downloads the archive for an exact commit and unpacks
// it, leaving one normalized tree per repository in the cache.
func (e *Engine) fetchIntoCache(ctx context.Context, id *remote.Identifier, hash string) (string, error) {
	archivePath := filepath.Join(e.store.CacheDir(), fmt.Sprintf("%s-%s.zip", id.Repo, hash))

	if err := e.fetcher.Download(ctx, id.ArchiveURL(hash), archivePath); err != nil {
		return "", err
	}

	dir, err := fetch.Unpack(archivePath)
	if err != nil {
		return "", err
	}
	return dir, nil
}
