// Package engine orchestrates registry mutations: registering local
// directories and remote repositories (add) and materializing a
// registered project into a workspace, refreshing stale remote caches
// on the way (create).
package engine

import (
	"context"
	"errors"

	"github.com/stencil-dev/stencil/internal/fetch"
	"github.com/stencil-dev/stencil/internal/remote"
	"github.com/stencil-dev/stencil/internal/store"
)

// Failure classes surfaced to the CLI. Project-lookup misses reuse
// store.ErrNotFound.
var (
	ErrNotADirectory       = errors.New("not a directory")
	ErrAlreadyExists       = errors.New("target directory already exists")
	ErrSameSourceAndTarget = errors.New("source and target are the same directory")
	ErrSourceNotFound      = errors.New("project source is missing on disk")
	ErrInvalidRemote       = errors.New("invalid remote reference")
)

// HeadResolver looks up the commit hash a remote's HEAD points at.
type HeadResolver func(ctx context.Context, remoteURL string) (string, error)

// Engine owns the store for the duration of one command invocation.
type Engine struct {
	store    *store.Store
	fetcher  *fetch.Client
	headHash HeadResolver
}

// Option configures an Engine.
type Option func(*Engine)

// WithFetcher sets the archive download client.
func WithFetcher(f *fetch.Client) Option {
	return func(e *Engine) {
		e.fetcher = f
	}
}

// WithHeadResolver sets the remote HEAD lookup (useful for testing).
func WithHeadResolver(r HeadResolver) Option {
	return func(e *Engine) {
		e.headHash = r
	}
}

// New creates an Engine over s.
func New(s *store.Store, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:    s,
		headHash: remote.HeadHash,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.fetcher == nil {
		f, err := fetch.New()
		if err != nil {
			return nil, err
		}
		e.fetcher = f
	}

	return e, nil
}

// Store returns the engine's registry store.
func (e *Engine) Store() *store.Store {
	return e.store
}
