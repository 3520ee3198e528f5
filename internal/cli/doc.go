// Package cli defines the Cobra command tree for the stencil CLI. Each file
// in this package registers one top-level command (list, add, remove, create)
// with the root command. Command implementations delegate to the store and
// sync engine for business logic and only handle flag parsing and output
// formatting.
package cli
