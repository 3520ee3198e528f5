// Package fsutil provides the filesystem primitives shared by the store
// and the sync engine: directory checks, recursive copy with a fixed
// ignore set, and subdirectory enumeration.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ignoredNames are files/directories excluded from copies and from
// depth-1 project enumeration: version-control metadata, OS artifacts,
// and dependency-install trees.
var ignoredNames = map[string]bool{
	".git":         true,
	".DS_Store":    true,
	"node_modules": true,
}

// Ignored returns true if the name is excluded from copies and listings.
func Ignored(name string) bool {
	return ignoredNames[name]
}

// IsDir reports whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Subdirs returns the names of the immediate subdirectories of dir,
// excluding hidden directories and entries in the ignore set.
func Subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") || Ignored(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// CopyDir recursively copies src to dst, excluding entries in the ignore
// set. Symlinks and other special files are skipped.
func CopyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if Ignored(entry.Name()) {
			continue
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := CopyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else if entry.Type().IsRegular() {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, srcInfo.Mode())
}
