package fetch

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// hashSuffix matches the trailing commit-hash segment of an extracted
// archive root directory, e.g. "widgets-a94a8fe" or a full 40-hex id.
var hashSuffix = regexp.MustCompile(`-[0-9a-f]{7,40}$`)

// Unpack extracts the zip archive into its parent directory, removes
// the archive file, and normalizes the extracted root directory name by
// stripping the trailing "-<hash>" suffix. An existing directory at the
// normalized path is replaced, so re-fetching the same repository at
// any hash leaves exactly one cache tree.
//
// Returns the path of the normalized directory.
func Unpack(archivePath string) (string, error) {
	parent := filepath.Dir(archivePath)

	root, err := extract(archivePath, parent)
	if err != nil {
		return "", err
	}

	if err := os.Remove(archivePath); err != nil {
		return "", fmt.Errorf("removing archive %s: %w", archivePath, err)
	}

	normalized := hashSuffix.ReplaceAllString(root, "")
	extractedDir := filepath.Join(parent, root)
	normalizedDir := filepath.Join(parent, normalized)

	if normalized == root {
		return extractedDir, nil
	}

	// Replace any previous cache tree at the normalized path.
	if err := os.RemoveAll(normalizedDir); err != nil {
		return "", fmt.Errorf("removing existing directory %s: %w", normalizedDir, err)
	}
	if err := os.Rename(extractedDir, normalizedDir); err != nil {
		return "", fmt.Errorf("renaming %s to %s: %w", extractedDir, normalizedDir, err)
	}

	return normalizedDir, nil
}

// extract unpacks every entry of the zip into destDir and returns the
// name of the single top-level directory the archive contains.
func extract(archivePath, destDir string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer r.Close()

	root := ""
	for _, f := range r.File {
		name := filepath.Clean(f.Name)
		if name == "." || strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return "", fmt.Errorf("archive entry %q escapes extraction directory", f.Name)
		}

		top, _, _ := strings.Cut(name, string(filepath.Separator))
		if root == "" {
			root = top
		} else if top != root {
			return "", fmt.Errorf("archive has multiple top-level entries: %q and %q", root, top)
		}

		destPath := filepath.Join(destDir, name)
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(destPath, 0755); err != nil {
				return "", fmt.Errorf("creating directory %s: %w", destPath, err)
			}
			continue
		}

		if err := extractFile(f, destPath); err != nil {
			return "", err
		}
	}

	if root == "" {
		return "", fmt.Errorf("archive %s is empty", archivePath)
	}
	return root, nil
}

// extractFile writes a single zip entry to destPath.
func extractFile(f *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", destPath, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", destPath, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return out.Close()
}
