// Package remote resolves remote repository references: parsing clone
// URLs, looking up the current HEAD commit, and building archive
// download URLs for an exact commit.
package remote

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// urlPattern matches a strict https clone URL: https://<host>/<owner>/<repo>.git.
var urlPattern = regexp.MustCompile(`^https://([^/]+)/([^/]+)/([^/]+)\.git$`)

// hashPattern matches a full 40-hex commit id.
var hashPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Identifier is a parsed remote repository reference. It is recomputed
// from the stored remote URL whenever needed, never persisted.
type Identifier struct {
	Host  string
	Owner string
	Repo  string
}

// Parse matches src against the clone URL pattern. It returns nil when
// src does not match, so callers can treat unmatched input as a local
// path rather than an error.
func Parse(src string) *Identifier {
	m := urlPattern.FindStringSubmatch(src)
	if m == nil {
		return nil
	}
	return &Identifier{Host: m[1], Owner: m[2], Repo: m[3]}
}

// ArchiveURL returns the download URL for the repository archived at an
// exact commit: https://<host>/<owner>/<repo>/archive/<hash>.zip.
func (id *Identifier) ArchiveURL(hash string) string {
	return fmt.Sprintf("https://%s/%s/%s/archive/%s.zip", id.Host, id.Owner, id.Repo, hash)
}

// HeadHash returns the commit hash the remote's HEAD points at, using
// `git ls-remote`. The context bounds the lookup.
func HeadHash(ctx context.Context, remoteURL string) (string, error) {
	if err := ensureGit(); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, "git", "ls-remote", remoteURL, "HEAD")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("listing remote refs for %s: %w\n%s", remoteURL, err, strings.TrimSpace(string(output)))
	}

	return ParseLsRemote(string(output))
}

// ParseLsRemote extracts the commit hash from `git ls-remote` output:
// the first whitespace-delimited field of the first line.
func ParseLsRemote(output string) (string, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	if len(fields) == 0 || !hashPattern.MatchString(fields[0]) {
		return "", fmt.Errorf("no commit hash in ls-remote output %q", line)
	}
	return fields[0], nil
}

// ensureGit checks that git is available on PATH.
func ensureGit() error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git is required but not found in PATH")
	}
	return nil
}
