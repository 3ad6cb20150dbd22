package github

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ghExec runs gh with a context in dir and returns combined output.
// Tests replace it.
var ghExec = func(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// ReleaseOptions contains options for creating a GitHub release.
type ReleaseOptions struct {
	Repo       string // owner/name; empty uses the checkout in Dir
	Tag        string
	Title      string
	NotesFile  string
	Target     string // commitish the tag is created from
	Draft      bool
	Prerelease bool
	Artifacts  []string // glob patterns, resolved relative to Dir
	Dir        string
}

// CreateRelease creates a release with the rendered notes and uploads the
// artifacts. It returns the release URL that gh prints.
func CreateRelease(ctx context.Context, opts ReleaseOptions) (string, error) {
	if opts.Tag == "" {
		return "", fmt.Errorf("release tag is required")
	}
	if opts.NotesFile == "" {
		return "", fmt.Errorf("release notes file is required")
	}

	assets, err := ExpandArtifacts(opts.Dir, opts.Artifacts)
	if err != nil {
		return "", err
	}

	args := []string{"release", "create", opts.Tag, "--notes-file", opts.NotesFile}
	if opts.Repo != "" {
		args = append(args, "--repo", opts.Repo)
	}
	if opts.Title != "" {
		args = append(args, "--title", opts.Title)
	}
	if opts.Target != "" {
		args = append(args, "--target", opts.Target)
	}
	if opts.Draft {
		args = append(args, "--draft")
	}
	if opts.Prerelease {
		args = append(args, "--prerelease")
	}
	args = append(args, assets...)

	out, err := ghExec(ctx, opts.Dir, args...)
	if err != nil {
		return "", fmt.Errorf("gh release create: %s: %w", strings.TrimSpace(string(out)), err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

// ExpandArtifacts resolves glob patterns to a sorted, de-duplicated file list.
// A pattern that matches nothing is an error.
func ExpandArtifacts(dir string, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, p := range patterns {
		full := p
		if dir != "" && !filepath.IsAbs(p) {
			full = filepath.Join(dir, p)
		}
		matches, err := filepath.Glob(full)
		if err != nil {
			return nil, fmt.Errorf("bad artifact pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("artifact pattern %q matched no files", p)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
