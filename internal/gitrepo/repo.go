// Package gitrepo reads tags and commit history from local git checkouts.
package gitrepo

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
)

// ErrNoPreviousTag is returned when no tag precedes the requested one.
var ErrNoPreviousTag = errors.New("previous tag not found")

// HeadInfo holds the current git state of a checkout.
type HeadInfo struct {
	Branch  string
	Commit  string
	IsDirty bool
}

// Open opens the repository containing path.
func Open(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrapf(err, "opening git repository at %s", path)
	}
	return repo, nil
}

// Head gathers branch, short commit and dirty state.
func Head(repo *git.Repository) (*HeadInfo, error) {
	ref, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, "resolving HEAD")
	}

	info := &HeadInfo{Commit: ref.Hash().String()[:7]}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	} else {
		info.Branch = "HEAD"
	}

	wt, err := repo.Worktree()
	if errors.Is(err, git.ErrIsBareRepository) {
		return info, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening worktree")
	}
	status, err := wt.Status()
	if err != nil {
		return nil, errors.Wrap(err, "checking git status")
	}
	info.IsDirty = !status.IsClean()
	return info, nil
}

// Tag is a semver tag of the repository.
type Tag struct {
	Name    string
	Version *semver.Version
	Hash    plumbing.Hash
}

// Tags returns the repository's semver tags, newest version first. Tags that
// are not semantic versions are skipped.
func Tags(repo *git.Repository) ([]Tag, error) {
	iter, err := repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "listing tags")
	}
	defer iter.Close()

	var tags []Tag
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		v, err := semver.NewVersion(name)
		if err != nil {
			return nil
		}
		tags = append(tags, Tag{Name: name, Version: v, Hash: ref.Hash()})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "reading tags")
	}

	sort.SliceStable(tags, func(i, j int) bool {
		if c := tags[i].Version.Compare(tags[j].Version); c != 0 {
			return c > 0
		}
		return tags[i].Name < tags[j].Name
	})
	return tags, nil
}

// PreviousTag returns the highest version tag below tag. With public set,
// prereleases are skipped. An empty tag returns the newest tag.
func PreviousTag(repo *git.Repository, tag string, public bool) (string, error) {
	tags, err := Tags(repo)
	if err != nil {
		return "", err
	}

	var current *semver.Version
	if tag != "" {
		current, err = semver.NewVersion(tag)
		if err != nil {
			return "", errors.Wrapf(err, "tag %q is not a semantic version", tag)
		}
	}

	for _, t := range tags {
		if current != nil && !t.Version.LessThan(current) {
			continue
		}
		if public && t.Version.Prerelease() != "" {
			continue
		}
		return t.Name, nil
	}
	return "", errors.WithStack(ErrNoPreviousTag)
}

// IsPrerelease reports whether tag parses as a semver prerelease.
func IsPrerelease(tag string) bool {
	v, err := semver.NewVersion(strings.TrimSpace(tag))
	return err == nil && v.Prerelease() != ""
}
