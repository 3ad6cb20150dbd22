package gitrepo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/pkg/errors"
)

// ErrTagExists is returned by CreateTag when the tag exists and Force is off.
var ErrTagExists = errors.New("tag already exists")

// TagOptions describes a release tag.
type TagOptions struct {
	Name   string
	Branch string // tags the tip of this local or origin branch; "" tags HEAD
	// Message makes an annotated tag.
	Message string
	Tagger  *object.Signature
	Force   bool
}

// CreateTag creates the tag and returns the commit it points at. An existing
// tag is replaced only with Force.
func CreateTag(repo *git.Repository, opts TagOptions) (plumbing.Hash, error) {
	target, err := resolveBranch(repo, opts.Branch)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	if _, err := repo.Tag(opts.Name); err == nil {
		if !opts.Force {
			return plumbing.ZeroHash, errors.Wrap(ErrTagExists, opts.Name)
		}
		if err := repo.DeleteTag(opts.Name); err != nil {
			return plumbing.ZeroHash, errors.Wrapf(err, "deleting tag %s", opts.Name)
		}
	} else if !errors.Is(err, git.ErrTagNotFound) {
		return plumbing.ZeroHash, errors.Wrapf(err, "looking up tag %s", opts.Name)
	}

	var create *git.CreateTagOptions
	if opts.Message != "" {
		tagger := opts.Tagger
		if tagger == nil {
			tagger = &object.Signature{Name: "renote", Email: "renote@users.noreply.github.com", When: time.Now()}
		}
		create = &git.CreateTagOptions{Tagger: tagger, Message: opts.Message}
	}
	if _, err := repo.CreateTag(opts.Name, target, create); err != nil {
		return plumbing.ZeroHash, errors.Wrapf(err, "creating tag %s", opts.Name)
	}
	return target, nil
}

func resolveBranch(repo *git.Repository, branch string) (plumbing.Hash, error) {
	if branch == "" {
		ref, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, errors.Wrap(err, "resolving HEAD")
		}
		return ref.Hash(), nil
	}
	for _, name := range []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(branch),
		plumbing.NewRemoteReferenceName("origin", branch),
	} {
		if ref, err := repo.Reference(name, true); err == nil {
			return ref.Hash(), nil
		}
	}
	return plumbing.ZeroHash, errors.Errorf("branch %s not found", branch)
}

// TokenAuth authenticates HTTPS pushes to GitHub with a token.
func TokenAuth(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "x-access-token", Password: token}
}

// PushTag pushes the tag to remote. force overwrites a remote tag of the same
// name. A remote that already has the tag is not an error.
func PushTag(ctx context.Context, repo *git.Repository, remote, tag string, auth transport.AuthMethod, force bool) error {
	ref := plumbing.NewTagReferenceName(tag)
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("%s:%s", ref, ref))},
		Auth:       auth,
		Force:      force,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return errors.Wrapf(err, "pushing tag %s to %s", tag, remote)
	}
	return nil
}
