package gitrepo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leodido/go-conventionalcommits"
	ccparser "github.com/leodido/go-conventionalcommits/parser"
	"github.com/pkg/errors"
	"github.com/tsuyoshiwada/go-gitlog"
	"golang.org/x/sync/errgroup"

	vlog "github.com/futureCreator/renote/internal/log"
)

// Commit is one entry of a changelog.
type Commit struct {
	Hash     string
	Short    string
	Subject  string
	Author   string
	Type     string // conventional commit type, empty when the subject is free-form
	Breaking bool
}

// classifySubject fills Type and Breaking from a conventional commit subject
// such as "feat(api)!: drop v1".
func classifySubject(c *Commit) {
	m := ccparser.NewMachine(conventionalcommits.WithTypes(conventionalcommits.TypesConventional))
	msg, err := m.Parse([]byte(c.Subject))
	if err != nil || msg == nil || !msg.Ok() {
		return
	}
	if cc, ok := msg.(*conventionalcommits.ConventionalCommit); ok {
		c.Type = cc.Type
	}
	c.Breaking = msg.IsBreakingChange()
}

// Commits lists commits reachable from to but not from from, newest first.
func Commits(path, from, to string) ([]Commit, error) {
	git := gitlog.New(&gitlog.Config{Path: path})
	rev := &gitlog.RevRange{Old: from, New: to}

	raw, err := git.Log(rev, &gitlog.Params{IgnoreMerges: true})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to get commits %s", rev.Args())
	}

	commits := make([]Commit, 0, len(raw))
	for _, c := range raw {
		commit := Commit{Subject: strings.TrimSpace(c.Subject)}
		if c.Hash != nil {
			commit.Hash = c.Hash.Long
			commit.Short = c.Hash.Short
		}
		if c.Author != nil {
			commit.Author = c.Author.Name
		}
		classifySubject(&commit)
		commits = append(commits, commit)
	}
	return commits, nil
}

// ChangelogRequest describes one repository to summarise.
type ChangelogRequest struct {
	Path    string
	Name    string // heading; defaults to the directory name
	URL     string // web base for commit links, e.g. https://github.com/o/r
	Tag     string
	PrevTag string // found automatically when empty
	Public  bool
}

// Changelog renders the commit changelog of every request, concurrently, and
// joins the sections in request order. fold wraps each repository in a
// <details> block.
func Changelog(ctx context.Context, reqs []ChangelogRequest, fold bool, workers int) (string, error) {
	sections := make([]string, len(reqs))

	g, _ := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, req := range reqs {
		g.Go(func() error {
			s, err := repoChangelog(req, fold)
			if err != nil {
				return errors.Wrapf(err, "changelog for %s", req.Path)
			}
			sections[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(sections, "\n"), nil
}

func repoChangelog(req ChangelogRequest, fold bool) (string, error) {
	name := req.Name
	if name == "" {
		abs, err := filepath.Abs(req.Path)
		if err != nil {
			return "", errors.WithStack(err)
		}
		name = filepath.Base(abs)
	}

	prev := req.PrevTag
	if prev == "" {
		repo, err := Open(req.Path)
		if err != nil {
			return "", err
		}
		prev, err = PreviousTag(repo, req.Tag, req.Public)
		if err != nil {
			return "", err
		}
	}

	commits, err := Commits(req.Path, prev, req.Tag)
	if err != nil {
		return "", err
	}
	vlog.Info("changelog collected", "repo", name, "range", prev+".."+req.Tag, "commits", len(commits))

	var b strings.Builder
	for _, c := range commits {
		b.WriteString(CommitLine(c, req.URL))
		b.WriteByte('\n')
	}

	if fold {
		return fmt.Sprintf("<details>\n<summary>%s</summary>\n\n%s\n</details>\n", name, b.String()), nil
	}
	return fmt.Sprintf("### %s\n%s", name, b.String()), nil
}

// CommitLine formats a commit as "- <subject> [<short>](<url>) by <author>".
func CommitLine(c Commit, baseURL string) string {
	short := c.Short
	if len(c.Hash) >= 8 {
		short = c.Hash[:8]
	}
	line := "- " + c.Subject
	if baseURL != "" && c.Hash != "" {
		line += fmt.Sprintf(" [%s](%s/commit/%s)", short, strings.TrimRight(baseURL, "/"), c.Hash)
	} else if short != "" {
		line += " " + short
	}
	if c.Author != "" {
		line += " by " + c.Author
	}
	if c.Breaking {
		line += " **(breaking)**"
	}
	return line
}
