package gitrepo

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sig = &object.Signature{Name: "Dev", Email: "dev@example.com", When: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}

// commitFile writes a file and commits it, returning the commit hash.
func commitFile(t *testing.T, repo *git.Repository, fs billy.Filesystem, name, content, msg string) plumbing.Hash {
	t.Helper()
	f, err := fs.Create(name)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	h, err := wt.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)
	return h
}

func setupTaggedRepo(t *testing.T, tags ...string) *git.Repository {
	t.Helper()
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)

	for i, tag := range tags {
		h := commitFile(t, repo, fs, "VERSION", tag, "release "+tag)
		_, err := repo.CreateTag(tag, h, nil)
		require.NoError(t, err, "tag %d", i)
	}
	return repo
}

func TestPreviousTag(t *testing.T) {
	repo := setupTaggedRepo(t, "v1.0.0", "v1.1.0-rc1", "v1.1.0", "v1.2.0-rc1", "not-semver", "v1.2.0")

	cases := []struct {
		name    string
		tag     string
		public  bool
		want    string
		wantErr bool
	}{
		{name: "newest when no tag", want: "v1.2.0"},
		{name: "previous includes prerelease", tag: "v1.2.0", want: "v1.2.0-rc1"},
		{name: "public skips prerelease", tag: "v1.2.0", public: true, want: "v1.1.0"},
		{name: "tag not yet created", tag: "v1.3.0", want: "v1.2.0"},
		{name: "rc of next minor", tag: "v1.2.0-rc1", want: "v1.1.0"},
		{name: "nothing before first", tag: "v1.0.0", wantErr: true},
		{name: "invalid tag", tag: "latest", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PreviousTag(repo, tc.tag, tc.public)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPreviousTagNoTags(t *testing.T) {
	repo := setupTaggedRepo(t)
	_, err := PreviousTag(repo, "v1.0.0", false)
	assert.ErrorIs(t, err, ErrNoPreviousTag)
}

func TestTagsSkipsNonSemver(t *testing.T) {
	repo := setupTaggedRepo(t, "v0.9.0", "nightly", "v1.0.0")
	tags, err := Tags(repo)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "v1.0.0", tags[0].Name)
	assert.Equal(t, "v0.9.0", tags[1].Name)
}

func TestHead(t *testing.T) {
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)
	h := commitFile(t, repo, fs, "a.txt", "a", "first")

	info, err := Head(repo)
	require.NoError(t, err)
	assert.Equal(t, "master", info.Branch)
	assert.Equal(t, h.String()[:7], info.Commit)
	assert.False(t, info.IsDirty)

	require.NoError(t, writeFile(fs, "a.txt", "changed"))
	info, err = Head(repo)
	require.NoError(t, err)
	assert.True(t, info.IsDirty)
}

func writeFile(fs billy.Filesystem, name, content string) error {
	f, err := fs.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(content)); err != nil {
		return err
	}
	return f.Close()
}

func TestIsPrerelease(t *testing.T) {
	assert.True(t, IsPrerelease("v1.2.0-rc1"))
	assert.False(t, IsPrerelease("v1.2.0"))
	assert.False(t, IsPrerelease("main"))
}

func TestCommitLine(t *testing.T) {
	c := Commit{Hash: "0123456789abcdef", Short: "0123456", Subject: "Fix retry", Author: "Dev"}
	assert.Equal(t, "- Fix retry [01234567](https://github.com/o/r/commit/0123456789abcdef) by Dev",
		CommitLine(c, "https://github.com/o/r/"))
	assert.Equal(t, "- Fix retry 0123456 by Dev", CommitLine(Commit{Short: "0123456", Subject: "Fix retry", Author: "Dev"}, ""))
}

func TestClassifySubject(t *testing.T) {
	cases := []struct {
		subject  string
		typ      string
		breaking bool
	}{
		{"feat(api)!: drop v1 endpoints", "feat", true},
		{"fix: retry on 502", "fix", false},
		{"Fix retry", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.subject, func(t *testing.T) {
			c := Commit{Subject: tc.subject}
			classifySubject(&c)
			assert.Equal(t, tc.typ, c.Type)
			assert.Equal(t, tc.breaking, c.Breaking)
		})
	}

	line := CommitLine(Commit{Short: "abc1234", Subject: "feat!: new layout", Breaking: true}, "")
	assert.Equal(t, "- feat!: new layout abc1234 **(breaking)**", line)
}

// The changelog shells out to git through go-gitlog.
func TestChangelogOnDisk(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)
	commit := func(msg string) plumbing.Hash {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "log.txt"), []byte(msg), 0o644))
		_, err := wt.Add("log.txt")
		require.NoError(t, err)
		h, err := wt.Commit(msg, &git.CommitOptions{Author: sig, Committer: sig})
		require.NoError(t, err)
		return h
	}

	h1 := commit("Initial import")
	_, err = repo.CreateTag("v1.0.0", h1, nil)
	require.NoError(t, err)
	commit("Add retries")
	h3 := commit("Fix pagination")
	_, err = repo.CreateTag("v1.1.0", h3, nil)
	require.NoError(t, err)

	out, err := Changelog(context.Background(), []ChangelogRequest{{Path: dir, Name: "renote", Tag: "v1.1.0"}}, false, 2)
	require.NoError(t, err)
	assert.Contains(t, out, "### renote\n")
	assert.Contains(t, out, "- Fix pagination")
	assert.Contains(t, out, "- Add retries")
	assert.NotContains(t, out, "Initial import")

	folded, err := Changelog(context.Background(), []ChangelogRequest{{Path: dir, Name: "renote", Tag: "v1.1.0", PrevTag: "v1.0.0"}}, true, 1)
	require.NoError(t, err)
	assert.Contains(t, folded, "<details>\n<summary>renote</summary>")
}
