package gitrepo

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTag(t *testing.T) {
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)
	first := commitFile(t, repo, fs, "VERSION", "v1.6.0-rc1", "first")

	got, err := CreateTag(repo, TagOptions{Name: "v1.6.0"})
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := commitFile(t, repo, fs, "VERSION", "v1.6.0", "second")

	_, err = CreateTag(repo, TagOptions{Name: "v1.6.0"})
	assert.ErrorIs(t, err, ErrTagExists)
	ref, err := repo.Tag("v1.6.0")
	require.NoError(t, err)
	assert.Equal(t, first, ref.Hash(), "tag must not move without force")

	got, err = CreateTag(repo, TagOptions{Name: "v1.6.0", Force: true, Message: "release v1.6.0", Tagger: sig})
	require.NoError(t, err)
	assert.Equal(t, second, got)

	ref, err = repo.Tag("v1.6.0")
	require.NoError(t, err)
	obj, err := repo.TagObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, second, obj.Target)
	assert.Equal(t, "release v1.6.0\n", obj.Message)
}

func TestCreateTagOnBranch(t *testing.T) {
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)
	head := commitFile(t, repo, fs, "VERSION", "v1", "first")

	got, err := CreateTag(repo, TagOptions{Name: "v1.0.0", Branch: "master"})
	require.NoError(t, err)
	assert.Equal(t, head, got)

	_, err = CreateTag(repo, TagOptions{Name: "v1.0.1", Branch: "v1.0.x"})
	assert.Error(t, err)
}

func TestPushTag(t *testing.T) {
	remoteDir := t.TempDir()
	_, err := git.PlainInit(remoteDir, true)
	require.NoError(t, err)

	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{remoteDir}})
	require.NoError(t, err)

	first := commitFile(t, repo, fs, "VERSION", "a", "first")
	_, err = CreateTag(repo, TagOptions{Name: "v1.0.0"})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, PushTag(ctx, repo, "origin", "v1.0.0", nil, false))
	require.NoError(t, PushTag(ctx, repo, "origin", "v1.0.0", nil, false), "pushing an unchanged tag is a no-op")

	remote, err := git.PlainOpen(remoteDir)
	require.NoError(t, err)
	ref, err := remote.Tag("v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, first, ref.Hash())

	second := commitFile(t, repo, fs, "VERSION", "b", "second")
	_, err = CreateTag(repo, TagOptions{Name: "v1.0.0", Force: true})
	require.NoError(t, err)
	require.NoError(t, PushTag(ctx, repo, "origin", "v1.0.0", nil, true))

	ref, err = remote.Tag("v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, second, ref.Hash())
}

func TestTokenAuth(t *testing.T) {
	assert.Nil(t, TokenAuth(""))
	assert.NotNil(t, TokenAuth("ghp_x"))
}
