package github

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestCreateReleaseArgs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"renote-linux.tar.gz", "renote-darwin.tar.gz"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	ghExec = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		got = args
		return []byte("https://github.com/o/r/releases/tag/v1.2.0\n"), nil
	}

	url, err := CreateRelease(context.Background(), ReleaseOptions{
		Repo:       "o/r",
		Tag:        "v1.2.0",
		Title:      "Release v1.2.0",
		NotesFile:  "NOTE.md",
		Draft:      true,
		Prerelease: true,
		Artifacts:  []string{"*.tar.gz"},
		Dir:        dir,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://github.com/o/r/releases/tag/v1.2.0" {
		t.Errorf("unexpected url %q", url)
	}

	for _, want := range []string{"release", "create", "v1.2.0", "--notes-file", "--draft", "--prerelease", "--repo", "o/r"} {
		if !slices.Contains(got, want) {
			t.Errorf("expected %q in args %v", want, got)
		}
	}
	if got[len(got)-1] != filepath.Join(dir, "renote-linux.tar.gz") {
		t.Errorf("expected sorted assets at the end, got %v", got)
	}
}

func TestCreateReleaseFailure(t *testing.T) {
	ghExec = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte("HTTP 422: tag already exists"), errors.New("exit status 1")
	}
	_, err := CreateRelease(context.Background(), ReleaseOptions{Tag: "v1", NotesFile: "n.md"})
	if err == nil || !containsStr(err.Error(), "tag already exists") {
		t.Errorf("expected gh output in error, got %v", err)
	}
}

func TestExpandArtifactsNoMatch(t *testing.T) {
	if _, err := ExpandArtifacts(t.TempDir(), []string{"*.zip"}); err == nil {
		t.Error("expected error for unmatched pattern")
	}
}

func TestCreateReleaseRequiresTag(t *testing.T) {
	if _, err := CreateRelease(context.Background(), ReleaseOptions{NotesFile: "n.md"}); err == nil {
		t.Error("expected error without tag")
	}
}
