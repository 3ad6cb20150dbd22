package run

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/futureCreator/renote/internal/types"
)

func TestSanitizeSlug(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"longhorn-v1.6.0", "longhorn-v1-6-0"},
		{"Renote v2.0.0-rc.1", "renote-v2-0-0-rc-1"},
		{"  spaces  ", "spaces"},
		{"", "run"},
		{"123-abc", "123-abc"},
		{strings.Repeat("a", 50), strings.Repeat("a", 40)},
	}
	for _, tt := range tests {
		got := sanitizeSlug(tt.input)
		if got != tt.want {
			t.Errorf("sanitizeSlug(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNewAndComplete(t *testing.T) {
	state := t.TempDir()

	r, err := New(state, Info{Repository: "renote", Tag: "v1.2.0", Milestone: "v1.2.0"})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if r.Meta.Status != "running" {
		t.Errorf("expected status 'running', got %q", r.Meta.Status)
	}
	if _, err := os.Stat(r.FilePath(MetaFile)); err != nil {
		t.Errorf("meta.json not created: %v", err)
	}
	if _, err := os.Readlink(filepath.Join(state, "runs", "latest")); err == nil {
		t.Error("latest must not point at an unfinished run")
	}

	if err := r.AddStage(StageResult{Name: "fetch", Status: "completed", Items: 2}); err != nil {
		t.Fatalf("AddStage() error: %v", err)
	}

	note := &types.ReleaseNote{
		Version: "v1.2.0",
		Sections: []types.SectionContent{{
			Section: types.SectionResolvedIssues,
			Items:   []types.ReleaseItem{types.NewReleaseItem(types.ItemSpec{ID: 1, Title: "fix"})},
		}},
	}
	if err := r.Complete(note, "# renote v1.2.0\n"); err != nil {
		t.Fatalf("Complete() error: %v", err)
	}

	latestTarget, err := os.Readlink(filepath.Join(state, "runs", "latest"))
	if err != nil {
		t.Fatalf("latest symlink not created: %v", err)
	}
	if latestTarget != r.ID {
		t.Errorf("latest symlink points to %q, want %q", latestTarget, r.ID)
	}

	loaded, err := types.LoadNote(r.FilePath(NoteFile))
	if err != nil {
		t.Fatalf("LoadNote() error: %v", err)
	}
	if loaded.ItemCount() != 1 {
		t.Errorf("expected 1 item in saved note, got %d", loaded.ItemCount())
	}
	md, err := os.ReadFile(r.FilePath(MDFile))
	if err != nil || string(md) != "# renote v1.2.0\n" {
		t.Errorf("unexpected NOTE.md %q (%v)", md, err)
	}
}

func TestFail(t *testing.T) {
	r, err := New(t.TempDir(), Info{Repository: "renote", Tag: "v1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Fail("boom"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(r.FilePath(MDFile)); !os.IsNotExist(err) {
		t.Error("a failed run must not leave NOTE.md behind")
	}
	if r.Meta.Status != "failed" || r.Meta.Error != "boom" {
		t.Errorf("unexpected meta %+v", r.Meta)
	}
}

func TestListNewestFirst(t *testing.T) {
	state := t.TempDir()
	first, err := New(state, Info{Repository: "a", Tag: "v1"})
	if err != nil {
		t.Fatal(err)
	}
	first.Meta.StartedAt = time.Now().Add(-time.Hour)
	if err := first.SaveMeta(); err != nil {
		t.Fatal(err)
	}
	second, err := New(state, Info{Repository: "b", Tag: "v2"})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(Dir(state), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err := List(state)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Errorf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestListMissingDir(t *testing.T) {
	runs, err := List(filepath.Join(t.TempDir(), "nope"))
	if err != nil || runs != nil {
		t.Errorf("expected no runs and no error, got %v, %v", runs, err)
	}
}

func TestResolveNote(t *testing.T) {
	state := t.TempDir()
	r, err := New(state, Info{Repository: "renote", Tag: "v1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Complete(&types.ReleaseNote{Version: "v1"}, "x\n"); err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{"latest", r.ID, r.Dir, r.FilePath(NoteFile)} {
		got, err := ResolveNote(state, ref)
		if err != nil {
			t.Errorf("ResolveNote(%q) error: %v", ref, err)
			continue
		}
		if _, err := types.LoadNote(got); err != nil {
			t.Errorf("ResolveNote(%q) = %q is not loadable: %v", ref, got, err)
		}
	}
	if _, err := ResolveNote(state, "missing"); err == nil {
		t.Error("expected error for unknown reference")
	}
}
