package run

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/futureCreator/renote/internal/types"
)

const (
	MetaFile = "meta.json"
	NoteFile = "note.json"
	MDFile   = "NOTE.md"
)

// Run represents a single generate invocation.
type Run struct {
	ID   string
	Dir  string
	Meta Meta
}

// Meta holds metadata about a run, persisted to meta.json.
type Meta struct {
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at,omitempty"`
	Repository  string        `json:"repository"`
	Tag         string        `json:"tag"`
	PreviousTag string        `json:"previous_tag,omitempty"`
	Milestone   string        `json:"milestone,omitempty"`
	Status      string        `json:"status"` // "running" | "completed" | "failed"
	Stages      []StageResult `json:"stages"`
	Items       int           `json:"items"`
	Warnings    []string      `json:"warnings,omitempty"`
	Requests    int           `json:"requests"`
	Output      string        `json:"output,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// StageResult records the outcome of a single stage.
type StageResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"` // "completed" | "failed" | "skipped"
	Items      int    `json:"items"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// Info identifies what a run is generating.
type Info struct {
	Repository  string
	Tag         string
	PreviousTag string
	Milestone   string
}

// Dir returns the runs directory below a state directory.
func Dir(stateDir string) string {
	return filepath.Join(stateDir, "runs")
}

// New creates a new run directory under <stateDir>/runs/.
func New(stateDir string, info Info) (*Run, error) {
	now := time.Now()
	ms := now.UnixMilli() % 1000
	id := fmt.Sprintf("%s-%03d-%s",
		now.Format("20060102-150405"),
		ms,
		sanitizeSlug(info.Repository+"-"+info.Tag),
	)

	baseDir := Dir(stateDir)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating runs dir: %w", err)
	}

	dir := filepath.Join(baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating run dir: %w", err)
	}

	r := &Run{
		ID:  id,
		Dir: dir,
		Meta: Meta{
			StartedAt:   now,
			Repository:  info.Repository,
			Tag:         info.Tag,
			PreviousTag: info.PreviousTag,
			Milestone:   info.Milestone,
			Status:      "running",
		},
	}

	if err := r.SaveMeta(); err != nil {
		return nil, err
	}
	return r, nil
}

// SaveMeta writes meta.json to the run directory.
func (r *Run) SaveMeta() error {
	data, err := json.MarshalIndent(r.Meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	return r.WriteFile(MetaFile, string(data))
}

// AddStage appends a stage result.
func (r *Run) AddStage(sr StageResult) error {
	r.Meta.Stages = append(r.Meta.Stages, sr)
	return r.SaveMeta()
}

// Complete marks the run as completed, persists the note and its markdown,
// and points the "latest" link at this run.
func (r *Run) Complete(note *types.ReleaseNote, markdown string) error {
	data, err := json.MarshalIndent(note, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling note: %w", err)
	}
	if err := r.WriteFile(NoteFile, string(data)); err != nil {
		return err
	}
	if err := r.WriteFile(MDFile, markdown); err != nil {
		return err
	}

	r.Meta.Status = "completed"
	r.Meta.FinishedAt = time.Now()
	r.Meta.Items = note.ItemCount()
	if err := r.SaveMeta(); err != nil {
		return err
	}
	return updateLatestLink(filepath.Dir(r.Dir), r.ID)
}

// Fail marks the run as failed with an error message.
func (r *Run) Fail(msg string) error {
	r.Meta.Status = "failed"
	r.Meta.FinishedAt = time.Now()
	r.Meta.Error = msg
	return r.SaveMeta()
}

// FilePath returns the path to a file within this run directory.
func (r *Run) FilePath(name string) string {
	return filepath.Join(r.Dir, name)
}

// WriteFile atomically writes content to a named file in the run directory.
func (r *Run) WriteFile(name, content string) error {
	path := r.FilePath(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// Summary is a past run as listed by List.
type Summary struct {
	ID   string
	Dir  string
	Meta Meta
}

// List returns past runs newest first. Directories without a readable
// meta.json are skipped.
func List(stateDir string) ([]Summary, error) {
	runsDir := Dir(stateDir)
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading runs dir: %w", err)
	}

	var out []Summary
	for _, e := range entries {
		if !e.IsDir() || e.Name() == "latest" {
			continue
		}
		dir := filepath.Join(runsDir, e.Name())
		data, err := os.ReadFile(filepath.Join(dir, MetaFile))
		if err != nil {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		out = append(out, Summary{ID: e.Name(), Dir: dir, Meta: meta})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Meta.StartedAt.After(out[j].Meta.StartedAt)
	})
	return out, nil
}

// ResolveNote maps a --previous reference to a note.json path: "latest", a
// run id, a run directory, or a path to a note file.
func ResolveNote(stateDir, ref string) (string, error) {
	candidates := []string{ref}
	if ref == "latest" || !strings.ContainsRune(ref, os.PathSeparator) {
		candidates = append([]string{filepath.Join(Dir(stateDir), ref, NoteFile)}, candidates...)
	}
	candidates = append(candidates, filepath.Join(ref, NoteFile))

	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("no release note found for %q", ref)
}

// updateLatestLink atomically updates the "latest" symlink.
func updateLatestLink(baseDir, id string) error {
	latestPath := filepath.Join(baseDir, "latest")
	tmpPath := latestPath + ".tmp"

	// Remove any stale tmp link
	os.Remove(tmpPath)

	if err := os.Symlink(id, tmpPath); err != nil {
		return fmt.Errorf("creating temp symlink: %w", err)
	}
	if err := os.Rename(tmpPath, latestPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("updating latest symlink: %w", err)
	}
	return nil
}

var nonAlphanumRe = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeSlug converts a string to a URL-friendly slug.
func sanitizeSlug(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = s[:40]
		s = strings.TrimRight(s, "-")
	}
	if s == "" {
		s = "run"
	}
	return s
}
