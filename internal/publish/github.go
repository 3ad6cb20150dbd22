package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/futureCreator/renote/internal/github"
	"github.com/futureCreator/renote/internal/types"
)

// GitHubOptions configures a GitHub release.
type GitHubOptions struct {
	Repo       string // owner/name
	Target     string
	Draft      bool
	Prerelease bool
	Artifacts  []string
	Dir        string
}

// GitHubSink creates a GitHub release carrying the note through gh.
type GitHubSink struct {
	Options GitHubOptions

	create func(ctx context.Context, opts github.ReleaseOptions) (string, error)
}

func (s *GitHubSink) Publish(ctx context.Context, a Artifact) (string, error) {
	f, err := os.CreateTemp("", "renote-*.md")
	if err != nil {
		return "", fmt.Errorf("creating notes file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(a.Markdown); err != nil {
		f.Close()
		return "", fmt.Errorf("writing notes file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing notes file: %w", err)
	}

	create := s.create
	if create == nil {
		create = github.CreateRelease
	}
	return create(ctx, github.ReleaseOptions{
		Repo:       s.Options.Repo,
		Tag:        a.Tag,
		Title:      a.Title,
		NotesFile:  f.Name(),
		Target:     s.Options.Target,
		Draft:      s.Options.Draft,
		Prerelease: s.Options.Prerelease,
		Artifacts:  s.Options.Artifacts,
		Dir:        s.Options.Dir,
	})
}

func marshalNote(n *types.ReleaseNote) ([]byte, error) {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling note: %w", err)
	}
	return data, nil
}
