// Package publish delivers a rendered release note to its destination: a
// local file, stdout, an S3 object, or a GitHub release.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/futureCreator/renote/internal/types"
)

// Artifact is what a sink publishes.
type Artifact struct {
	Markdown string
	Note     *types.ReleaseNote
	Tag      string
	Title    string
}

// Sink publishes an artifact and returns where it went.
type Sink interface {
	Publish(ctx context.Context, a Artifact) (string, error)
}

// Options carries sink settings that do not fit in the target string.
type Options struct {
	Stdout   io.Writer
	S3Region string
	GitHub   GitHubOptions
}

// Open picks a sink for target: "" or "-" is stdout, "s3://bucket/key" is an
// S3 object, "github" is a GitHub release, anything else is a file path.
func Open(ctx context.Context, target string, opts Options) (Sink, error) {
	switch {
	case target == "" || target == "-":
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		return &WriterSink{W: w}, nil
	case strings.HasPrefix(target, "s3://"):
		return NewS3Sink(ctx, target, opts.S3Region)
	case target == "github":
		return &GitHubSink{Options: opts.GitHub}, nil
	default:
		return &FileSink{Path: target}, nil
	}
}

// WriterSink writes the markdown to a stream.
type WriterSink struct {
	W io.Writer
}

func (s *WriterSink) Publish(_ context.Context, a Artifact) (string, error) {
	if _, err := io.WriteString(s.W, a.Markdown); err != nil {
		return "", fmt.Errorf("writing note: %w", err)
	}
	return "stdout", nil
}

// FileSink writes the markdown to a file. The file appears complete or not
// at all.
type FileSink struct {
	Path string
}

func (s *FileSink) Publish(_ context.Context, a Artifact) (string, error) {
	if err := WriteFileAtomic(s.Path, []byte(a.Markdown), 0o644); err != nil {
		return "", err
	}
	return s.Path, nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
