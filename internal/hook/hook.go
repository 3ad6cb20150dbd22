// Package hook runs the user-supplied filter command that removes items from
// a release note.
package hook

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	vlog "github.com/futureCreator/renote/internal/log"
)

// Result holds the output of a hook run.
type Result struct {
	IDs      sets.Set[int64]
	Output   string
	Duration time.Duration
}

// FilterIDs runs command through sh -c in dir and parses its stdout as one
// item number per line. Blank lines are ignored and a leading '#' is allowed.
func FilterIDs(ctx context.Context, command, dir string) (*Result, error) {
	start := time.Now()
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("filter hook: no command specified")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		output := stdout.String()
		if stderr.Len() > 0 {
			output += "\n--- stderr ---\n" + stderr.String()
		}
		return nil, fmt.Errorf("filter hook %q failed: %w\noutput: %s", command, err, output)
	}

	ids, err := ParseIDs(stdout.String())
	if err != nil {
		return nil, fmt.Errorf("filter hook %q: %w", command, err)
	}
	vlog.Debug("filter hook finished", "command", command, "ids", ids.Len())

	return &Result{
		IDs:      ids,
		Output:   stdout.String(),
		Duration: time.Since(start),
	}, nil
}

// ParseIDs parses one item number per line.
func ParseIDs(out string) (sets.Set[int64], error) {
	ids := sets.New[int64]()
	for i, line := range strings.Split(out, "\n") {
		line = strings.TrimPrefix(strings.TrimSpace(line), "#")
		if line == "" {
			continue
		}
		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("line %d: %q is not an item number", i+1, line)
		}
		ids.Insert(id)
	}
	return ids, nil
}
