package pipeline

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/futureCreator/renote/internal/config"
	"github.com/futureCreator/renote/internal/diff"
	vlog "github.com/futureCreator/renote/internal/log"
	"github.com/futureCreator/renote/internal/types"
)

// Request carries the per-invocation inputs of a generate run. Everything
// else comes from the engine's Config.
type Request struct {
	Tag         string
	PreviousTag string
	Milestone   string
	Template    string // template source
	Previous    *types.ReleaseNote
}

// Result is the outcome of a successful run.
type Result struct {
	Note        *types.ReleaseNote
	Markdown    string
	Diffs       []diff.SectionDiff
	CarriedOver []types.ReleaseItem
	Warnings    []error
}

// Queries builds the tracker queries for a run: the milestone query and, when
// extra labels are configured, a label query. Both honour the since window.
func Queries(cfg *config.Config, milestone string, now time.Time) ([]types.TrackerQuery, error) {
	since := sinceTime(cfg, now)
	base := types.TrackerQuery{
		Owner:    cfg.GitHub.Owner,
		Repo:     cfg.GitHub.Repo,
		Since:    since,
		PageSize: cfg.Fetch.PageSize,
	}

	var qs []types.TrackerQuery
	if milestone != "" {
		q := base
		q.Milestone = milestone
		qs = append(qs, q)
	}
	if len(cfg.Filter.Labels) > 0 {
		q := base
		q.Labels = append([]string(nil), cfg.Filter.Labels...)
		qs = append(qs, q)
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("nothing to query: pass --milestone or configure filter.labels")
	}
	return qs, nil
}

func sinceTime(cfg *config.Config, now time.Time) time.Time {
	if cfg.Filter.SinceDays <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -cfg.Filter.SinceDays).UTC()
}

// BuildNote assembles a ReleaseNote from grouped items in the configured
// section order.
func BuildNote(cfg *config.Config, req Request, groups map[types.Section][]types.ReleaseItem, now time.Time) *types.ReleaseNote {
	note := &types.ReleaseNote{
		Version:           req.Tag,
		PreviousVersion:   req.PreviousTag,
		Milestone:         req.Milestone,
		MinClusterVersion: cfg.Note.MinClusterVersion,
		UpgradeFrom:       cfg.Note.UpgradeFrom,
		Repository:        cfg.GitHub.Repo,
		GeneratedAt:       now.UTC(),
	}
	if note.UpgradeFrom == "" {
		note.UpgradeFrom = req.PreviousTag
	}

	contributors := sets.New[string]()
	for _, sc := range cfg.OrderedSections() {
		key := types.Section(sc.Key)
		items := groups[key]
		note.Sections = append(note.Sections, types.SectionContent{
			Section: key,
			Title:   sc.Title,
			Body:    sc.Body,
			Items:   items,
			Empty:   types.EmptyPolicy(sc.Empty),
		})
		for _, it := range items {
			contributors.Insert(it.Assignees()...)
		}
	}

	if cfg.Note.Contributors {
		contributors.Insert(cfg.Note.ExtraContributors...)
		contributors.Delete("")
		note.Contributors = sets.List(contributors)
	}
	return note
}

// CheckUpgradePath warns when the previous version does not satisfy the
// configured upgrade constraint.
func CheckUpgradePath(note *types.ReleaseNote) error {
	if note.UpgradeFrom == "" || note.PreviousVersion == "" {
		return nil
	}
	c, err := semver.NewConstraint(note.UpgradeFrom)
	if err != nil {
		return fmt.Errorf("upgrade_from %q is not a version constraint: %w", note.UpgradeFrom, err)
	}
	v, err := semver.NewVersion(note.PreviousVersion)
	if err != nil {
		return nil
	}
	if !c.Check(v) {
		return fmt.Errorf("previous version %s does not satisfy upgrade_from %q", note.PreviousVersion, note.UpgradeFrom)
	}
	return nil
}

// ReadNoteText resolves a pre/post note reference. A path to an existing file
// yields its content; anything else is used as inline text.
func ReadNoteText(ref string) string {
	if ref == "" {
		return ""
	}
	fi, err := os.Stat(ref)
	if err != nil || fi.IsDir() {
		vlog.Warn("note file not found, using value as text", "ref", ref)
		return ref
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		vlog.Warn("reading note file failed, using value as text", "ref", ref, "err", err)
		return ref
	}
	return strings.TrimSpace(string(data))
}
