// Package diff compares two release notes section by section.
package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/futureCreator/renote/internal/types"
)

// SectionDiff is the item-level change of one section between two notes.
type SectionDiff struct {
	Section   types.Section
	Title     string
	Added     []types.ReleaseItem
	Removed   []types.ReleaseItem
	Unchanged []types.ReleaseItem
}

// Changed reports whether the section gained or lost items.
func (d SectionDiff) Changed() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0
}

// Diff compares prev and cur. Sections follow cur's order, then sections only
// prev has. Items are matched by id; a nil prev makes every item Added.
// Neither note is modified.
func Diff(prev, cur *types.ReleaseNote) []SectionDiff {
	if prev == nil {
		prev = &types.ReleaseNote{}
	}
	if cur == nil {
		cur = &types.ReleaseNote{}
	}

	prevBy := map[types.Section]types.SectionContent{}
	for _, sc := range prev.Sections {
		prevBy[sc.Section] = sc
	}

	var out []SectionDiff
	seen := map[types.Section]bool{}
	for _, sc := range cur.Sections {
		seen[sc.Section] = true
		out = append(out, diffSection(sc.Section, sc.Title, prevBy[sc.Section].Items, sc.Items))
	}
	for _, sc := range prev.Sections {
		if seen[sc.Section] {
			continue
		}
		out = append(out, diffSection(sc.Section, sc.Title, sc.Items, nil))
	}
	return out
}

func diffSection(s types.Section, title string, prev, cur []types.ReleaseItem) SectionDiff {
	d := SectionDiff{Section: s, Title: title}
	if d.Title == "" {
		d.Title = types.DefaultTitles[s]
	}

	inPrev := make(map[int64]bool, len(prev))
	for _, it := range prev {
		inPrev[it.ID] = true
	}
	inCur := make(map[int64]bool, len(cur))
	for _, it := range cur {
		inCur[it.ID] = true
		if inPrev[it.ID] {
			d.Unchanged = append(d.Unchanged, it)
		} else {
			d.Added = append(d.Added, it)
		}
	}
	for _, it := range prev {
		if !inCur[it.ID] {
			d.Removed = append(d.Removed, it)
		}
	}
	return d
}

// HasChanges reports whether any section changed.
func HasChanges(diffs []SectionDiff) bool {
	for _, d := range diffs {
		if d.Changed() {
			return true
		}
	}
	return false
}

// CarriedOver returns the known issues listed in both notes, in cur's order.
func CarriedOver(prev, cur *types.ReleaseNote) []types.ReleaseItem {
	if prev == nil || cur == nil {
		return nil
	}
	p, ok := prev.Section(types.SectionKnownIssues)
	if !ok {
		return nil
	}
	c, ok := cur.Section(types.SectionKnownIssues)
	if !ok {
		return nil
	}
	return diffSection(types.SectionKnownIssues, "", p.Items, c.Items).Unchanged
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	countStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// Format writes a readable summary of diffs to w. Unchanged items are only
// counted. styled enables terminal colours.
func Format(w io.Writer, diffs []SectionDiff, styled bool) error {
	paint := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	if !HasChanges(diffs) {
		_, err := fmt.Fprintln(w, paint(countStyle, "No changes."))
		return err
	}

	var b strings.Builder
	for _, d := range diffs {
		if !d.Changed() {
			continue
		}
		counts := fmt.Sprintf("(+%d -%d =%d)", len(d.Added), len(d.Removed), len(d.Unchanged))
		fmt.Fprintf(&b, "%s %s\n", paint(titleStyle, "## "+d.Title), paint(countStyle, counts))
		for _, it := range d.Added {
			b.WriteString(paint(addedStyle, fmt.Sprintf("+ #%d %s", it.ID, it.Title)))
			b.WriteByte('\n')
		}
		for _, it := range d.Removed {
			b.WriteString(paint(removedStyle, fmt.Sprintf("- #%d %s", it.ID, it.Title)))
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
