// Package aggregate merges fetched batches, filters them, and groups
// classified items into ordered sections.
package aggregate

import (
	"slices"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/futureCreator/renote/internal/classify"
	vlog "github.com/futureCreator/renote/internal/log"
	"github.com/futureCreator/renote/internal/types"
)

// Merge flattens batches into one list keyed by item id. A later copy of an
// id replaces the earlier one only when it differs; the first-seen position
// is kept either way.
func Merge(batches [][]types.ReleaseItem) []types.ReleaseItem {
	index := make(map[int64]int)
	var out []types.ReleaseItem
	for _, batch := range batches {
		for _, it := range batch {
			if i, ok := index[it.ID]; ok {
				if !out[i].Equal(it) {
					out[i] = it
				}
				continue
			}
			index[it.ID] = len(out)
			out = append(out, it)
		}
	}
	return out
}

// FilterOptions selects which merged items reach classification.
type FilterOptions struct {
	ExcludeLabels       []string
	Since               time.Time // zero means no lower bound
	IncludePullRequests bool
	ExcludeIDs          sets.Set[int64]
}

// Filter drops items that carry an excluded label, were closed before Since,
// are pull requests (unless included), or are listed in ExcludeIDs.
// Open items are never dropped by Since.
func Filter(items []types.ReleaseItem, opts FilterOptions) []types.ReleaseItem {
	exclude := sets.New(opts.ExcludeLabels...)
	out := make([]types.ReleaseItem, 0, len(items))
	for _, it := range items {
		switch {
		case exclude.HasAny(it.Labels()...):
			vlog.Debug("item dropped", "id", it.ID, "reason", "excluded label")
		case !opts.Since.IsZero() && !it.ClosedAt.IsZero() && it.ClosedAt.Before(opts.Since):
			vlog.Debug("item dropped", "id", it.ID, "reason", "closed before window")
		case it.IsPullRequest() && !opts.IncludePullRequests:
			vlog.Debug("item dropped", "id", it.ID, "reason", "pull request")
		case opts.ExcludeIDs.Has(it.ID):
			vlog.Debug("item dropped", "id", it.ID, "reason", "filter hook")
		default:
			out = append(out, it)
		}
	}
	return out
}

// Group buckets classified items by section. Items superseded by another item
// of the same run are removed, and each section is sorted by close time with
// ties broken by id. Items without a close time sort last. A supersession
// chain keeps its last item; a cycle keeps its highest id.
func Group(classified []classify.Assignment) map[types.Section][]types.ReleaseItem {
	next := make(map[int64]int64, len(classified))
	for _, a := range classified {
		next[a.Item.ID] = a.Item.SupersededBy
	}

	seen := sets.New[int64]()
	groups := make(map[types.Section][]types.ReleaseItem)
	for _, a := range classified {
		it := a.Item
		if seen.Has(it.ID) {
			continue
		}
		if s := survivor(next, it.ID); s != it.ID {
			vlog.Debug("item superseded", "id", it.ID, "by", s)
			continue
		}
		seen.Insert(it.ID)
		groups[a.Section] = append(groups[a.Section], it)
	}

	for _, items := range groups {
		slices.SortStableFunc(items, compareItems)
	}
	return groups
}

// survivor follows the supersession chain from id through items present in
// next and returns the item that stays in the note.
func survivor(next map[int64]int64, id int64) int64 {
	var path []int64
	pos := map[int64]int{}
	cur := id
	for {
		if i, ok := pos[cur]; ok {
			return slices.Max(path[i:])
		}
		pos[cur] = len(path)
		path = append(path, cur)
		succ := next[cur]
		if _, ok := next[succ]; !ok || succ == 0 || succ == cur {
			return cur
		}
		cur = succ
	}
}

func compareItems(a, b types.ReleaseItem) int {
	az, bz := a.ClosedAt.IsZero(), b.ClosedAt.IsZero()
	switch {
	case az && !bz:
		return 1
	case !az && bz:
		return -1
	}
	if c := a.ClosedAt.Compare(b.ClosedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
