// Package types holds shared data structures used across packages.
package types

import (
	"encoding/json"
	"slices"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
)

// ItemKind distinguishes issues from pull requests.
type ItemKind string

const (
	KindIssue       ItemKind = "issue"
	KindPullRequest ItemKind = "pull_request"
)

// ReleaseItem is a tracked issue or pull request closed against a release.
// It is immutable once built: NewReleaseItem copies its inputs and the
// accessors hand out copies.
type ReleaseItem struct {
	ID           int64
	Title        string
	URL          string
	ClosedAt     time.Time
	Kind         ItemKind
	SupersededBy int64 // 0 when the item is not superseded

	labels    sets.Set[string]
	assignees []string
}

// ItemSpec carries the fields used to build a ReleaseItem.
type ItemSpec struct {
	ID           int64
	Title        string
	URL          string
	Labels       []string
	Assignees    []string
	ClosedAt     time.Time
	Kind         ItemKind
	SupersededBy int64
}

// NewReleaseItem builds an immutable item from its fields.
func NewReleaseItem(s ItemSpec) ReleaseItem {
	kind := s.Kind
	if kind == "" {
		kind = KindIssue
	}
	assignees := slices.Clone(s.Assignees)
	slices.Sort(assignees)
	return ReleaseItem{
		ID:           s.ID,
		Title:        s.Title,
		URL:          s.URL,
		ClosedAt:     s.ClosedAt.UTC(),
		Kind:         kind,
		SupersededBy: s.SupersededBy,
		labels:       sets.New(s.Labels...),
		assignees:    slices.Compact(assignees),
	}
}

// Labels returns the item's labels, sorted.
func (i ReleaseItem) Labels() []string {
	return sets.List(i.labels)
}

// HasLabel reports whether the item carries label.
func (i ReleaseItem) HasLabel(label string) bool {
	return i.labels.Has(label)
}

// Assignees returns the item's assignee logins, sorted.
func (i ReleaseItem) Assignees() []string {
	return slices.Clone(i.assignees)
}

// IsPullRequest reports whether the item is a pull request.
func (i ReleaseItem) IsPullRequest() bool {
	return i.Kind == KindPullRequest
}

// Equal reports whether two items carry identical tracker state.
func (i ReleaseItem) Equal(o ReleaseItem) bool {
	return i.ID == o.ID &&
		i.Title == o.Title &&
		i.URL == o.URL &&
		i.ClosedAt.Equal(o.ClosedAt) &&
		i.Kind == o.Kind &&
		i.SupersededBy == o.SupersededBy &&
		i.labels.Equal(o.labels) &&
		slices.Equal(i.assignees, o.assignees)
}

type itemJSON struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url,omitempty"`
	Labels       []string  `json:"labels"`
	Assignees    []string  `json:"assignees,omitempty"`
	ClosedAt     time.Time `json:"closed_at"`
	Kind         ItemKind  `json:"kind"`
	SupersededBy int64     `json:"superseded_by,omitempty"`
}

func (i ReleaseItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(itemJSON{
		ID:           i.ID,
		Title:        i.Title,
		URL:          i.URL,
		Labels:       i.Labels(),
		Assignees:    i.assignees,
		ClosedAt:     i.ClosedAt,
		Kind:         i.Kind,
		SupersededBy: i.SupersededBy,
	})
}

func (i *ReleaseItem) UnmarshalJSON(data []byte) error {
	var raw itemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = NewReleaseItem(ItemSpec(raw))
	return nil
}
