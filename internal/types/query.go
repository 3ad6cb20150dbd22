package types

import (
	"fmt"
	"strings"
	"time"
)

// TrackerQuery selects items from the issue tracker. It is never persisted.
type TrackerQuery struct {
	Owner     string
	Repo      string
	Milestone string   // milestone title; empty when querying by labels
	Labels    []string // all labels must match
	Since     time.Time
	PageSize  int
	Page      int // pagination cursor, 1-based
}

// String describes the query for logs.
func (q TrackerQuery) String() string {
	var parts []string
	if q.Milestone != "" {
		parts = append(parts, "milestone="+q.Milestone)
	}
	if len(q.Labels) > 0 {
		parts = append(parts, "labels="+strings.Join(q.Labels, ","))
	}
	if len(parts) == 0 {
		parts = append(parts, "all")
	}
	return fmt.Sprintf("%s/%s[%s]", q.Owner, q.Repo, strings.Join(parts, " "))
}
