package types

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SectionContent is one rendered subdivision of a ReleaseNote.
type SectionContent struct {
	Section Section       `json:"section"`
	Title   string        `json:"title"`
	Body    string        `json:"body,omitempty"`
	Items   []ReleaseItem `json:"items"`
	Empty   EmptyPolicy   `json:"empty,omitempty"`
}

// IsEmpty reports whether the section has neither items nor static body.
func (s SectionContent) IsEmpty() bool {
	return len(s.Items) == 0 && s.Body == ""
}

// ReleaseNote is the single artifact a run produces.
type ReleaseNote struct {
	Version           string           `json:"version"`
	PreviousVersion   string           `json:"previous_version,omitempty"`
	Milestone         string           `json:"milestone,omitempty"`
	MinClusterVersion string           `json:"min_cluster_version,omitempty"`
	UpgradeFrom       string           `json:"upgrade_from,omitempty"`
	Sections          []SectionContent `json:"sections"`
	Contributors      []string         `json:"contributors,omitempty"`
	Repository        string           `json:"repository,omitempty"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// Section returns the content for s, if present.
func (n *ReleaseNote) Section(s Section) (SectionContent, bool) {
	for _, sc := range n.Sections {
		if sc.Section == s {
			return sc, true
		}
	}
	return SectionContent{}, false
}

// ItemCount returns the number of items across all sections.
func (n *ReleaseNote) ItemCount() int {
	total := 0
	for _, sc := range n.Sections {
		total += len(sc.Items)
	}
	return total
}

// LoadNote reads a ReleaseNote snapshot from a JSON file.
func LoadNote(path string) (*ReleaseNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading note %s: %w", path, err)
	}
	var n ReleaseNote
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parsing note %s: %w", path, err)
	}
	return &n, nil
}
