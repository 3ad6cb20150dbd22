// Package classify assigns release items to note sections using a versioned
// label table.
package classify

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/futureCreator/renote/internal/config"
	"github.com/futureCreator/renote/internal/types"
)

// Rule maps a label pattern to a section. Label may be a path.Match glob.
type Rule struct {
	Label      string
	Section    types.Section
	Precedence int
}

// AmbiguousLabelError reports an item whose strongest labels point to
// different sections.
type AmbiguousLabelError struct {
	ItemID   int64
	Labels   []string
	Sections []types.Section
}

func (e *AmbiguousLabelError) Error() string {
	secs := make([]string, len(e.Sections))
	for i, s := range e.Sections {
		secs[i] = string(s)
	}
	return fmt.Sprintf("item #%d: labels %s map to conflicting sections %s",
		e.ItemID, strings.Join(e.Labels, ","), strings.Join(secs, ","))
}

// UnclassifiedError reports an item no rule matched.
type UnclassifiedError struct {
	ItemID int64
	Labels []string
}

func (e *UnclassifiedError) Error() string {
	if len(e.Labels) == 0 {
		return fmt.Sprintf("item #%d has no labels", e.ItemID)
	}
	return fmt.Sprintf("item #%d: no section for labels %s", e.ItemID, strings.Join(e.Labels, ","))
}

// Classifier holds a validated label table.
type Classifier struct {
	version int
	rules   []Rule
}

// New validates rules and returns a Classifier for table version.
func New(version int, rules []Rule) (*Classifier, error) {
	if version != config.ClassificationVersion {
		return nil, fmt.Errorf("classification table version %d is not supported (want %d)",
			version, config.ClassificationVersion)
	}
	for _, r := range rules {
		if r.Label == "" {
			return nil, fmt.Errorf("classification rule for section %q has an empty label", r.Section)
		}
		if _, err := path.Match(r.Label, ""); err != nil {
			return nil, fmt.Errorf("classification rule %q: %w", r.Label, err)
		}
		if r.Section == "" {
			return nil, fmt.Errorf("classification rule %q has no section", r.Label)
		}
	}
	return &Classifier{version: version, rules: slices.Clone(rules)}, nil
}

// FromConfig builds a Classifier from the configuration table.
func FromConfig(c config.ClassificationConfig) (*Classifier, error) {
	rules := make([]Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		rules = append(rules, Rule{Label: r.Label, Section: types.Section(r.Section), Precedence: r.Precedence})
	}
	return New(c.Version, rules)
}

// Classify returns the section for item. Among matching rules the highest
// precedence wins; a tie between different sections is an
// AmbiguousLabelError and no match is an UnclassifiedError.
func (c *Classifier) Classify(item types.ReleaseItem) (types.Section, error) {
	labels := item.Labels()

	best := 0
	var sections []types.Section
	var matched []string
	for _, r := range c.rules {
		for _, l := range labels {
			ok, _ := path.Match(r.Label, l)
			if !ok {
				continue
			}
			switch {
			case sections == nil || r.Precedence > best:
				best = r.Precedence
				sections = []types.Section{r.Section}
				matched = []string{l}
			case r.Precedence == best:
				if !slices.Contains(sections, r.Section) {
					sections = append(sections, r.Section)
				}
				if !slices.Contains(matched, l) {
					matched = append(matched, l)
				}
			}
		}
	}

	switch len(sections) {
	case 0:
		return "", &UnclassifiedError{ItemID: item.ID, Labels: labels}
	case 1:
		return sections[0], nil
	}
	slices.Sort(sections)
	slices.Sort(matched)
	return "", &AmbiguousLabelError{ItemID: item.ID, Labels: matched, Sections: sections}
}

// Assignment pairs an item with its section.
type Assignment struct {
	Item    types.ReleaseItem
	Section types.Section
}

// Result collects the outcome of ClassifyAll. Classification problems are
// kept for triage; they never abort a run.
type Result struct {
	Classified   []Assignment
	Unclassified []*UnclassifiedError
	Ambiguous    []*AmbiguousLabelError
}

// Warnings returns every classification problem, ambiguous items first.
func (r Result) Warnings() []error {
	out := make([]error, 0, len(r.Ambiguous)+len(r.Unclassified))
	for _, e := range r.Ambiguous {
		out = append(out, e)
	}
	for _, e := range r.Unclassified {
		out = append(out, e)
	}
	return out
}

// ClassifyAll classifies items in order.
func (c *Classifier) ClassifyAll(items []types.ReleaseItem) Result {
	var res Result
	for _, it := range items {
		sec, err := c.Classify(it)
		switch e := err.(type) {
		case nil:
			res.Classified = append(res.Classified, Assignment{Item: it, Section: sec})
		case *AmbiguousLabelError:
			res.Ambiguous = append(res.Ambiguous, e)
		case *UnclassifiedError:
			res.Unclassified = append(res.Unclassified, e)
		}
	}
	return res
}
