package types

// Section names a subdivision of the release note.
type Section string

const (
	SectionInstallation   Section = "installation"
	SectionUpgrade        Section = "upgrade"
	SectionDeprecation    Section = "deprecation"
	SectionKnownIssues    Section = "known-issues"
	SectionResolvedIssues Section = "resolved-issues"
)

// RequiredSections lists the sections every release note carries, in
// document order.
var RequiredSections = []Section{
	SectionInstallation,
	SectionUpgrade,
	SectionDeprecation,
	SectionKnownIssues,
	SectionResolvedIssues,
}

// DefaultTitles maps required sections to their headings.
var DefaultTitles = map[Section]string{
	SectionInstallation:   "Installation",
	SectionUpgrade:        "Upgrade",
	SectionDeprecation:    "Deprecation & Incompatibilities",
	SectionKnownIssues:    "Known Issues",
	SectionResolvedIssues: "Resolved Issues",
}

// IsRequired reports whether s is one of RequiredSections.
func (s Section) IsRequired() bool {
	for _, r := range RequiredSections {
		if r == s {
			return true
		}
	}
	return false
}

// EmptyPolicy tells the renderer what to do with a section that has no items
// and no static body.
type EmptyPolicy string

const (
	// EmptyFail makes an empty required section a rendering error.
	EmptyFail EmptyPolicy = ""
	// EmptyNA renders the section with an explicit "N/A" marker.
	EmptyNA EmptyPolicy = "na"
	// EmptyHeading renders the bare heading.
	EmptyHeading EmptyPolicy = "heading"
)
