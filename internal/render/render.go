// Package render turns a ReleaseNote into markdown through a text/template
// document and checks the result for the fixed section layout.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/futureCreator/renote/internal/types"
)

// TemplateError reports a template that failed to parse or execute, an
// unresolved placeholder, or output whose headings are duplicated or out of
// order.
type TemplateError struct {
	Template    string
	Placeholder string
	Err         error
}

func (e *TemplateError) Error() string {
	if e.Placeholder != "" {
		return fmt.Sprintf("template %s: placeholder %q has no value; set it in note config or with a flag", e.Template, e.Placeholder)
	}
	return fmt.Sprintf("template %s: %v", e.Template, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// MissingSectionError reports a required section that would be absent from
// the rendered note.
type MissingSectionError struct {
	Section types.Section
	Title   string
	Reason  string
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("required section %q (%s) is missing: %s", e.Title, e.Section, e.Reason)
}

type unsetVarError struct{ name string }

func (e *unsetVarError) Error() string { return fmt.Sprintf("placeholder %q has no value", e.name) }

// Options tunes a Renderer.
type Options struct {
	Name     string // used in error messages
	Title    string // document title; defaults to "<repository> <version>"
	Vars     map[string]string
	PreNote  string
	PostNote string
}

// Renderer renders notes with one template.
type Renderer struct {
	src  string
	opts Options
}

// New returns a Renderer for template source src.
func New(src string, opts Options) *Renderer {
	if opts.Name == "" {
		opts.Name = "release-note"
	}
	return &Renderer{src: src, opts: opts}
}

// Render renders note with tmpl and default options.
func Render(note *types.ReleaseNote, tmpl string) (string, error) {
	return New(tmpl, Options{}).Render(note)
}

type noteView struct {
	Title             string
	Version           string
	PreviousVersion   string
	Milestone         string
	MinClusterVersion string
	UpgradeFrom       string
	Repository        string
	Sections          []sectionView
	Contributors      []string
	PreNote           string
	PostNote          string
	Vars              map[string]string
}

type sectionView struct {
	Key   types.Section
	Title string
	Body  string
	Items []types.ReleaseItem
	NA    bool
}

// Render produces the markdown for note. The whole document is built in
// memory; nothing is written on failure.
func (r *Renderer) Render(note *types.ReleaseNote) (string, error) {
	vars := r.vars(note)
	funcs := template.FuncMap{
		"var": func(name string) (string, error) {
			v := strings.TrimSpace(vars[name])
			if v == "" {
				return "", &unsetVarError{name: name}
			}
			return v, nil
		},
		"line": ItemLine,
		"join": strings.Join,
	}

	view := noteView{
		Title:             r.title(note),
		Version:           note.Version,
		PreviousVersion:   note.PreviousVersion,
		Milestone:         note.Milestone,
		MinClusterVersion: note.MinClusterVersion,
		UpgradeFrom:       note.UpgradeFrom,
		Repository:        note.Repository,
		Contributors:      note.Contributors,
		PreNote:           strings.TrimSpace(r.opts.PreNote),
		PostNote:          strings.TrimSpace(r.opts.PostNote),
		Vars:              vars,
	}

	present := map[types.Section]bool{}
	for _, sc := range note.Sections {
		present[sc.Section] = true
	}
	for _, req := range types.RequiredSections {
		if !present[req] {
			return "", &MissingSectionError{Section: req, Title: types.DefaultTitles[req], Reason: "not in note"}
		}
	}

	for _, sc := range note.Sections {
		sv := sectionView{Key: sc.Section, Title: sc.Title, Items: sc.Items}
		if sv.Title == "" {
			sv.Title = types.DefaultTitles[sc.Section]
		}
		if sc.Body != "" {
			body, err := execute(r.opts.Name+"/"+string(sc.Section), sc.Body, funcs, view)
			if err != nil {
				return "", err
			}
			sv.Body = strings.TrimSpace(body)
		}
		if len(sv.Items) == 0 && sv.Body == "" {
			switch sc.Empty {
			case types.EmptyNA:
				sv.NA = true
			case types.EmptyHeading:
			default:
				if sc.Section.IsRequired() {
					return "", &MissingSectionError{Section: sc.Section, Title: sv.Title,
						Reason: "no items, no body and no empty policy (set empty: na or empty: heading)"}
				}
				continue
			}
		}
		view.Sections = append(view.Sections, sv)
	}

	out, err := execute(r.opts.Name, r.src, funcs, view)
	if err != nil {
		return "", err
	}
	out = strings.TrimRight(out, "\n") + "\n"

	if err := checkHeadings(r.opts.Name, out, view.Sections); err != nil {
		return "", err
	}
	return out, nil
}

func (r *Renderer) vars(note *types.ReleaseNote) map[string]string {
	vars := make(map[string]string, len(r.opts.Vars)+6)
	for k, v := range r.opts.Vars {
		vars[k] = v
	}
	vars["version"] = note.Version
	vars["previous_version"] = note.PreviousVersion
	vars["milestone"] = note.Milestone
	vars["min_cluster_version"] = note.MinClusterVersion
	vars["upgrade_from"] = note.UpgradeFrom
	vars["repository"] = note.Repository
	return vars
}

func (r *Renderer) title(note *types.ReleaseNote) string {
	if r.opts.Title != "" {
		return r.opts.Title
	}
	if note.Repository != "" {
		return note.Repository + " " + note.Version
	}
	return note.Version
}

// Parse checks src for template syntax errors. Placeholders are not resolved.
func Parse(name, src string) (*template.Template, error) {
	funcs := template.FuncMap{
		"var":  func(string) (string, error) { return "", nil },
		"line": ItemLine,
		"join": strings.Join,
	}
	t, err := template.New(name).Funcs(funcs).Parse(src)
	if err != nil {
		return nil, &TemplateError{Template: name, Err: err}
	}
	return t, nil
}

func execute(name, src string, funcs template.FuncMap, data any) (string, error) {
	t, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", &TemplateError{Template: name, Err: err}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		var uv *unsetVarError
		if errors.As(err, &uv) {
			return "", &TemplateError{Template: name, Placeholder: uv.name, Err: err}
		}
		return "", &TemplateError{Template: name, Err: err}
	}
	return buf.String(), nil
}

// checkHeadings verifies that every required section heading appears exactly
// once and in the fixed order. Fenced code blocks are skipped.
func checkHeadings(name, out string, sections []sectionView) error {
	titles := map[types.Section]string{}
	for _, sv := range sections {
		titles[sv.Key] = sv.Title
	}

	positions := map[string][]int{}
	inFence := false
	for i, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.HasPrefix(line, "```") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "## ") {
			h := strings.TrimSpace(strings.TrimPrefix(line, "## "))
			positions[h] = append(positions[h], i)
		}
	}

	last := -1
	for _, req := range types.RequiredSections {
		title := titles[req]
		at := positions[title]
		switch len(at) {
		case 0:
			return &MissingSectionError{Section: req, Title: title, Reason: "heading not rendered by template"}
		case 1:
		default:
			return &TemplateError{Template: name, Err: fmt.Errorf("heading %q appears %d times", "## "+title, len(at))}
		}
		if at[0] < last {
			return &TemplateError{Template: name, Err: fmt.Errorf("heading %q is out of order", "## "+title)}
		}
		last = at[0]
	}
	return nil
}

// ItemLine formats one item as a markdown list entry:
// "- <title> [<id>](<url>) - @a @b".
func ItemLine(it types.ReleaseItem) string {
	var b strings.Builder
	b.WriteString("- ")
	b.WriteString(it.Title)
	b.WriteString(" [")
	b.WriteString(strconv.FormatInt(it.ID, 10))
	b.WriteString("](")
	b.WriteString(it.URL)
	b.WriteString(")")
	if as := it.Assignees(); len(as) > 0 {
		b.WriteString(" -")
		for _, a := range as {
			b.WriteString(" @")
			b.WriteString(a)
		}
	}
	return b.String()
}
