// Package assets provides the embedded release-note template and the starter
// configuration written by init.
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// TemplateExt is the file extension of release-note templates.
const TemplateExt = ".md.tpl"

// DefaultTemplate is the name of the built-in template.
const DefaultTemplate = "release-note"

//go:embed templates/*.md.tpl
var templatesFS embed.FS

//go:embed config/config.yaml
var configFS embed.FS

// LoadTemplate returns a release-note template.
// ref is either a file path or a template name. Names are looked up in
// project .renote/templates/ > user ~/.renote/templates/ > embedded.
func LoadTemplate(ref string) (string, error) {
	if ref == "" {
		ref = DefaultTemplate
	}
	if strings.ContainsRune(ref, os.PathSeparator) || strings.HasSuffix(ref, TemplateExt) {
		data, err := os.ReadFile(ref)
		if err != nil {
			return "", fmt.Errorf("reading template: %w", err)
		}
		return string(data), nil
	}
	return loadWithOverride("templates", ref+TemplateExt, templatesFS)
}

// DefaultConfig returns the commented starter configuration.
func DefaultConfig() []byte {
	data, err := configFS.ReadFile("config/config.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded config missing: %v", err))
	}
	return data
}

// AllTemplates returns the embedded templates by name, ignoring project and
// user overrides.
func AllTemplates() (map[string]string, error) {
	return readAll(templatesFS, "templates", TemplateExt)
}

func loadWithOverride(dir, filename string, embedded embed.FS) (string, error) {
	// 1. project-level override
	projectPath := filepath.Join(".renote", dir, filename)
	if data, err := os.ReadFile(projectPath); err == nil {
		return string(data), nil
	}

	// 2. user-level override
	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".renote", dir, filename)
		if data, err := os.ReadFile(userPath); err == nil {
			return string(data), nil
		}
	}

	// 3. embedded default
	data, err := embedded.ReadFile(dir + "/" + filename)
	if err != nil {
		return "", fmt.Errorf("%s %q not found", dir, filename)
	}
	return string(data), nil
}

func readAll(fsys embed.FS, dir, ext string) (map[string]string, error) {
	result := map[string]string{}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		data, err := fsys.ReadFile(dir + "/" + name)
		if err != nil {
			return nil, err
		}
		result[strings.TrimSuffix(name, ext)] = string(data)
	}
	return result, nil
}
