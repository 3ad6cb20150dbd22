package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/futureCreator/renote/internal/assets"
	"github.com/futureCreator/renote/internal/config"
)

// inTempDir runs the test from an empty working directory with HOME pointing
// at another empty directory.
func inTempDir(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestStarterConfigLoadsAndValidates(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "starter.yaml")
	if err := os.WriteFile(path, assets.DefaultConfig(), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(starter): %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("starter config does not validate: %v", err)
	}
	if len(cfg.OrderedSections()) < 5 {
		t.Errorf("starter config lost the required sections: %+v", cfg.OrderedSections())
	}
}

func TestStarterRulesMatchDefaults(t *testing.T) {
	var starter config.Config
	if err := yaml.Unmarshal(assets.DefaultConfig(), &starter); err != nil {
		t.Fatalf("parsing starter config: %v", err)
	}
	want := config.Defaults().Classification.Rules
	if !reflect.DeepEqual(starter.Classification.Rules, want) {
		t.Errorf("starter rules differ from the built-in table:\n got %+v\nwant %+v", starter.Classification.Rules, want)
	}
}

func TestStarterConfigHasNoToken(t *testing.T) {
	content := string(assets.DefaultConfig())
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "token:") || strings.HasPrefix(trimmed, "github_token:") {
			t.Errorf("starter config must not carry a token field: %q", line)
		}
	}
}

func TestInitCreatesFiles(t *testing.T) {
	dir := inTempDir(t)
	initForce = false

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	for _, rel := range []string{
		filepath.Join(".renote", "config.yaml"),
		filepath.Join(".renote", "templates", "release-note.md.tpl"),
	} {
		data, err := os.ReadFile(filepath.Join(dir, rel))
		if err != nil {
			t.Fatalf("%s not created: %v", rel, err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", rel)
		}
	}
}

func TestInitSkipsWhenFileExists(t *testing.T) {
	dir := inTempDir(t)
	initForce = false

	configPath := filepath.Join(dir, ".renote", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		t.Fatal(err)
	}
	original := []byte("github:\n  owner: me\n")
	if err := os.WriteFile(configPath, original, 0644); err != nil {
		t.Fatal(err)
	}

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(original) {
		t.Errorf("runInit overwrote existing config: got %q, want %q", data, original)
	}
	if _, err := os.Stat(filepath.Join(dir, ".renote", "templates", "release-note.md.tpl")); err != nil {
		t.Errorf("template should still be written: %v", err)
	}
}

func TestInitForceOverwrites(t *testing.T) {
	dir := inTempDir(t)
	initForce = true
	defer func() { initForce = false }()

	configPath := filepath.Join(dir, ".renote", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(configPath, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit --force: %v", err)
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(assets.DefaultConfig()) {
		t.Error("runInit --force did not replace the config")
	}
}

func TestInitWritesEmbeddedTemplateOverUserOverride(t *testing.T) {
	dir := inTempDir(t)
	initForce = true
	defer func() { initForce = false }()

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatal(err)
	}
	name := assets.DefaultTemplate + assets.TemplateExt
	override := filepath.Join(home, ".renote", "templates", name)
	if err := os.MkdirAll(filepath.Dir(override), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(override, []byte("# personal {{ .Title }}\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := runInit(initCmd, nil); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	embedded, err := assets.AllTemplates()
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".renote", "templates", name))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != embedded[assets.DefaultTemplate] {
		t.Errorf("init wrote %q, want the embedded template", data)
	}
}
