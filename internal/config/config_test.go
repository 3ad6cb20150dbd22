package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/futureCreator/renote/internal/types"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Fetch.PageSize != 100 {
		t.Errorf("expected page size 100, got %d", cfg.Fetch.PageSize)
	}
	if cfg.GitHub.TokenEnv != "GITHUB_TOKEN" {
		t.Errorf("expected token env GITHUB_TOKEN, got %q", cfg.GitHub.TokenEnv)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should be valid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"page size too large", func(c *Config) { c.Fetch.PageSize = 500 }},
		{"no workers", func(c *Config) { c.Fetch.Workers = 0 }},
		{"bad timeout", func(c *Config) { c.Fetch.Timeout = "soon" }},
		{"unsupported table version", func(c *Config) { c.Classification.Version = 2 }},
		{"rule for unknown section", func(c *Config) {
			c.Classification.Rules = append(c.Classification.Rules, LabelRule{Label: "x", Section: "nowhere"})
		}},
		{"duplicate section key", func(c *Config) {
			c.Sections = append(c.Sections, SectionConfig{Key: "upgrade"})
		}},
		{"unknown empty policy", func(c *Config) { c.Sections[0].Empty = "maybe" }},
		{"bad min cluster version", func(c *Config) { c.Note.MinClusterVersion = "latest" }},
		{"bad upgrade constraint", func(c *Config) { c.Note.UpgradeFrom = ">>> 1" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestValidateTarget(t *testing.T) {
	cfg := Defaults()
	if err := cfg.ValidateTarget(); err == nil {
		t.Error("expected error without owner/repo")
	}
	cfg.GitHub.Owner, cfg.GitHub.Repo = "longhorn", "longhorn"
	if err := cfg.ValidateTarget(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOrderedSections(t *testing.T) {
	cfg := Defaults()
	cfg.Sections = []SectionConfig{
		{Key: "highlights", Title: "Highlights"},
		{Key: "resolved-issues", Title: "Fixed"},
	}
	got := cfg.OrderedSections()
	if len(got) != 6 {
		t.Fatalf("expected 6 sections, got %d", len(got))
	}
	for i, req := range types.RequiredSections {
		if got[i].Key != string(req) {
			t.Errorf("position %d: expected %s, got %s", i, req, got[i].Key)
		}
	}
	if got[4].Title != "Fixed" {
		t.Errorf("expected configured title to win, got %q", got[4].Title)
	}
	if got[1].Title != "Upgrade" {
		t.Errorf("expected default title for unconfigured section, got %q", got[1].Title)
	}
	if got[5].Key != "highlights" {
		t.Errorf("expected extra section last, got %q", got[5].Key)
	}
}

func TestMergeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("log_level: debug\ngithub:\n  owner: longhorn\nfetch:\n  workers: 2\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := mergeFile(cfg, path); err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected 'debug', got %q", cfg.LogLevel)
	}
	if cfg.GitHub.Owner != "longhorn" || cfg.Fetch.Workers != 2 {
		t.Errorf("merge lost fields: %+v", cfg.GitHub)
	}
	if cfg.Fetch.PageSize != 100 {
		t.Errorf("expected untouched default page size, got %d", cfg.Fetch.PageSize)
	}
}

func TestMergeFileNotExist(t *testing.T) {
	cfg := Defaults()
	err := mergeFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil || !os.IsNotExist(err) {
		t.Errorf("expected os.IsNotExist error, got %v", err)
	}
}

func TestMergeFileRejectsGitHubToken(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		content string
	}{
		{
			name:    "top-level github_token",
			content: "github_token: ghp_abc123\n",
		},
		{
			name:    "github.token nested field",
			content: "github:\n  token: ghp_abc123\n  owner: longhorn\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatal(err)
			}
			cfg := Defaults()
			if err := mergeFile(cfg, path); err == nil {
				t.Error("expected error for token field, got nil")
			}
		})
	}
}

func TestLoadExplicitMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestToken(t *testing.T) {
	t.Setenv("RENOTE_TEST_TOKEN", "ghp_secret")
	cfg := Defaults()
	cfg.GitHub.TokenEnv = "RENOTE_TEST_TOKEN"
	if got := cfg.Token(); got != "ghp_secret" {
		t.Errorf("Token() = %q", got)
	}
}
