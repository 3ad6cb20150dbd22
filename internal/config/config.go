package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/futureCreator/renote/internal/types"
)

// ClassificationVersion is the label table schema this build understands.
const ClassificationVersion = 1

// DirName is the per-project and per-user state directory.
const DirName = ".renote"

// Config is the top-level configuration structure.
type Config struct {
	GitHub         GitHubConfig         `yaml:"github"`
	Fetch          FetchConfig          `yaml:"fetch"`
	Filter         FilterConfig         `yaml:"filter"`
	Classification ClassificationConfig `yaml:"classification"`
	Sections       []SectionConfig      `yaml:"sections"`
	Note           NoteConfig           `yaml:"note"`
	Publish        PublishConfig        `yaml:"publish"`
	LogLevel       string               `yaml:"log_level"`
	LogFormat      string               `yaml:"log_format"`
}

type GitHubConfig struct {
	Owner    string `yaml:"owner"`
	Repo     string `yaml:"repo"`
	APIURL   string `yaml:"api_url"`
	TokenEnv string `yaml:"token_env"`
}

type FetchConfig struct {
	PageSize       int     `yaml:"page_size"`
	Workers        int     `yaml:"workers"`
	MaxAttempts    int     `yaml:"max_attempts"`
	InitialBackoff string  `yaml:"initial_backoff"`
	MaxBackoff     string  `yaml:"max_backoff"`
	Jitter         float64 `yaml:"jitter"`
	Timeout        string  `yaml:"timeout"`
}

type FilterConfig struct {
	Labels              []string `yaml:"labels"`
	ExcludeLabels       []string `yaml:"exclude_labels"`
	SinceDays           int      `yaml:"since_days"`
	IncludePullRequests bool     `yaml:"include_pull_requests"`
	Hook                string   `yaml:"hook"`
}

// ClassificationConfig is the versioned label → section table.
type ClassificationConfig struct {
	Version int         `yaml:"version"`
	Rules   []LabelRule `yaml:"rules"`
}

// LabelRule maps a label (or glob) to a section. Higher precedence wins.
type LabelRule struct {
	Label      string `yaml:"label"`
	Section    string `yaml:"section"`
	Precedence int    `yaml:"precedence"`
}

type SectionConfig struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
	Empty string `yaml:"empty"` // "", "na" or "heading"
}

type NoteConfig struct {
	Template          string            `yaml:"template"`
	Title             string            `yaml:"title"`
	MinClusterVersion string            `yaml:"min_cluster_version"`
	UpgradeFrom       string            `yaml:"upgrade_from"`
	Vars              map[string]string `yaml:"vars"`
	PreNote           string            `yaml:"pre_note"`
	PostNote          string            `yaml:"post_note"`
	Contributors      bool              `yaml:"contributors"`
	ExtraContributors []string          `yaml:"extra_contributors"`
}

type PublishConfig struct {
	Target     string   `yaml:"target"`
	Draft      bool     `yaml:"draft"`
	Prerelease bool     `yaml:"prerelease"`
	Artifacts  []string `yaml:"artifacts"`
	S3Region   string   `yaml:"s3_region"`
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Fetch.PageSize < 1 || c.Fetch.PageSize > 100 {
		return fmt.Errorf("fetch.page_size must be between 1 and 100, got %d", c.Fetch.PageSize)
	}
	if c.Fetch.Workers < 1 {
		return fmt.Errorf("fetch.workers must be at least 1")
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be at least 1")
	}
	for name, v := range map[string]string{
		"fetch.initial_backoff": c.Fetch.InitialBackoff,
		"fetch.max_backoff":     c.Fetch.MaxBackoff,
		"fetch.timeout":         c.Fetch.Timeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if c.Fetch.Jitter < 0 || c.Fetch.Jitter >= 1 {
		return fmt.Errorf("fetch.jitter must be in [0, 1)")
	}

	if c.Classification.Version != ClassificationVersion {
		return fmt.Errorf("classification.version %d is not supported (want %d)",
			c.Classification.Version, ClassificationVersion)
	}

	known := map[string]bool{}
	for _, s := range types.RequiredSections {
		known[string(s)] = true
	}
	seen := map[string]bool{}
	for _, s := range c.Sections {
		if s.Key == "" {
			return fmt.Errorf("sections: entry without key")
		}
		if seen[s.Key] {
			return fmt.Errorf("sections: duplicate key %q", s.Key)
		}
		seen[s.Key] = true
		known[s.Key] = true
		switch types.EmptyPolicy(s.Empty) {
		case types.EmptyFail, types.EmptyNA, types.EmptyHeading:
		default:
			return fmt.Errorf("sections.%s.empty: unknown policy %q", s.Key, s.Empty)
		}
	}
	for i, r := range c.Classification.Rules {
		if r.Label == "" {
			return fmt.Errorf("classification.rules[%d]: label is required", i)
		}
		if !known[r.Section] {
			return fmt.Errorf("classification.rules[%d]: unknown section %q", i, r.Section)
		}
	}

	if c.Note.MinClusterVersion != "" {
		if _, err := semver.NewVersion(c.Note.MinClusterVersion); err != nil {
			return fmt.Errorf("note.min_cluster_version %q: %w", c.Note.MinClusterVersion, err)
		}
	}
	if c.Note.UpgradeFrom != "" {
		if _, err := semver.NewConstraint(c.Note.UpgradeFrom); err != nil {
			return fmt.Errorf("note.upgrade_from %q: %w", c.Note.UpgradeFrom, err)
		}
	}
	return nil
}

// ValidateTarget checks that a repository to query is configured.
func (c *Config) ValidateTarget() error {
	if c.GitHub.Owner == "" {
		return fmt.Errorf("github.owner is required (set it in config or pass --owner)")
	}
	if c.GitHub.Repo == "" {
		return fmt.Errorf("github.repo is required (set it in config or pass --repo)")
	}
	return nil
}

// Token returns the tracker credential from the configured environment variable.
func (c *Config) Token() string {
	if c.GitHub.TokenEnv == "" {
		return os.Getenv("GITHUB_TOKEN")
	}
	return os.Getenv(c.GitHub.TokenEnv)
}

// FetchTimeout returns the overall run deadline.
func (c *Config) FetchTimeout() time.Duration {
	return durationOr(c.Fetch.Timeout, 10*time.Minute)
}

// Backoff returns the initial and maximum retry delays.
func (c *Config) Backoff() (initial, max time.Duration) {
	return durationOr(c.Fetch.InitialBackoff, time.Second), durationOr(c.Fetch.MaxBackoff, time.Minute)
}

// OrderedSections returns the required sections in fixed order followed by any
// extra sections in the order they were configured.
func (c *Config) OrderedSections() []SectionConfig {
	byKey := map[string]SectionConfig{}
	for _, s := range c.Sections {
		byKey[s.Key] = s
	}

	out := make([]SectionConfig, 0, len(types.RequiredSections)+len(c.Sections))
	for _, req := range types.RequiredSections {
		sc, ok := byKey[string(req)]
		if !ok {
			sc = SectionConfig{Key: string(req)}
		}
		if sc.Title == "" {
			sc.Title = types.DefaultTitles[req]
		}
		out = append(out, sc)
	}
	for _, s := range c.Sections {
		if types.Section(s.Key).IsRequired() {
			continue
		}
		if s.Title == "" {
			s.Title = s.Key
		}
		out = append(out, s)
	}
	return out
}

// Load resolves config from defaults → user → project → explicit path.
func Load(explicit string) (*Config, error) {
	cfg := Defaults()

	// user-level config
	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, DirName, "config.yaml")
		if err := mergeFile(cfg, userPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	// project-level config
	projectPath := filepath.Join(DirName, "config.yaml")
	if err := mergeFile(cfg, projectPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	// explicit --config has the highest priority and must exist
	if explicit != "" {
		if err := mergeFile(cfg, explicit); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", explicit, err)
		}
	}

	return cfg, nil
}

func mergeFile(dst *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// The credential only ever comes from the environment or --github-token.
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err == nil {
		if gh, ok := raw["github"].(map[string]interface{}); ok {
			if _, hasToken := gh["token"]; hasToken {
				return fmt.Errorf("configuration field 'github.token' is not supported in %s. "+
					"Export GITHUB_TOKEN or pass --github-token instead", path)
			}
		}
		if _, hasToken := raw["github_token"]; hasToken {
			return fmt.Errorf("configuration field 'github_token' is not supported in %s. "+
				"Export GITHUB_TOKEN or pass --github-token instead", path)
		}
	}
	return yaml.Unmarshal(data, dst)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}
