package config

// Defaults returns the built-in configuration. The classification table is a
// starting point; projects override it in .renote/config.yaml.
func Defaults() *Config {
	return &Config{
		GitHub: GitHubConfig{
			TokenEnv: "GITHUB_TOKEN",
		},
		Fetch: FetchConfig{
			PageSize:       100,
			Workers:        4,
			MaxAttempts:    5,
			InitialBackoff: "1s",
			MaxBackoff:     "60s",
			Jitter:         0.5,
			Timeout:        "10m",
		},
		Filter: FilterConfig{
			ExcludeLabels: []string{"invalid", "duplicate", "wontfix"},
			SinceDays:     0,
		},
		Classification: ClassificationConfig{
			Version: ClassificationVersion,
			Rules: []LabelRule{
				{Label: "kind/deprecation", Section: "deprecation", Precedence: 300},
				{Label: "deprecation", Section: "deprecation", Precedence: 300},
				{Label: "breaking-change", Section: "deprecation", Precedence: 300},
				{Label: "release-note/install", Section: "installation", Precedence: 250},
				{Label: "release-note/upgrade", Section: "upgrade", Precedence: 250},
				{Label: "known-issue", Section: "known-issues", Precedence: 200},
				{Label: "kind/known-issue", Section: "known-issues", Precedence: 200},
				{Label: "kind/bug", Section: "resolved-issues", Precedence: 100},
				{Label: "bug", Section: "resolved-issues", Precedence: 100},
				{Label: "kind/feature", Section: "resolved-issues", Precedence: 50},
				{Label: "kind/improvement", Section: "resolved-issues", Precedence: 50},
				{Label: "enhancement", Section: "resolved-issues", Precedence: 50},
			},
		},
		Sections: []SectionConfig{
			{
				Key:   "installation",
				Title: "Installation",
				Body: `> **Please ensure your Kubernetes cluster is at least {{ var "min_cluster_version" }} before installing {{ var "version" }}.**

{{ var "repository" }} supports 3 installation ways including Rancher App Marketplace, Kubectl, and Helm.`,
			},
			{
				Key:   "upgrade",
				Title: "Upgrade",
				Body: `> **Please ensure your Kubernetes cluster is at least {{ var "min_cluster_version" }} before upgrading from {{ var "upgrade_from" }} to {{ var "version" }}.**`,
			},
			{Key: "deprecation", Title: "Deprecation & Incompatibilities", Empty: "na"},
			{Key: "known-issues", Title: "Known Issues", Empty: "heading"},
			{Key: "resolved-issues", Title: "Resolved Issues", Empty: "heading"},
		},
		Note: NoteConfig{
			Contributors: true,
			Vars:         map[string]string{},
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}
