package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/futureCreator/renote/internal/assets"
	"github.com/futureCreator/renote/internal/classify"
	"github.com/futureCreator/renote/internal/config"
	"github.com/futureCreator/renote/internal/diff"
	"github.com/futureCreator/renote/internal/github"
	"github.com/futureCreator/renote/internal/gitrepo"
	vlog "github.com/futureCreator/renote/internal/log"
	"github.com/futureCreator/renote/internal/pipeline"
	"github.com/futureCreator/renote/internal/publish"
	"github.com/futureCreator/renote/internal/render"
	"github.com/futureCreator/renote/internal/run"
	"github.com/futureCreator/renote/internal/tracker"
	"github.com/futureCreator/renote/internal/types"
)

type generateOptions struct {
	owner         string
	repo          string
	tag           string
	milestone     string
	prevTag       string
	public        bool
	repoPath      string
	labels        []string
	excludeLabels []string
	sinceDays     int
	template      string
	output        string
	dryRun        bool
	preview       bool
	previous      string
	filterHook    string
	publish       bool
	draft         bool
	prerelease    bool
	target        string
	artifacts     []string
	verbose       bool
}

var genOpts generateOptions

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"release"},
	Short:   "Generate the release note for a tag",
	Example: `  renote generate --owner longhorn --repo longhorn --tag v1.6.0
  renote generate --tag v1.6.0 --preview --previous latest
  renote generate --tag v1.6.0 --output s3://notes/longhorn/
  renote release --tag v1.6.0 --publish --draft --artifacts 'dist/*.yaml'`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genOpts.owner, "owner", "", "Repository owner")
	f.StringVar(&genOpts.repo, "repo", "", "Repository name")
	f.StringVar(&genOpts.tag, "tag", "", "Release tag (required)")
	f.StringVar(&genOpts.milestone, "milestone", "", "Milestone title (defaults to the tag)")
	f.StringVar(&genOpts.prevTag, "prev-tag", "", "Previous release tag (found from local git tags when empty)")
	f.BoolVar(&genOpts.public, "public", false, "Skip pre-release tags when looking up the previous tag")
	f.StringVar(&genOpts.repoPath, "repo-path", ".", "Local checkout used for tag lookup and release artifacts")
	f.StringSliceVar(&genOpts.labels, "labels", nil, "Extra label query; items must carry all labels")
	f.StringSliceVar(&genOpts.excludeLabels, "exclude-labels", nil, "Drop items carrying any of these labels")
	f.IntVar(&genOpts.sinceDays, "since-days", 0, "Only items closed within this many days")
	f.StringVar(&genOpts.template, "template", "", "Template name or path")
	f.StringVarP(&genOpts.output, "output", "o", "", "Output: file path, '-' for stdout, or s3://bucket/key")
	f.BoolVar(&genOpts.dryRun, "dry-run", false, "Print the note to stdout and publish nothing")
	f.BoolVar(&genOpts.preview, "preview", false, "Print the diff against --previous instead of the note")
	f.StringVar(&genOpts.previous, "previous", "", "Previous note: 'latest', a run id, or a note.json path")
	f.StringVar(&genOpts.filterHook, "filter-hook", "", "Shell command printing issue numbers to drop")
	f.BoolVar(&genOpts.publish, "publish", false, "Create a GitHub release with gh")
	f.BoolVar(&genOpts.draft, "draft", false, "Create the release as a draft")
	f.BoolVar(&genOpts.prerelease, "prerelease", false, "Mark the release as a pre-release")
	f.StringVar(&genOpts.target, "target", "", "Branch or commit the release tag is created from")
	f.StringSliceVar(&genOpts.artifacts, "artifacts", nil, "Glob patterns of files attached to the release")
	f.BoolVarP(&genOpts.verbose, "verbose", "v", false, "Print one line per stage instead of updating in place")
	_ = generateCmd.MarkFlagRequired("tag")
	generateCmd.MarkFlagsMutuallyExclusive("dry-run", "preview", "publish")

	rootCmd.AddCommand(generateCmd)
}

// applyFlags copies explicitly set flags over the loaded configuration.
func (o *generateOptions) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("owner") {
		cfg.GitHub.Owner = o.owner
	}
	if changed("repo") {
		cfg.GitHub.Repo = o.repo
	}
	if changed("labels") {
		cfg.Filter.Labels = o.labels
	}
	if changed("exclude-labels") {
		cfg.Filter.ExcludeLabels = o.excludeLabels
	}
	if changed("since-days") {
		cfg.Filter.SinceDays = o.sinceDays
	}
	if changed("filter-hook") {
		cfg.Filter.Hook = o.filterHook
	}
	if changed("template") {
		cfg.Note.Template = o.template
	}
	if changed("output") {
		cfg.Publish.Target = o.output
	}
	if changed("draft") {
		cfg.Publish.Draft = o.draft
	}
	if changed("prerelease") {
		cfg.Publish.Prerelease = o.prerelease
	}
	if changed("artifacts") {
		cfg.Publish.Artifacts = o.artifacts
	}
	if o.publish {
		cfg.Publish.Target = "github"
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	o := &genOpts
	o.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return usageErr(fmt.Errorf("invalid config: %w", err))
	}
	if err := cfg.ValidateTarget(); err != nil {
		return usageErr(err)
	}

	// fetch.timeout bounds the whole run, publishing included.
	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout())
	defer cancel()

	milestone := o.milestone
	if milestone == "" && len(cfg.Filter.Labels) == 0 {
		milestone = o.tag
	}
	prevTag := o.prevTag
	if prevTag == "" {
		prevTag = lookupPreviousTag(o.repoPath, o.tag, o.public)
	}

	token, err := github.ResolveToken(flagToken, cfg.Token(), cfg.GitHub.TokenEnv)
	if err != nil {
		return err
	}
	initial, max := cfg.Backoff()
	tr, err := github.NewTracker(token, github.Options{
		APIURL:   cfg.GitHub.APIURL,
		PageSize: cfg.Fetch.PageSize,
		Retry: tracker.RetryPolicy{
			MaxAttempts:    cfg.Fetch.MaxAttempts,
			InitialBackoff: initial,
			MaxBackoff:     max,
			Jitter:         cfg.Fetch.Jitter,
		},
	})
	if err != nil {
		return err
	}

	classifier, err := classify.FromConfig(cfg.Classification)
	if err != nil {
		return usageErr(err)
	}

	tmpl, err := assets.LoadTemplate(cfg.Note.Template)
	if err != nil {
		return &render.TemplateError{Template: cfg.Note.Template, Err: err}
	}

	var previous *types.ReleaseNote
	if o.previous != "" {
		path, err := run.ResolveNote(config.DirName, o.previous)
		if err != nil {
			return usageErr(err)
		}
		if previous, err = types.LoadNote(path); err != nil {
			return usageErr(err)
		}
	}

	r, err := run.New(config.DirName, run.Info{
		Repository:  cfg.GitHub.Owner + "/" + cfg.GitHub.Repo,
		Tag:         o.tag,
		PreviousTag: prevTag,
		Milestone:   milestone,
	})
	if err != nil {
		return fmt.Errorf("creating run: %w", err)
	}

	disp := pipeline.NewDisplay(cmd.ErrOrStderr(), cfg.GitHub.Owner+"/"+cfg.GitHub.Repo+" "+o.tag, o.verbose)
	disp.Header()

	engine := &pipeline.Engine{
		Config:     cfg,
		Tracker:    tr,
		Classifier: classifier,
		Run:        r,
		Display:    disp,
		HookDir:    o.repoPath,
	}
	res, err := engine.Execute(ctx, pipeline.Request{
		Tag:         o.tag,
		PreviousTag: prevTag,
		Milestone:   milestone,
		Template:    tmpl,
		Previous:    previous,
	})
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	var (
		detail = cfg.Publish.Target
		out    func(context.Context) (string, error)
	)
	switch {
	case o.preview:
		detail = "preview"
		out = func(context.Context) (string, error) {
			diffs := res.Diffs
			if previous == nil {
				diffs = diff.Diff(nil, res.Note)
			}
			if err := diff.Format(stdout, diffs, isTerminal(stdout)); err != nil {
				return "", err
			}
			for _, it := range res.CarriedOver {
				fmt.Fprintf(stdout, "carried over: #%d %s\n", it.ID, it.Title)
			}
			return "", nil
		}
	case o.dryRun:
		detail = "dry run"
		out = func(context.Context) (string, error) {
			_, err := fmt.Fprint(stdout, res.Markdown)
			return "", err
		}
	default:
		if detail == "" {
			detail = "-"
		}
		out = func(ctx context.Context) (string, error) {
			sink, err := publish.Open(ctx, cfg.Publish.Target, publish.Options{
				Stdout:   stdout,
				S3Region: cfg.Publish.S3Region,
				GitHub: publish.GitHubOptions{
					Repo:       cfg.GitHub.Owner + "/" + cfg.GitHub.Repo,
					Target:     o.target,
					Draft:      cfg.Publish.Draft,
					Prerelease: cfg.Publish.Prerelease || gitrepo.IsPrerelease(o.tag),
					Artifacts:  cfg.Publish.Artifacts,
					Dir:        o.repoPath,
				},
			})
			if err != nil {
				return "", fmt.Errorf("opening output %q: %w", cfg.Publish.Target, err)
			}
			return sink.Publish(ctx, publish.Artifact{
				Markdown: res.Markdown,
				Note:     res.Note,
				Tag:      o.tag,
				Title:    noteTitle(cfg, o.tag),
			})
		}
	}

	loc, err := engine.Publish(ctx, res, detail, out)
	if err != nil {
		return err
	}
	if !o.preview && !o.dryRun && cfg.Publish.Target != "" && cfg.Publish.Target != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Release note written to %s\n", loc)
	}
	return nil
}

func lookupPreviousTag(path, tag string, public bool) string {
	repo, err := gitrepo.Open(path)
	if err != nil {
		vlog.Warn("no local repository for previous tag lookup", "path", path, "err", err)
		return ""
	}
	prev, err := gitrepo.PreviousTag(repo, tag, public)
	if err != nil {
		if errors.Is(err, gitrepo.ErrNoPreviousTag) {
			vlog.Info("no previous tag", "tag", tag)
		} else {
			vlog.Warn("previous tag lookup failed", "tag", tag, "err", err)
		}
		return ""
	}
	vlog.Debug("previous tag", "tag", tag, "previous", prev)
	return prev
}

func noteTitle(cfg *config.Config, tag string) string {
	if cfg.Note.Title != "" {
		return cfg.Note.Title
	}
	return cfg.GitHub.Repo + " " + tag
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
