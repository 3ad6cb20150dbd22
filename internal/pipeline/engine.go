package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/futureCreator/renote/internal/aggregate"
	"github.com/futureCreator/renote/internal/assets"
	"github.com/futureCreator/renote/internal/classify"
	"github.com/futureCreator/renote/internal/config"
	"github.com/futureCreator/renote/internal/diff"
	"github.com/futureCreator/renote/internal/github"
	"github.com/futureCreator/renote/internal/hook"
	vlog "github.com/futureCreator/renote/internal/log"
	"github.com/futureCreator/renote/internal/render"
	"github.com/futureCreator/renote/internal/run"
	"github.com/futureCreator/renote/internal/tracker"
	"github.com/futureCreator/renote/internal/types"
)

// RateReporter is implemented by trackers that count requests.
type RateReporter interface {
	RateSnapshot() github.RateSnapshot
}

// Engine drives one generate run through its stages: fetch, merge, filter,
// classify, group, render and diff, then publish.
type Engine struct {
	Config     *config.Config
	Tracker    tracker.Tracker
	Classifier *classify.Classifier
	Run        *run.Run // optional run record
	Display    *Display // optional
	HookDir    string   // working directory of the filter hook

	Now func() time.Time

	started time.Time
}

// Execute runs every stage up to rendering. The stages are bounded by the
// configured fetch timeout; on any fatal error the run is marked failed and
// no output is produced. A successful result still has to go through Publish
// before the run counts as completed.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	e.started = time.Now()
	if e.Display == nil {
		e.Display = NewDisplay(io.Discard, "", true)
	}
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, e.Config.FetchTimeout())
	defer cancel()

	res := &Result{}
	if err := e.execute(ctx, req, now, res); err != nil {
		e.fail(err, res.Warnings)
		return nil, err
	}
	return res, nil
}

// Publish runs out as the final stage. On success the run is completed with
// the returned location and "latest" moves to it; on failure the run is
// marked failed and "latest" is left alone.
func (e *Engine) Publish(ctx context.Context, res *Result, detail string, out func(context.Context) (string, error)) (string, error) {
	var loc string
	err := e.stage(ctx, "publish", detail, func() (int, error) {
		l, err := out(ctx)
		loc = l
		return res.Note.ItemCount(), err
	})
	if err != nil {
		e.fail(err, res.Warnings)
		return "", err
	}

	requests := e.requests()
	if e.Run != nil {
		e.Run.Meta.Requests = requests
		e.Run.Meta.Output = loc
		for _, w := range res.Warnings {
			e.Run.Meta.Warnings = append(e.Run.Meta.Warnings, w.Error())
		}
		if err := e.Run.Complete(res.Note, res.Markdown); err != nil {
			vlog.Warn("failed to mark run complete", "err", err)
		}
	}

	e.Display.Warnings(res.Warnings)
	e.Display.Summary(res.Note.ItemCount(), requests, time.Since(e.started))
	return loc, nil
}

func (e *Engine) execute(ctx context.Context, req Request, now time.Time, res *Result) error {
	cfg := e.Config

	queries, err := Queries(cfg, req.Milestone, now)
	if err != nil {
		return err
	}

	var batches [][]types.ReleaseItem
	err = e.stage(ctx, "fetch", fmt.Sprintf("%d queries", len(queries)), func() (int, error) {
		b, err := tracker.FetchAll(ctx, e.Tracker, queries, cfg.Fetch.Workers)
		batches = b
		n := 0
		for _, b := range batches {
			n += len(b)
		}
		return n, err
	})
	if err != nil {
		return err
	}

	var items []types.ReleaseItem
	err = e.stage(ctx, "merge", fmt.Sprintf("%d batches", len(batches)), func() (int, error) {
		items = aggregate.Merge(batches)
		return len(items), nil
	})
	if err != nil {
		return err
	}

	err = e.stage(ctx, "filter", filterDetail(cfg), func() (int, error) {
		opts := aggregate.FilterOptions{
			ExcludeLabels:       cfg.Filter.ExcludeLabels,
			Since:               sinceTime(cfg, now),
			IncludePullRequests: cfg.Filter.IncludePullRequests,
		}
		if cfg.Filter.Hook != "" {
			hr, err := hook.FilterIDs(ctx, cfg.Filter.Hook, e.HookDir)
			if err != nil {
				return 0, err
			}
			opts.ExcludeIDs = hr.IDs
		}
		items = aggregate.Filter(items, opts)
		return len(items), nil
	})
	if err != nil {
		return err
	}

	var classified classify.Result
	err = e.stage(ctx, "classify", fmt.Sprintf("rules v%d", cfg.Classification.Version), func() (int, error) {
		classified = e.Classifier.ClassifyAll(items)
		res.Warnings = append(res.Warnings, classified.Warnings()...)
		return len(classified.Classified), nil
	})
	if err != nil {
		return err
	}

	err = e.stage(ctx, "group", fmt.Sprintf("%d sections", len(cfg.OrderedSections())), func() (int, error) {
		res.Note = BuildNote(cfg, req, aggregate.Group(classified.Classified), now)
		if w := CheckUpgradePath(res.Note); w != nil {
			res.Warnings = append(res.Warnings, w)
		}
		return res.Note.ItemCount(), nil
	})
	if err != nil {
		return err
	}

	name := cfg.Note.Template
	if name == "" {
		name = assets.DefaultTemplate
	}
	err = e.stage(ctx, "render", name, func() (int, error) {
		r := render.New(req.Template, render.Options{
			Name:     name,
			Title:    cfg.Note.Title,
			Vars:     cfg.Note.Vars,
			PreNote:  ReadNoteText(cfg.Note.PreNote),
			PostNote: ReadNoteText(cfg.Note.PostNote),
		})
		md, err := r.Render(res.Note)
		res.Markdown = md
		return res.Note.ItemCount(), err
	})
	if err != nil {
		return err
	}

	if req.Previous != nil {
		err = e.stage(ctx, "diff", "against "+req.Previous.Version, func() (int, error) {
			res.Diffs = diff.Diff(req.Previous, res.Note)
			res.CarriedOver = diff.CarriedOver(req.Previous, res.Note)
			changed := 0
			for _, d := range res.Diffs {
				changed += len(d.Added) + len(d.Removed)
			}
			return changed, nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// stage runs fn as a named stage, reporting it on the display and recording it
// in the run. A deadline that expired before or during the stage fails it with
// a FetchExhaustedError.
func (e *Engine) stage(ctx context.Context, name, detail string, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = deadlineError(name, err)
		}
		return e.stageFailed(name, detail, 0, err)
	}

	e.Display.StepStart(name, detail)
	start := time.Now()
	n, err := fn()
	duration := time.Since(start)

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !tracker.IsExhausted(err) {
			err = deadlineError(name, err)
		}
		return e.stageFailed(name, detail, duration, err)
	}

	e.Display.StepDone(name, detail, n, duration)
	e.record(run.StageResult{Name: name, Status: "completed", Items: n, DurationMS: duration.Milliseconds()})
	return nil
}

func (e *Engine) stageFailed(name, detail string, duration time.Duration, err error) error {
	e.Display.StepFailed(name, detail, err)
	e.record(run.StageResult{Name: name, Status: "failed", DurationMS: duration.Milliseconds(), Error: err.Error()})
	return fmt.Errorf("%s: %w", name, err)
}

func (e *Engine) record(sr run.StageResult) {
	if e.Run == nil {
		return
	}
	if err := e.Run.AddStage(sr); err != nil {
		vlog.Warn("failed to save stage result", "stage", sr.Name, "err", err)
	}
}

func (e *Engine) fail(err error, warnings []error) {
	e.Display.Warnings(warnings)
	e.Display.Failed(err)
	if e.Run == nil {
		return
	}
	e.Run.Meta.Requests = e.requests()
	for _, w := range warnings {
		e.Run.Meta.Warnings = append(e.Run.Meta.Warnings, w.Error())
	}
	if ferr := e.Run.Fail(err.Error()); ferr != nil {
		vlog.Error("failed to update run meta", "err", ferr)
	}
}

func (e *Engine) requests() int {
	if rr, ok := e.Tracker.(RateReporter); ok {
		return rr.RateSnapshot().Requests
	}
	return 0
}

func deadlineError(stage string, err error) error {
	return &tracker.FetchExhaustedError{Query: "run (" + stage + ")", Attempts: 1, Err: err}
}

func filterDetail(cfg *config.Config) string {
	parts := sets.New[string]()
	if len(cfg.Filter.ExcludeLabels) > 0 {
		parts.Insert("labels")
	}
	if cfg.Filter.SinceDays > 0 {
		parts.Insert("since")
	}
	if cfg.Filter.Hook != "" {
		parts.Insert("hook")
	}
	if !cfg.Filter.IncludePullRequests {
		parts.Insert("no-prs")
	}
	if parts.Len() == 0 {
		return "none"
	}
	return fmt.Sprint(sets.List(parts))
}
