// Package github talks to GitHub: it fetches release items through the REST
// API and publishes releases through the gh CLI.
package github

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v72/github"

	vlog "github.com/futureCreator/renote/internal/log"
	"github.com/futureCreator/renote/internal/tracker"
	"github.com/futureCreator/renote/internal/types"
)

// supersededPattern finds "Superseded by #123" style markers in item bodies.
var supersededPattern = regexp.MustCompile(`(?i)superseded[\s-]+by:?\s*#(\d+)`)

// Options configures a Tracker.
type Options struct {
	// APIURL overrides the REST endpoint (GitHub Enterprise or tests).
	APIURL     string
	PageSize   int
	Retry      tracker.RetryPolicy
	HTTPClient *http.Client
}

// Tracker implements tracker.Tracker against the GitHub REST API.
type Tracker struct {
	client   *gh.Client
	retrier  *tracker.Retrier
	pageSize int
	now      func() time.Time

	Rate *RateState

	mu         sync.Mutex
	milestones map[string]int
}

var _ tracker.Tracker = (*Tracker)(nil)

// NewTracker builds a Tracker authenticated with token.
func NewTracker(token string, opts Options) (*Tracker, error) {
	if token == "" {
		return nil, &tracker.AuthError{Reason: "no GitHub token"}
	}
	client := gh.NewClient(opts.HTTPClient).WithAuthToken(token)
	if opts.APIURL != "" {
		base := opts.APIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parsing api url %q: %w", opts.APIURL, err)
		}
		client.BaseURL = u
	}

	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}

	return &Tracker{
		client:     client,
		retrier:    tracker.NewRetrier(opts.Retry),
		pageSize:   pageSize,
		now:        time.Now,
		Rate:       &RateState{},
		milestones: make(map[string]int),
	}, nil
}

// SetSleeper replaces the retry sleeper.
func (t *Tracker) SetSleeper(s tracker.Sleeper) {
	t.retrier.Sleep = s
}

// Fetch returns every item matching q, following pagination to the end.
func (t *Tracker) Fetch(ctx context.Context, q types.TrackerQuery) ([]types.ReleaseItem, error) {
	milestone := ""
	if q.Milestone != "" {
		n, err := t.milestoneNumber(ctx, q.Owner, q.Repo, q.Milestone)
		if err != nil {
			return nil, err
		}
		milestone = strconv.Itoa(n)
	}

	perPage := q.PageSize
	if perPage <= 0 || perPage > 100 {
		perPage = t.pageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	var items []types.ReleaseItem
	for {
		opts := &gh.IssueListByRepoOptions{
			Milestone:   milestone,
			State:       "all",
			Labels:      q.Labels,
			Sort:        "updated",
			Direction:   "asc",
			Since:       q.Since,
			ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
		}

		var (
			issues []*gh.Issue
			resp   *gh.Response
		)
		label := fmt.Sprintf("%s page %d", q, page)
		err := t.retrier.Do(ctx, label, func(ctx context.Context) error {
			var err error
			issues, resp, err = t.client.Issues.ListByRepo(ctx, q.Owner, q.Repo, opts)
			t.Rate.Observe(resp)
			return t.mapError(resp, err)
		})
		if err != nil {
			return nil, err
		}

		for _, is := range issues {
			items = append(items, toReleaseItem(is))
		}
		vlog.Debug("page fetched", "query", q.String(), "page", page, "items", len(issues))

		if resp == nil || resp.NextPage == 0 {
			break
		}
		page = resp.NextPage
	}
	return items, nil
}

// milestoneNumber resolves a milestone title to its number, caching results
// per repository.
func (t *Tracker) milestoneNumber(ctx context.Context, owner, repo, title string) (int, error) {
	key := owner + "/" + repo + "#" + title
	t.mu.Lock()
	n, ok := t.milestones[key]
	t.mu.Unlock()
	if ok {
		return n, nil
	}

	opts := &gh.MilestoneListOptions{State: "all", ListOptions: gh.ListOptions{PerPage: 100}}
	for {
		var (
			ms   []*gh.Milestone
			resp *gh.Response
		)
		err := t.retrier.Do(ctx, "milestones "+owner+"/"+repo, func(ctx context.Context) error {
			var err error
			ms, resp, err = t.client.Issues.ListMilestones(ctx, owner, repo, opts)
			t.Rate.Observe(resp)
			return t.mapError(resp, err)
		})
		if err != nil {
			return 0, err
		}
		for _, m := range ms {
			if m.GetTitle() == title {
				t.mu.Lock()
				t.milestones[key] = m.GetNumber()
				t.mu.Unlock()
				return m.GetNumber(), nil
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return 0, fmt.Errorf("milestone %q not found in %s/%s", title, owner, repo)
}

// mapError sorts GitHub failures into the tracker error taxonomy.
func (t *Tracker) mapError(resp *gh.Response, err error) error {
	if err == nil {
		return nil
	}

	var rle *gh.RateLimitError
	if errors.As(err, &rle) {
		wait := rle.Rate.Reset.Time.Sub(t.now())
		if wait < 0 {
			wait = 0
		}
		return &tracker.TransientError{RetryAfter: wait, Err: err}
	}

	var are *gh.AbuseRateLimitError
	if errors.As(err, &are) {
		return &tracker.TransientError{RetryAfter: are.GetRetryAfter(), Err: err}
	}

	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		code := er.Response.StatusCode
		switch {
		case code == http.StatusUnauthorized:
			return &tracker.AuthError{Reason: "GitHub rejected the token", Err: err}
		case code == http.StatusForbidden:
			// rate-limited 403s were matched above
			return &tracker.AuthError{Reason: "token lacks access", Err: err}
		case code == http.StatusTooManyRequests || code >= 500:
			return &tracker.TransientError{RetryAfter: retryAfter(er.Response), Err: err}
		}
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return &tracker.TransientError{Err: err}
	}
	return err
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func toReleaseItem(is *gh.Issue) types.ReleaseItem {
	fields := types.ItemSpec{
		ID:    int64(is.GetNumber()),
		Title: strings.TrimSpace(is.GetTitle()),
		URL:   is.GetHTMLURL(),
		Kind:  types.KindIssue,
	}
	if is.IsPullRequest() {
		fields.Kind = types.KindPullRequest
	}
	if is.ClosedAt != nil {
		fields.ClosedAt = is.GetClosedAt().Time
	}
	for _, l := range is.Labels {
		fields.Labels = append(fields.Labels, l.GetName())
	}
	for _, a := range is.Assignees {
		fields.Assignees = append(fields.Assignees, a.GetLogin())
	}
	if len(fields.Assignees) == 0 && is.Assignee != nil {
		fields.Assignees = append(fields.Assignees, is.Assignee.GetLogin())
	}
	fields.SupersededBy = parseSupersededBy(is.GetBody())
	return types.NewReleaseItem(fields)
}

// parseSupersededBy returns the item number named by a supersession marker,
// or 0 when the body has none.
func parseSupersededBy(body string) int64 {
	m := supersededPattern.FindStringSubmatch(body)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// RateState records the most recent rate-limit figures GitHub reported.
type RateState struct {
	mu        sync.Mutex
	requests  int
	limit     int
	remaining int
	reset     time.Time
}

// RateSnapshot is a copy of RateState at one point in time.
type RateSnapshot struct {
	Requests  int       `json:"requests"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// Observe records the rate figures carried by resp.
func (r *RateState) Observe(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests++
	if resp.Rate.Limit > 0 {
		r.limit = resp.Rate.Limit
		r.remaining = resp.Rate.Remaining
		r.reset = resp.Rate.Reset.Time
	}
}

// Snapshot returns the current figures.
func (r *RateState) Snapshot() RateSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RateSnapshot{Requests: r.requests, Limit: r.limit, Remaining: r.remaining, Reset: r.reset}
}

// RateSnapshot returns the tracker's current rate-limit figures.
func (t *Tracker) RateSnapshot() RateSnapshot {
	return t.Rate.Snapshot()
}
