// Package tracker defines the issue-tracker contract and the fetch machinery
// shared by tracker implementations: retry, error taxonomy and the bounded
// query pool.
package tracker

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	vlog "github.com/futureCreator/renote/internal/log"
	"github.com/futureCreator/renote/internal/types"
)

// Tracker fetches release items from an issue tracker. Implementations must
// page through every result before returning.
type Tracker interface {
	Fetch(ctx context.Context, q types.TrackerQuery) ([]types.ReleaseItem, error)
}

// FetchAll runs queries concurrently with at most workers in flight and
// returns one batch per query, in query order. Any failure cancels the
// remaining queries and fails the whole fetch; no partial result is returned.
func FetchAll(ctx context.Context, t Tracker, queries []types.TrackerQuery, workers int) ([][]types.ReleaseItem, error) {
	if workers < 1 {
		workers = 1
	}
	batches := make([][]types.ReleaseItem, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		g.Go(func() error {
			items, err := t.Fetch(gctx, q)
			if err != nil {
				return fmt.Errorf("query %s: %w", q, err)
			}
			vlog.Debug("query fetched", "query", q.String(), "items", len(items))
			batches[i] = items
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// A deadline hit while waiting on the pool is still an exhausted fetch.
		if errors.Is(err, context.DeadlineExceeded) && !IsExhausted(err) {
			return nil, &FetchExhaustedError{Query: "all", Attempts: 1, Err: err}
		}
		return nil, err
	}
	return batches, nil
}
