package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futureCreator/renote/internal/types"
)

type fakeTracker struct {
	mu       sync.Mutex
	inFlight int32
	maxSeen  int32
	results  map[string][]types.ReleaseItem
	errs     map[string]error
	delay    map[string]time.Duration
}

func (f *fakeTracker) Fetch(ctx context.Context, q types.TrackerQuery) ([]types.ReleaseItem, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	f.mu.Lock()
	if n > f.maxSeen {
		f.maxSeen = n
	}
	f.mu.Unlock()

	if d := f.delay[q.Milestone]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.errs[q.Milestone]; err != nil {
		return nil, err
	}
	return f.results[q.Milestone], nil
}

func item(id int64) types.ReleaseItem {
	return types.NewReleaseItem(types.ItemSpec{ID: id, Title: fmt.Sprintf("item %d", id)})
}

func TestFetchAllKeepsQueryOrder(t *testing.T) {
	ft := &fakeTracker{
		results: map[string][]types.ReleaseItem{
			"a": {item(1)},
			"b": {item(2), item(3)},
			"c": {item(4)},
		},
		// the first query finishes last
		delay: map[string]time.Duration{"a": 30 * time.Millisecond},
	}
	queries := []types.TrackerQuery{{Milestone: "a"}, {Milestone: "b"}, {Milestone: "c"}}

	batches, err := FetchAll(context.Background(), ft, queries, 3)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, int64(1), batches[0][0].ID)
	assert.Len(t, batches[1], 2)
	assert.Equal(t, int64(4), batches[2][0].ID)
}

func TestFetchAllBoundsWorkers(t *testing.T) {
	ft := &fakeTracker{delay: map[string]time.Duration{}}
	var queries []types.TrackerQuery
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("q%d", i)
		ft.delay[name] = 10 * time.Millisecond
		queries = append(queries, types.TrackerQuery{Milestone: name})
	}

	_, err := FetchAll(context.Background(), ft, queries, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, ft.maxSeen, int32(2))
}

func TestFetchAllFailsWhole(t *testing.T) {
	ft := &fakeTracker{
		results: map[string][]types.ReleaseItem{"ok": {item(1)}},
		errs:    map[string]error{"bad": &AuthError{Reason: "bad credentials"}},
	}
	queries := []types.TrackerQuery{{Milestone: "ok"}, {Milestone: "bad"}}

	batches, err := FetchAll(context.Background(), ft, queries, 2)
	assert.Nil(t, batches)
	assert.True(t, IsAuth(err))
}

func TestFetchAllDeadlineIsExhausted(t *testing.T) {
	ft := &fakeTracker{delay: map[string]time.Duration{"slow": time.Second}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := FetchAll(ctx, ft, []types.TrackerQuery{{Milestone: "slow"}}, 1)
	require.Error(t, err)
	assert.True(t, IsExhausted(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
