package reservation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/space-reservation-backend/internal/calendar"
)

// liveLoad sums quantities of live reservations on spaceID covering day.
func liveLoad(t *testing.T, repo *MemoryRepository, spaceID string, day string) int {
	t.Helper()
	d := period(t, day, "2099-01-01").Start()
	items, _, err := repo.List(context.Background(), Filter{SpaceID: spaceID, PageSize: 10000})
	require.NoError(t, err)
	load := 0
	for _, r := range items {
		if r.Status.Holds() && r.Period.Contains(d) {
			load += r.Quantity
		}
	}
	return load
}

func TestConcurrentCreatesNeverOverbook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hall("s1", 10, "5"))

	const workers = 64
	var admitted, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := user(fmt.Sprintf("user-%02d", i))
			_, err := f.svc.Create(ctx, actor, book("s1", "2025-03-01", "2025-03-04", 1))
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, ErrCapacityExceeded):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 10, admitted.Load())
	assert.EqualValues(t, workers-10, rejected.Load())
	assert.Equal(t, 10, liveLoad(t, f.repo, "s1", "2025-03-02"))
}

func TestConcurrentMixedOperationsKeepInvariant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hall("s1", 3, "5"))

	seed := make([]*Reservation, 0, 3)
	for i := 0; i < 3; i++ {
		r, err := f.svc.Create(ctx, user(userA), book("s1", "2025-03-01", "2025-03-03", 1))
		require.NoError(t, err)
		seed = append(seed, r)
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = f.svc.Create(ctx, user(userB), book("s1", "2025-03-02", "2025-03-04", 1))
		}()
		go func(r *Reservation) {
			defer wg.Done()
			_, _ = f.svc.Update(ctx, user(userA), r.ID, UpdateRequest{Quantity: ptr(2)})
		}(seed[i%len(seed)])
		go func(r *Reservation) {
			defer wg.Done()
			if i%10 == 0 {
				_, _ = f.svc.Cancel(ctx, user(userA), r.ID)
			}
		}(seed[(i+1)%len(seed)])
	}
	wg.Wait()

	for _, day := range []string{"2025-03-01", "2025-03-02", "2025-03-03"} {
		assert.LessOrEqual(t, liveLoad(t, f.repo, "s1", day), 3, "overbooked on %s", day)
	}
}

func TestDifferentSpacesDoNotBlockEachOther(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hall("s1", 1, "5"), hall("s2", 1, "5"))

	// Hold s1's commit lock; a commit on s2 must still go through.
	lock := f.repo.spaceLock("s1")
	lock.Lock()
	defer lock.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Create(ctx, user(userA), book("s2", "2025-03-01", "2025-03-02", 1))
		done <- err
	}()
	require.NoError(t, <-done)
}

func TestMemoryCommitUpdateRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hall("s1", 2, "5"))

	r, err := f.svc.Create(ctx, user(userA), book("s1", "2025-03-01", "2025-03-02", 1))
	require.NoError(t, err)

	_, err = f.repo.Cancel(ctx, r.ID)
	require.NoError(t, err)

	stale := r.clone()
	stale.Quantity = 2
	err = f.repo.CommitUpdate(ctx, stale, r.Version, nil)
	assert.ErrorIs(t, err, ErrConcurrentCommit)

	stored, err := f.repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, stored.Status)
}

func TestMemoryListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(hall("s1", 10, "5"), hall("s2", 10, "5"))

	for _, start := range []string{"2025-03-01", "2025-03-05", "2025-03-10"} {
		end := period(t, start, "2099-01-01").Start().AddDate(0, 0, 2).Format(calendar.Layout)
		_, err := f.svc.Create(ctx, user(userA), book("s1", start, end, 1))
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, user(userB), book("s2", "2025-03-01", "2025-03-02", 1))
	require.NoError(t, err)

	items, total, err := f.repo.List(ctx, Filter{SpaceID: "s1", SortOrder: "ASC", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "2025-03-01", items[0].Period.Start().Format(calendar.Layout))

	from := period(t, "2025-03-06", "2025-03-07").Start()
	_, total, err = f.repo.List(ctx, Filter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, 2, total, "only stays still running on or after the 6th")

	items, _, err = f.repo.List(ctx, Filter{SpaceID: "s1", Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, items)
}
