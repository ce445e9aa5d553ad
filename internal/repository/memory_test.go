package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

func hourWindow(h int) entity.ProcessingWindow {
	start := time.Date(2024, 1, 2, h, 0, 0, 0, time.UTC)
	return entity.ProcessingWindow{
		Type:  entity.WindowHourly,
		Start: start,
		End:   start.Add(time.Hour),
	}
}

func TestMemoryGetOrCreate(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	window := hourWindow(2)

	run, created, err := repos.Runs().GetOrCreate(ctx, window)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, entity.RunPending, run.Status)

	again, created, err := repos.Runs().GetOrCreate(ctx, window)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, run.SessionID, again.SessionID)
}

func TestMemoryGetOrCreateConcurrent(t *testing.T) {
	repos := NewMemoryRepositories()
	window := hourWindow(2)

	const n = 32
	var wg sync.WaitGroup
	createdCount := make(chan bool, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := repos.Runs().GetOrCreate(context.Background(), window)
			require.NoError(t, err)
			createdCount <- created
		}()
	}
	wg.Wait()
	close(createdCount)

	creators := 0
	for c := range createdCount {
		if c {
			creators++
		}
	}
	assert.Equal(t, 1, creators)
}

func TestMemoryCompareAndSetStatus(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	window := hourWindow(2)

	run, _, err := repos.Runs().GetOrCreate(ctx, window)
	require.NoError(t, err)

	t.Run("valid transition", func(t *testing.T) {
		require.NoError(t, repos.Runs().CompareAndSetStatus(ctx, run.SessionID, entity.RunPending, entity.RunAcquiring))

		got, err := repos.Runs().Get(ctx, run.SessionID)
		require.NoError(t, err)
		assert.Equal(t, entity.RunAcquiring, got.Status)
	})

	t.Run("stale expectation", func(t *testing.T) {
		err := repos.Runs().CompareAndSetStatus(ctx, run.SessionID, entity.RunPending, entity.RunAcquiring)
		assert.ErrorIs(t, err, ports.ErrStaleStatus)
	})

	t.Run("illegal transition", func(t *testing.T) {
		err := repos.Runs().CompareAndSetStatus(ctx, run.SessionID, entity.RunAcquiring, entity.RunComplete)
		assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	})

	t.Run("exactly one concurrent winner", func(t *testing.T) {
		require.NoError(t, repos.Runs().CompareAndSetStatus(ctx, run.SessionID, entity.RunAcquiring, entity.RunReady))

		const n = 16
		var wg sync.WaitGroup
		wins := make(chan bool, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repos.Runs().MarkRunning(context.Background(), run.SessionID, time.Now())
				wins <- err == nil
			}()
		}
		wg.Wait()
		close(wins)

		winners := 0
		for w := range wins {
			if w {
				winners++
			}
		}
		assert.Equal(t, 1, winners)

		got, err := repos.Runs().Get(ctx, run.SessionID)
		require.NoError(t, err)
		assert.Equal(t, entity.RunRunning, got.Status)
		assert.Equal(t, 1, got.AttemptCount)
	})
}

func TestMemoryReprocess(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	window := hourWindow(2)

	run, _, err := repos.Runs().GetOrCreate(ctx, window)
	require.NoError(t, err)

	// Not failed yet
	assert.ErrorIs(t, repos.Runs().Reprocess(ctx, run.SessionID), ports.ErrStaleStatus)

	require.NoError(t, repos.Runs().CompareAndSetStatus(ctx, run.SessionID, entity.RunPending, entity.RunAcquiring))
	require.NoError(t, repos.Runs().Finish(ctx, run.SessionID, entity.RunAcquiring, entity.RunFailed, "orbit unavailable"))

	require.NoError(t, repos.Runs().Reprocess(ctx, run.SessionID))

	got, err := repos.Runs().Get(ctx, run.SessionID)
	require.NoError(t, err)
	assert.Equal(t, entity.RunPending, got.Status)
	assert.Nil(t, got.FailureReason)
}

func TestMemoryListByStatusOrder(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	for _, h := range []int{7, 3, 5} {
		_, _, err := repos.Runs().GetOrCreate(ctx, hourWindow(h))
		require.NoError(t, err)
	}

	runs, err := repos.Runs().ListByStatus(ctx, entity.RunPending, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.True(t, runs[0].WindowStart.Before(runs[1].WindowStart))
	assert.True(t, runs[1].WindowStart.Before(runs[2].WindowStart))
}

func TestMemoryProductsAndAttempts(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	p := entity.NewProduct("24002CH", entity.CategoryOrbit, true)
	require.NoError(t, repos.Products().Upsert(ctx, p))

	source := entity.ProductSource{Provider: "CDDIS", Tier: entity.TierRapid, Protocol: "https", Host: "cddis.nasa.gov", PathTemplate: "/x"}
	require.NoError(t, p.MarkAvailable(source, "/data/orbit.sp3", 100, ""))
	require.NoError(t, repos.Products().Upsert(ctx, p))

	got, err := repos.Products().Get(ctx, "24002CH", entity.CategoryOrbit)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable())

	_, err = repos.Products().Get(ctx, "24002CH", entity.CategoryClock)
	assert.ErrorIs(t, err, ports.ErrNotFound)

	a := entity.NewDownloadAttempt("24002CH", entity.CategoryOrbit, source, "/x", 1, entity.AttemptSuccess, nil, time.Now(), time.Second)
	require.NoError(t, repos.Attempts().Append(ctx, a))

	attempts, err := repos.Attempts().ListBySession(ctx, "24002CH")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, entity.AttemptSuccess, attempts[0].Outcome)
}
