package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leadharvest/leadharvest/internal/crawl"
	"github.com/leadharvest/leadharvest/internal/store"
)

func TestJobLifecycle(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	job := store.CrawlJob{ID: "job-1", BusinessID: 11, DatasetID: 1}

	require.NoError(t, s.CreateJob(ctx, job))
	require.ErrorIs(t, s.CreateJob(ctx, job), store.ErrDuplicateJob)

	claimed, ok, err := s.ClaimNextQueued(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "job-1", claimed.ID)
	require.Equal(t, store.JobRunning, claimed.Status)
	require.NotNil(t, claimed.StartedAt)

	_, ok, err = s.ClaimNextQueued(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok, "a claimed job must not be handed out twice")

	require.NoError(t, s.MarkCompleted(ctx, "job-1", 7))
	final, err := s.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, store.JobCompleted, final.Status)
	require.Equal(t, 7, final.PagesCrawled)
	require.NotNil(t, final.FinishedAt)
}

func TestJobTransitionsAreMonotonic(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateJob(ctx, store.CrawlJob{ID: "j", DatasetID: 1}))

	// queued → completed skips running and must be rejected.
	require.ErrorIs(t, s.MarkCompleted(ctx, "j", 1), store.ErrInvalidTransition)

	_, _, err := s.ClaimNextQueued(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, s.MarkFailed(ctx, "j", "boom"))

	// A terminal job never transitions again.
	require.ErrorIs(t, s.MarkCompleted(ctx, "j", 1), store.ErrInvalidTransition)
	require.ErrorIs(t, s.MarkFailed(ctx, "j", "again"), store.ErrInvalidTransition)

	got, err := s.GetJob(ctx, "j")
	require.NoError(t, err)
	require.Equal(t, store.JobFailed, got.Status)
	require.Equal(t, "boom", got.ErrorMessage)
}

func TestHasRecentJob(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateJob(ctx, store.CrawlJob{
		ID: "old", BusinessID: 5, DatasetID: 1, CreatedAt: time.Now().Add(-48 * time.Hour),
	}))
	require.NoError(t, s.CreateJob(ctx, store.CrawlJob{
		ID: "new", BusinessID: 6, DatasetID: 1, CreatedAt: time.Now(),
	}))

	cutoff := time.Now().Add(-24 * time.Hour)
	recent, err := s.HasRecentJob(ctx, 5, cutoff)
	require.NoError(t, err)
	require.False(t, recent, "stale queued job is not recent")

	recent, err = s.HasRecentJob(ctx, 6, cutoff)
	require.NoError(t, err)
	require.True(t, recent)
}

func TestResultsAndExports(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	s.SeedBusinesses(1,
		store.Business{ID: 1, DatasetID: 1, Name: "With site", WebsiteURL: "https://a.gr"},
		store.Business{ID: 2, DatasetID: 1, Name: "No site"},
	)

	businesses, err := s.ListBusinessesWithWebsite(ctx, 1)
	require.NoError(t, err)
	require.Len(t, businesses, 1)

	res := crawl.Result{BusinessID: 1, DatasetID: 1, Status: crawl.StatusCompleted, PagesVisited: 3}
	require.NoError(t, s.UpsertCrawlResult(ctx, res))
	res.PagesVisited = 4
	require.NoError(t, s.UpsertCrawlResult(ctx, res))

	results, err := s.ListCrawlResults(ctx, 1)
	require.NoError(t, err)
	require.Len(t, results, 1, "upsert replaces the previous result")
	require.Equal(t, 4, results[0].PagesVisited)

	require.NoError(t, s.RecordExport(ctx, store.ExportRecord{DatasetID: 1, Format: "csv", RowCount: 1}))
	require.Len(t, s.Exports(), 1)
	require.False(t, s.Exports()[0].CreatedAt.IsZero())
}
