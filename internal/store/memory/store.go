// Package memory provides an in-memory Store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/leadharvest/leadharvest/internal/crawl"
	"github.com/leadharvest/leadharvest/internal/store"
)

// Store keeps everything in maps behind one mutex. Claim semantics match
// the Postgres implementation: a job is observed by at most one worker.
type Store struct {
	mu         sync.Mutex
	businesses map[int64][]store.Business
	results    map[int64]map[int64]crawl.Result // datasetID → businessID → result
	summaries  []store.CrawlSummary
	jobs       map[string]store.CrawlJob
	jobOrder   []string
	exports    []store.ExportRecord
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		businesses: make(map[int64][]store.Business),
		results:    make(map[int64]map[int64]crawl.Result),
		jobs:       make(map[string]store.CrawlJob),
	}
}

// SeedBusinesses registers crawl candidates for a dataset.
func (s *Store) SeedBusinesses(datasetID int64, businesses ...store.Business) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.businesses[datasetID] = append(s.businesses[datasetID], businesses...)
}

// ListBusinessesWithWebsite returns candidates that carry a website URL.
func (s *Store) ListBusinessesWithWebsite(_ context.Context, datasetID int64) ([]store.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Business
	for _, b := range s.businesses[datasetID] {
		if b.WebsiteURL != "" {
			out = append(out, b)
		}
	}
	return out, nil
}

// UpsertCrawlResult stores the latest result for a business.
func (s *Store) UpsertCrawlResult(_ context.Context, res crawl.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byBusiness := s.results[res.DatasetID]
	if byBusiness == nil {
		byBusiness = make(map[int64]crawl.Result)
		s.results[res.DatasetID] = byBusiness
	}
	byBusiness[res.BusinessID] = res
	return nil
}

// ListCrawlResults returns all results of a dataset ordered by business ID.
func (s *Store) ListCrawlResults(_ context.Context, datasetID int64) ([]crawl.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byBusiness := s.results[datasetID]
	ids := make([]int64, 0, len(byBusiness))
	for id := range byBusiness {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]crawl.Result, 0, len(ids))
	for _, id := range ids {
		out = append(out, byBusiness[id])
	}
	return out, nil
}

// SaveCrawlSummary appends a dataset rollup.
func (s *Store) SaveCrawlSummary(_ context.Context, summary store.CrawlSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries = append(s.summaries, summary)
	return nil
}

// Summaries returns stored rollups (test helper).
func (s *Store) Summaries() []store.CrawlSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.CrawlSummary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

// CreateJob stores a new job; the status is forced to queued.
func (s *Store) CreateJob(_ context.Context, job store.CrawlJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return store.ErrDuplicateJob
	}
	job.Status = store.JobQueued
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	s.jobs[job.ID] = job
	s.jobOrder = append(s.jobOrder, job.ID)
	return nil
}

// HasRecentJob reports a queued/running job for the business created after
// the cutoff.
func (s *Store) HasRecentJob(_ context.Context, businessID int64, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.BusinessID != businessID {
			continue
		}
		if job.Status != store.JobQueued && job.Status != store.JobRunning {
			continue
		}
		if job.CreatedAt.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}

// ClaimNextQueued pops the oldest queued job of the dataset and marks it
// running in the same critical section.
func (s *Store) ClaimNextQueued(_ context.Context, datasetID int64) (store.CrawlJob, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.jobOrder {
		job := s.jobs[id]
		if job.DatasetID != datasetID || job.Status != store.JobQueued {
			continue
		}
		now := time.Now().UTC()
		job.Status = store.JobRunning
		job.StartedAt = &now
		s.jobs[id] = job
		return job, true, nil
	}
	return store.CrawlJob{}, false, nil
}

// MarkCompleted finishes a running job successfully.
func (s *Store) MarkCompleted(_ context.Context, jobID string, pagesCrawled int) error {
	return s.finish(jobID, store.JobCompleted, pagesCrawled, "")
}

// MarkFailed finishes a running job with an error message.
func (s *Store) MarkFailed(_ context.Context, jobID string, message string) error {
	return s.finish(jobID, store.JobFailed, 0, message)
}

func (s *Store) finish(jobID string, status store.JobStatus, pages int, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if job.Status != store.JobRunning {
		return store.ErrInvalidTransition
	}
	now := time.Now().UTC()
	job.Status = status
	job.PagesCrawled = pages
	job.ErrorMessage = message
	job.FinishedAt = &now
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches one job.
func (s *Store) GetJob(_ context.Context, jobID string) (store.CrawlJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return store.CrawlJob{}, store.ErrNotFound
	}
	return job, nil
}

// RecordExport appends an export audit row.
func (s *Store) RecordExport(_ context.Context, rec store.ExportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	s.exports = append(s.exports, rec)
	return nil
}

// Exports returns recorded export rows (test helper).
func (s *Store) Exports() []store.ExportRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.ExportRecord, len(s.exports))
	copy(out, s.exports)
	return out
}
