// Package store defines the persistence boundary of the crawl pipeline
// and the domain rows it exchanges with collaborators. Implementations
// live in the memory and postgres subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/leadharvest/leadharvest/internal/crawl"
)

// Store errors.
var (
	ErrNotFound          = errors.New("store: not found")
	ErrDuplicateJob      = errors.New("store: job already exists")
	ErrInvalidTransition = errors.New("store: invalid job status transition")
)

// JobStatus is the lifecycle state of a crawl job. Transitions are
// monotonic: queued → running → completed|failed.
type JobStatus string

// Job status values.
const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Business is a discovered business with a candidate website.
type Business struct {
	ID         int64
	DatasetID  int64
	Name       string
	WebsiteURL string
}

// CrawlJob is one crawl attempt for one business.
type CrawlJob struct {
	ID           string
	BusinessID   int64
	DatasetID    int64
	Status       JobStatus
	PagesCrawled int
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// CrawlSummary is the dataset-level rollup persisted after a batch.
type CrawlSummary struct {
	DatasetID   int64
	Total       int
	Crawled     int
	Failed      int
	Skipped     int
	TotalPages  int
	TotalEmails int
	TotalPhones int
	CreatedAt   time.Time
}

// ExportRecord is the audit row written for every export artifact.
type ExportRecord struct {
	DatasetID int64
	UserID    int64
	Tier      string
	Format    string
	RowCount  int
	Watermark string
	URI       string
	CreatedAt time.Time
}

// BusinessStore lists crawl candidates.
type BusinessStore interface {
	ListBusinessesWithWebsite(ctx context.Context, datasetID int64) ([]Business, error)
}

// ResultStore persists per-business crawl outcomes and dataset rollups.
type ResultStore interface {
	UpsertCrawlResult(ctx context.Context, res crawl.Result) error
	ListCrawlResults(ctx context.Context, datasetID int64) ([]crawl.Result, error)
	SaveCrawlSummary(ctx context.Context, summary CrawlSummary) error
}

// JobStore owns the crawl-job state machine. ClaimNextQueued must be
// atomic: no two workers may act on the same job.
type JobStore interface {
	CreateJob(ctx context.Context, job CrawlJob) error
	// HasRecentJob reports whether the business already has a queued or
	// running job created after the cutoff.
	HasRecentJob(ctx context.Context, businessID int64, cutoff time.Time) (bool, error)
	// ClaimNextQueued atomically moves the oldest queued job of the
	// dataset to running and returns it; ok is false when none remain.
	ClaimNextQueued(ctx context.Context, datasetID int64) (job CrawlJob, ok bool, err error)
	MarkCompleted(ctx context.Context, jobID string, pagesCrawled int) error
	MarkFailed(ctx context.Context, jobID string, message string) error
	GetJob(ctx context.Context, jobID string) (CrawlJob, error)
}

// ExportStore records export audit rows.
type ExportStore interface {
	RecordExport(ctx context.Context, rec ExportRecord) error
}

// Store is the full persistence surface consumed by the scheduler and
// the exporter.
type Store interface {
	BusinessStore
	ResultStore
	JobStore
	ExportStore
}
