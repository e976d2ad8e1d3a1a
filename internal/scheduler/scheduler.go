// Package scheduler fans the crawl orchestrator out across a dataset.
// It owns the crawl-job state machine: one idempotent job per business,
// claimed and run by a bounded worker pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leadharvest/leadharvest/internal/action"
	"github.com/leadharvest/leadharvest/internal/crawl"
	"github.com/leadharvest/leadharvest/internal/metrics"
	"github.com/leadharvest/leadharvest/internal/plan"
	"github.com/leadharvest/leadharvest/internal/store"
)

const (
	// MaxWorkers caps the pool size regardless of configuration.
	MaxWorkers = 8

	// DefaultWorkers is the pool size when none is configured.
	DefaultWorkers = 4

	// DefaultJobFreshness is the idempotency window: a business with a
	// queued or running job younger than this is not re-enqueued.
	DefaultJobFreshness = 24 * time.Hour
)

// CrawlRunner runs one business crawl. *crawl.Orchestrator satisfies it.
type CrawlRunner interface {
	Crawl(ctx context.Context, target crawl.Target, opts crawl.Options) crawl.Result
}

// PermissionsProvider resolves a user's plan before scheduling.
type PermissionsProvider interface {
	GetUserPermissions(ctx context.Context, userID int64) (plan.Permissions, error)
}

// PermissionsFunc adapts a function to PermissionsProvider.
type PermissionsFunc func(ctx context.Context, userID int64) (plan.Permissions, error)

// GetUserPermissions implements PermissionsProvider.
func (f PermissionsFunc) GetUserPermissions(ctx context.Context, userID int64) (plan.Permissions, error) {
	return f(ctx, userID)
}

// Store is the persistence surface the scheduler needs.
type Store interface {
	store.BusinessStore
	store.ResultStore
	store.JobStore
}

// Config tunes the scheduler.
type Config struct {
	// Workers is the pool size, clamped to [1, MaxWorkers].
	Workers int
	// JobFreshness is the idempotency window for existing jobs.
	JobFreshness time.Duration
}

// Summary is the dataset-level rollup of one batch.
type Summary struct {
	DatasetID   int64
	Total       int
	Crawled     int
	Failed      int
	Skipped     int
	TotalPages  int
	TotalEmails int
	TotalPhones int
	Errors      []string
}

// Scheduler drives dataset crawls.
type Scheduler struct {
	store   Store
	runner  CrawlRunner
	perms   PermissionsProvider
	actions action.Logger
	log     *zap.Logger
	cfg     Config
}

// New wires a Scheduler. actions and log may be nil.
func New(st Store, runner CrawlRunner, perms PermissionsProvider, actions action.Logger, log *zap.Logger, cfg Config) *Scheduler {
	if actions == nil {
		actions = action.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Workers > MaxWorkers {
		cfg.Workers = MaxWorkers
	}
	if cfg.JobFreshness <= 0 {
		cfg.JobFreshness = DefaultJobFreshness
	}
	return &Scheduler{store: st, runner: runner, perms: perms, actions: actions, log: log, cfg: cfg}
}

// CrawlDataset enqueues one job per business with a website, runs them
// on the worker pool, and persists the rollup. A single business's
// failure never aborts the batch.
func (s *Scheduler) CrawlDataset(ctx context.Context, datasetID, userID int64, opts crawl.Options) (Summary, error) {
	perms, err := s.perms.GetUserPermissions(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve permissions: %w", err)
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = crawl.DefaultOptions().MaxPages
	}
	enforcement := plan.Enforce(perms, plan.ActionCrawlPages, opts.MaxPages)
	if enforcement.Gated {
		s.log.Info("crawl page budget gated by plan",
			zap.Int64("user_id", userID),
			zap.String("tier", string(perms.Tier)),
			zap.Int("requested", enforcement.Requested),
			zap.Int("allowed", enforcement.Allowed),
			zap.String("upgrade_hint", enforcement.UpgradeHint))
	}
	opts.MaxPages = enforcement.Allowed

	businesses, err := s.store.ListBusinessesWithWebsite(ctx, datasetID)
	if err != nil {
		return Summary{}, fmt.Errorf("list businesses: %w", err)
	}

	summary := Summary{DatasetID: datasetID, Total: len(businesses)}
	byID := make(map[int64]store.Business, len(businesses))
	cutoff := time.Now().Add(-s.cfg.JobFreshness)
	queued := 0
	for _, b := range businesses {
		byID[b.ID] = b
		recent, err := s.store.HasRecentJob(ctx, b.ID, cutoff)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("business %d: %v", b.ID, err))
			summary.Skipped++
			continue
		}
		if recent {
			summary.Skipped++
			continue
		}
		job := store.CrawlJob{ID: uuid.NewString(), BusinessID: b.ID, DatasetID: datasetID}
		if err := s.store.CreateJob(ctx, job); err != nil {
			if errors.Is(err, store.ErrDuplicateJob) {
				summary.Skipped++
				continue
			}
			summary.Errors = append(summary.Errors, fmt.Sprintf("business %d: %v", b.ID, err))
			summary.Skipped++
			continue
		}
		queued++
	}

	s.actions.Log(ctx, action.Event{
		Name:      "crawl.dataset_started",
		UserID:    userID,
		DatasetID: datasetID,
		Detail:    map[string]any{"total": summary.Total, "queued": queued},
	})

	workers := s.cfg.Workers
	if queued < workers {
		workers = queued
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, ok, err := s.store.ClaimNextQueued(ctx, datasetID)
				if err != nil {
					s.log.Error("claim job failed", zap.Int64("dataset_id", datasetID), zap.Error(err))
					return
				}
				if !ok {
					return
				}
				out := s.runJob(ctx, job, byID[job.BusinessID], opts)
				mu.Lock()
				if out.ok {
					summary.Crawled++
				} else {
					summary.Failed++
					summary.Errors = append(summary.Errors, fmt.Sprintf("business %d: %s", job.BusinessID, out.errMsg))
				}
				summary.TotalPages += out.pages
				summary.TotalEmails += out.emails
				summary.TotalPhones += out.phones
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	rollup := store.CrawlSummary{
		DatasetID:   datasetID,
		Total:       summary.Total,
		Crawled:     summary.Crawled,
		Failed:      summary.Failed,
		Skipped:     summary.Skipped,
		TotalPages:  summary.TotalPages,
		TotalEmails: summary.TotalEmails,
		TotalPhones: summary.TotalPhones,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.SaveCrawlSummary(ctx, rollup); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("save summary: %v", err))
	}
	s.actions.Log(ctx, action.Event{
		Name:      "crawl.dataset_finished",
		UserID:    userID,
		DatasetID: datasetID,
		Detail: map[string]any{
			"crawled": summary.Crawled,
			"failed":  summary.Failed,
			"skipped": summary.Skipped,
			"pages":   summary.TotalPages,
		},
	})
	return summary, nil
}

type jobOutcome struct {
	ok     bool
	errMsg string
	pages  int
	emails int
	phones int
}

// runJob runs one claimed job to a terminal state. Panics are converted
// to a failed job so the batch keeps going.
func (s *Scheduler) runJob(ctx context.Context, job store.CrawlJob, biz store.Business, opts crawl.Options) (out jobOutcome) {
	done := metrics.WorkerStarted()
	defer done()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = jobOutcome{errMsg: fmt.Sprintf("panic: %v", r)}
			s.finishJob(ctx, job, out, biz, time.Since(start))
		}
	}()

	if biz.WebsiteURL == "" {
		out = jobOutcome{errMsg: "business has no website"}
		s.finishJob(ctx, job, out, biz, time.Since(start))
		return out
	}

	res := s.runner.Crawl(ctx, crawl.Target{
		BusinessID: job.BusinessID,
		DatasetID:  job.DatasetID,
		WebsiteURL: biz.WebsiteURL,
	}, opts)

	out = jobOutcome{
		pages:  res.PagesVisited,
		emails: len(res.Emails),
		phones: len(res.Phones),
	}
	switch {
	case res.Status == crawl.StatusNotCrawled:
		out.errMsg = "site unreachable"
		if len(res.Errors) > 0 {
			out.errMsg = res.Errors[0].Message
		}
	default:
		out.ok = true
	}

	if err := s.store.UpsertCrawlResult(ctx, res); err != nil {
		out.ok = false
		out.errMsg = fmt.Sprintf("persist result: %v", err)
	}
	s.finishJob(ctx, job, out, biz, time.Since(start))
	return out
}

// finishJob records the terminal transition and the per-job log line,
// which is emitted for every job regardless of outcome.
func (s *Scheduler) finishJob(ctx context.Context, job store.CrawlJob, out jobOutcome, biz store.Business, elapsed time.Duration) {
	var status store.JobStatus
	if out.ok {
		status = store.JobCompleted
		if err := s.store.MarkCompleted(ctx, job.ID, out.pages); err != nil {
			s.log.Error("mark job completed failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	} else {
		status = store.JobFailed
		if err := s.store.MarkFailed(ctx, job.ID, out.errMsg); err != nil {
			s.log.Error("mark job failed failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	metrics.JobFinished(string(status))

	s.log.Info("crawl job finished",
		zap.String("job_id", job.ID),
		zap.Int64("business_id", job.BusinessID),
		zap.Int64("dataset_id", job.DatasetID),
		zap.String("site", biz.WebsiteURL),
		zap.String("status", string(status)),
		zap.Int("pages", out.pages),
		zap.Int("emails", out.emails),
		zap.Int("phones", out.phones),
		zap.Duration("elapsed", elapsed),
		zap.String("error", out.errMsg),
	)
}
