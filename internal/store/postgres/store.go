// Package postgres implements the persistence boundary on PostgreSQL via
// pgx. Contact payloads are kept as JSONB documents next to the scalar
// columns the scheduler filters on.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadharvest/leadharvest/internal/crawl"
	"github.com/leadharvest/leadharvest/internal/extract"
	"github.com/leadharvest/leadharvest/internal/store"
)

// Config controls the connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// db is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store is a PostgreSQL-backed store.Store.
type Store struct {
	pool db
}

// New connects a Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool constructs a Store from an existing pool (testing).
func NewWithPool(pool db) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// contactsDoc is the JSONB payload stored per crawl result.
type contactsDoc struct {
	Emails       []emailDoc  `json:"emails,omitempty"`
	Phones       []phoneDoc  `json:"phones,omitempty"`
	Socials      []socialDoc `json:"socials,omitempty"`
	ContactPages []string    `json:"contact_pages,omitempty"`
	Errors       []errorDoc  `json:"errors,omitempty"`
}

type emailDoc struct {
	Value     string `json:"value"`
	SourceURL string `json:"source_url"`
	Context   string `json:"context,omitempty"`
}

type phoneDoc struct {
	Value     string `json:"value"`
	Kind      string `json:"kind"`
	SourceURL string `json:"source_url"`
}

type socialDoc struct {
	Platform  string `json:"platform"`
	URL       string `json:"url"`
	SourceURL string `json:"source_url"`
}

type errorDoc struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// ListBusinessesWithWebsite returns crawl candidates for the dataset.
func (s *Store) ListBusinessesWithWebsite(ctx context.Context, datasetID int64) ([]store.Business, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, dataset_id, name, website_url
		FROM businesses
		WHERE dataset_id = $1 AND website_url <> ''
		ORDER BY id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	defer rows.Close()

	var out []store.Business
	for rows.Next() {
		var b store.Business
		if err := rows.Scan(&b.ID, &b.DatasetID, &b.Name, &b.WebsiteURL); err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate businesses: %w", err)
	}
	return out, nil
}

// UpsertCrawlResult writes the latest result for a business.
func (s *Store) UpsertCrawlResult(ctx context.Context, res crawl.Result) error {
	payload, err := json.Marshal(toContactsDoc(res))
	if err != nil {
		return fmt.Errorf("marshal contacts: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO crawl_results
			(dataset_id, business_id, website_url, status, pages_visited, contacts, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (dataset_id, business_id) DO UPDATE SET
			website_url = EXCLUDED.website_url,
			status = EXCLUDED.status,
			pages_visited = EXCLUDED.pages_visited,
			contacts = EXCLUDED.contacts,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at`,
		res.DatasetID, res.BusinessID, res.WebsiteURL, string(res.Status),
		res.PagesVisited, payload, res.StartedAt, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("upsert crawl result: %w", err)
	}
	return nil
}

// ListCrawlResults loads all results of a dataset.
func (s *Store) ListCrawlResults(ctx context.Context, datasetID int64) ([]crawl.Result, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT dataset_id, business_id, website_url, status, pages_visited, contacts, started_at, finished_at
		FROM crawl_results
		WHERE dataset_id = $1
		ORDER BY business_id`, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list crawl results: %w", err)
	}
	defer rows.Close()

	var out []crawl.Result
	for rows.Next() {
		var (
			res     crawl.Result
			status  string
			payload []byte
		)
		if err := rows.Scan(&res.DatasetID, &res.BusinessID, &res.WebsiteURL, &status,
			&res.PagesVisited, &payload, &res.StartedAt, &res.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan crawl result: %w", err)
		}
		res.Status = crawl.Status(status)
		if err := applyContactsDoc(&res, payload); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate crawl results: %w", err)
	}
	return out, nil
}

// SaveCrawlSummary inserts a dataset rollup row.
func (s *Store) SaveCrawlSummary(ctx context.Context, sum store.CrawlSummary) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO crawl_summaries
			(dataset_id, total, crawled, failed, skipped, total_pages, total_emails, total_phones, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sum.DatasetID, sum.Total, sum.Crawled, sum.Failed, sum.Skipped,
		sum.TotalPages, sum.TotalEmails, sum.TotalPhones, sum.CreatedAt)
	if err != nil {
		return fmt.Errorf("save crawl summary: %w", err)
	}
	return nil
}

// CreateJob inserts a queued job row.
func (s *Store) CreateJob(ctx context.Context, job store.CrawlJob) error {
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO crawl_jobs (id, business_id, dataset_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.BusinessID, job.DatasetID, string(store.JobQueued), createdAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// HasRecentJob reports a queued/running job newer than the cutoff.
func (s *Store) HasRecentJob(ctx context.Context, businessID int64, cutoff time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM crawl_jobs
			WHERE business_id = $1 AND status IN ('queued', 'running') AND created_at > $2
		)`, businessID, cutoff).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check recent job: %w", err)
	}
	return exists, nil
}

// ClaimNextQueued atomically claims the oldest queued job of the dataset.
// SKIP LOCKED keeps concurrent workers from fighting over the same row.
func (s *Store) ClaimNextQueued(ctx context.Context, datasetID int64) (store.CrawlJob, bool, error) {
	var (
		job       store.CrawlJob
		status    string
		startedAt time.Time
	)
	err := s.pool.QueryRow(ctx, `
		UPDATE crawl_jobs SET status = 'running', started_at = now()
		WHERE id = (
			SELECT id FROM crawl_jobs
			WHERE dataset_id = $1 AND status = 'queued'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, business_id, dataset_id, status, created_at, started_at`,
		datasetID).Scan(&job.ID, &job.BusinessID, &job.DatasetID, &status, &job.CreatedAt, &startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.CrawlJob{}, false, nil
	}
	if err != nil {
		return store.CrawlJob{}, false, fmt.Errorf("claim job: %w", err)
	}
	job.Status = store.JobStatus(status)
	job.StartedAt = &startedAt
	return job, true, nil
}

// MarkCompleted finishes a running job successfully.
func (s *Store) MarkCompleted(ctx context.Context, jobID string, pagesCrawled int) error {
	return s.finish(ctx, jobID, store.JobCompleted, pagesCrawled, "")
}

// MarkFailed finishes a running job with an error message.
func (s *Store) MarkFailed(ctx context.Context, jobID string, message string) error {
	return s.finish(ctx, jobID, store.JobFailed, 0, message)
}

func (s *Store) finish(ctx context.Context, jobID string, status store.JobStatus, pages int, message string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE crawl_jobs
		SET status = $2, pages_crawled = $3, error_message = $4, finished_at = now()
		WHERE id = $1 AND status = 'running'`,
		jobID, string(status), pages, message)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrInvalidTransition
	}
	return nil
}

// GetJob loads one job row.
func (s *Store) GetJob(ctx context.Context, jobID string) (store.CrawlJob, error) {
	var (
		job    store.CrawlJob
		status string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, business_id, dataset_id, status, pages_crawled,
			COALESCE(error_message, ''), created_at, started_at, finished_at
		FROM crawl_jobs WHERE id = $1`, jobID).
		Scan(&job.ID, &job.BusinessID, &job.DatasetID, &status, &job.PagesCrawled,
			&job.ErrorMessage, &job.CreatedAt, &job.StartedAt, &job.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.CrawlJob{}, store.ErrNotFound
	}
	if err != nil {
		return store.CrawlJob{}, fmt.Errorf("get job: %w", err)
	}
	job.Status = store.JobStatus(status)
	return job, nil
}

// RecordExport inserts an export audit row.
func (s *Store) RecordExport(ctx context.Context, rec store.ExportRecord) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO export_logs (dataset_id, user_id, tier, format, row_count, watermark, uri, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.DatasetID, rec.UserID, rec.Tier, rec.Format, rec.RowCount, rec.Watermark, rec.URI, createdAt)
	if err != nil {
		return fmt.Errorf("record export: %w", err)
	}
	return nil
}

func toContactsDoc(res crawl.Result) contactsDoc {
	doc := contactsDoc{ContactPages: res.ContactPages}
	for _, e := range res.Emails {
		doc.Emails = append(doc.Emails, emailDoc{Value: e.Value, SourceURL: e.SourceURL, Context: e.Context})
	}
	for _, p := range res.Phones {
		doc.Phones = append(doc.Phones, phoneDoc{Value: p.Value, Kind: string(p.Kind), SourceURL: p.SourceURL})
	}
	for _, so := range res.Socials {
		doc.Socials = append(doc.Socials, socialDoc{Platform: so.Platform, URL: so.URL, SourceURL: so.SourceURL})
	}
	for _, pe := range res.Errors {
		doc.Errors = append(doc.Errors, errorDoc{URL: pe.URL, Message: pe.Message})
	}
	return doc
}

func applyContactsDoc(res *crawl.Result, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var doc contactsDoc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("unmarshal contacts: %w", err)
	}
	res.ContactPages = doc.ContactPages
	for _, e := range doc.Emails {
		res.Emails = append(res.Emails, extract.Email{Value: e.Value, SourceURL: e.SourceURL, Context: e.Context})
	}
	for _, p := range doc.Phones {
		res.Phones = append(res.Phones, extract.Phone{Value: p.Value, Kind: extract.PhoneKind(p.Kind), SourceURL: p.SourceURL})
	}
	for _, so := range doc.Socials {
		res.Socials = append(res.Socials, extract.Social{Platform: so.Platform, URL: so.URL, SourceURL: so.SourceURL})
	}
	for _, pe := range doc.Errors {
		res.Errors = append(res.Errors, crawl.PageError{URL: pe.URL, Message: pe.Message})
	}
	return nil
}
