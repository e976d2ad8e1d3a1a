// Package api exposes the HTTP interface for the crawl service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/leadharvest/leadharvest/internal/config"
	"github.com/leadharvest/leadharvest/internal/crawl"
	"github.com/leadharvest/leadharvest/internal/export"
	"github.com/leadharvest/leadharvest/internal/metrics"
	"github.com/leadharvest/leadharvest/internal/plan"
	"github.com/leadharvest/leadharvest/internal/scheduler"
	"github.com/leadharvest/leadharvest/internal/store"
)

// DatasetCrawler runs a dataset batch. *scheduler.Scheduler satisfies it.
type DatasetCrawler interface {
	CrawlDataset(ctx context.Context, datasetID, userID int64, opts crawl.Options) (scheduler.Summary, error)
}

// Exporter builds an export artifact. *export.Service satisfies it.
type Exporter interface {
	ExportDataset(ctx context.Context, datasetID, userID int64, tier plan.Tier, format export.Format) (string, error)
}

// Server wires HTTP handlers to the scheduler, exporter and job store.
type Server struct {
	router   chi.Router
	crawler  DatasetCrawler
	exporter Exporter
	jobs     store.JobStore
	cfg      config.Config
	log      *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(crawler DatasetCrawler, exporter Exporter, jobs store.JobStore, cfg config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{crawler: crawler, exporter: exporter, jobs: jobs, cfg: cfg, log: log}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(recoverMiddleware(log))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/datasets/{dataset_id}", func(r chi.Router) {
			r.Post("/crawl", s.crawlDataset)
			r.With(timeoutMiddleware(60*time.Second)).Post("/export", s.exportDataset)
		})
		r.With(timeoutMiddleware(10 * time.Second)).Get("/jobs/{job_id}", s.getJob)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type crawlRequest struct {
	UserID   int64 `json:"user_id"`
	MaxPages *int  `json:"max_pages"`
	MaxDepth *int  `json:"max_depth"`
}

func (s *Server) crawlDataset(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := pathID(w, r, "dataset_id")
	if !ok {
		return
	}
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}

	opts := crawl.DefaultOptions()
	opts.MaxPages = valueOrDefault(req.MaxPages, s.cfg.Crawler.MaxPagesDefault)
	opts.MaxDepth = valueOrDefault(req.MaxDepth, s.cfg.Crawler.MaxDepthDefault)
	opts.PerRequestTimeout = s.cfg.CrawlTimeout()
	opts.InterRequestDelay = s.cfg.InterRequestDelay()

	summary, err := s.crawler.CrawlDataset(r.Context(), datasetID, req.UserID, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

type exportRequest struct {
	UserID int64  `json:"user_id"`
	Tier   string `json:"tier"`
	Format string `json:"format"`
}

func (s *Server) exportDataset(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := pathID(w, r, "dataset_id")
	if !ok {
		return
	}
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id required")
		return
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tier := plan.Tier(req.Tier)
	if tier == "" {
		tier = plan.TierFree
	}

	uri, err := s.exporter.ExportDataset(r.Context(), datasetID, req.UserID, tier, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uri": uri, "format": string(format)})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": newJobView(job)})
}

// jobView is the wire shape of a crawl job.
type jobView struct {
	ID           string     `json:"id"`
	BusinessID   int64      `json:"business_id"`
	DatasetID    int64      `json:"dataset_id"`
	Status       string     `json:"status"`
	PagesCrawled int        `json:"pages_crawled"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func newJobView(job store.CrawlJob) jobView {
	return jobView{
		ID:           job.ID,
		BusinessID:   job.BusinessID,
		DatasetID:    job.DatasetID,
		Status:       string(job.Status),
		PagesCrawled: job.PagesCrawled,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func valueOrDefault(ptr *int, def int) int {
	if ptr == nil {
		return def
	}
	return *ptr
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
