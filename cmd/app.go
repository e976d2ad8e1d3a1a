// Package cmd defines the CLI commands for the leadharvest executable.
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/leadharvest/leadharvest/internal/action"
	"github.com/leadharvest/leadharvest/internal/blob"
	"github.com/leadharvest/leadharvest/internal/config"
	"github.com/leadharvest/leadharvest/internal/crawl"
	"github.com/leadharvest/leadharvest/internal/export"
	"github.com/leadharvest/leadharvest/internal/fetch"
	"github.com/leadharvest/leadharvest/internal/logging"
	"github.com/leadharvest/leadharvest/internal/plan"
	"github.com/leadharvest/leadharvest/internal/scheduler"
	"github.com/leadharvest/leadharvest/internal/store"
	"github.com/leadharvest/leadharvest/internal/store/memory"
	"github.com/leadharvest/leadharvest/internal/store/postgres"
)

// app holds the wired service graph shared by the subcommands.
type app struct {
	cfg      config.Config
	log      *zap.Logger
	store    store.Store
	sched    *scheduler.Scheduler
	exporter *export.Service
	closers  []func()
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}

	if cfg.DB.DSN != "" {
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.store = pg
		a.closers = append(a.closers, pg.Close)
	} else {
		log.Warn("db.dsn not configured, using in-memory store")
		a.store = memory.New()
	}

	fetcher := fetch.NewHTTPFetcher(fetch.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		Timeout:       cfg.CrawlTimeout(),
		MaxBodySize:   cfg.Crawler.MaxBodyBytes,
		RespectRobots: cfg.Crawler.RespectRobots,
	})
	var (
		renderer fetch.Fetcher
		detector *fetch.Detector
	)
	if cfg.Headless.Enabled {
		r := fetch.NewRenderer(fetch.RendererConfig{
			UserAgent:  cfg.Crawler.UserAgent,
			NavTimeout: cfg.CrawlTimeout(),
		}, log)
		renderer = r
		detector = fetch.NewDetector()
		if cfg.Headless.MinBodyBytes > 0 {
			detector.MinBodyBytes = cfg.Headless.MinBodyBytes
		}
		a.closers = append(a.closers, r.Close)
	}
	orch := crawl.NewOrchestrator(fetcher, renderer, detector, log)

	var actions action.Logger = action.NewZapSink(log)
	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		sink, err := action.NewPubSubSink(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName, log)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		actions = sink
		a.closers = append(a.closers, func() { _ = sink.Close() })
	}

	perms := plan.StaticProvider{
		Tier:     plan.Tier(cfg.Plan.DefaultTier),
		Internal: cfg.Plan.InternalUsers,
	}
	a.sched = scheduler.New(a.store, orch, perms, actions, log, scheduler.Config{
		Workers:      cfg.Scheduler.Workers,
		JobFreshness: cfg.JobFreshness(),
	})

	var artifacts blob.Store
	if cfg.Export.GCSBucket != "" {
		gcs, err := blob.NewGCS(ctx, cfg.Export.GCSBucket, cfg.Export.Prefix)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		artifacts = gcs
		a.closers = append(a.closers, func() { _ = gcs.Close() })
	} else {
		local, err := blob.NewLocal(cfg.Export.Dir)
		if err != nil {
			return nil, fmt.Errorf("init export dir: %w", err)
		}
		artifacts = local
	}
	a.exporter = export.NewService(a.store, artifacts, perms, actions, log)

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

// crawlOptions maps the configured crawl budgets to per-run options.
func (a *app) crawlOptions() crawl.Options {
	opts := crawl.DefaultOptions()
	opts.MaxPages = a.cfg.Crawler.MaxPagesDefault
	opts.MaxDepth = a.cfg.Crawler.MaxDepthDefault
	opts.PerRequestTimeout = a.cfg.CrawlTimeout()
	opts.InterRequestDelay = a.cfg.InterRequestDelay()
	return opts
}
