// Package crawl drives the bounded breadth-first crawl of one business's
// website and accumulates the contact signals found along the way.
package crawl

import (
	"time"

	"github.com/leadharvest/leadharvest/internal/extract"
)

// Hard safety ceilings. These cap every run regardless of plan limits or
// internal-user overrides; the stricter of the two layers always wins.
const (
	HardMaxPages = 100
	HardMaxDepth = 5
)

// Status is the outcome classification of one crawl run.
type Status string

// Run outcomes.
const (
	// StatusNotCrawled means zero pages were ever fetched successfully.
	StatusNotCrawled Status = "not_crawled"
	// StatusPartial means the page budget ran out before the frontier
	// emptied, or the frontier drained on nothing but trailing fetch
	// failures after at least one page had succeeded.
	StatusPartial Status = "partial"
	// StatusCompleted means the frontier emptied naturally, with the
	// final attempts succeeding or merely skipped.
	StatusCompleted Status = "completed"
)

// Target is the immutable input to one crawl run.
type Target struct {
	BusinessID int64
	DatasetID  int64
	WebsiteURL string
}

// Options are the safety ceilings for one run. The orchestrator never
// exceeds them even when a plan would permit more.
type Options struct {
	MaxPages          int
	MaxDepth          int
	Concurrency       int
	PerRequestTimeout time.Duration
	InterRequestDelay time.Duration
}

// DefaultOptions returns the stock per-run budgets.
func DefaultOptions() Options {
	return Options{
		MaxPages:          15,
		MaxDepth:          2,
		Concurrency:       3,
		PerRequestTimeout: 12 * time.Second,
		InterRequestDelay: 500 * time.Millisecond,
	}
}

// clamped applies the hard ceilings and fills zero values.
func (o Options) clamped() Options {
	def := DefaultOptions()
	if o.MaxPages <= 0 {
		o.MaxPages = def.MaxPages
	}
	if o.MaxPages > HardMaxPages {
		o.MaxPages = HardMaxPages
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = def.MaxDepth
	}
	if o.MaxDepth > HardMaxDepth {
		o.MaxDepth = HardMaxDepth
	}
	if o.PerRequestTimeout <= 0 {
		o.PerRequestTimeout = def.PerRequestTimeout
	}
	if o.InterRequestDelay < 0 {
		o.InterRequestDelay = 0
	}
	return o
}

// PageError records one failed page fetch inside a run.
type PageError struct {
	URL     string
	Message string
}

// Result is the per-business outcome of one crawl run.
type Result struct {
	BusinessID   int64
	DatasetID    int64
	WebsiteURL   string
	Status       Status
	PagesVisited int
	Emails       []extract.Email
	Phones       []extract.Phone
	Socials      []extract.Social
	// ContactPages lists contact-like page URLs that were actually
	// visited, in visit order.
	ContactPages []string
	Errors       []PageError
	StartedAt    time.Time
	FinishedAt   time.Time
}
