package crawl

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leadharvest/leadharvest/internal/extract"
	"github.com/leadharvest/leadharvest/internal/fetch"
	"github.com/leadharvest/leadharvest/internal/metrics"
	"github.com/leadharvest/leadharvest/internal/parse"
	"github.com/leadharvest/leadharvest/internal/urlutil"
)

// Orchestrator runs the sequential BFS crawl of one website. It holds no
// per-run state and is safe to share across scheduler workers; the visited
// set and frontier live inside each Crawl call.
type Orchestrator struct {
	fetcher  fetch.Fetcher
	renderer fetch.Fetcher
	detector *fetch.Detector
	logger   *zap.Logger
}

// NewOrchestrator builds an Orchestrator. renderer may be nil to disable
// headless promotion; detector is only consulted when a renderer is set.
func NewOrchestrator(fetcher fetch.Fetcher, renderer fetch.Fetcher, detector *fetch.Detector, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:  fetcher,
		renderer: renderer,
		detector: detector,
		logger:   logger,
	}
}

// Crawl visits the target website breadth-first within the given budgets
// and returns whatever contact signals it found. Individual page failures
// are recorded and skipped; only an unusable starting URL fails the run,
// and even that is reported as data, never a panic or returned error.
func (o *Orchestrator) Crawl(ctx context.Context, target Target, opts Options) Result {
	opts = opts.clamped()
	res := Result{
		BusinessID: target.BusinessID,
		DatasetID:  target.DatasetID,
		WebsiteURL: target.WebsiteURL,
		Status:     StatusNotCrawled,
		StartedAt:  time.Now().UTC(),
	}
	defer func() { res.FinishedAt = time.Now().UTC() }()

	start, err := urlutil.Normalize(target.WebsiteURL)
	if err != nil {
		res.Errors = append(res.Errors, PageError{URL: target.WebsiteURL, Message: err.Error()})
		return res
	}
	baseURL, err := url.Parse(start)
	if err != nil {
		res.Errors = append(res.Errors, PageError{URL: start, Message: err.Error()})
		return res
	}
	baseDomain := baseURL.Hostname()

	visited := make(visitedSet)
	fr := &frontier{}
	fr.PushBack(frontierItem{url: start, depth: 0})

	limit := rate.Inf
	if opts.InterRequestDelay > 0 {
		limit = rate.Every(opts.InterRequestDelay)
	}
	// Burst of one means the first fetch proceeds immediately and every
	// later fetch waits out the inter-request delay.
	limiter := rate.NewLimiter(limit, 1)

	seenEmails := make(map[string]struct{})
	seenPhones := make(map[string]struct{})
	seenSocials := make(map[string]struct{})
	seenContactPages := make(map[string]struct{})

	// True while the most recent fetch attempts have all failed. A run
	// whose frontier drains on nothing but failures is partial, not
	// completed: the site stopped answering before the crawl was done.
	trailingFailure := false

	for res.PagesVisited < opts.MaxPages {
		item, ok := fr.Pop()
		if !ok {
			break
		}
		if item.depth > opts.MaxDepth {
			continue
		}
		canonical := urlutil.CanonicalizeString(item.url)
		if !visited.MarkIfNew(canonical) {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			res.Errors = append(res.Errors, PageError{URL: item.url, Message: err.Error()})
			trailingFailure = true
			break
		}

		resp, err := o.fetchPage(ctx, item.url, opts.PerRequestTimeout)
		if err != nil {
			res.Errors = append(res.Errors, PageError{URL: item.url, Message: err.Error()})
			metrics.PageFetched(baseDomain, "error")
			trailingFailure = true
			continue
		}
		res.PagesVisited++
		trailingFailure = false
		metrics.PageFetched(baseDomain, "ok")
		metrics.ObserveFetchDuration(baseDomain, resp.Duration)

		finalURL := baseURL
		if resp.FinalURL != "" {
			if u, perr := url.Parse(resp.FinalURL); perr == nil {
				finalURL = u
				visited.MarkIfNew(urlutil.Canonicalize(u))
			}
		}

		page, perr := parse.Parse(resp.Body, finalURL, baseDomain)
		if perr != nil {
			res.Errors = append(res.Errors, PageError{URL: item.url, Message: perr.Error()})
			continue
		}

		if item.contactLike || parse.IsContactLike(finalURL.Path, "") {
			if _, dup := seenContactPages[canonical]; !dup {
				seenContactPages[canonical] = struct{}{}
				res.ContactPages = append(res.ContactPages, canonical)
			}
		}

		for _, email := range extract.Emails(page.Doc, canonical, page.Text) {
			if _, dup := seenEmails[email.Value]; dup {
				continue
			}
			seenEmails[email.Value] = struct{}{}
			res.Emails = append(res.Emails, email)
		}
		for _, phone := range extract.Phones(page.Doc, canonical, page.Text) {
			if _, dup := seenPhones[phone.Value]; dup {
				continue
			}
			seenPhones[phone.Value] = struct{}{}
			res.Phones = append(res.Phones, phone)
		}
		// Profile links on deep pages are routinely somebody else's
		// (partners, suppliers, embedded widgets); trust the homepage only.
		if item.depth == 0 {
			for _, social := range extract.Socials(page.Doc, canonical) {
				if _, dup := seenSocials[social.Platform]; dup {
					continue
				}
				seenSocials[social.Platform] = struct{}{}
				res.Socials = append(res.Socials, social)
			}
		}

		o.enqueueLinks(fr, visited, page, item.depth+1, opts)
	}

	metrics.ContactsExtracted("email", len(res.Emails))
	metrics.ContactsExtracted("phone", len(res.Phones))
	metrics.ContactsExtracted("social", len(res.Socials))

	switch {
	case res.PagesVisited == 0:
		res.Status = StatusNotCrawled
	case fr.Len() > 0 && res.PagesVisited >= opts.MaxPages:
		res.Status = StatusPartial
	case trailingFailure:
		// The frontier emptied because the remaining fetches kept
		// failing, not because the site was exhausted.
		res.Status = StatusPartial
	default:
		res.Status = StatusCompleted
	}
	o.logger.Debug("crawl finished",
		zap.Int64("business_id", target.BusinessID),
		zap.String("site", baseDomain),
		zap.String("status", string(res.Status)),
		zap.Int("pages", res.PagesVisited),
		zap.Int("emails", len(res.Emails)),
		zap.Int("phones", len(res.Phones)),
		zap.Int("errors", len(res.Errors)),
	)
	return res
}

// enqueueLinks adds newly discovered same-domain links, contact-like ones
// first. The pending queue is bounded by the page budget so a link farm
// cannot balloon the frontier; a contact-like link arriving at a full
// queue displaces the stalest ordinary entry instead of being dropped.
func (o *Orchestrator) enqueueLinks(fr *frontier, visited visitedSet, page parse.Result, depth int, opts Options) {
	if depth > opts.MaxDepth {
		return
	}
	contactLike := make(map[string]struct{}, len(page.ContactLinks))
	for _, link := range page.ContactLinks {
		contactLike[link] = struct{}{}
	}
	// Walk contact links in reverse so PushFront keeps document order.
	for i := len(page.ContactLinks) - 1; i >= 0; i-- {
		link := page.ContactLinks[i]
		if visited.Contains(link) {
			continue
		}
		if fr.Len() >= opts.MaxPages && !fr.DropOrdinaryBack() {
			continue
		}
		fr.PushFront(frontierItem{url: link, depth: depth, contactLike: true})
	}
	for _, link := range page.Links {
		if _, isContact := contactLike[link]; isContact {
			continue
		}
		if visited.Contains(link) || fr.Len() >= opts.MaxPages {
			continue
		}
		fr.PushBack(frontierItem{url: link, depth: depth})
	}
}

func (o *Orchestrator) fetchPage(ctx context.Context, rawURL string, timeout time.Duration) (fetch.Response, error) {
	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := o.fetcher.Fetch(pageCtx, rawURL)
	if err != nil {
		return fetch.Response{}, err
	}
	if o.renderer == nil || o.detector == nil || !o.detector.NeedsRender(resp) {
		return resp, nil
	}
	rendered, rerr := o.renderer.Fetch(pageCtx, rawURL)
	if rerr != nil {
		o.logger.Warn("headless promotion failed, keeping plain response",
			zap.String("url", rawURL), zap.Error(rerr))
		return resp, nil
	}
	return rendered, nil
}
