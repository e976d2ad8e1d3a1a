package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrRendererClosed indicates Fetch was called after Close.
var ErrRendererClosed = errors.New("fetch: renderer closed")

// RendererConfig controls the headless Chrome renderer.
type RendererConfig struct {
	UserAgent  string
	NavTimeout time.Duration
}

// Renderer fetches pages through headless Chrome. It satisfies the same
// Fetcher contract as HTTPFetcher so the orchestrator can swap it in for
// script-heavy sites. The browser is started lazily on first use and must
// be released with Close; it is never shared as ambient global state.
type Renderer struct {
	cfg RendererConfig
	log *zap.Logger

	mu              sync.Mutex
	started         bool
	closed          bool
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
}

// NewRenderer builds a Renderer. The browser process is not started here.
func NewRenderer(cfg RendererConfig, log *zap.Logger) *Renderer {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 25 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{cfg: cfg, log: log}
}

// Fetch renders the page with JavaScript enabled and returns the DOM
// snapshot as the body.
func (r *Renderer) Fetch(ctx context.Context, rawURL string) (Response, error) {
	browserCtx, err := r.ensureStarted()
	if err != nil {
		return Response{}, err
	}

	start := time.Now()
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	taskCtx, cancelTask := context.WithTimeout(tabCtx, r.cfg.NavTimeout)
	defer cancelTask()
	stop := forwardCancel(ctx, cancelTask)
	defer stop()

	meta := &responseMeta{headers: make(http.Header)}
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.once.Do(func() {
			meta.statusCode = int(resp.Response.Status)
			meta.url = resp.Response.URL
			for k, v := range resp.Response.Headers {
				meta.headers.Add(k, fmt.Sprint(v))
			}
		})
	})

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(r.cfg.UserAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Response{}, fmt.Errorf("%w: render %s", ErrTimeout, rawURL)
		}
		return Response{}, fmt.Errorf("%w: chromedp run: %s", ErrNetwork, err)
	}

	status := meta.statusCode
	if status == 0 {
		status = http.StatusOK
	}
	finalURL := meta.url
	if finalURL == "" {
		finalURL = rawURL
	}
	return Response{
		RequestedURL: rawURL,
		FinalURL:     finalURL,
		StatusCode:   status,
		ContentType:  meta.headers.Get("Content-Type"),
		Body:         []byte(html),
		Duration:     time.Since(start),
		Rendered:     true,
	}, nil
}

// Close tears down the browser and allocator. Safe to call more than once
// and before first use.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if !r.started {
		return
	}
	r.browserCancel()
	r.allocatorCancel()
	r.started = false
}

func (r *Renderer) ensureStarted() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRendererClosed
	}
	if r.started {
		return r.browserCtx, nil
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(r.cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	r.allocatorCancel = allocatorCancel
	r.browserCtx = browserCtx
	r.browserCancel = browserCancel
	r.started = true
	r.log.Info("headless browser started")
	return browserCtx, nil
}

type responseMeta struct {
	once       sync.Once
	statusCode int
	headers    http.Header
	url        string
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
