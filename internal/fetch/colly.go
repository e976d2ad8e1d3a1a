package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// Defaults applied when Config leaves a knob zero.
const (
	DefaultTimeout     = 12 * time.Second
	DefaultMaxBodySize = 1536 * 1024 // 1.5MB
)

// acceptedContentTypes lists the document types the extractors can work on.
var acceptedContentTypes = []string{
	"text/html",
	"application/xhtml+xml",
	"text/plain",
}

// Config controls the HTTP fetcher.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	MaxBodySize   int
	RespectRobots bool
	// InsecureTLS skips certificate verification. Test servers only.
	InsecureTLS bool
}

// HTTPFetcher fetches pages over plain HTTP using a colly collector.
type HTTPFetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// NewHTTPFetcher builds an HTTPFetcher with pooled transport settings.
func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport(cfg.InsecureTLS))
	return &HTTPFetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single GET. The size ceiling is enforced by capping the
// collector's body buffer one byte past the limit, so an over-limit body is
// detectable without buffering the whole stream.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Response, error) {
	var (
		result      Response
		fetchErr    error
		unsupported bool
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.MaxBodySize = f.cfg.MaxBodySize + 1
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponseHeaders(func(r *colly.Response) {
		ct := r.Headers.Get("Content-Type")
		if !isAcceptedContentType(ct) {
			unsupported = true
			r.Request.Abort()
		}
	})
	collector.OnResponse(func(r *colly.Response) {
		result = Response{
			RequestedURL: rawURL,
			FinalURL:     r.Request.URL.String(),
			StatusCode:   r.StatusCode,
			ContentType:  r.Headers.Get("Content-Type"),
			Body:         append([]byte(nil), r.Body...),
			Duration:     time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			fetchErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
			return
		}
		fetchErr = err
	})

	if err := f.runCollector(ctx, collector, rawURL); err != nil {
		return Response{}, f.classify(err, unsupported)
	}
	if fetchErr != nil {
		return Response{}, f.classify(fetchErr, unsupported)
	}
	if unsupported {
		return Response{}, fmt.Errorf("%w: %s", ErrUnsupportedType, result.ContentType)
	}
	if len(result.Body) > f.cfg.MaxBodySize {
		return Response{}, fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, f.cfg.MaxBodySize)
	}
	return result, nil
}

func (f *HTTPFetcher) runCollector(ctx context.Context, collector *colly.Collector, rawURL string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s", ErrTimeout, ctx.Err())
	case err := <-done:
		return err
	}
}

// classify maps transport-level errors onto the package sentinels.
func (f *HTTPFetcher) classify(err error, unsupported bool) error {
	if err == nil {
		return nil
	}
	if unsupported || errors.Is(err, colly.ErrAbortedAfterHeaders) {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, err)
	}
	if errors.Is(err, ErrTimeout) {
		return err
	}
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout(),
		strings.Contains(err.Error(), "Client.Timeout"):
		return fmt.Errorf("%w: %s", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %s", ErrNetwork, err)
	}
}

func isAcceptedContentType(ct string) bool {
	if ct == "" {
		return true
	}
	ct = strings.ToLower(ct)
	for _, accepted := range acceptedContentTypes {
		if strings.HasPrefix(ct, accepted) {
			return true
		}
	}
	return false
}

func newHTTPTransport(insecure bool) *http.Transport {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
	if insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // test servers only
	}
	return t
}
