// Package fetch retrieves single pages with hard time and size budgets.
//
// Two implementations satisfy the Fetcher contract: a plain HTTP fetcher
// built on colly (the default path) and a headless Chrome renderer used as
// an optional fallback for script-heavy sites. Callers treat every failure
// from this package as a per-page failure, never a run failure.
package fetch

import (
	"context"
	"errors"
	"time"
)

// Sentinel failures a caller can branch on with errors.Is.
var (
	// ErrTimeout marks a fetch that exceeded its wall-clock budget.
	ErrTimeout = errors.New("fetch: timeout")
	// ErrTooLarge marks a response body that exceeded the size ceiling.
	ErrTooLarge = errors.New("fetch: response too large")
	// ErrUnsupportedType marks a non-document content type.
	ErrUnsupportedType = errors.New("fetch: unsupported content type")
	// ErrNetwork marks transport failures and non-success status codes.
	ErrNetwork = errors.New("fetch: network error")
)

// Response is the outcome of fetching one URL.
type Response struct {
	// RequestedURL is the URL the caller asked for.
	RequestedURL string
	// FinalURL is the URL after redirects; equal to RequestedURL when no
	// redirect occurred.
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	Duration    time.Duration
	// Rendered is true when the body came from the headless renderer.
	Rendered bool
}

// Fetcher fetches a single URL. Retry policy belongs to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Response, error)
}
