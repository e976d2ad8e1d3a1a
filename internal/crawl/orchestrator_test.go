package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/leadharvest/leadharvest/internal/fetch"
	"github.com/leadharvest/leadharvest/internal/parse"
)

// testOptions keeps scenario tests fast: no inter-request delay.
func testOptions(maxPages, maxDepth int) Options {
	return Options{
		MaxPages:          maxPages,
		MaxDepth:          maxDepth,
		PerRequestTimeout: 5 * time.Second,
	}
}

func newTestOrchestrator() *Orchestrator {
	return NewOrchestrator(fetch.NewHTTPFetcher(fetch.Config{InsecureTLS: true}), nil, nil, nil)
}

func serveSite(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range pages {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlCleanSmallSite(t *testing.T) {
	t.Parallel()

	srv := serveSite(t, map[string]string{
		"/": `<html><body>
			<a href="/contact">Contact</a>
			<a href="/about">About us</a>
			<p>Welcome to Acme</p>
		</body></html>`,
		"/contact": `<html><body>
			<p>Email: info@acme.gr</p>
			<a href="tel:+302101234567">210 123 4567</a>
		</body></html>`,
		"/about": `<html><body><p>Founded 1999.</p></body></html>`,
	})

	o := newTestOrchestrator()
	target := Target{BusinessID: 1, DatasetID: 7, WebsiteURL: srv.URL}
	res := o.Crawl(context.Background(), target, testOptions(15, 2))

	require.Equal(t, StatusCompleted, res.Status)
	require.Equal(t, 3, res.PagesVisited)
	require.Empty(t, res.Errors)
	require.Len(t, res.Emails, 1)
	require.Equal(t, "info@acme.gr", res.Emails[0].Value)
	require.Len(t, res.Phones, 1)
	require.Equal(t, "+302101234567", res.Phones[0].Value)
	require.NotEmpty(t, res.ContactPages)
	require.False(t, res.FinishedAt.Before(res.StartedAt))
}

func TestCrawlContactPagePriority(t *testing.T) {
	t.Parallel()

	// Homepage links many ordinary pages before the contact page; with a
	// budget of 2 the contact page must still be the second page fetched.
	var home strings.Builder
	home.WriteString("<html><body>")
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&home, `<a href="/p/%d">Page %d</a>`, i, i)
	}
	home.WriteString(`<a href="/contact">Contact</a></body></html>`)

	pages := map[string]string{
		"/":        home.String(),
		"/contact": `<html><body>sales@acme.gr</body></html>`,
	}
	for i := 0; i < 8; i++ {
		pages[fmt.Sprintf("/p/%d", i)] = "<html><body>filler</body></html>"
	}
	srv := serveSite(t, pages)

	o := newTestOrchestrator()
	res := o.Crawl(context.Background(), Target{WebsiteURL: srv.URL}, testOptions(2, 2))

	require.Equal(t, 2, res.PagesVisited)
	require.Len(t, res.Emails, 1, "contact page must be visited before ordinary links")
	require.Equal(t, "sales@acme.gr", res.Emails[0].Value)
}

func TestCrawlBudgetExhaustion(t *testing.T) {
	t.Parallel()

	var home strings.Builder
	home.WriteString("<html><body>")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&home, `<a href="/p/%d">Page %d</a>`, i, i)
	}
	home.WriteString("</body></html>")

	pages := map[string]string{"/": home.String()}
	for i := 0; i < 50; i++ {
		pages[fmt.Sprintf("/p/%d", i)] = "<html><body>leaf</body></html>"
	}
	srv := serveSite(t, pages)

	o := newTestOrchestrator()
	res := o.Crawl(context.Background(), Target{WebsiteURL: srv.URL}, testOptions(10, 3))

	require.Equal(t, StatusPartial, res.Status)
	require.Equal(t, 10, res.PagesVisited)
}

func TestCrawlUnreachableHost(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(fetch.NewHTTPFetcher(fetch.Config{Timeout: time.Second, InsecureTLS: true}), nil, nil, nil)
	res := o.Crawl(context.Background(), Target{WebsiteURL: "http://127.0.0.1:1"}, testOptions(5, 2))

	require.Equal(t, StatusNotCrawled, res.Status)
	require.Equal(t, 0, res.PagesVisited)
	require.Len(t, res.Errors, 1)
}

func TestCrawlInvalidStartURL(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator()
	res := o.Crawl(context.Background(), Target{WebsiteURL: "/just-a-path"}, testOptions(5, 2))

	require.Equal(t, StatusNotCrawled, res.Status)
	require.Equal(t, 0, res.PagesVisited)
	require.Len(t, res.Errors, 1)
}

func TestCrawlCyclicLinks(t *testing.T) {
	t.Parallel()

	srv := serveSite(t, map[string]string{
		"/":  `<html><body><a href="/a">A</a></body></html>`,
		"/a": `<html><body><a href="/b">B</a><a href="/">Home</a></body></html>`,
		"/b": `<html><body><a href="/a">A</a><a href="/">Home</a></body></html>`,
	})

	o := newTestOrchestrator()
	res := o.Crawl(context.Background(), Target{WebsiteURL: srv.URL}, testOptions(20, 5))

	require.Equal(t, StatusCompleted, res.Status)
	require.Equal(t, 3, res.PagesVisited, "cycle must not revisit pages")
}

func TestCrawlDepthLimit(t *testing.T) {
	t.Parallel()

	srv := serveSite(t, map[string]string{
		"/":   `<html><body><a href="/d1">one</a></body></html>`,
		"/d1": `<html><body><a href="/d2">two</a></body></html>`,
		"/d2": `<html><body><a href="/d3">three</a></body></html>`,
		"/d3": `<html><body>too deep</body></html>`,
	})

	o := newTestOrchestrator()
	res := o.Crawl(context.Background(), Target{WebsiteURL: srv.URL}, testOptions(20, 1))

	require.Equal(t, 2, res.PagesVisited, "depth 2+ must not be fetched")
	require.Equal(t, StatusCompleted, res.Status)
}

func TestCrawlPartialAfterFailures(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><a href="/broken">x</a><a href="/ok">y</a></body></html>`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body>fine</body></html>`))
	})
	srv := httptest.NewTLSServer(mux)
	defer srv.Close()

	o := newTestOrchestrator()
	res := o.Crawl(context.Background(), Target{WebsiteURL: srv.URL}, testOptions(10, 2))

	require.Equal(t, StatusCompleted, res.Status, "a single broken page must not abort the run")
	require.Equal(t, 2, res.PagesVisited)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].URL, "/broken")
}

func TestCrawlSocialsHomepageOnly(t *testing.T) {
	t.Parallel()

	srv := serveSite(t, map[string]string{
		"/": `<html><body>
			<a href="https://facebook.com/acme">fb</a>
			<a href="/partners">partners</a>
		</body></html>`,
		"/partners": `<html><body>
			<a href="https://instagram.com/someoneelse">ig</a>
		</body></html>`,
	})

	o := newTestOrchestrator()
	res := o.Crawl(context.Background(), Target{WebsiteURL: srv.URL}, testOptions(10, 2))

	require.Len(t, res.Socials, 1)
	require.Equal(t, "facebook", res.Socials[0].Platform)
}

func TestCrawlDedupAcrossPages(t *testing.T) {
	t.Parallel()

	footer := `<footer>info@acme.gr · 210 123 4567</footer>`
	srv := serveSite(t, map[string]string{
		"/":        `<html><body><a href="/contact">Contact</a>` + footer + `</body></html>`,
		"/contact": `<html><body><p>info@acme.gr</p>` + footer + `</body></html>`,
	})

	o := newTestOrchestrator()
	res := o.Crawl(context.Background(), Target{WebsiteURL: srv.URL}, testOptions(10, 2))

	require.Len(t, res.Emails, 1, "value seen on an earlier page is not re-emitted")
	require.Len(t, res.Phones, 1)
}

func TestOptionsClampedToHardCeilings(t *testing.T) {
	t.Parallel()

	o := Options{MaxPages: 10000, MaxDepth: 50}.clamped()
	require.Equal(t, HardMaxPages, o.MaxPages)
	require.Equal(t, HardMaxDepth, o.MaxDepth)
}

func TestFrontierOrdering(t *testing.T) {
	t.Parallel()

	fr := &frontier{}
	fr.PushBack(frontierItem{url: "a"})
	fr.PushBack(frontierItem{url: "b"})
	fr.PushFront(frontierItem{url: "contact", contactLike: true})

	first, ok := fr.Pop()
	require.True(t, ok)
	require.Equal(t, "contact", first.url)
	require.Equal(t, 2, fr.Len())
}

func TestVisitedSet(t *testing.T) {
	t.Parallel()

	v := make(visitedSet)
	require.True(t, v.MarkIfNew("https://example.gr/"))
	require.False(t, v.MarkIfNew("https://example.gr/"))
	require.False(t, v.MarkIfNew(""))
	require.True(t, v.Contains("https://example.gr/"))
}

func TestCrawlPartialWhenSiteStopsResponding(t *testing.T) {
	t.Parallel()

	// Homepage answers once, then every further path fails. The frontier
	// drains on nothing but errors, so the run is partial.
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.Error(w, "backend down", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>
			<a href="/products">Products</a>
			<a href="/services">Services</a>
			<a href="/team">Team</a>
		</body></html>`))
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	o := newTestOrchestrator()
	res := o.Crawl(context.Background(), Target{WebsiteURL: srv.URL}, testOptions(10, 3))
	require.Equal(t, StatusPartial, res.Status)
	require.Equal(t, 1, res.PagesVisited)
	require.Len(t, res.Errors, 3)
}

func TestEnqueueLinksContactDisplacesOrdinary(t *testing.T) {
	t.Parallel()

	fr := &frontier{}
	for i := 0; i < 3; i++ {
		fr.PushBack(frontierItem{url: fmt.Sprintf("https://acme.gr/p%d", i), depth: 1})
	}

	o := newTestOrchestrator()
	page := parse.Result{
		Links:        []string{"https://acme.gr/contact"},
		ContactLinks: []string{"https://acme.gr/contact"},
	}
	o.enqueueLinks(fr, make(visitedSet), page, 1, Options{MaxPages: 3, MaxDepth: 3})

	// The contact link took the slot of the stalest ordinary entry.
	require.Equal(t, 3, fr.Len())
	first, ok := fr.Pop()
	require.True(t, ok)
	require.Equal(t, "https://acme.gr/contact", first.url)
	require.True(t, first.contactLike)

	second, _ := fr.Pop()
	third, _ := fr.Pop()
	require.Equal(t, "https://acme.gr/p0", second.url)
	require.Equal(t, "https://acme.gr/p1", third.url)
}

func TestDropOrdinaryBackKeepsContactEntries(t *testing.T) {
	t.Parallel()

	fr := &frontier{}
	require.False(t, fr.DropOrdinaryBack())

	fr.PushBack(frontierItem{url: "https://acme.gr/contact", contactLike: true})
	require.False(t, fr.DropOrdinaryBack())
	require.Equal(t, 1, fr.Len())

	fr.PushBack(frontierItem{url: "https://acme.gr/news"})
	require.True(t, fr.DropOrdinaryBack())
	require.Equal(t, 1, fr.Len())
}

func TestCrawlRecordsFetchDuration(t *testing.T) {
	t.Parallel()

	srv := serveSite(t, map[string]string{
		"/": `<html><body><p>Email: hello@acme.gr</p></body></html>`,
	})

	o := newTestOrchestrator()
	o.Crawl(context.Background(), Target{WebsiteURL: srv.URL}, testOptions(2, 1))

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() != "leadharvest_fetch_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			samples += m.GetHistogram().GetSampleCount()
		}
	}
	require.NotZero(t, samples)
}
