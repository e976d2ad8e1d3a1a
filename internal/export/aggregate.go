// Package export aggregates crawl results into per-business contact
// rows and serializes them to tier-gated CSV or XLSX artifacts.
package export

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/leadharvest/leadharvest/internal/crawl"
	"github.com/leadharvest/leadharvest/internal/store"
)

// pageClass buckets a source page for confidence scoring.
type pageClass string

const (
	pageContact pageClass = "contact"
	pageHome    pageClass = "home"
	pageAbout   pageClass = "about"
	pageOther   pageClass = "other"
)

// confidence returns the score for a value found on this class of page.
// Contact pages are the strongest signal, the homepage footer is next,
// about pages weaker still.
func (c pageClass) confidence() float64 {
	switch c {
	case pageContact:
		return 0.95
	case pageHome:
		return 0.75
	case pageAbout:
		return 0.55
	default:
		return 0.35
	}
}

var aboutPathMarkers = []string{
	"about", "company", "team", "who-we-are",
	"sxetika", "etairia", "etaireia", "omada", "poioi-eimaste",
}

// classifyPage buckets a source URL. contactPages holds the crawl's
// visited contact-like URLs.
func classifyPage(sourceURL string, contactPages map[string]bool) pageClass {
	if contactPages[sourceURL] {
		return pageContact
	}
	u, err := url.Parse(sourceURL)
	if err != nil {
		return pageOther
	}
	path := strings.Trim(strings.ToLower(u.Path), "/")
	if path == "" {
		return pageHome
	}
	for _, marker := range aboutPathMarkers {
		if strings.Contains(path, marker) {
			return pageAbout
		}
	}
	return pageOther
}

// Row is one business's aggregated contact data, ready for export.
type Row struct {
	BusinessID   int64
	BusinessName string
	WebsiteURL   string
	Status       crawl.Status

	BestEmail           string
	BestEmailConfidence float64
	BestPhone           string
	BestPhoneConfidence float64

	AllEmails   []string
	AllPhones   []string
	Socials     []string
	ContactPage string
	CrawledAt   time.Time

	PagesCrawled int
	Watermark    string
}

// ConfidenceTrace renders the best-value scores as a compact string.
func (r Row) ConfidenceTrace() string {
	var parts []string
	if r.BestEmail != "" {
		parts = append(parts, fmt.Sprintf("email=%.2f", r.BestEmailConfidence))
	}
	if r.BestPhone != "" {
		parts = append(parts, fmt.Sprintf("phone=%.2f", r.BestPhoneConfidence))
	}
	return strings.Join(parts, "; ")
}

// Aggregate merges crawl results into one row per business, ordered by
// business id. Businesses whose crawl produced nothing still get a row;
// they simply carry no contact data. Best values prefer the highest
// confidence score, and the earliest-seen value on ties.
func Aggregate(datasetID int64, businesses []store.Business, results []crawl.Result) []Row {
	names := make(map[int64]string, len(businesses))
	for _, b := range businesses {
		names[b.ID] = b.Name
	}
	watermark := fmt.Sprintf("leadharvest:dataset:%d", datasetID)

	rows := make([]Row, 0, len(results))
	for _, res := range results {
		contactPages := make(map[string]bool, len(res.ContactPages))
		for _, p := range res.ContactPages {
			contactPages[p] = true
		}

		row := Row{
			BusinessID:   res.BusinessID,
			BusinessName: names[res.BusinessID],
			WebsiteURL:   res.WebsiteURL,
			Status:       res.Status,
			CrawledAt:    res.FinishedAt,
			PagesCrawled: res.PagesVisited,
			Watermark:    watermark,
		}
		if len(res.ContactPages) > 0 {
			row.ContactPage = res.ContactPages[0]
		}

		for _, e := range res.Emails {
			row.AllEmails = append(row.AllEmails, e.Value)
			score := classifyPage(e.SourceURL, contactPages).confidence()
			if score > row.BestEmailConfidence {
				row.BestEmail = e.Value
				row.BestEmailConfidence = score
			}
		}
		for _, p := range res.Phones {
			row.AllPhones = append(row.AllPhones, p.Value)
			score := classifyPage(p.SourceURL, contactPages).confidence()
			if score > row.BestPhoneConfidence {
				row.BestPhone = p.Value
				row.BestPhoneConfidence = score
			}
		}
		for _, so := range res.Socials {
			row.Socials = append(row.Socials, so.URL)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].BusinessID < rows[j].BusinessID })
	return rows
}
