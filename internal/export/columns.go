package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/leadharvest/leadharvest/internal/plan"
)

// Column maps one export header to its per-row value.
type Column struct {
	Header string
	Value  func(Row) string
}

func joinList(values []string) string {
	return strings.Join(values, "; ")
}

var baseColumns = []Column{
	{Header: "business_name", Value: func(r Row) string { return r.BusinessName }},
	{Header: "website", Value: func(r Row) string { return r.WebsiteURL }},
	{Header: "best_email", Value: func(r Row) string { return r.BestEmail }},
	{Header: "best_phone", Value: func(r Row) string { return r.BestPhone }},
}

var growthColumns = []Column{
	{Header: "all_emails", Value: func(r Row) string { return joinList(r.AllEmails) }},
	{Header: "all_phones", Value: func(r Row) string { return joinList(r.AllPhones) }},
	{Header: "social_links", Value: func(r Row) string { return joinList(r.Socials) }},
	{Header: "contact_page", Value: func(r Row) string { return r.ContactPage }},
	{Header: "crawled_at", Value: func(r Row) string {
		if r.CrawledAt.IsZero() {
			return ""
		}
		return r.CrawledAt.UTC().Format(time.RFC3339)
	}},
}

var scaleColumns = []Column{
	{Header: "confidence", Value: Row.ConfidenceTrace},
	{Header: "pages_crawled", Value: func(r Row) string { return strconv.Itoa(r.PagesCrawled) }},
	{Header: "watermark", Value: func(r Row) string { return r.Watermark }},
}

// Columns returns the ordered column list for a tier. One entry per
// tier; adding a tier means adding a case here. Unknown tiers get the
// base set.
func Columns(tier plan.Tier) []Column {
	switch tier {
	case plan.TierFree:
		return baseColumns
	case plan.TierGrowth:
		return concat(baseColumns, growthColumns)
	case plan.TierScale:
		return concat(baseColumns, growthColumns, scaleColumns)
	default:
		return baseColumns
	}
}

func concat(groups ...[]Column) []Column {
	var out []Column
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
