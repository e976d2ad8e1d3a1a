package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/leadharvest/leadharvest/internal/crawl"
	"github.com/leadharvest/leadharvest/internal/extract"
	"github.com/leadharvest/leadharvest/internal/store"
)

func TestClassifyPage(t *testing.T) {
	t.Parallel()

	contact := map[string]bool{"https://a.gr/epikoinonia": true}
	tests := []struct {
		url  string
		want pageClass
	}{
		{"https://a.gr/epikoinonia", pageContact},
		{"https://a.gr", pageHome},
		{"https://a.gr/", pageHome},
		{"https://a.gr/about-us", pageAbout},
		{"https://a.gr/etairia", pageAbout},
		{"https://a.gr/products", pageOther},
		{"://bad", pageOther},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, classifyPage(tt.url, contact), tt.url)
	}
}

func TestAggregatePrefersContactPageValues(t *testing.T) {
	t.Parallel()

	finished := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	results := []crawl.Result{{
		BusinessID:   1,
		DatasetID:    3,
		WebsiteURL:   "https://a.gr",
		Status:       crawl.StatusCompleted,
		PagesVisited: 3,
		FinishedAt:   finished,
		ContactPages: []string{"https://a.gr/contact"},
		Emails: []extract.Email{
			{Value: "sales@a.gr", SourceURL: "https://a.gr/products"},
			{Value: "info@a.gr", SourceURL: "https://a.gr/contact"},
		},
		Phones: []extract.Phone{
			{Value: "+302101111111", SourceURL: "https://a.gr"},
			{Value: "+306912222222", SourceURL: "https://a.gr/about"},
		},
		Socials: []extract.Social{{Platform: "facebook", URL: "https://facebook.com/a"}},
	}}
	businesses := []store.Business{{ID: 1, DatasetID: 3, Name: "Alpha"}}

	rows := Aggregate(3, businesses, results)
	require.Len(t, rows, 1)
	row := rows[0]
	require.Equal(t, "Alpha", row.BusinessName)
	require.Equal(t, "info@a.gr", row.BestEmail)
	require.InDelta(t, 0.95, row.BestEmailConfidence, 0.001)
	require.Equal(t, "+302101111111", row.BestPhone)
	require.InDelta(t, 0.75, row.BestPhoneConfidence, 0.001)
	require.Equal(t, []string{"sales@a.gr", "info@a.gr"}, row.AllEmails)
	require.Equal(t, "https://a.gr/contact", row.ContactPage)
	require.Equal(t, "leadharvest:dataset:3", row.Watermark)
	require.Contains(t, row.ConfidenceTrace(), "email=0.95")
	require.Contains(t, row.ConfidenceTrace(), "phone=0.75")
}

func TestAggregateTiePrefersEarlierPage(t *testing.T) {
	t.Parallel()

	results := []crawl.Result{{
		BusinessID: 1,
		Emails: []extract.Email{
			{Value: "first@a.gr", SourceURL: "https://a.gr/products"},
			{Value: "second@a.gr", SourceURL: "https://a.gr/services"},
		},
	}}

	rows := Aggregate(1, nil, results)
	require.Equal(t, "first@a.gr", rows[0].BestEmail)
}

func TestAggregateNotCrawledContributesNoContacts(t *testing.T) {
	t.Parallel()

	results := []crawl.Result{
		{BusinessID: 2, Status: crawl.StatusNotCrawled, WebsiteURL: "https://down.gr"},
		{BusinessID: 1, Status: crawl.StatusCompleted, WebsiteURL: "https://up.gr",
			Emails: []extract.Email{{Value: "info@up.gr", SourceURL: "https://up.gr"}}},
	}

	rows := Aggregate(1, nil, results)
	require.Len(t, rows, 2)
	// Sorted by business id.
	require.Equal(t, int64(1), rows[0].BusinessID)
	require.Equal(t, int64(2), rows[1].BusinessID)
	require.Empty(t, rows[1].BestEmail)
	require.Empty(t, rows[1].AllEmails)
}
