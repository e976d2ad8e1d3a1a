// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesTotal        *prometheus.CounterVec
	contactsTotal     *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	activeWorkers     prometheus.Gauge
	crawlJobsTotal    *prometheus.CounterVec
	exportRowsTotal   *prometheus.CounterVec
	registerCollector sync.Once
)

// Init registers the collectors. Safe to call any number of times.
func Init() {
	registerCollector.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadharvest_pages_total",
				Help: "Pages fetched, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)
		contactsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadharvest_contacts_total",
				Help: "Contact values extracted, labeled by kind.",
			},
			[]string{"kind"},
		)
		fetchDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadharvest_fetch_duration_seconds",
				Help:    "Wall-clock duration of page fetches.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"site"},
		)
		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadharvest_active_crawl_workers",
				Help: "Scheduler workers currently running a crawl.",
			},
		)
		crawlJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadharvest_crawl_jobs_total",
				Help: "Crawl jobs finished, labeled by final status.",
			},
			[]string{"status"},
		)
		exportRowsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadharvest_export_rows_total",
				Help: "Rows written to export artifacts, labeled by format.",
			},
			[]string{"format"},
		)
	})
}

// PageFetched counts one fetch attempt outcome.
func PageFetched(site, outcome string) {
	Init()
	pagesTotal.WithLabelValues(site, outcome).Inc()
}

// ContactsExtracted adds to the per-kind contact counter.
func ContactsExtracted(kind string, n int) {
	if n <= 0 {
		return
	}
	Init()
	contactsTotal.WithLabelValues(kind).Add(float64(n))
}

// ObserveFetchDuration records a fetch duration.
func ObserveFetchDuration(site string, d time.Duration) {
	Init()
	fetchDuration.WithLabelValues(site).Observe(d.Seconds())
}

// WorkerStarted marks a scheduler worker as busy; the returned func marks
// it idle again.
func WorkerStarted() func() {
	Init()
	activeWorkers.Inc()
	return func() { activeWorkers.Dec() }
}

// JobFinished counts a crawl job reaching a terminal status.
func JobFinished(status string) {
	Init()
	crawlJobsTotal.WithLabelValues(status).Inc()
}

// ExportRows counts rows written to one export artifact.
func ExportRows(format string, n int) {
	if n <= 0 {
		return
	}
	Init()
	exportRowsTotal.WithLabelValues(format).Add(float64(n))
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}
