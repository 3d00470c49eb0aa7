// Package metrics defines the Prometheus collectors for the indexing write
// path and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the indexer.
type Metrics struct {
	DocumentsIndexedTotal  *prometheus.CounterVec
	KeywordsCommittedTotal *prometheus.CounterVec
	CommitsTotal           *prometheus.CounterVec
	CommitDuration         *prometheus.HistogramVec
	PendingKeywords        *prometheus.GaugeVec
	EventsRejectedTotal    prometheus.Counter
	SpellFailuresTotal     prometheus.Counter
	MisspellingsTotal      prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		DocumentsIndexedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "documents_indexed_total",
				Help: "Documents run through the indexing pipeline, by document type.",
			},
			[]string{"document_type"},
		),
		KeywordsCommittedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keywords_committed_total",
				Help: "Keyword rows committed to the shared store, by document type.",
			},
			[]string{"document_type"},
		),
		CommitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "commits_total",
				Help: "Commit transactions by document type and status (ok, error).",
			},
			[]string{"document_type", "status"},
		),
		CommitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "commit_duration_seconds",
				Help:    "Commit transaction latency in seconds.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"document_type"},
		),
		PendingKeywords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pending_keywords",
				Help: "Keyword entries buffered and awaiting commit, by document type.",
			},
			[]string{"document_type"},
		),
		EventsRejectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "events_rejected_total",
				Help: "Document events dropped because they could not be decoded.",
			},
		),
		SpellFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "spell_failures_total",
				Help: "Spell-assist collaborator failures (non-fatal).",
			},
		),
		MisspellingsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "misspellings_recorded_total",
				Help: "Tokens recorded to the personal wordlist.",
			},
		),
	}

	prometheus.MustRegister(
		m.DocumentsIndexedTotal,
		m.KeywordsCommittedTotal,
		m.CommitsTotal,
		m.CommitDuration,
		m.PendingKeywords,
		m.EventsRejectedTotal,
		m.SpellFailuresTotal,
		m.MisspellingsTotal,
	)
	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
