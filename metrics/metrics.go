/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vault"

// Ingestion results.
const (
	ResultSuccess        = "success"
	ResultFormatError    = "format_error"
	ResultInvalidDate    = "invalid_date"
	ResultNoBiomarkers   = "no_biomarkers"
	ResultUnavailable    = "extractor_unavailable"
	ResultStorageFailure = "storage_unavailable"
	ResultError          = "error"
)

// Metrics holds the application collectors and the registry serving them.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry   *prometheus.Registry
	ingestions *prometheus.CounterVec
	extracted  prometheus.Counter
	merged     *prometheus.CounterVec
	duration   prometheus.Histogram
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)

	m := &Metrics{
		registry: registry,
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Lab report ingestions by result.",
		}, []string{"result"}),
		extracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "biomarkers_extracted_total",
			Help:      "Biomarkers accepted from extraction responses.",
		}),
		merged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merged_biomarkers_total",
			Help:      "Biomarkers processed by same-day merges by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_seconds",
			Help:      "Latency of extraction calls to the completion service.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
	}

	registry.MustRegister(m.ingestions, m.extracted, m.merged, m.duration)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveExtraction records one extraction call.
func (m *Metrics) ObserveExtraction(elapsed time.Duration, biomarkers int) {
	if m == nil {
		return
	}
	m.duration.Observe(elapsed.Seconds())
	m.extracted.Add(float64(biomarkers))
}

// ObserveIngestion counts an ingestion by result.
func (m *Metrics) ObserveIngestion(result string) {
	if m == nil {
		return
	}
	m.ingestions.WithLabelValues(result).Inc()
}

// ObserveMerge counts biomarkers appended to or dropped from a stored record.
func (m *Metrics) ObserveMerge(appended, duplicates int) {
	if m == nil {
		return
	}
	m.merged.WithLabelValues("appended").Add(float64(appended))
	m.merged.WithLabelValues("duplicate").Add(float64(duplicates))
}
