// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package binding

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/petar-djukic/filebind/pkg/types"
)

const metricsNamespace = "filebind"

// Metrics records binding outcomes. Collectors register on the registerer
// passed to NewMetrics, never on the global default. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	bindings    *prometheus.CounterVec
	corrections *prometheus.CounterVec
	fuzzyScores prometheus.Histogram
	duration    *prometheus.HistogramVec
}

// NewMetrics creates and registers the binding collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		bindings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bindings_total",
			Help:      "Bindings processed, by strategy and result.",
		}, []string{"strategy", "result"}),
		corrections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "corrections_total",
			Help:      "Line-number correction round trips, by outcome.",
		}, []string{"kind"}),
		fuzzyScores: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "fuzzy_match_score",
			Help:      "Jaro-Winkler score of the best window for each fuzzy block.",
			Buckets:   []float64{0.5, 0.7, 0.8, 0.85, 0.9, 0.93, 0.96, 0.99, 1},
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "binding_duration_seconds",
			Help:      "Wall time of a binding, including any correction round trip.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"strategy"}),
	}
}

func (m *Metrics) observeBinding(strategy Strategy, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "applied"
	if err != nil {
		result = "rejected"
	}
	label := string(strategy)
	if label == "" {
		label = "none"
	}
	m.bindings.WithLabelValues(label, result).Inc()
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (m *Metrics) observeCorrection(kind types.CorrectionKind) {
	if m == nil {
		return
	}
	m.corrections.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) observeFuzzyScore(score float64) {
	if m == nil {
		return
	}
	m.fuzzyScores.Observe(score)
}

// WriteTextfile writes everything g gathers in the text exposition format,
// for the node_exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
