// Copyright 2025 The ragd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package observability exposes prometheus metrics and a tracing helper
// for the serving path.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the serving-path collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retrievalDocs   prometheus.Histogram
	tokensUsed      prometheus.Counter
	qualityScore    prometheus.Histogram
	refusalsTotal   *prometheus.CounterVec
}

// NewMetrics registers the collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragd_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ragd_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		retrievalDocs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragd_retrieval_documents",
			Help:    "Documents returned per retrieval.",
			Buckets: []float64{0, 1, 3, 5, 10, 15, 20, 30},
		}),
		tokensUsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ragd_generation_tokens_total",
			Help: "Total tokens consumed by generation.",
		}),
		qualityScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ragd_answer_quality_score",
			Help:    "Self-RAG overall quality scores.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		refusalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ragd_refusals_total",
			Help: "Refused answers by reason.",
		}, []string{"reason"}),
	}
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.retrievalDocs,
		m.tokensUsed,
		m.qualityScore,
		m.refusalsTotal,
	)
	return m
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(route, status).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// ObserveChat records the outcome of one chat request.
func (m *Metrics) ObserveChat(documents, tokensUsed int, qualityScore *float64, refusalReason string) {
	m.retrievalDocs.Observe(float64(documents))
	m.tokensUsed.Add(float64(tokensUsed))
	if qualityScore != nil {
		m.qualityScore.Observe(*qualityScore)
	}
	if refusalReason != "" {
		m.refusalsTotal.WithLabelValues(refusalReason).Inc()
	}
}
