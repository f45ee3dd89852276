// Package metrics exposes the Prometheus instrumentation shared by the
// scheduler and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_catalog_tasks_executed_total",
		Help: "Background tasks executed, by task type.",
	}, []string{"type"})

	TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_catalog_tasks_failed_total",
		Help: "Background task failures, by task type.",
	}, []string{"type"})

	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_catalog_imports_total",
		Help: "Playlist import passes, by outcome.",
	}, []string{"outcome"})

	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "iptv_catalog_import_duration_seconds",
		Help:    "Wall time of playlist import passes.",
		Buckets: prometheus.DefBuckets,
	})

	ChannelsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "iptv_catalog_channels_total",
		Help: "Channels currently in the catalog.",
	})

	StreamsByHealth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "iptv_catalog_streams",
		Help: "Streams currently in the catalog, by health status.",
	}, []string{"health"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "iptv_catalog_http_requests_total",
		Help: "HTTP requests served, by method, path and status.",
	}, []string{"method", "path", "status"})
)
