// Package metrics holds the Prometheus collectors of the dashboard backend.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RecomputeTotal counts filtered-tree lookups by result (hit or miss).
	RecomputeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "testcraft_recompute_total",
		Help: "Filtered tree lookups by memo result",
	}, []string{"result"})

	// RecomputeDuration tracks the latency of a full tree recompute.
	RecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "testcraft_recompute_duration_seconds",
		Help:    "Tree recompute duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50us to ~400ms
	})

	// SearchApplied counts debounced search terms applied to views.
	SearchApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "testcraft_search_applied_total",
		Help: "Debounced search terms applied to dashboard views",
	})

	// OpenViews tracks the number of open dashboard views.
	OpenViews = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "testcraft_open_views",
		Help: "Number of open dashboard views",
	})

	// DatasetVersion reports the version of the currently loaded raw tree.
	DatasetVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "testcraft_dataset_version",
		Help: "Version of the loaded coverage dataset",
	})

	// IngestedMethods counts test methods accepted by ingest.
	IngestedMethods = promauto.NewCounter(prometheus.CounterOpts{
		Name: "testcraft_ingested_methods_total",
		Help: "Test methods accepted by ingest",
	})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
