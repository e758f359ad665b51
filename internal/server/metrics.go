package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	pageViews     *prometheus.CounterVec
	fetchFailures prometheus.Counter
	visibleRows   prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		pageViews: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "openverse",
			Name:      "page_views_total",
			Help:      "Rendered pages and fragments by name.",
		}, []string{"page"}),
		fetchFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "openverse",
			Name:      "resource_fetch_failures_total",
			Help:      "Resource list reads that failed and rendered an empty table.",
		}),
		visibleRows: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "openverse",
			Name:      "aral_visible_rows",
			Help:      "Rows left visible after filtering.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 7),
		}),
	}
}
