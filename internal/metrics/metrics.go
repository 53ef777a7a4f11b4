package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AdapterRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoedit_adapter_requests_total",
		Help: "Total data source adapter calls",
	}, []string{"op"})
	AdapterErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoedit_adapter_errors_total",
		Help: "Total data source adapter calls that returned an error",
	}, []string{"op"})
	AdapterDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoedit_adapter_duration_ms",
		Help:    "Data source adapter call duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"op"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoedit_cache_hits_total",
		Help: "Total redis viewport cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoedit_cache_misses_total",
		Help: "Total redis viewport cache misses",
	})
	StoreVisibleElements = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoedit_store_visible_elements",
		Help: "Number of geometries in the visible set",
	})
	StorePendingEdits = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoedit_store_pending_edits",
		Help: "Number of uncommitted creates, updates and deletes",
	})
	StoreMergesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geoedit_store_merges_total",
		Help: "Total reload merges applied to the visible set",
	})
	StoreSavesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoedit_store_saves_total",
		Help: "Total save runs by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(AdapterRequestsTotal)
	prometheus.MustRegister(AdapterErrorsTotal)
	prometheus.MustRegister(AdapterDurationMs)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(StoreVisibleElements)
	prometheus.MustRegister(StorePendingEdits)
	prometheus.MustRegister(StoreMergesTotal)
	prometheus.MustRegister(StoreSavesTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
