package catalog

import "github.com/prometheus/client_golang/prometheus"

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "playdate_matcher",
		Subsystem: "catalog",
		Name:      "cache_hits_total",
		Help:      "Candidate requests served from a fresh snapshot.",
	})

	cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "playdate_matcher",
		Subsystem: "catalog",
		Name:      "cache_misses_total",
		Help:      "Candidate requests that required a store query.",
	})

	sharedRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "playdate_matcher",
		Subsystem: "catalog",
		Name:      "shared_refreshes_total",
		Help:      "Candidate requests that joined a store query already in flight.",
	})

	invalidations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "playdate_matcher",
		Subsystem: "catalog",
		Name:      "invalidations_total",
		Help:      "Number of explicit candidate cache invalidations.",
	})

	fetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "playdate_matcher",
		Subsystem: "catalog",
		Name:      "fetch_errors_total",
		Help:      "Number of failed candidate store queries.",
	})

	fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "playdate_matcher",
		Subsystem: "catalog",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent querying the candidate store.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, sharedRefreshes, invalidations, fetchErrors, fetchDuration)
}
