package matcher

import "github.com/prometheus/client_golang/prometheus"

var (
	matchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "playdate_matcher",
		Subsystem: "matcher",
		Name:      "match_duration_seconds",
		Help:      "Time spent running the full matching pipeline, including store lookups.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	resultSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "playdate_matcher",
		Subsystem: "matcher",
		Name:      "ranked_results",
		Help:      "Number of ranked playdates returned per successful match.",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})

	matchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "playdate_matcher",
		Subsystem: "matcher",
		Name:      "failures_total",
		Help:      "Number of failed matching requests grouped by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(matchDuration, resultSize, matchFailures)
}
