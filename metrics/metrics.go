package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDurationMetric = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portal",
		Subsystem: "query",
		Name:      "duration_seconds",
		Help:      "Time spent reading from the data source, by query kind and outcome",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"op", "outcome"})
	droppedFragmentsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portal",
		Subsystem: "filter",
		Name:      "dropped_fragments_total",
		Help:      "Count of filter fragments that did not parse and were ignored",
	})
)

// ObserveQuery records one data source read.
func ObserveQuery(op string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	queryDurationMetric.WithLabelValues(op, outcome).Observe(took.Seconds())
}

// DroppedFragment counts one ignored filter fragment.
func DroppedFragment() { droppedFragmentsMetric.Inc() }
