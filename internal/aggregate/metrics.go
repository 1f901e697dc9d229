package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// aggregateDuration measures how long a whole aggregate takes to settle.
// Labels: result (ok, partial)
var aggregateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "cella",
	Subsystem: "aggregate",
	Name:      "duration_seconds",
	Help:      "Time for all reads of an aggregate to finish",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
}, []string{"result"})
