package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cacheLookups counts Get calls by table and result (hit, miss).
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cella",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by table and result",
	}, []string{"table", "result"})

	// cacheFetches counts backend fetches by table and outcome (ok, error).
	cacheFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cella",
		Subsystem: "cache",
		Name:      "fetches_total",
		Help:      "Backend fetches issued by the cache",
	}, []string{"table", "outcome"})

	cacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cella",
		Subsystem: "cache",
		Name:      "invalidations_total",
		Help:      "Cache entries marked stale",
	}, []string{"table"})

	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cella",
		Subsystem: "cache",
		Name:      "evictions_total",
		Help:      "Idle cache entries dropped by sweeps",
	})

	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cella",
		Subsystem: "cache",
		Name:      "entries",
		Help:      "Cache entries after the last sweep",
	})
)
