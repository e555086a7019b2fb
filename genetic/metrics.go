package genetic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "genvst",
		Subsystem: "composer",
		Name:      "runs_total",
		Help:      "Composer runs by mode and outcome.",
	}, []string{"mode", "outcome"})

	generationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "genvst",
		Subsystem: "composer",
		Name:      "generations_total",
		Help:      "Generations evolved over all runs.",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "genvst",
		Subsystem: "composer",
		Name:      "run_duration_seconds",
		Help:      "Wall time of composer runs.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	})

	bestFitness = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "genvst",
		Subsystem: "composer",
		Name:      "best_fitness",
		Help:      "Best fitness of the most recently evaluated generation.",
	})
)
