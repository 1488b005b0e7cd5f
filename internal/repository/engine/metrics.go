package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sgf_review",
		Subsystem: "engine",
		Name:      "commands_sent_total",
		Help:      "GTP commands written to the engine.",
	})

	commandTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sgf_review",
		Subsystem: "engine",
		Name:      "command_timeouts_total",
		Help:      "GTP commands that never got their acknowledgements.",
	})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sgf_review",
		Subsystem: "engine",
		Name:      "analysis_duration_seconds",
		Help:      "Wall time of one genmove search.",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
	})
)

func prometheusTimer(h prometheus.Histogram) func() {
	start := time.Now()
	return func() { h.Observe(time.Since(start).Seconds()) }
}
