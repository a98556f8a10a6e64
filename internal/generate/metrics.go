package generate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	generations *prometheus.CounterVec
	tokens      prometheus.Counter
	cutoffs     prometheus.Counter
	duration    prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sage_generations_total",
			Help: "Generations by result (ok, error, canceled, busy).",
		}, []string{"result"}),
		tokens: f.NewCounter(prometheus.CounterOpts{
			Name: "sage_generated_text_pieces_total",
			Help: "Text pieces streamed to callers after filtering.",
		}),
		cutoffs: f.NewCounter(prometheus.CounterOpts{
			Name: "sage_gibberish_cutoffs_total",
			Help: "Generations ended early by the gibberish filter.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sage_generation_duration_seconds",
			Help:    "Time from admission to the last token.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}
