package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	downloads     *prometheus.CounterVec
	downloadBytes prometheus.Counter
	loads         *prometheus.CounterVec
	loadDuration  prometheus.Histogram
	queueWait     prometheus.Histogram
	tooBusy       prometheus.Counter
	state         *prometheus.GaugeVec
}

// newMetrics builds the manager collectors. A nil Registerer yields
// unregistered collectors.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		downloads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sage_model_downloads_total",
			Help: "Model download attempts by result.",
		}, []string{"result"}),
		downloadBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "sage_model_download_bytes_total",
			Help: "Bytes written while downloading the model.",
		}),
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sage_model_loads_total",
			Help: "Runtime initializations by result.",
		}, []string{"result"}),
		loadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sage_model_load_duration_seconds",
			Help:    "Time to initialize the runtime handle.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		queueWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sage_generation_queue_wait_seconds",
			Help:    "Time spent waiting for the generation slot.",
			Buckets: prometheus.DefBuckets,
		}),
		tooBusy: f.NewCounter(prometheus.CounterOpts{
			Name: "sage_generation_rejected_total",
			Help: "Requests rejected by admission (queue full or wait exceeded).",
		}),
		state: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sage_model_state",
			Help: "1 for the manager's current lifecycle state, 0 otherwise.",
		}, []string{"state"}),
	}
}

var allStates = []State{StateAbsent, StateDownloading, StateLoading, StateReady, StateError}

func (mt *metrics) setState(s State) {
	for _, st := range allStates {
		v := 0.0
		if st == s {
			v = 1
		}
		mt.state.WithLabelValues(string(st)).Set(v)
	}
}
