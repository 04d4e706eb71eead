package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder — метрики стадий и циклов.
type Recorder struct {
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	cycles        *prometheus.CounterVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voice",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		stageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voice",
			Name:      "stage_errors_total",
			Help:      "Failed pipeline stage calls.",
		}, []string{"stage"}),
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voice",
			Name:      "cycles_total",
			Help:      "Finished cycles by source and outcome.",
		}, []string{"source", "outcome"}),
	}
}

func (r *Recorder) ObserveStage(stage string, d time.Duration, err error) {
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		r.stageErrors.WithLabelValues(stage).Inc()
	}
}

func (r *Recorder) ObserveCycle(source, outcome string) {
	r.cycles.WithLabelValues(source, outcome).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
