package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	processStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rasacontrol",
			Subsystem: "process",
			Name:      "starts_total",
			Help:      "Number of successful process launches.",
		}, []string{"service"},
	)
	processKills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rasacontrol",
			Subsystem: "process",
			Name:      "kills_total",
			Help:      "Number of processes killed by signature matching.",
		}, []string{"service"},
	)
	trainingsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rasacontrol",
			Subsystem: "training",
			Name:      "started_total",
			Help:      "Number of accepted training runs.",
		},
	)
	trainingsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rasacontrol",
			Subsystem: "training",
			Name:      "finished_total",
			Help:      "Number of training runs by terminal state.",
		}, []string{"state"},
	)
	trainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rasacontrol",
			Subsystem: "training",
			Name:      "duration_seconds",
			Help:      "Wall time of training runs from acceptance to terminal state.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
	modelUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rasacontrol",
			Subsystem: "training",
			Name:      "model_uploads_total",
			Help:      "Number of model artifact uploads by outcome.",
		}, []string{"outcome"},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{processStarts, processKills, trainingsStarted, trainingsFinished, trainingDuration, modelUploads}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers with the default prometheus registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler returns an http.Handler serving the default gatherer.
func Handler() http.Handler { return promhttp.Handler() }

func IncProcessStarted(service string) { processStarts.WithLabelValues(service).Inc() }
func IncProcessKilled(service string)  { processKills.WithLabelValues(service).Inc() }
func IncTrainingStarted()              { trainingsStarted.Inc() }

func ObserveTrainingFinished(state string, elapsed time.Duration) {
	trainingsFinished.WithLabelValues(state).Inc()
	trainingDuration.Observe(elapsed.Seconds())
}

func IncModelUpload(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	modelUploads.WithLabelValues(outcome).Inc()
}
