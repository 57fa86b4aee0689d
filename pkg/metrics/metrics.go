// Package metrics exposes Prometheus counters for degradation runs.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tauraamui/idlesqueeze/pkg/degrade"
)

const namespace = "idlesqueeze"

type Metrics struct {
	gatherer prometheus.Gatherer

	framesProcessed *prometheus.CounterVec
	framesDegraded  *prometheus.CounterVec
	idleResets      prometheus.Counter
	runs            *prometheus.CounterVec
	runsInFlight    prometheus.Gauge
	progress        *prometheus.GaugeVec
}

// New registers every collector against reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		framesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "frames_processed_total",
			Help:      "Frames emitted by the pipeline, by motion classification",
		}, []string{"motion"}),
		framesDegraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "frames_degraded_total",
			Help:      "Frames emitted with a scale factor below one",
		}, []string{"factor"}),
		idleResets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "idle_resets_total",
			Help:      "Idle runs ended by motion",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by terminal state",
		}, []string{"result"}),
		runsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Pipeline runs currently streaming or draining",
		}),
		progress: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "progress_percent",
			Help:      "Progress of each running job",
		}, []string{"job"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Reporter feeds one run's events into m under jobID.
func (m *Metrics) Reporter(jobID string) degrade.Reporter {
	return &reporter{m: m, job: jobID}
}

type reporter struct {
	m   *Metrics
	job string
}

func (r *reporter) StateChanged(from, to degrade.State) {
	switch to {
	case degrade.StateStreaming:
		r.m.runsInFlight.Inc()
	case degrade.StateDone, degrade.StateFailed:
		if from == degrade.StateStreaming || from == degrade.StateDraining {
			r.m.runsInFlight.Dec()
		}
		r.m.runs.WithLabelValues(to.String()).Inc()
		r.m.progress.DeleteLabelValues(r.job)
	}
}

func (r *reporter) FrameProcessed(e degrade.FrameEvent) {
	motion := "idle"
	switch {
	case e.Last:
		motion = "last"
	case e.Active:
		motion = "active"
	}
	r.m.framesProcessed.WithLabelValues(motion).Inc()

	if e.Degraded {
		r.m.framesDegraded.WithLabelValues(strconv.FormatFloat(e.Factor, 'f', -1, 64)).Inc()
	}
	if e.ResetIdle {
		r.m.idleResets.Inc()
	}
}

func (r *reporter) Progress(percent int) {
	r.m.progress.WithLabelValues(r.job).Set(float64(percent))
}
