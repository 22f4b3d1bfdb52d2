// Package telemetry exports flow execution as Prometheus metrics.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/systemstart/seqflow/pkg/flow"
)

const namespace = "seqflow"

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Observer implements flow.Observer by counting step outcomes and timing
// step execution. Series are labelled by the registered step id, not the
// runtime id, so repeated steps share a series.
type Observer struct {
	started  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ flow.Observer = (*Observer)(nil)

// NewObserver creates an Observer and registers its collectors with reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_started_total",
			Help:      "Steps that started executing.",
		}, []string{"step"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_skipped_total",
			Help:      "Steps that did not run, by reason.",
		}, []string{"step", "reason"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_finished_total",
			Help:      "Steps that finished executing, by result.",
		}, []string{"step", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time spent in a step.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"step"}),
	}

	for _, c := range []prometheus.Collector{o.started, o.skipped, o.finished, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering flow metrics: %w", err)
		}
	}
	return o, nil
}

func (o *Observer) StepStarted(_ string, b flow.Binding) {
	o.started.WithLabelValues(b.Step.ID()).Inc()
}

func (o *Observer) StepSkipped(_ string, b flow.Binding, reason flow.SkipReason) {
	o.skipped.WithLabelValues(b.Step.ID(), string(reason)).Inc()
}

func (o *Observer) StepFinished(_ string, b flow.Binding, elapsed time.Duration, err error) {
	result := resultSuccess
	if err != nil {
		result = resultFailure
	}
	o.finished.WithLabelValues(b.Step.ID(), result).Inc()
	o.duration.WithLabelValues(b.Step.ID()).Observe(elapsed.Seconds())
}
