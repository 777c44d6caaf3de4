package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/lukawerner/MySimpleOS/core"
)

// DefaultNamespace prefixes every collector when no namespace is given.
const DefaultNamespace = "mysimpleos"

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	dispatchDurationSeconds *prom.HistogramVec
	instructionsTotal       *prom.CounterVec
	completionsTotal        *prom.CounterVec
	execErrorsTotal         *prom.CounterVec
	submitRejectedTotal     *prom.CounterVec
	queueDepth              *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "dispatch_duration_seconds",
		Help:      "Time spent running one quantum, in seconds.",
		Buckets:   buckets,
	}, []string{"session", "policy"})
	instructionsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "instructions_total",
		Help:      "Total number of program lines executed.",
	}, []string{"session", "policy"})
	completionsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "completions_total",
		Help:      "Total number of programs run to completion.",
	}, []string{"session", "policy", "background"})
	execErrorsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "exec_errors_total",
		Help:      "Total number of failed instructions.",
	}, []string{"session", "policy"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "submit_rejected_total",
		Help:      "Total number of programs refused at load time.",
	}, []string{"session", "reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "ready_queue_depth",
		Help:      "Current ready queue depth.",
	}, []string{"session"})

	var err error
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if instructionsVec, err = registerCollector(reg, instructionsVec); err != nil {
		return nil, err
	}
	if completionsVec, err = registerCollector(reg, completionsVec); err != nil {
		return nil, err
	}
	if execErrorsVec, err = registerCollector(reg, execErrorsVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		dispatchDurationSeconds: durationVec,
		instructionsTotal:       instructionsVec,
		completionsTotal:        completionsVec,
		execErrorsTotal:         execErrorsVec,
		submitRejectedTotal:     rejectedVec,
		queueDepth:              queueDepthVec,
	}, nil
}

// RecordDispatch records one quantum and the lines it executed.
func (m *MetricsExporter) RecordDispatch(session, policy string, instructions int, duration time.Duration) {
	if m == nil {
		return
	}
	session = normalizeLabel(session, "unknown")
	policy = normalizeLabel(policy, "unknown")
	m.dispatchDurationSeconds.WithLabelValues(session, policy).Observe(duration.Seconds())
	if instructions > 0 {
		m.instructionsTotal.WithLabelValues(session, policy).Add(float64(instructions))
	}
}

// RecordCompletion records a program that ran to its last line.
func (m *MetricsExporter) RecordCompletion(session, policy string, background bool) {
	if m == nil {
		return
	}
	m.completionsTotal.WithLabelValues(
		normalizeLabel(session, "unknown"),
		normalizeLabel(policy, "unknown"),
		strconv.FormatBool(background),
	).Inc()
}

// RecordExecError records a failed instruction.
func (m *MetricsExporter) RecordExecError(session, policy string) {
	if m == nil {
		return
	}
	m.execErrorsTotal.WithLabelValues(normalizeLabel(session, "unknown"), normalizeLabel(policy, "unknown")).Inc()
}

// RecordSubmitRejected records a program refused at load time.
func (m *MetricsExporter) RecordSubmitRejected(session, reason string) {
	if m == nil {
		return
	}
	m.submitRejectedTotal.WithLabelValues(normalizeLabel(session, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

// RecordQueueDepth records ready queue depth.
func (m *MetricsExporter) RecordQueueDepth(session string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(session, "unknown")).Set(float64(depth))
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
