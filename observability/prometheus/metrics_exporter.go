package prometheus

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-fleet/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// TimeBuckets are the histogram buckets, in seconds, for per-context CPU
	// and wall time of a run.
	TimeBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors. Every series is
// labelled with the index of the context that reported it.
type MetricsExporter struct {
	tasksExecutedTotal *prom.CounterVec
	stealsTotal        *prom.CounterVec
	tasksStolenTotal   *prom.CounterVec
	stealFailedTotal   *prom.CounterVec
	taskPanicTotal     *prom.CounterVec
	queueDepth         *prom.GaugeVec
	cpuSeconds         *prom.HistogramVec
	wallSeconds        *prom.HistogramVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "fleet"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.TimeBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	executedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_executed_total",
		Help:      "Total number of task steps run.",
	}, []string{"context"})
	stealsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "steals_total",
		Help:      "Total number of successful steal hand-offs, by thief.",
	}, []string{"context"})
	stolenVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_stolen_total",
		Help:      "Total number of tasks migrated, by thief and victim.",
	}, []string{"context", "victim"})
	stealFailedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "steal_failed_total",
		Help:      "Total number of steal attempts that yielded nothing.",
	}, []string{"context", "reason"})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of task panics.",
	}, []string{"context"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Ready queue depth at the last round checkpoint.",
	}, []string{"context"})
	cpuVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "context_cpu_seconds",
		Help:      "CPU time spent by a context during one run.",
		Buckets:   buckets,
	}, []string{"context"})
	wallVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "context_wall_seconds",
		Help:      "Wall time spent by a context during one run.",
		Buckets:   buckets,
	}, []string{"context"})

	var err error
	if executedVec, err = registerCollector(reg, executedVec); err != nil {
		return nil, err
	}
	if stealsVec, err = registerCollector(reg, stealsVec); err != nil {
		return nil, err
	}
	if stolenVec, err = registerCollector(reg, stolenVec); err != nil {
		return nil, err
	}
	if stealFailedVec, err = registerCollector(reg, stealFailedVec); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}
	if cpuVec, err = registerCollector(reg, cpuVec); err != nil {
		return nil, err
	}
	if wallVec, err = registerCollector(reg, wallVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		tasksExecutedTotal: executedVec,
		stealsTotal:        stealsVec,
		tasksStolenTotal:   stolenVec,
		stealFailedTotal:   stealFailedVec,
		taskPanicTotal:     panicVec,
		queueDepth:         queueDepthVec,
		cpuSeconds:         cpuVec,
		wallSeconds:        wallVec,
	}, nil
}

// RecordTasksExecuted records a round of n task steps.
func (m *MetricsExporter) RecordTasksExecuted(contextIndex int, n int) {
	if m == nil {
		return
	}
	m.tasksExecutedTotal.WithLabelValues(contextLabel(contextIndex)).Add(float64(n))
}

// RecordSteal records a completed hand-off.
func (m *MetricsExporter) RecordSteal(thief, victim int, n int) {
	if m == nil {
		return
	}
	m.stealsTotal.WithLabelValues(contextLabel(thief)).Inc()
	m.tasksStolenTotal.WithLabelValues(contextLabel(thief), contextLabel(victim)).Add(float64(n))
}

// RecordStealFailed records a steal attempt that yielded nothing.
func (m *MetricsExporter) RecordStealFailed(thief int, reason string) {
	if m == nil {
		return
	}
	m.stealFailedTotal.WithLabelValues(contextLabel(thief), normalizeLabel(reason, "unknown")).Inc()
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(contextIndex int, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(contextLabel(contextIndex)).Set(float64(depth))
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(contextIndex int, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(contextLabel(contextIndex)).Inc()
}

// RecordContextTime records per-context timing of a run.
func (m *MetricsExporter) RecordContextTime(contextIndex int, cpu, wall time.Duration) {
	if m == nil {
		return
	}
	label := contextLabel(contextIndex)
	m.cpuSeconds.WithLabelValues(label).Observe(cpu.Seconds())
	m.wallSeconds.WithLabelValues(label).Observe(wall.Seconds())
}

func contextLabel(index int) string {
	return strconv.Itoa(index)
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
