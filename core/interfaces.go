package core

import (
	"fmt"
	"os"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling task panics
// =============================================================================

// PanicHandler is called when a task panics during execution. The task is
// treated as finished afterwards, so its finish hooks still run.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a task panics.
	//
	// Parameters:
	// - contextIndex: The index of the execution context that ran the task
	// - panicInfo: The panic value recovered from the task
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(contextIndex int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler prints panic information to standard error.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to standard error.
func (h *DefaultPanicHandler) HandlePanic(contextIndex int, panicInfo any, stackTrace []byte) {
	fmt.Fprintf(os.Stderr, "[%d] Panic: %v\nStack trace:\n%s", contextIndex, panicInfo, stackTrace)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting scheduler metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Calls are made from worker goroutines at round granularity, never per task,
// so implementations must be thread-safe and should be fast.
type Metrics interface {
	// RecordTasksExecuted records that a context finished a round of n task steps.
	RecordTasksExecuted(contextIndex int, n int)

	// RecordSteal records a completed hand-off of n tasks from victim to thief.
	RecordSteal(thief, victim int, n int)

	// RecordStealFailed records a steal attempt that yielded nothing.
	// reason is "busy" (victim blocked or claimed) or "empty".
	RecordStealFailed(thief int, reason string)

	// RecordQueueDepth records the ready queue depth at a round checkpoint.
	RecordQueueDepth(contextIndex int, depth int)

	// RecordTaskPanic records that a task panicked during execution.
	RecordTaskPanic(contextIndex int, panicInfo any)

	// RecordContextTime records CPU and wall time spent in one context's loop
	// during a run.
	RecordContextTime(contextIndex int, cpu, wall time.Duration)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTasksExecuted(contextIndex int, n int)                 {}
func (m *NilMetrics) RecordSteal(thief, victim int, n int)                        {}
func (m *NilMetrics) RecordStealFailed(thief int, reason string)                  {}
func (m *NilMetrics) RecordQueueDepth(contextIndex int, depth int)                {}
func (m *NilMetrics) RecordTaskPanic(contextIndex int, panicInfo any)             {}
func (m *NilMetrics) RecordContextTime(contextIndex int, cpu, wall time.Duration) {}

// =============================================================================
// SchedulerConfig: Configuration for Scheduler
// =============================================================================

// Trace levels for SchedulerConfig.Verbosity.
const (
	TraceOff = iota
	TraceLifecycle
	TraceSteals
	TraceTasks
)

// SchedulerConfig holds configuration options for Scheduler.
// All handlers are optional; if not provided, default implementations will be used.
type SchedulerConfig struct {
	// RoundSize is the number of task steps a context runs between checkpoints.
	RoundSize int

	// FreeListCapacity bounds each context's recycled task and barrier lists.
	FreeListCapacity int

	// BufferListCapacity bounds each buffer size class per context.
	BufferListCapacity int

	// Backoff is the wait policy used while stealing.
	Backoff BackoffPolicy

	// MeasureTiming enables per-context CPU and wall time measurement.
	MeasureTiming bool

	// Verbosity gates the per-context debug trace (TraceOff..TraceTasks).
	Verbosity int

	// PanicHandler is called when a task panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record scheduler metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Logger receives the debug trace and timing reports. Defaults to DefaultLogger.
	Logger Logger
}

const (
	DefaultRoundSize          = 64
	DefaultFreeListCapacity   = 1024
	DefaultBufferListCapacity = 256
)

// DefaultSchedulerConfig returns a config with default handlers.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		RoundSize:          DefaultRoundSize,
		FreeListCapacity:   DefaultFreeListCapacity,
		BufferListCapacity: DefaultBufferListCapacity,
		Backoff:            DefaultBackoffPolicy(),
		PanicHandler:       &DefaultPanicHandler{},
		Metrics:            &NilMetrics{},
		Logger:             NewDefaultLogger(),
	}
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.RoundSize <= 0 {
		c.RoundSize = DefaultRoundSize
	}
	if c.FreeListCapacity <= 0 {
		c.FreeListCapacity = DefaultFreeListCapacity
	}
	if c.BufferListCapacity <= 0 {
		c.BufferListCapacity = DefaultBufferListCapacity
	}
	c.Backoff = c.Backoff.withDefaults()
	if c.PanicHandler == nil {
		c.PanicHandler = &DefaultPanicHandler{}
	}
	if c.Metrics == nil {
		c.Metrics = &NilMetrics{}
	}
	if c.Logger == nil {
		c.Logger = NewDefaultLogger()
	}
	return c
}
