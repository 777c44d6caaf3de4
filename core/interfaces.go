package core

import (
	"context"
	"time"
)

// =============================================================================
// Executor: runs one program line
// =============================================================================

// Executor runs a single program line and reports whether it succeeded.
//
// The scheduler never calls Execute concurrently: worker pools serialize
// every call behind one execution lock, so implementations may keep
// unsynchronized state (a variable store, an output buffer). Execute may
// submit new programs to the session or ask a pool to quit.
type Executor interface {
	Execute(ctx context.Context, line string) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, line string) error

func (f ExecutorFunc) Execute(ctx context.Context, line string) error {
	return f(ctx, line)
}

// =============================================================================
// PanicHandler: Interface for handling executor panics
// =============================================================================

// PanicHandler is called when the Executor panics while running a line.
// The panic is converted into an ExecError after the handler returns.
//
// Implementations should be thread-safe as they may be called from any worker.
type PanicHandler interface {
	// HandlePanic is called when an instruction panics.
	//
	// Parameters:
	// - ctx: The context the instruction ran with
	// - session: The name of the session owning the PCB
	// - workerID: The pool worker ID, -1 for the single-threaded scheduler
	// - pid: The PCB whose instruction panicked
	// - panicInfo: The recovered value
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, session string, workerID int, pid PID, panicInfo any, stackTrace []byte)
}

// LoggingPanicHandler reports panics through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

// HandlePanic logs the panic at error level.
func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, session string, workerID int, pid PID, panicInfo any, stackTrace []byte) {
	h.Logger.Error("instruction panicked",
		F("session", session),
		F("worker", workerID),
		F("pid", pid),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics collects scheduling metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast: some are called with the
// session's queue lock held.
type Metrics interface {
	// RecordDispatch records one quantum of a PCB.
	//
	// Parameters:
	// - session: The session name
	// - policy: The policy name
	// - instructions: How many lines ran in this quantum
	// - duration: Wall time of the quantum
	RecordDispatch(session string, policy string, instructions int, duration time.Duration)

	// RecordCompletion records a PCB that ran its last line.
	RecordCompletion(session string, policy string, background bool)

	// RecordExecError records an instruction failure.
	RecordExecError(session string, policy string)

	// RecordSubmitRejected records a submission that could not be loaded.
	//
	// Parameters:
	// - reason: "empty_program" or "arena_full"
	RecordSubmitRejected(session string, reason string)

	// RecordQueueDepth records the ready-queue length.
	RecordQueueDepth(session string, depth int)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordDispatch(session string, policy string, instructions int, duration time.Duration) {
}
func (m *NilMetrics) RecordCompletion(session string, policy string, background bool) {}
func (m *NilMetrics) RecordExecError(session string, policy string)                   {}
func (m *NilMetrics) RecordSubmitRejected(session string, reason string)              {}
func (m *NilMetrics) RecordQueueDepth(session string, depth int)                      {}
