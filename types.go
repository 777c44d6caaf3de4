package simpleos

import "github.com/lukawerner/MySimpleOS/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the simpleos package for most use cases.

// PID identifies a process control block.
type PID = core.PID

// PCB is a process control block
type PCB = core.PCB

// Policy is a scheduling policy
type Policy = core.Policy

// PolicyKind enumerates the supported policies
type PolicyKind = core.PolicyKind

// Session is the scheduler context
type Session = core.Session

// Scheduler runs a session on the calling goroutine
type Scheduler = core.Scheduler

// WorkerPool runs a session on a fixed set of workers
type WorkerPool = core.WorkerPool

// Executor runs one program line
type Executor = core.Executor

// ExecutorFunc adapts a function to Executor
type ExecutorFunc = core.ExecutorFunc

// ExecError reports the failing line of a program
type ExecError = core.ExecError

// Option configures a Session
type Option = core.Option

// Policy constants
const (
	PolicyFCFS  PolicyKind = core.PolicyFCFS
	PolicySJF   PolicyKind = core.PolicySJF
	PolicyRR    PolicyKind = core.PolicyRR
	PolicyAging PolicyKind = core.PolicyAging
	PolicyRR30  PolicyKind = core.PolicyRR30
)

var (
	ErrArenaFull     = core.ErrArenaFull
	ErrEmptyProgram  = core.ErrEmptyProgram
	ErrUnknownPolicy = core.ErrUnknownPolicy
)

var (
	NewSession      = core.NewSession
	NewScheduler    = core.NewScheduler
	NewWorkerPool   = core.NewWorkerPool
	ParsePolicy     = core.ParsePolicy
	MustParsePolicy = core.MustParsePolicy

	SessionFromContext  = core.SessionFromContext
	PoolFromContext     = core.PoolFromContext
	WorkerIDFromContext = core.WorkerIDFromContext

	WithName            = core.WithName
	WithPolicy          = core.WithPolicy
	WithExecutor        = core.WithExecutor
	WithLogger          = core.WithLogger
	WithMetrics         = core.WithMetrics
	WithPanicHandler    = core.WithPanicHandler
	WithArenaCapacity   = core.WithArenaCapacity
	WithHistoryCapacity = core.WithHistoryCapacity
)
