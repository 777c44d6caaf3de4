package core

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lukawerner/MySimpleOS/tracing"
)

type contextKey int

const (
	sessionKey contextKey = iota
	poolKey
	workerKey
)

// SessionFromContext returns the session running the current instruction.
// Executors use it to submit programs from inside a running program.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok
}

// PoolFromContext returns the worker pool running the current instruction,
// if any.
func PoolFromContext(ctx context.Context) (*WorkerPool, bool) {
	p, ok := ctx.Value(poolKey).(*WorkerPool)
	return p, ok
}

// WorkerIDFromContext returns the pool worker running the current
// instruction, or -1 under the single-threaded scheduler.
func WorkerIDFromContext(ctx context.Context) int {
	if id, ok := ctx.Value(workerKey).(int); ok {
		return id
	}
	return -1
}

// Session is the scheduler context: program memory, process table, ready
// queue and the locks guarding them. Every scheduler operation goes through
// one Session, created once and released with Close.
//
// Lock order: execMu may be held while taking mu (an instruction submitting
// a program); mu is never held while taking execMu. The arena's internal
// lock is a leaf.
type Session struct {
	id     string
	name   string
	policy Policy

	executor     Executor
	logger       Logger
	metrics      Metrics
	panicHandler PanicHandler

	arena *ProgramMemory

	// mu guards table, queue, every PCB link and the worker-pool state.
	mu    sync.Mutex
	work  *sync.Cond // work available or shutting down
	table *processTable
	queue *ReadyQueue

	// execMu serializes Executor calls across pool workers.
	execMu sync.Mutex

	history   *completionHistory
	submitted atomic.Int64
	completed atomic.Int64
	rejected  atomic.Int64
	aborted   atomic.Int64
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	name            string
	policy          Policy
	executor        Executor
	logger          Logger
	metrics         Metrics
	panicHandler    PanicHandler
	arenaCapacity   int
	historyCapacity int
}

// WithName sets the session name used in logs and metric labels.
func WithName(name string) Option {
	return func(c *sessionConfig) { c.name = name }
}

// WithPolicy sets the scheduling policy. Defaults to FCFS.
func WithPolicy(p Policy) Option {
	return func(c *sessionConfig) { c.policy = p }
}

// WithExecutor sets the instruction executor. Required.
func WithExecutor(e Executor) Option {
	return func(c *sessionConfig) { c.executor = e }
}

// WithLogger sets the logger. Defaults to the logrus standard logger.
func WithLogger(l Logger) Option {
	return func(c *sessionConfig) { c.logger = l }
}

// WithMetrics sets the metrics sink. Defaults to NilMetrics.
func WithMetrics(m Metrics) Option {
	return func(c *sessionConfig) { c.metrics = m }
}

// WithPanicHandler sets the handler for executor panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *sessionConfig) { c.panicHandler = h }
}

// WithArenaCapacity sets the number of program-memory slots.
func WithArenaCapacity(n int) Option {
	return func(c *sessionConfig) { c.arenaCapacity = n }
}

// WithHistoryCapacity sets how many completions RecentCompletions keeps.
func WithHistoryCapacity(n int) Option {
	return func(c *sessionConfig) { c.historyCapacity = n }
}

// NewSession creates a session. An executor is required.
func NewSession(options ...Option) (*Session, error) {
	cfg := sessionConfig{
		arenaCapacity:   DefaultArenaCapacity,
		historyCapacity: defaultCompletionHistoryCapacity,
	}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.arenaCapacity < 1 {
		return nil, fmt.Errorf("arena capacity must be at least 1, got %d", cfg.arenaCapacity)
	}
	if cfg.logger == nil {
		cfg.logger = NewDefaultLogger()
	}
	if cfg.metrics == nil {
		cfg.metrics = &NilMetrics{}
	}
	if cfg.panicHandler == nil {
		cfg.panicHandler = &LoggingPanicHandler{Logger: cfg.logger}
	}

	id := uuid.New().String()
	if cfg.name == "" {
		cfg.name = "session-" + id[:8]
	}

	table := newProcessTable()
	s := &Session{
		id:           id,
		name:         cfg.name,
		policy:       cfg.policy,
		executor:     cfg.executor,
		logger:       cfg.logger,
		metrics:      cfg.metrics,
		panicHandler: cfg.panicHandler,
		arena:        NewProgramMemory(cfg.arenaCapacity),
		table:        table,
		queue:        newReadyQueue(table),
		history:      newCompletionHistory(cfg.historyCapacity),
	}
	s.work = sync.NewCond(&s.mu)
	return s, nil
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Name() string          { return s.name }
func (s *Session) Policy() Policy        { return s.policy }
func (s *Session) Logger() Logger        { return s.logger }
func (s *Session) Arena() *ProgramMemory { return s.arena }

// QueueLen returns the number of PCBs waiting in the ready queue.
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// QueuedPIDs returns the ready queue in dequeue order.
func (s *Session) QueuedPIDs() []PID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.PIDs()
}

// Submit loads lines into program memory and enqueues a new PCB for them.
func (s *Session) Submit(lines []string) (*PCB, error) {
	return s.submit(lines, false)
}

// SubmitBackground is Submit for a batch program; the PCB is flagged as
// background.
func (s *Session) SubmitBackground(lines []string) (*PCB, error) {
	return s.submit(lines, true)
}

func (s *Session) submit(lines []string, background bool) (*PCB, error) {
	if len(lines) == 0 {
		s.reject("empty_program")
		return nil, ErrEmptyProgram
	}

	start, err := s.arena.Allocate(len(lines))
	if err != nil {
		s.reject("arena_full")
		s.logger.Warn("program rejected",
			F("session", s.name),
			F("lines", len(lines)),
			F("error", err),
		)
		return nil, err
	}
	for i, line := range lines {
		if err := s.arena.Write(start+i, line); err != nil {
			_ = s.arena.Free(start, len(lines))
			return nil, err
		}
	}

	s.mu.Lock()
	pcb := s.table.create(start, len(lines))
	if background {
		pcb.ToggleBackground()
	}
	// A fresh PCB cannot already be queued.
	_ = s.queue.Enqueue(pcb, s.policy)
	depth := s.queue.Len()
	s.work.Broadcast()
	s.mu.Unlock()

	s.submitted.Add(1)
	s.metrics.RecordQueueDepth(s.name, depth)
	s.logger.Debug("program loaded",
		F("session", s.name),
		F("pid", pcb.pid),
		F("start", start),
		F("size", len(lines)),
		F("background", background),
	)
	return pcb, nil
}

func (s *Session) reject(reason string) {
	s.rejected.Add(1)
	s.metrics.RecordSubmitRejected(s.name, reason)
}

// runQuantum executes up to one quantum of pcb. The caller owns pcb and holds
// no session lock. serialize makes every instruction take execMu.
func (s *Session) runQuantum(ctx context.Context, pcb *PCB, policy Policy, serialize bool) (executed int, err error) {
	ctx = context.WithValue(ctx, sessionKey, s)
	ctx, span := tracing.StartSpan(ctx, "scheduler.dispatch", "INTERNAL")
	span.WithAttributes(map[string]string{
		"session.id": s.id,
		"pid":        strconv.FormatUint(uint64(pcb.pid), 10),
		"policy":     policy.String(),
	})
	defer func() {
		span.WithInt("instructions", executed)
		tracing.EndSpan(span, err)
	}()

	started := time.Now()
	quantum := policy.Quantum()
	pcb.dispatches++
	for !pcb.Completed() && executed != quantum {
		line, readErr := s.arena.Read(pcb.pc)
		if readErr != nil {
			err = &ExecError{PID: pcb.pid, PC: pcb.pc, Err: readErr}
			break
		}
		if execErr := s.execute(ctx, pcb, line, serialize); execErr != nil {
			err = &ExecError{PID: pcb.pid, PC: pcb.pc, Line: line, Err: execErr}
			break
		}
		pcb.IncrementPC()
		pcb.instructions++
		executed++
	}

	s.metrics.RecordDispatch(s.name, policy.String(), executed, time.Since(started))
	if err != nil {
		s.metrics.RecordExecError(s.name, policy.String())
	}
	return executed, err
}

func (s *Session) execute(ctx context.Context, pcb *PCB, line string, serialize bool) (err error) {
	if serialize {
		s.execMu.Lock()
		defer s.execMu.Unlock()
	}
	defer func() {
		if r := recover(); r != nil {
			s.panicHandler.HandlePanic(ctx, s.name, WorkerIDFromContext(ctx), pcb.pid, r, debug.Stack())
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.executor.Execute(ctx, line)
}

// destroyLocked frees a completed PCB. Caller holds mu.
func (s *Session) destroyLocked(pcb *PCB, policy Policy) {
	s.releaseLocked(pcb)

	now := time.Now()
	s.history.Add(CompletionRecord{
		PID:          pcb.pid,
		ProgramSize:  pcb.programSize,
		Background:   pcb.background,
		Policy:       policy.String(),
		Dispatches:   pcb.dispatches,
		Instructions: pcb.instructions,
		SubmittedAt:  pcb.submittedAt,
		CompletedAt:  now,
		Turnaround:   now.Sub(pcb.submittedAt),
	})
	s.completed.Add(1)
	s.metrics.RecordCompletion(s.name, policy.String(), pcb.background)
	s.logger.Debug("program completed",
		F("session", s.name),
		F("pid", pcb.pid),
		F("dispatches", pcb.dispatches),
	)
}

// abortLocked frees a PCB that will never complete. Caller holds mu.
func (s *Session) abortLocked(pcb *PCB) {
	s.releaseLocked(pcb)
	s.aborted.Add(1)
}

// abortQueueLocked drains the ready queue and frees every PCB in it.
// Caller holds mu.
func (s *Session) abortQueueLocked() int {
	drained := s.queue.drain()
	for _, pcb := range drained {
		s.abortLocked(pcb)
	}
	return len(drained)
}

func (s *Session) releaseLocked(pcb *PCB) {
	if err := s.arena.Free(pcb.memoryStart, pcb.programSize); err != nil {
		s.logger.Error("failed to free program memory",
			F("session", s.name),
			F("pid", pcb.pid),
			F("error", err),
		)
	}
	s.table.release(pcb.pid)
}

// RecentCompletions returns completed PCBs, newest first.
func (s *Session) RecentCompletions(limit int) []CompletionRecord {
	return s.history.Recent(limit)
}

// Stats returns current observability data for this session.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	queued := s.queue.Len()
	live := s.table.len()
	s.mu.Unlock()

	stats := SessionStats{
		ID:        s.id,
		Name:      s.name,
		Policy:    s.policy.String(),
		Queued:    queued,
		Live:      live,
		Submitted: s.submitted.Load(),
		Completed: s.completed.Load(),
		Rejected:  s.rejected.Load(),
		Aborted:   s.aborted.Load(),
		Arena:     s.arena.Stats(),
	}
	if last, ok := s.history.Last(); ok {
		stats.LastCompletedPID = last.PID
		stats.LastCompletedAt = last.CompletedAt
	}
	return stats
}

// Close releases every PCB still owned by the session. It must not race a
// running scheduler or worker pool.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue.drain()
	var errs []error
	for pid, pcb := range s.table.records {
		if err := s.arena.Free(pcb.memoryStart, pcb.programSize); err != nil {
			errs = append(errs, fmt.Errorf("pid %d: %w", pid, err))
		}
		s.table.release(pid)
		s.aborted.Add(1)
	}
	return errors.Join(errs...)
}
