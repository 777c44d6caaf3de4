package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lukawerner/MySimpleOS/tracing"
)

const (
	// DefaultWorkerCount is the pool size used when none is configured.
	DefaultWorkerCount = 2

	// maxAllowedWorkers bounds the pool size to keep goroutine counts sane.
	maxAllowedWorkers = 10000
)

// PoolState is the lifecycle state of a WorkerPool.
type PoolState int32

const (
	PoolNotStarted PoolState = iota
	PoolRunning
	PoolDraining
	PoolStopped
)

func (s PoolState) String() string {
	switch s {
	case PoolNotStarted:
		return "not_started"
	case PoolRunning:
		return "running"
	case PoolDraining:
		return "draining"
	case PoolStopped:
		return "stopped"
	default:
		return fmt.Sprintf("PoolState(%d)", int32(s))
	}
}

// WorkerPool runs a fixed number of workers over one session's ready queue.
//
// Workers share the session's queue lock and wait on its work condition.
// Each dispatch runs one quantum outside the queue lock, with every
// instruction serialized by the session's execution lock, then returns the
// PCB to the queue or destroys it.
//
// All pool state below is guarded by the session's queue lock.
type WorkerPool struct {
	session *Session
	workers int
	policy  Policy

	state    PoolState
	shutdown bool
	active   int // workers currently running a quantum
	live     int // workers still inside their loop
	errs     []error
	wg       sync.WaitGroup

	quitCh        chan struct{}
	quitRequested bool
}

// NewWorkerPool creates a pool of workers over session.
// Panics if session is nil or workers is out of range [1, 10000].
func NewWorkerPool(session *Session, workers int) *WorkerPool {
	if session == nil {
		panic("WorkerPool: session must not be nil")
	}
	if workers < 1 {
		panic("WorkerPool: workers must be at least 1")
	}
	if workers > maxAllowedWorkers {
		panic(fmt.Sprintf("WorkerPool: workers must not exceed %d", maxAllowedWorkers))
	}
	return &WorkerPool{
		session: session,
		workers: workers,
		quitCh:  make(chan struct{}),
	}
}

// Start spawns the workers. On a pool that is already running it only wakes
// waiting workers, which is how work submitted mid-session gets noticed.
func (p *WorkerPool) Start(ctx context.Context) {
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.state != PoolNotStarted {
		s.work.Broadcast()
		return
	}

	p.policy = s.policy
	p.shutdown = false
	p.errs = nil
	if p.quitRequested {
		p.quitCh = make(chan struct{})
		p.quitRequested = false
	}

	workerCtx := context.WithValue(ctx, poolKey, p)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		p.live++
		go p.workerLoop(context.WithValue(workerCtx, workerKey, i), i)
	}
	p.state = PoolRunning
	s.work.Broadcast()

	s.logger.Info("worker pool started",
		F("session", s.name),
		F("workers", p.workers),
		F("policy", p.policy.String()),
	)
}

func (p *WorkerPool) workerLoop(ctx context.Context, id int) {
	defer p.wg.Done()
	s := p.session

	for {
		s.mu.Lock()
		for s.queue.IsEmpty() && !p.shutdown {
			s.work.Wait()
		}
		if s.queue.IsEmpty() {
			// shutdown requested and nothing left
			p.live--
			s.mu.Unlock()
			return
		}
		pcb, _ := s.queue.Dequeue()
		p.active++
		s.mu.Unlock()

		_, err := s.runQuantum(ctx, pcb, p.policy, true)

		s.mu.Lock()
		if err != nil {
			s.abortLocked(pcb)
			p.errs = append(p.errs, err)
			p.active--
			p.live--
			s.work.Broadcast()
			s.mu.Unlock()

			s.logger.Error("worker exiting after failed instruction",
				F("session", s.name),
				F("worker", id),
				F("error", err),
			)
			return
		}

		if p.policy.Aging() {
			s.queue.Age()
		}
		if pcb.Completed() {
			s.destroyLocked(pcb, p.policy)
		} else {
			// pcb was owned by this worker, so it cannot be queued
			_ = s.queue.Enqueue(pcb, p.policy)
			s.work.Signal()
		}
		p.active--
		if s.queue.IsEmpty() && p.active == 0 {
			s.work.Broadcast()
		}
		depth := s.queue.Len()
		s.mu.Unlock()

		s.metrics.RecordQueueDepth(s.name, depth)
	}
}

// Shutdown waits until the ready queue is empty and no worker is running a
// quantum, then stops and joins every worker and resets the pool so it can be
// started again. Errors from failed instructions are returned joined.
//
// Shutdown must be called by the goroutine that owns the pool, never from
// inside an instruction; instructions use RequestQuit instead.
//
// If every worker has exited on errors, the programs left in the queue can
// never run; they are released instead of waited for.
func (p *WorkerPool) Shutdown(ctx context.Context) (err error) {
	s := p.session

	_, span := tracing.StartSpan(ctx, "pool.shutdown", "INTERNAL")
	span.WithAttributes(map[string]string{"session.id": s.id})
	defer func() { tracing.EndSpan(span, err) }()

	s.mu.Lock()
	if p.state == PoolNotStarted {
		s.mu.Unlock()
		return nil
	}

	p.state = PoolDraining
	for (!s.queue.IsEmpty() || p.active > 0) && p.live > 0 {
		s.work.Wait()
	}
	if released := s.abortQueueLocked(); released > 0 {
		s.logger.Warn("no workers left, released queued programs",
			F("session", s.name),
			F("count", released),
		)
	}

	p.shutdown = true
	p.state = PoolStopped
	s.work.Broadcast()
	s.mu.Unlock()

	p.wg.Wait()

	s.mu.Lock()
	errs := p.errs
	p.errs = nil
	p.shutdown = false
	p.live = 0
	p.state = PoolNotStarted
	s.mu.Unlock()

	s.logger.Info("worker pool stopped",
		F("session", s.name),
		F("errors", len(errs)),
	)
	return errors.Join(errs...)
}

// RequestQuit asks the owner to shut the pool down. It never blocks on the
// pool and is safe to call from inside an instruction.
func (p *WorkerPool) RequestQuit() {
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()

	if !p.quitRequested {
		p.quitRequested = true
		close(p.quitCh)
	}
}

// QuitRequested returns a channel closed once RequestQuit has been called.
func (p *WorkerPool) QuitRequested() <-chan struct{} {
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.quitCh
}

// State returns the lifecycle state.
func (p *WorkerPool) State() PoolState {
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.state
}

// IsRunning reports whether workers have been started and not yet shut down.
func (p *WorkerPool) IsRunning() bool {
	return p.State() != PoolNotStarted
}

// WorkerCount returns the configured number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// ActiveWorkerCount returns the number of workers running a quantum.
func (p *WorkerPool) ActiveWorkerCount() int {
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()
	return p.active
}

// Stats returns current observability data for this pool.
func (p *WorkerPool) Stats() PoolStats {
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()

	return PoolStats{
		Session:     s.name,
		Workers:     p.workers,
		LiveWorkers: p.live,
		Active:      p.active,
		Queued:      s.queue.Len(),
		State:       p.state,
		Running:     p.state != PoolNotStarted,
	}
}
