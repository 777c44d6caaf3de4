package core

import (
	"context"
	"fmt"

	"github.com/lukawerner/MySimpleOS/tracing"
)

// Scheduler drives the session's ready queue on the calling goroutine, one
// PCB at a time, until the queue is empty.
type Scheduler struct {
	session *Session
}

// NewScheduler creates a single-threaded scheduler over session.
// Panics if session is nil.
func NewScheduler(session *Session) *Scheduler {
	if session == nil {
		panic("Scheduler: session must not be nil")
	}
	return &Scheduler{session: session}
}

// Run dispatches PCBs until the ready queue drains.
//
// Each cycle runs one quantum of the held PCB, ages the queue under AGING,
// then destroys the PCB if it completed, keeps it for another quantum if
// AGING would pick it again anyway, or puts it back in the queue.
//
// The first instruction failure aborts the run: the failing PCB and every
// queued PCB are released and the error is returned. A cancelled ctx is
// handled the same way between quanta.
func (r *Scheduler) Run(ctx context.Context) (err error) {
	s := r.session
	policy := s.policy

	ctx, span := tracing.StartSpan(ctx, "scheduler.run", "INTERNAL")
	span.WithAttributes(map[string]string{"session.id": s.id, "policy": policy.String()})
	defer func() { tracing.EndSpan(span, err) }()

	var held *PCB
	for {
		if held == nil {
			s.mu.Lock()
			pcb, deqErr := s.queue.Dequeue()
			s.mu.Unlock()
			if deqErr != nil {
				return nil
			}
			held = pcb
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			r.abort(held)
			return ctxErr
		}

		if _, execErr := s.runQuantum(ctx, held, policy, false); execErr != nil {
			s.logger.Error("program failed, aborting run",
				F("session", s.name),
				F("pid", held.pid),
				F("error", execErr),
			)
			r.abort(held)
			return execErr
		}

		s.mu.Lock()
		if policy.Aging() {
			s.queue.Age()
		}
		switch {
		case held.Completed():
			s.destroyLocked(held, policy)
			held = nil
		case policy.rerunsImmediately(held, s.queue):
			// keep holding it
		default:
			if enqErr := s.queue.Enqueue(held, policy); enqErr != nil {
				s.mu.Unlock()
				return fmt.Errorf("requeue pid %d: %w", held.pid, enqErr)
			}
			held = nil
		}
		depth := s.queue.Len()
		s.mu.Unlock()

		s.metrics.RecordQueueDepth(s.name, depth)
	}
}

// abort releases held and everything still queued.
func (r *Scheduler) abort(held *PCB) {
	s := r.session
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abortLocked(held)
	if n := s.abortQueueLocked(); n > 0 {
		s.logger.Warn("released queued programs after abort",
			F("session", s.name),
			F("count", n),
		)
	}
}
