package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBadLine = errors.New("bad line")

// traceExecutor records every executed line. A line equal to fail returns
// errBadLine; a line equal to panicLine panics.
type traceExecutor struct {
	mu        sync.Mutex
	lines     []string
	fail      string
	panicLine string
	onLine    func(ctx context.Context, line string) error
}

func (e *traceExecutor) Execute(ctx context.Context, line string) error {
	if line != "" && line == e.panicLine {
		panic("executor blew up")
	}
	if line != "" && line == e.fail {
		return errBadLine
	}
	e.mu.Lock()
	e.lines = append(e.lines, line)
	e.mu.Unlock()
	if e.onLine != nil {
		return e.onLine(ctx, line)
	}
	return nil
}

func (e *traceExecutor) Lines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.lines...)
}

func newTestSession(t *testing.T, policy string, exec Executor, opts ...Option) *Session {
	t.Helper()
	base := []Option{
		WithName("test"),
		WithPolicy(MustParsePolicy(policy)),
		WithExecutor(exec),
		WithLogger(NewNoOpLogger()),
	}
	s, err := NewSession(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func submitAll(t *testing.T, s *Session, programs ...[]string) []PID {
	t.Helper()
	pids := make([]PID, 0, len(programs))
	for _, lines := range programs {
		pcb, err := s.Submit(lines)
		require.NoError(t, err)
		pids = append(pids, pcb.PID())
	}
	return pids
}

// recordingMetrics counts calls per Metrics method.
type recordingMetrics struct {
	mu           sync.Mutex
	dispatches   int
	instructions int
	completions  int
	background   int
	execErrors   int
	rejected     map[string]int
	lastDepth    int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{rejected: make(map[string]int)}
}

func (m *recordingMetrics) RecordDispatch(session, policy string, instructions int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatches++
	m.instructions += instructions
}

func (m *recordingMetrics) RecordCompletion(session, policy string, background bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions++
	if background {
		m.background++
	}
}

func (m *recordingMetrics) RecordExecError(session, policy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.execErrors++
}

func (m *recordingMetrics) RecordSubmitRejected(session, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[reason]++
}

func (m *recordingMetrics) RecordQueueDepth(session string, depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastDepth = depth
}

type recordingPanicHandler struct {
	mu    sync.Mutex
	calls []PID
}

func (h *recordingPanicHandler) HandlePanic(ctx context.Context, session string, workerID int, pid PID, panicInfo any, stackTrace []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, pid)
}
