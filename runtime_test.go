package simpleos

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukawerner/MySimpleOS/config"
	"github.com/lukawerner/MySimpleOS/core"
)

type recordingExecutor struct {
	mu    sync.Mutex
	lines []string
	fail  string
}

func (e *recordingExecutor) Execute(ctx context.Context, line string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if line == e.fail {
		return errors.New("bad line")
	}
	e.lines = append(e.lines, line)
	return nil
}

func newTestRuntime(t *testing.T, mutate func(*config.Config), exec core.Executor) (*Runtime, *prom.Registry) {
	t.Helper()
	cfg := config.Default()
	cfg.Log.Level = "error"
	if mutate != nil {
		mutate(&cfg)
	}
	reg := prom.NewRegistry()
	rt, err := NewFromConfig(cfg, exec, WithRegisterer(reg), WithSessionOptions(core.WithName("rt-test")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt, reg
}

// TestNewFromConfig_WiresSession verifies config reaches the session
// Given: A config selecting SJF, 3 workers and a 16 slot arena
// When: NewFromConfig is called
// Then: The session, pool and arena reflect those values
func TestNewFromConfig_WiresSession(t *testing.T) {
	rt, _ := newTestRuntime(t, func(c *config.Config) {
		c.Policy = "sjf"
		c.Workers = 3
		c.Arena.Capacity = 16
	}, &recordingExecutor{})

	assert.Equal(t, "SJF", rt.Session.Policy().String())
	assert.Equal(t, "rt-test", rt.Session.Name())
	assert.Equal(t, 3, rt.Pool.WorkerCount())
	assert.Equal(t, 16, rt.Session.Arena().Capacity())
	assert.Equal(t, "sjf", rt.Config().Policy)
}

func TestNewFromConfig_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Policy = "LOTTERY"

	_, err := NewFromConfig(cfg, &recordingExecutor{}, WithRegisterer(prom.NewRegistry()))

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownPolicy)
}

func TestNewFromConfig_RequiresExecutor(t *testing.T) {
	_, err := NewFromConfig(config.Default(), nil, WithRegisterer(prom.NewRegistry()))
	assert.Error(t, err)
}

// TestRuntime_RunSingleThreaded_RecordsMetrics verifies the exporter is wired
// Given: Two FCFS programs of 2 and 1 lines
// When: RunSingleThreaded drains the queue
// Then: Lines run in arrival order and the registry carries dispatch and completion series
func TestRuntime_RunSingleThreaded_RecordsMetrics(t *testing.T) {
	exec := &recordingExecutor{}
	rt, reg := newTestRuntime(t, nil, exec)

	_, err := rt.Session.Submit([]string{"a1", "a2"})
	require.NoError(t, err)
	_, err = rt.Session.Submit([]string{"b1"})
	require.NoError(t, err)

	require.NoError(t, rt.RunSingleThreaded(context.Background()))

	assert.Equal(t, []string{"a1", "a2", "b1"}, exec.lines)
	n, err := testutil.GatherAndCount(reg, "mysimpleos_dispatch_duration_seconds", "mysimpleos_completions_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(2), rt.Session.Stats().Completed)
}

// TestRuntime_RunPool verifies the pool path drains every program
// Given: Ten one-line programs and a 4 worker pool
// When: RunPool returns
// Then: Every line ran once and the session holds no PCBs
func TestRuntime_RunPool(t *testing.T) {
	exec := &recordingExecutor{}
	rt, _ := newTestRuntime(t, func(c *config.Config) { c.Workers = 4 }, exec)

	for i := 0; i < 10; i++ {
		_, err := rt.Session.Submit([]string{"x"})
		require.NoError(t, err)
	}

	require.NoError(t, rt.RunPool(context.Background()))

	assert.Len(t, exec.lines, 10)
	stats := rt.Session.Stats()
	assert.Equal(t, int64(10), stats.Completed)
	assert.Zero(t, stats.Live)
	assert.Equal(t, 0, stats.Arena.Used)
	assert.False(t, rt.Pool.IsRunning())
}

func TestRuntime_RunPool_ReturnsExecError(t *testing.T) {
	exec := &recordingExecutor{fail: "boom"}
	rt, _ := newTestRuntime(t, func(c *config.Config) { c.Workers = 1 }, exec)

	_, err := rt.Session.Submit([]string{"boom"})
	require.NoError(t, err)

	err = rt.RunPool(context.Background())

	var execErr *core.ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "boom", execErr.Line)
	assert.Zero(t, rt.Session.Stats().Live)
}

// TestRuntime_TracingSurvivesSecondRuntime verifies trace output across runtimes
// Given: A runtime with tracing to a file that has run one program
// When: A second runtime with the same output is built and both are closed
// Then: The first runtime's spans are still in the file
func TestRuntime_TracingSurvivesSecondRuntime(t *testing.T) {
	// Arrange
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	out := filepath.Join(t.TempDir(), "traces.json")
	withTracing := func(c *config.Config) {
		c.Tracing.Enabled = true
		c.Tracing.Output = out
	}

	first, _ := newTestRuntime(t, withTracing, &recordingExecutor{})
	_, err := first.Session.Submit([]string{"echo a"})
	require.NoError(t, err)
	require.NoError(t, first.RunSingleThreaded(context.Background()))

	// Act
	second, _ := newTestRuntime(t, withTracing, &recordingExecutor{})
	require.NoError(t, second.Close())
	require.NoError(t, first.Close())

	// Assert
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "scheduler.run")
}
