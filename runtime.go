package simpleos

import (
	"context"
	"errors"
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/lukawerner/MySimpleOS/config"
	"github.com/lukawerner/MySimpleOS/core"
	promexp "github.com/lukawerner/MySimpleOS/observability/prometheus"
	"github.com/lukawerner/MySimpleOS/tracing"
)

const (
	serviceName    = "mysimpleos"
	serviceVersion = "0.1.0"
)

// Runtime is a session wired with the logging, metrics and tracing a Config
// asks for, plus a worker pool sized from it.
type Runtime struct {
	Session *core.Session
	Pool    *core.WorkerPool

	Metrics *promexp.MetricsExporter
	Poller  *promexp.SnapshotPoller

	config config.Config
}

// RuntimeOption configures NewFromConfig.
type RuntimeOption func(*runtimeOptions)

type runtimeOptions struct {
	registerer prom.Registerer
	session    []core.Option
}

// WithRegisterer registers collectors on reg instead of the default registry.
func WithRegisterer(reg prom.Registerer) RuntimeOption {
	return func(o *runtimeOptions) { o.registerer = reg }
}

// WithSessionOptions appends session options, applied after the ones derived
// from Config.
func WithSessionOptions(opts ...core.Option) RuntimeOption {
	return func(o *runtimeOptions) { o.session = append(o.session, opts...) }
}

// NewFromConfig validates cfg and builds a Runtime running lines with exec.
func NewFromConfig(cfg config.Config, exec core.Executor, opts ...RuntimeOption) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	o := runtimeOptions{registerer: prom.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}

	lg, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		if err := tracing.Init(serviceName, serviceVersion, cfg.Tracing.Output); err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	exporter, err := promexp.NewMetricsExporter(cfg.Metrics.Namespace, o.registerer, promexp.ExporterOptions{})
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	poller, err := promexp.NewSnapshotPoller(o.registerer, cfg.Metrics.Namespace, cfg.Metrics.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("register snapshot gauges: %w", err)
	}

	sessionOpts := append([]core.Option{
		core.WithPolicy(cfg.SchedulingPolicy()),
		core.WithExecutor(exec),
		core.WithLogger(core.NewLogrusLogger(lg)),
		core.WithMetrics(exporter),
		core.WithArenaCapacity(cfg.Arena.Capacity),
	}, o.session...)
	session, err := core.NewSession(sessionOpts...)
	if err != nil {
		return nil, err
	}
	pool := core.NewWorkerPool(session, cfg.Workers)

	poller.AddSession(session.Name(), session)
	poller.AddPool(session.Name(), pool)

	return &Runtime{
		Session: session,
		Pool:    pool,
		Metrics: exporter,
		Poller:  poller,
		config:  cfg,
	}, nil
}

// Config returns the configuration the runtime was built from.
func (r *Runtime) Config() config.Config {
	return r.config
}

// RunSingleThreaded drains the ready queue on the calling goroutine.
func (r *Runtime) RunSingleThreaded(ctx context.Context) error {
	r.Poller.Start(ctx)
	defer r.Poller.CollectOnce()
	return core.NewScheduler(r.Session).Run(ctx)
}

// RunPool drains the ready queue on the worker pool, then stops the pool.
// Errors from failed instructions are returned joined.
func (r *Runtime) RunPool(ctx context.Context) error {
	r.Poller.Start(ctx)
	defer r.Poller.CollectOnce()

	r.Pool.Start(ctx)
	return r.Pool.Shutdown(ctx)
}

// Close stops polling, releases every PCB the session still owns and, when
// the config enabled tracing, flushes and shuts down the trace provider.
func (r *Runtime) Close() error {
	r.Poller.Stop()
	var errs []error
	if r.Pool.IsRunning() {
		errs = append(errs, r.Pool.Shutdown(context.Background()))
	}
	errs = append(errs, r.Session.Close())
	if r.config.Tracing.Enabled {
		errs = append(errs, tracing.Shutdown(context.Background()))
	}
	return errors.Join(errs...)
}
