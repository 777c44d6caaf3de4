package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/lukawerner/MySimpleOS/core"
)

// SessionSnapshotProvider provides current session stats snapshots.
type SessionSnapshotProvider interface {
	Stats() core.SessionStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports session/pool Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	sessionsMu sync.RWMutex
	sessions   map[string]SessionSnapshotProvider

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	sessionQueued    *prom.GaugeVec
	sessionLive      *prom.GaugeVec
	sessionCompleted *prom.GaugeVec
	sessionRejected  *prom.GaugeVec
	sessionAborted   *prom.GaugeVec

	arenaUsed           *prom.GaugeVec
	arenaFree           *prom.GaugeVec
	arenaLargestFreeRun *prom.GaugeVec

	poolActive      *prom.GaugeVec
	poolWorkers     *prom.GaugeVec
	poolLiveWorkers *prom.GaugeVec
	poolRunning     *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, namespace string, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	}

	p := &SnapshotPoller{
		interval: interval,
		sessions: make(map[string]SessionSnapshotProvider),
		pools:    make(map[string]PoolSnapshotProvider),

		sessionQueued:    gauge("session_queued", "PCBs waiting in the ready queue.", "session", "policy"),
		sessionLive:      gauge("session_live", "PCBs loaded and not yet released.", "session", "policy"),
		sessionCompleted: gauge("session_completed", "Programs completed, snapshot.", "session", "policy"),
		sessionRejected:  gauge("session_rejected", "Programs refused at load time, snapshot.", "session", "policy"),
		sessionAborted:   gauge("session_aborted", "Programs released without completing, snapshot.", "session", "policy"),

		arenaUsed:           gauge("arena_used_slots", "Program-memory slots in use.", "session"),
		arenaFree:           gauge("arena_free_slots", "Program-memory slots free.", "session"),
		arenaLargestFreeRun: gauge("arena_largest_free_run", "Largest contiguous run of free slots.", "session"),

		poolActive:      gauge("pool_active", "Workers running a quantum.", "pool"),
		poolWorkers:     gauge("pool_workers", "Configured worker count.", "pool"),
		poolLiveWorkers: gauge("pool_live_workers", "Workers still inside their loop.", "pool"),
		poolRunning:     gauge("pool_running", "Pool running state (1=running, 0=stopped).", "pool"),
	}

	for _, c := range []**prom.GaugeVec{
		&p.sessionQueued, &p.sessionLive, &p.sessionCompleted, &p.sessionRejected, &p.sessionAborted,
		&p.arenaUsed, &p.arenaFree, &p.arenaLargestFreeRun,
		&p.poolActive, &p.poolWorkers, &p.poolLiveWorkers, &p.poolRunning,
	} {
		registered, err := registerCollector(reg, *c)
		if err != nil {
			return nil, err
		}
		*c = registered
	}
	return p, nil
}

// AddSession adds or replaces a session snapshot provider by name.
func (p *SnapshotPoller) AddSession(name string, provider SessionSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "session")
	p.sessionsMu.Lock()
	p.sessions[name] = provider
	p.sessionsMu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

// CollectOnce exports one snapshot synchronously, e.g. right before a final
// scrape.
func (p *SnapshotPoller) CollectOnce() {
	if p == nil {
		return
	}
	p.collectOnce()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.sessionsMu.RLock()
	for name, provider := range p.sessions {
		stats := provider.Stats()
		policy := normalizeLabel(stats.Policy, "unknown")
		p.sessionQueued.WithLabelValues(name, policy).Set(float64(stats.Queued))
		p.sessionLive.WithLabelValues(name, policy).Set(float64(stats.Live))
		p.sessionCompleted.WithLabelValues(name, policy).Set(float64(stats.Completed))
		p.sessionRejected.WithLabelValues(name, policy).Set(float64(stats.Rejected))
		p.sessionAborted.WithLabelValues(name, policy).Set(float64(stats.Aborted))

		p.arenaUsed.WithLabelValues(name).Set(float64(stats.Arena.Used))
		p.arenaFree.WithLabelValues(name).Set(float64(stats.Arena.Free))
		p.arenaLargestFreeRun.WithLabelValues(name).Set(float64(stats.Arena.LargestFreeRun))
	}
	p.sessionsMu.RUnlock()

	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolLiveWorkers.WithLabelValues(name).Set(float64(stats.LiveWorkers))
		if stats.Running {
			p.poolRunning.WithLabelValues(name).Set(1)
		} else {
			p.poolRunning.WithLabelValues(name).Set(0)
		}
	}
	p.poolsMu.RUnlock()
}
