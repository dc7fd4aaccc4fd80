package prometheus

import (
	"context"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sasha-s/go-deadlock"

	"github.com/Swind/go-fleet"
)

// FleetSnapshotProvider provides current fleet stats snapshots.
type FleetSnapshotProvider interface {
	Stats() fleet.Stats
}

// SnapshotPoller periodically exports fleet Stats() snapshots into Prometheus
// gauges.
type SnapshotPoller struct {
	interval time.Duration

	fleetsMu deadlock.RWMutex
	fleets   map[string]FleetSnapshotProvider

	fleetContexts *prom.GaugeVec
	fleetActive   *prom.GaugeVec
	fleetRunning  *prom.GaugeVec
	fleetRuns     *prom.GaugeVec

	contextExecuted   *prom.GaugeVec
	contextStolen     *prom.GaugeVec
	contextQueueDepth *prom.GaugeVec
	contextLiveTasks  *prom.GaugeVec
	contextFreeTasks  *prom.GaugeVec
	contextCPUSeconds *prom.GaugeVec

	stateMu deadlock.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string, labels ...string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{Namespace: "fleet", Name: name, Help: help}, labels)
	}
	p := &SnapshotPoller{
		interval: interval,
		fleets:   make(map[string]FleetSnapshotProvider),

		fleetContexts: gauge("contexts", "Number of execution contexts.", "fleet"),
		fleetActive:   gauge("active_contexts", "Contexts currently holding work.", "fleet"),
		fleetRunning:  gauge("running", "Fleet running state (1=running, 0=idle).", "fleet"),
		fleetRuns:     gauge("runs", "Completed or in-progress runs.", "fleet"),

		contextExecuted:   gauge("context_executed", "Task steps run per context.", "fleet", "context"),
		contextStolen:     gauge("context_stolen", "Tasks received through steals per context.", "fleet", "context"),
		contextQueueDepth: gauge("context_queue_depth", "Ready queue depth per context.", "fleet", "context"),
		contextLiveTasks:  gauge("context_live_tasks", "Tasks handed out and not yet recycled, per allocating context.", "fleet", "context"),
		contextFreeTasks:  gauge("context_free_tasks", "Recycled tasks held per context.", "fleet", "context"),
		contextCPUSeconds: gauge("context_cpu_time_seconds", "Accumulated CPU time per context.", "fleet", "context"),
	}

	for _, vec := range []**prom.GaugeVec{
		&p.fleetContexts, &p.fleetActive, &p.fleetRunning, &p.fleetRuns,
		&p.contextExecuted, &p.contextStolen, &p.contextQueueDepth,
		&p.contextLiveTasks, &p.contextFreeTasks, &p.contextCPUSeconds,
	} {
		registered, err := registerCollector(reg, *vec)
		if err != nil {
			return nil, err
		}
		*vec = registered
	}
	return p, nil
}

// AddFleet adds or replaces a fleet snapshot provider by name.
func (p *SnapshotPoller) AddFleet(name string, provider FleetSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "fleet")
	p.fleetsMu.Lock()
	p.fleets[name] = provider
	p.fleetsMu.Unlock()
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

	go p.loop(pollCtx, p.done)
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
	cancel, done := p.cancel, p.done
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()

	cancel()
	<-done
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

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

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (p *SnapshotPoller) collectOnce() {
	p.fleetsMu.RLock()
	defer p.fleetsMu.RUnlock()

	for name, provider := range p.fleets {
		stats := provider.Stats()
		p.fleetContexts.WithLabelValues(name).Set(float64(stats.Contexts))
		p.fleetActive.WithLabelValues(name).Set(float64(stats.ActiveContexts))
		p.fleetRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
		p.fleetRuns.WithLabelValues(name).Set(float64(stats.Runs))

		for _, c := range stats.PerContext {
			index := strconv.Itoa(c.Index)
			p.contextExecuted.WithLabelValues(name, index).Set(float64(c.Executed))
			p.contextStolen.WithLabelValues(name, index).Set(float64(c.Stolen))
			p.contextQueueDepth.WithLabelValues(name, index).Set(float64(c.QueueDepth))
			p.contextLiveTasks.WithLabelValues(name, index).Set(float64(c.Tasks.Live()))
			p.contextFreeTasks.WithLabelValues(name, index).Set(float64(c.Tasks.Free))
			p.contextCPUSeconds.WithLabelValues(name, index).Set(c.CPUTime.Seconds())
		}
	}
}
