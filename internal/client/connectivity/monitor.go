// Package connectivity tracks whether the server is reachable and tells the
// orchestrator about it. Going offline is reported at once; coming back
// online triggers one reconciliation after a quiet period, so a flapping
// link does not cause a storm of them.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/auditkeeper/internal/logging"
)

const (
	DefaultInterval     = 3 * time.Second
	DefaultQuietPeriod  = 2 * time.Second
	DefaultProbeTimeout = 3 * time.Second
)

// Prober checks once whether the server is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// Reconciler is the part of the orchestrator the monitor drives.
type Reconciler interface {
	SetOnline(online bool)
	Reconcile(ctx context.Context)
}

type Monitor struct {
	prober       Prober
	target       Reconciler
	log          logging.Logger
	interval     time.Duration
	quiet        time.Duration
	probeTimeout time.Duration

	mu     sync.Mutex
	online bool
	known  bool
	timer  *time.Timer
	gen    int
	runCtx context.Context
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithQuietPeriod sets how long the link must stay up before reconciling.
func WithQuietPeriod(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.quiet = d
		}
	}
}

func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.probeTimeout = d
		}
	}
}

func NewMonitor(prober Prober, target Reconciler, log logging.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		prober:       prober,
		target:       target,
		log:          log.With("module", "connectivity"),
		interval:     DefaultInterval,
		quiet:        DefaultQuietPeriod,
		probeTimeout: DefaultProbeTimeout,
		runCtx:       context.Background(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Online reports the last observed state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Run probes right away and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.mu.Lock()
	m.runCtx = ctx
	m.mu.Unlock()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer m.stopTimer()

	m.probe(ctx)
	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	err := m.prober.Probe(pctx)
	cancel()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.log.Debug(ctx, "probe failed", "error", err)
	}
	m.Set(err == nil)
}

// Set records a connectivity signal, from the prober or from the host.
// Repeating the current state does nothing.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.known && m.online == online {
		return
	}
	m.known = true
	m.online = online
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	m.target.SetOnline(online)
	if !online {
		m.log.Info(m.runCtx, "switched to offline mode")
		return
	}

	m.log.Info(m.runCtx, "switched to online mode")
	gen, ctx := m.gen, m.runCtx
	m.timer = time.AfterFunc(m.quiet, func() { m.fire(ctx, gen) })
}

// fire runs the debounced reconciliation unless another transition
// happened after it was armed.
func (m *Monitor) fire(ctx context.Context, gen int) {
	m.mu.Lock()
	if gen != m.gen || !m.online || ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.mu.Unlock()

	m.target.Reconcile(ctx)
}

func (m *Monitor) stopTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
