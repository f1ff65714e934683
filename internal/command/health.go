package command

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultHealthInterval is the health probe cadence.
const DefaultHealthInterval = 2000 * time.Millisecond

// Monitor polls the control plane's health endpoint on a fixed interval.
// It runs on its own goroutine so a slow probe never blocks frame
// processing, and vice versa.
type Monitor struct {
	d        *Dispatcher
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	last    Health
	lastErr error
	probed  bool
}

// NewMonitor creates a Monitor polling via d. An interval <= 0 falls back
// to DefaultHealthInterval.
func NewMonitor(d *Dispatcher, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{d: d, interval: interval, log: log}
}

// Run probes until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()

	h, err := m.d.FetchHealth(probeCtx)
	m.mu.Lock()
	m.probed = true
	m.last = h
	m.lastErr = err
	m.mu.Unlock()
	if err != nil {
		m.log.Debug("health probe failed", "error", err)
	}
}

// Last returns the most recent probe result. ok is false until the first
// probe has completed.
func (m *Monitor) Last() (h Health, err error, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.lastErr, m.probed
}
