// Package netstatus tracks whether the backend is reachable.
package netstatus

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kiranshivaraju/jobtracker/internal/remote"
)

// DefaultInterval is the probe interval used when none is configured.
const DefaultInterval = 15 * time.Second

// ProbeFunc reports a nil error when the backend answered healthy. A
// *remote.RemoteError means it answered with a non-2xx status, which still
// counts as reachable.
type ProbeFunc func(ctx context.Context) error

// Monitor holds the connectivity flag read by the sync engine. The flag starts
// online; Run keeps it current by probing on a fixed interval.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	timeout  time.Duration
	online   atomic.Bool
}

// NewMonitor creates a Monitor. A non-positive interval selects DefaultInterval.
func NewMonitor(probe ProbeFunc, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	m := &Monitor{probe: probe, interval: interval, timeout: interval / 2}
	m.online.Store(true)
	return m
}

// Online reports the last observed connectivity.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// SetOnline overrides the flag, for example from an OS network notification.
func (m *Monitor) SetOnline(online bool) {
	if prev := m.online.Swap(online); prev != online {
		slog.Info("connectivity changed", "online", online)
	}
}

// Check probes once and updates the flag.
func (m *Monitor) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.probe(ctx)
	online := reachable(err)
	if err != nil {
		slog.Debug("health probe failed", "error", err, "reachable", online)
	}
	m.SetOnline(online)
	return online
}

// reachable treats any HTTP answer as online; a degraded backend still serves
// the API.
func reachable(err error) bool {
	if err == nil {
		return true
	}
	var re *remote.RemoteError
	return errors.As(err, &re)
}

// Run probes immediately and then every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
