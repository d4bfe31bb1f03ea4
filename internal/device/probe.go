package device

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Pinger is anything whose reachability defines "online", usually the store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// ProbeConfig tunes the connectivity probe.
type ProbeConfig struct {
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold int
}

// ConnectivityProbe pings the backend and drives the hub's online flag. It goes offline
// after FailureThreshold consecutive failures and back online on the first success, so
// a single dropped ping does not flash the offline banner.
type ConnectivityProbe struct {
	target Pinger
	hub    *Hub
	cfg    ProbeConfig
	logger *slog.Logger
	group  singleflight.Group

	mu       sync.Mutex
	failures int
}

// NewConnectivityProbe builds a probe.
func NewConnectivityProbe(target Pinger, hub *Hub, cfg ProbeConfig, logger *slog.Logger) *ConnectivityProbe {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectivityProbe{target: target, hub: hub, cfg: cfg, logger: logger}
}

// Run probes on every tick until ctx is done.
func (p *ConnectivityProbe) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check runs one probe and returns the resulting online state. Concurrent callers share
// a single ping. Caller cancellation does not reach the ping; only the probe timeout
// bounds it.
func (p *ConnectivityProbe) Check(ctx context.Context) bool {
	v, _, _ := p.group.Do("ping", func() (any, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.Timeout)
		defer cancel()
		return p.record(p.target.Ping(pctx)), nil
	})
	return v.(bool)
}

func (p *ConnectivityProbe) record(err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		if p.failures >= p.cfg.FailureThreshold {
			p.logger.Info("backend reachable again")
		}
		p.failures = 0
		p.hub.SetOnline(true)
		return true
	}
	p.failures++
	p.logger.Warn("backend ping failed", slog.Int("consecutive", p.failures), slog.Any("error", err))
	if p.failures >= p.cfg.FailureThreshold {
		p.hub.SetOnline(false)
		return false
	}
	return p.hub.Online()
}
