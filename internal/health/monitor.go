package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ncecere/open_embedding_server/internal/config"
)

// CheckFunc probes a dependency and returns nil when it is reachable.
type CheckFunc func(ctx context.Context) error

// Result is the outcome of the latest probe.
type Result struct {
	Checked   bool
	Healthy   bool
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// Monitor periodically runs a backend probe and keeps the latest result.
type Monitor struct {
	check     CheckFunc
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger
	startOnce sync.Once

	mu   sync.RWMutex
	last Result
}

// NewMonitor constructs a monitor using the health configuration.
func NewMonitor(check CheckFunc, cfg config.HealthConfig, logger *slog.Logger) *Monitor {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > interval {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		check:    check,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start begins the monitoring loop until ctx is canceled.
func (m *Monitor) Start(ctx context.Context) {
	if m == nil || m.check == nil {
		return
	}
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckNow(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow runs the probe once under the configured timeout and records the result.
func (m *Monitor) CheckNow(ctx context.Context) Result {
	timeoutCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := m.check(timeoutCtx)
	res := Result{
		Checked:   true,
		Healthy:   err == nil,
		Latency:   time.Since(start),
		CheckedAt: start.UTC(),
	}
	if err != nil {
		res.Error = err.Error()
	}

	m.mu.Lock()
	prev := m.last
	m.last = res
	m.mu.Unlock()

	switch {
	case err != nil && (!prev.Checked || prev.Healthy):
		m.logger.Warn("backend health check failed", "error", err, "latency_ms", res.Latency.Milliseconds())
	case err == nil && prev.Checked && !prev.Healthy:
		m.logger.Info("backend health recovered", "latency_ms", res.Latency.Milliseconds())
	}
	return res
}

// Last returns the most recent result. Before the first probe Checked is false.
func (m *Monitor) Last() Result {
	if m == nil {
		return Result{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}
