package metrics

import (
	"sync/atomic"
	"time"
)

// Collector keeps coarse in-process request counters for the admin snapshot
// endpoint. Counts only, no per-route breakdown.
type Collector struct {
	requests     atomic.Uint64
	serverErrors atomic.Uint64
	throttled    atomic.Uint64
	durationMs   atomic.Uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	c.requests.Add(1)
	switch {
	case status >= 500:
		c.serverErrors.Add(1)
	case status == 429:
		c.throttled.Add(1)
	}
	c.durationMs.Add(uint64(duration.Milliseconds()))
}

func (c *Collector) Snapshot() map[string]any {
	requests := c.requests.Load()
	totalMs := c.durationMs.Load()

	avgMs := float64(0)
	if requests > 0 {
		avgMs = float64(totalMs) / float64(requests)
	}
	return map[string]any{
		"requestsTotal":    requests,
		"errorsTotal":      c.serverErrors.Load(),
		"rateLimitedTotal": c.throttled.Load(),
		"avgDurationMs":    avgMs,
		"totalDurationMs":  totalMs,
	}
}
