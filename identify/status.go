package identify

import (
	"context"
	"time"

	"github.com/c360/cropvision/pkg/cache"
)

// ServiceStatus is a point-in-time health view of the pipeline.
type ServiceStatus struct {
	Available     bool              `json:"available"`
	LatencyMillis int64             `json:"latency_ms"`
	Cache         cache.Summary     `json:"cache"`
	RateLimit     RateLimitSnapshot `json:"rate_limit"`
	CheckedAt     time.Time         `json:"checked_at"`
}

const statusProbeTimeout = 5 * time.Second

// Status probes the remote service and reports pipeline health. It never
// returns an error; an unreachable service simply shows as unavailable.
func (s *Service) Status(ctx context.Context) *ServiceStatus {
	ctx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
	defer cancel()

	start := time.Now()
	err := s.transport.Ping(ctx)
	latency := time.Since(start)

	available := err == nil
	if !available {
		s.logger.Warn("service health probe failed", "error", err)
	}

	if s.metrics != nil {
		s.metrics.RecordServiceAvailable(available)
		s.metrics.RecordServiceRTT(latency)
		s.metrics.RecordCooldownRemaining(s.limiter.Snapshot().CooldownRemaining)
	}

	return &ServiceStatus{
		Available:     available,
		LatencyMillis: latency.Milliseconds(),
		Cache:         s.cache.Stats().Summary(),
		RateLimit:     s.limiter.Snapshot(),
		CheckedAt:     start,
	}
}
