// Package identify orchestrates outbound crop pest and disease
// identification requests: content-hash deduplication against an expiring
// cache, image optimization, shared rate-limit cooldowns, classified
// failure handling, and chunked batch dispatch.
package identify

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360/cropvision/errors"
	"github.com/c360/cropvision/imaging"
	"github.com/c360/cropvision/metric"
	"github.com/c360/cropvision/pkg/blob"
	"github.com/c360/cropvision/pkg/cache"
)

// Service coordinates one identification pipeline: cache, transcoder,
// limiter, and transport. Safe for concurrent use.
type Service struct {
	cfg        Config
	cache      cache.Cache[*Report]
	transcoder *imaging.Transcoder
	transport  Transport
	limiter    *Limiter
	logger     *slog.Logger
	metrics    *metric.Metrics
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the structured logger. Defaults to slog.Default().
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithServiceMetrics enables pipeline metrics recording.
func WithServiceMetrics(metrics *metric.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithTransport replaces the default HTTP transport.
func WithTransport(transport Transport) ServiceOption {
	return func(s *Service) {
		if transport != nil {
			s.transport = transport
		}
	}
}

// WithCache replaces the default report cache.
func WithCache(c cache.Cache[*Report]) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithTranscoder replaces the default transcoder.
func WithTranscoder(t *imaging.Transcoder) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.transcoder = t
		}
	}
}

// WithLimiter replaces the default rate limiter, letting several services
// share one cooldown window.
func WithLimiter(l *Limiter) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.limiter = l
		}
	}
}

// NewService creates a service from cfg. The context bounds the cache's
// background sweep.
func NewService(ctx context.Context, cfg Config, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:     cfg,
		logger:  slog.Default(),
		limiter: NewLimiter(cfg.RequestsPerMinute, cfg.DefaultCooldown),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cache == nil {
		reportCache, err := cache.New[*Report](ctx, cfg.Cache)
		if err != nil {
			return nil, err
		}
		s.cache = reportCache
	}
	if s.transcoder == nil {
		s.transcoder = imaging.NewTranscoder(nil, imaging.WithLogger(s.logger))
	}
	if s.transport == nil {
		s.transport = NewHTTPTransport(cfg.Endpoint, cfg.ClientVersion, s.logger)
	}

	return s, nil
}

// Identify runs one identification call end to end. The cache is keyed on
// the original image bytes plus the crop-type label, so a repeated photo
// never touches the transcoder or the network. Failures come back
// classified; the service never retries on its own, but a rate-limited
// response extends the shared cooldown consulted by the next call.
func (s *Service) Identify(ctx context.Context, req *Request) (*Report, error) {
	start := time.Now()

	if req == nil || len(req.Image) == 0 {
		return nil, errors.WrapValidation(errors.ErrInvalidData, "Service", "Identify",
			"request carries no image data")
	}

	key := blob.CacheKey(req.Image, req.CropType)
	if report, ok := s.cache.Get(key); ok {
		s.logger.Debug("identification served from cache", "crop_type", req.CropType)
		s.recordOutcome("cache_hit", start)
		return report, nil
	}

	optimized, err := s.transcoder.Optimize(ctx, req.Image, imaging.Options{})
	if err != nil {
		s.recordFailure(err, start)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	if err := s.limiter.Wait(ctx); err != nil {
		s.recordFailure(err, start)
		return nil, err
	}

	outbound := &Request{
		Image:    optimized.Blob,
		CropType: req.CropType,
		Location: req.Location,
		Notes:    req.Notes,
	}
	report, err := s.transport.Identify(ctx, outbound)
	if err != nil {
		if errors.IsRateLimited(err) {
			retryAfter, _ := errors.RetryAfter(err)
			s.limiter.Extend(retryAfter)
			if s.metrics != nil {
				s.metrics.RecordCooldownWait()
			}
		}
		s.recordFailure(err, start)
		return nil, err
	}

	report.fillDefaults()

	// Degraded results stay uncached so the next identical request gets a
	// fresh chance at the full diagnostic path.
	if !report.FallbackMode {
		if err := s.cache.Set(key, report, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache identification report", "error", err)
		}
	}

	s.logger.Info("identification completed",
		"crop_type", req.CropType,
		"matches", len(report.Matches),
		"confidence", report.ConfidenceLevel,
		"fallback_mode", report.FallbackMode,
		"duration", time.Since(start))
	s.recordOutcome("success", start)

	return report, nil
}

// Close releases the service's cache resources.
func (s *Service) Close() error {
	return s.cache.Close()
}

func (s *Service) recordOutcome(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRequest(outcome, time.Since(start))
}

func (s *Service) recordFailure(err error, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordError(errors.CategoryOf(err).String())
	s.metrics.RecordRequest("failure", time.Since(start))
}
