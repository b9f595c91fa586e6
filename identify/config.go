package identify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/cropvision/errors"
	"github.com/c360/cropvision/pkg/cache"
)

// Config contains configuration for the identification service.
type Config struct {
	// Endpoint is the base URL of the remote diagnostic service.
	Endpoint string `json:"endpoint"`

	// ClientVersion is attached to every outbound request.
	ClientVersion string `json:"client_version"`

	// RequestTimeout bounds one outbound identification call end to end.
	RequestTimeout time.Duration `json:"request_timeout"`

	// CacheTTL is how long a successful report stays reusable.
	CacheTTL time.Duration `json:"cache_ttl"`

	// DefaultCooldown applies after a rate-limited response that names no
	// retry interval.
	DefaultCooldown time.Duration `json:"default_cooldown"`

	// RequestsPerMinute caps steady-state outbound rate; 0 disables pacing.
	RequestsPerMinute float64 `json:"requests_per_minute"`

	// BatchChunkSize is the concurrency ceiling per batch chunk.
	BatchChunkSize int `json:"batch_chunk_size"`

	// Cache configures the report cache.
	Cache cache.Config `json:"cache"`
}

// DefaultConfig returns a default service configuration.
func DefaultConfig() Config {
	return Config{
		ClientVersion:   "1.0.0",
		RequestTimeout:  30 * time.Second,
		CacheTTL:        24 * time.Hour,
		DefaultCooldown: DefaultCooldown,
		BatchChunkSize:  3,
		Cache:           cache.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return errors.WrapValidation(errors.ErrInvalidConfig, "identify", "Validate",
			"endpoint must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.WrapValidation(errors.ErrInvalidConfig, "identify", "Validate",
			fmt.Sprintf("request_timeout must be positive, got %v", c.RequestTimeout))
	}
	if c.CacheTTL <= 0 {
		return errors.WrapValidation(errors.ErrInvalidConfig, "identify", "Validate",
			fmt.Sprintf("cache_ttl must be positive, got %v", c.CacheTTL))
	}
	if c.BatchChunkSize <= 0 {
		return errors.WrapValidation(errors.ErrInvalidConfig, "identify", "Validate",
			fmt.Sprintf("batch_chunk_size must be positive, got %d", c.BatchChunkSize))
	}
	if c.RequestsPerMinute < 0 {
		return errors.WrapValidation(errors.ErrInvalidConfig, "identify", "Validate",
			fmt.Sprintf("requests_per_minute must not be negative, got %v", c.RequestsPerMinute))
	}
	return c.Cache.Validate()
}

// UnmarshalJSON supports duration strings (e.g., "30s", "24h") for the
// duration fields in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config

	aux := &struct {
		RequestTimeout  json.RawMessage `json:"request_timeout,omitempty"`
		CacheTTL        json.RawMessage `json:"cache_ttl,omitempty"`
		DefaultCooldown json.RawMessage `json:"default_cooldown,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	fields := []struct {
		raw  json.RawMessage
		name string
		dst  *time.Duration
	}{
		{aux.RequestTimeout, "request_timeout", &c.RequestTimeout},
		{aux.CacheTTL, "cache_ttl", &c.CacheTTL},
		{aux.DefaultCooldown, "default_cooldown", &c.DefaultCooldown},
	}
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		d, err := parseDurationField(f.raw, f.name)
		if err != nil {
			return err
		}
		*f.dst = d
	}

	return nil
}

func parseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := time.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", fieldName, err)
		}
		return duration, nil
	}

	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '30s') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
