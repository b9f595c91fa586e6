package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/cropvision/errors"
)

// Config contains configuration for cache creation.
type Config struct {
	// Enabled determines if caching is enabled.
	Enabled bool `json:"enabled"`

	// Capacity is the maximum number of entries before LRU eviction.
	Capacity int `json:"capacity"`

	// CleanupInterval is how often the background sweep removes expired
	// entries.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// PressureThreshold is the occupancy fraction (of Capacity) above which
	// the sweep additionally sheds cold entries.
	PressureThreshold float64 `json:"pressure_threshold"`

	// PressureEvictFraction is the fraction of entries, oldest last-access
	// first, shed by a sweep that finds the cache above PressureThreshold.
	PressureEvictFraction float64 `json:"pressure_evict_fraction"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		Capacity:              1000,
		CleanupInterval:       5 * time.Minute,
		PressureThreshold:     0.8,
		PressureEvictFraction: 0.2,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil // No validation needed if disabled
	}

	if c.Capacity <= 0 {
		return errors.WrapValidation(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("capacity must be positive, got %d", c.Capacity))
	}
	if c.CleanupInterval <= 0 {
		return errors.WrapValidation(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("cleanup_interval must be positive, got %v", c.CleanupInterval))
	}
	if c.PressureThreshold <= 0 || c.PressureThreshold > 1 {
		return errors.WrapValidation(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("pressure_threshold must be in (0,1], got %v", c.PressureThreshold))
	}
	if c.PressureEvictFraction <= 0 || c.PressureEvictFraction >= 1 {
		return errors.WrapValidation(errors.ErrInvalidConfig, "cache", "Validate",
			fmt.Sprintf("pressure_evict_fraction must be in (0,1), got %v", c.PressureEvictFraction))
	}

	return nil
}

// UnmarshalJSON implements custom JSON unmarshaling for Config to support
// duration strings (e.g., "5m", "30s") in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	// Use an alias to avoid infinite recursion
	type Alias Config

	aux := &struct {
		CleanupInterval json.RawMessage `json:"cleanup_interval,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.CleanupInterval) > 0 {
		interval, err := parseDurationField(aux.CleanupInterval, "cleanup_interval")
		if err != nil {
			return err
		}
		c.CleanupInterval = interval
	}

	return nil
}

// parseDurationField parses a JSON duration field that can be either:
// - An integer (nanoseconds) for backward compatibility
// - A string (duration like "1h", "5m", "30s")
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
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '5m') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
