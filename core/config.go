package core

import (
	"fmt"
	"strings"
	"time"
)

type RefreshConfig struct {
	SafetyMargin time.Duration `koanf:"safety_margin" mapstructure:"safety_margin"`
	MaxAttempts  int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	LockTTL      time.Duration `koanf:"lock_ttl" mapstructure:"lock_ttl"`
}

type SyncConfig struct {
	DefaultFrequency time.Duration `koanf:"default_frequency" mapstructure:"default_frequency"`
	JobTimeout       time.Duration `koanf:"job_timeout" mapstructure:"job_timeout"`
	RequestTimeout   time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	MaxFetchAttempts int           `koanf:"max_fetch_attempts" mapstructure:"max_fetch_attempts"`
}

// NormalizationConfig carries the heuristic scoring policy. Threshold values
// are policy, not contract; hosts tune them per deployment.
type NormalizationConfig struct {
	MaxAutoConfidence  float64 `koanf:"max_auto_confidence" mapstructure:"max_auto_confidence"`
	FallbackConfidence float64 `koanf:"fallback_confidence" mapstructure:"fallback_confidence"`
	ReviewThreshold    float64 `koanf:"review_threshold" mapstructure:"review_threshold"`
}

type Config struct {
	ServiceName   string              `koanf:"service_name" mapstructure:"service_name"`
	Refresh       RefreshConfig       `koanf:"refresh" mapstructure:"refresh"`
	Sync          SyncConfig          `koanf:"sync" mapstructure:"sync"`
	Normalization NormalizationConfig `koanf:"normalization" mapstructure:"normalization"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "ledgersync",
		Refresh: RefreshConfig{
			SafetyMargin: 5 * time.Minute,
			MaxAttempts:  3,
			LockTTL:      30 * time.Second,
		},
		Sync: SyncConfig{
			DefaultFrequency: 24 * time.Hour,
			JobTimeout:       5 * time.Minute,
			RequestTimeout:   30 * time.Second,
			MaxFetchAttempts: 4,
		},
		Normalization: NormalizationConfig{
			MaxAutoConfidence:  0.95,
			FallbackConfidence: 0.35,
			ReviewThreshold:    0.8,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Refresh.SafetyMargin < 0 {
		return fmt.Errorf("core: refresh.safety_margin must not be negative")
	}
	if c.Normalization.MaxAutoConfidence <= 0 || c.Normalization.MaxAutoConfidence >= 1 {
		return fmt.Errorf("core: normalization.max_auto_confidence must be in (0, 1)")
	}
	if c.Normalization.FallbackConfidence < 0 || c.Normalization.FallbackConfidence > c.Normalization.MaxAutoConfidence {
		return fmt.Errorf("core: normalization.fallback_confidence must be in [0, max_auto_confidence]")
	}
	if c.Normalization.ReviewThreshold < 0 || c.Normalization.ReviewThreshold > 1 {
		return fmt.Errorf("core: normalization.review_threshold must be in [0, 1]")
	}
	return nil
}
