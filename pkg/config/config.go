package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface of the sync layer. It is
// loaded and validated once at startup and treated as immutable after
// that; components receive the sub-structs they need at construction.
type Config struct {
	// Enabled controls whether DNS sync runs at all. When false every
	// lifecycle event is routed to the mock backend.
	Enabled bool `yaml:"enabled"`

	// Zone is the managed zone, fully qualified with trailing dot
	// (e.g. "managed.example.com.")
	Zone string `yaml:"zone"`

	// Nameservers for zone bootstrap, fully qualified
	Nameservers []string `yaml:"nameservers"`

	// DefaultTTL applied to records created by the sync layer
	DefaultTTL int `yaml:"default_ttl"`

	// RolloutPercentage gates the real backend per hostname, 0-100
	RolloutPercentage int `yaml:"rollout_percentage"`

	// FallbackToMock permits degradation to the mock backend when the
	// real backend is unhealthy
	FallbackToMock bool `yaml:"fallback_to_mock"`

	API        APIConfig        `yaml:"api"`
	Retry      RetryConfig      `yaml:"retry"`
	Pool       PoolConfig       `yaml:"pool"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Audit      AuditConfig      `yaml:"audit"`
	Log        LogConfig        `yaml:"log"`
	Listen     ListenConfig     `yaml:"listen"`
}

// APIConfig describes the DNS control-plane endpoint
type APIConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`

	// CallTimeout bounds a single HTTP request
	CallTimeout time.Duration `yaml:"call_timeout"`

	// OperationDeadline bounds one operation including all retries
	OperationDeadline time.Duration `yaml:"operation_deadline"`
}

// RetryConfig controls the backoff policy for transient failures
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// PoolConfig bounds connections to the control-plane API
type PoolConfig struct {
	MinSize        int           `yaml:"min_size"`
	MaxSize        int           `yaml:"max_size"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RecycleAge     time.Duration `yaml:"recycle_age"`
}

// BreakerConfig controls the circuit breaker for the real backend
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Cooldown         time.Duration `yaml:"cooldown"`
}

// ReconcilerConfig controls the periodic drift-correction pass
type ReconcilerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// AuditConfig controls the operation/decision retention store
type AuditConfig struct {
	DataDir   string        `yaml:"data_dir"`
	Retention time.Duration `yaml:"retention"` // How long committed ops are kept
}

// LogConfig controls logging output
type LogConfig struct {
	Level      string `yaml:"level"`
	JSONOutput bool   `yaml:"json_output"`
}

// ListenConfig controls the local observability HTTP listener
type ListenConfig struct {
	Addr string `yaml:"addr"` // Serves /metrics and /healthz
}

// Default returns a Config with sensible defaults. Loading a file
// overlays onto these values.
func Default() *Config {
	return &Config{
		Enabled:           true,
		DefaultTTL:        300,
		RolloutPercentage: 0,
		FallbackToMock:    true,
		API: APIConfig{
			URL:               "http://127.0.0.1:8081",
			CallTimeout:       5 * time.Second,
			OperationDeadline: 30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
		},
		Pool: PoolConfig{
			MinSize:        1,
			MaxSize:        10,
			AcquireTimeout: 5 * time.Second,
			IdleTimeout:    5 * time.Minute,
			RecycleAge:     30 * time.Minute,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			Cooldown:         60 * time.Second,
		},
		Reconciler: ReconcilerConfig{
			Enabled:  true,
			Interval: 5 * time.Minute,
		},
		Audit: AuditConfig{
			DataDir:   "/var/lib/dnssync",
			Retention: time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			JSONOutput: true,
		},
		Listen: ListenConfig{
			Addr: "127.0.0.1:9153",
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks invariants across the whole configuration. It is run
// once at startup so invalid combinations fail fast instead of at first
// use.
func (c *Config) Validate() error {
	if c.Zone == "" {
		return fmt.Errorf("zone is required")
	}
	if !strings.HasSuffix(c.Zone, ".") {
		return fmt.Errorf("zone %q must be fully qualified (trailing dot)", c.Zone)
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("default_ttl must be positive, got %d", c.DefaultTTL)
	}
	if c.RolloutPercentage < 0 || c.RolloutPercentage > 100 {
		return fmt.Errorf("rollout_percentage must be in 0..100, got %d", c.RolloutPercentage)
	}
	if c.Enabled && c.RolloutPercentage > 0 {
		if c.API.URL == "" {
			return fmt.Errorf("api.url is required when sync is enabled")
		}
		if c.API.APIKey == "" {
			return fmt.Errorf("api.api_key is required when sync is enabled")
		}
	}
	if c.API.CallTimeout <= 0 {
		return fmt.Errorf("api.call_timeout must be positive")
	}
	if c.API.OperationDeadline < c.API.CallTimeout {
		return fmt.Errorf("api.operation_deadline (%v) must be >= api.call_timeout (%v)",
			c.API.OperationDeadline, c.API.CallTimeout)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialDelay <= 0 || c.Retry.MaxDelay < c.Retry.InitialDelay {
		return fmt.Errorf("retry delays invalid: initial=%v max=%v",
			c.Retry.InitialDelay, c.Retry.MaxDelay)
	}
	if c.Pool.MinSize < 0 || c.Pool.MaxSize < 1 || c.Pool.MinSize > c.Pool.MaxSize {
		return fmt.Errorf("pool sizes invalid: min=%d max=%d", c.Pool.MinSize, c.Pool.MaxSize)
	}
	if c.Pool.AcquireTimeout <= 0 {
		return fmt.Errorf("pool.acquire_timeout must be positive")
	}
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("breaker.failure_threshold must be at least 1, got %d",
			c.Breaker.FailureThreshold)
	}
	if c.Breaker.Cooldown <= 0 {
		return fmt.Errorf("breaker.cooldown must be positive")
	}
	if c.Reconciler.Enabled && c.Reconciler.Interval <= 0 {
		return fmt.Errorf("reconciler.interval must be positive when reconciler is enabled")
	}
	for _, ns := range c.Nameservers {
		if !strings.HasSuffix(ns, ".") {
			return fmt.Errorf("nameserver %q must be fully qualified (trailing dot)", ns)
		}
	}
	return nil
}
