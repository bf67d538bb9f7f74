package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Zone = "managed.example.com."
	cfg.API.APIKey = "secret"
	return cfg
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestDefaultsAreConservative tests that the zero-config posture is
// mock-only with fallback permitted
func TestDefaultsAreConservative(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 0, cfg.RolloutPercentage, "rollout starts at zero")
	assert.True(t, cfg.FallbackToMock)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.Cooldown)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

// TestLoadOverlaysDefaults tests that file values overlay defaults
// without clobbering unset ones
func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
zone: managed.example.com.
rollout_percentage: 25
api:
  url: http://pdns.internal:8081
  api_key: secret
breaker:
  failure_threshold: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "managed.example.com.", cfg.Zone)
	assert.Equal(t, 25, cfg.RolloutPercentage)
	assert.Equal(t, "http://pdns.internal:8081", cfg.API.URL)
	assert.Equal(t, 3, cfg.Breaker.FailureThreshold)

	// Untouched values keep their defaults
	assert.Equal(t, 60*time.Second, cfg.Breaker.Cooldown)
	assert.Equal(t, 300, cfg.DefaultTTL)
	assert.Equal(t, 10, cfg.Pool.MaxSize)
}

// TestLoadMissingFile tests the error path for an absent file
func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

// TestLoadInvalidYAML tests the error path for malformed YAML
func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "zone: [unclosed")
	_, err := Load(path)
	require.Error(t, err)
}

// TestValidate tests the startup invariants
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing zone",
			mutate:  func(c *Config) { c.Zone = "" },
			wantErr: "zone is required",
		},
		{
			name:    "zone without trailing dot",
			mutate:  func(c *Config) { c.Zone = "managed.example.com" },
			wantErr: "fully qualified",
		},
		{
			name:    "zero ttl",
			mutate:  func(c *Config) { c.DefaultTTL = 0 },
			wantErr: "default_ttl",
		},
		{
			name:    "percentage above 100",
			mutate:  func(c *Config) { c.RolloutPercentage = 101 },
			wantErr: "rollout_percentage",
		},
		{
			name:    "negative percentage",
			mutate:  func(c *Config) { c.RolloutPercentage = -1 },
			wantErr: "rollout_percentage",
		},
		{
			name: "missing api key with live rollout",
			mutate: func(c *Config) {
				c.RolloutPercentage = 10
				c.API.APIKey = ""
			},
			wantErr: "api.api_key",
		},
		{
			name: "missing api key tolerated at zero rollout",
			mutate: func(c *Config) {
				c.RolloutPercentage = 0
				c.API.APIKey = ""
			},
		},
		{
			name: "deadline below call timeout",
			mutate: func(c *Config) {
				c.API.CallTimeout = 10 * time.Second
				c.API.OperationDeadline = 5 * time.Second
			},
			wantErr: "operation_deadline",
		},
		{
			name:    "zero retry attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "retry.max_attempts",
		},
		{
			name: "max delay below initial delay",
			mutate: func(c *Config) {
				c.Retry.InitialDelay = time.Second
				c.Retry.MaxDelay = 100 * time.Millisecond
			},
			wantErr: "retry delays",
		},
		{
			name: "pool min above max",
			mutate: func(c *Config) {
				c.Pool.MinSize = 20
				c.Pool.MaxSize = 10
			},
			wantErr: "pool sizes",
		},
		{
			name:    "zero breaker threshold",
			mutate:  func(c *Config) { c.Breaker.FailureThreshold = 0 },
			wantErr: "failure_threshold",
		},
		{
			name: "reconciler enabled without interval",
			mutate: func(c *Config) {
				c.Reconciler.Enabled = true
				c.Reconciler.Interval = 0
			},
			wantErr: "reconciler.interval",
		},
		{
			name: "reconciler disabled ignores interval",
			mutate: func(c *Config) {
				c.Reconciler.Enabled = false
				c.Reconciler.Interval = 0
			},
		},
		{
			name:    "nameserver without trailing dot",
			mutate:  func(c *Config) { c.Nameservers = []string{"ns1.example.com"} },
			wantErr: "nameserver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
