package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegrjumin/urlrisk/internal/service"
	"github.com/olegrjumin/urlrisk/internal/virustotal"
)

var allKeys = []string{
	"PORT", "PING_MESSAGE", "LOG_LEVEL", "LOG_JSON", "ADAPTER_TIMEOUT",
	"WEIGHT_VIRUSTOTAL", "WEIGHT_SAFE_BROWSING", "WEIGHT_HEURISTIC", "WEIGHT_URLVOID",
	"VIRUSTOTAL_API_KEY", "VIRUSTOTAL_BASE_URL",
	"URLVOID_API_KEY", "URLVOID_BASE_URL",
	"GOOGLE_SAFE_BROWSING_API_KEY", "SAFE_BROWSING_BASE_URL",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

// clearEnv unsets every variable Load reads and restores them after the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 8*time.Second, cfg.AdapterTimeout)
	assert.Equal(t, service.DefaultWeights, cfg.Weights)
	assert.Equal(t, 10.0, cfg.RateLimitRPS)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.False(t, cfg.LogJSON)
	assert.Empty(t, cfg.VirusTotal.APIKey)
	assert.Equal(t, 8*time.Second, cfg.VirusTotal.Timeout)
	assert.Equal(t, virustotal.DefaultBaseURL, cfg.VirusTotal.BaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "URL risk API is running", cfg.PingMessage)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ADAPTER_TIMEOUT", "250")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("VIRUSTOTAL_API_KEY", "vt")
	t.Setenv("URLVOID_BASE_URL", "http://127.0.0.1:9999")
	t.Setenv("WEIGHT_VIRUSTOTAL", "0.4")
	t.Setenv("WEIGHT_SAFE_BROWSING", "0.4")
	t.Setenv("WEIGHT_HEURISTIC", "0.2")
	t.Setenv("WEIGHT_URLVOID", "0")
	t.Setenv("RATE_LIMIT_RPS", "0")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.AdapterTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.SafeBrowsing.Timeout)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, "vt", cfg.VirusTotal.APIKey)
	assert.Equal(t, "http://127.0.0.1:9999", cfg.URLVoid.BaseURL)
	assert.Equal(t, service.Weights{VirusTotal: 0.4, SafeBrowsing: 0.4, Heuristic: 0.2}, cfg.Weights)
	assert.Zero(t, cfg.RateLimitRPS)
	require.NoError(t, cfg.Validate())
}

func TestLoadIgnoresUnparseableNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("ADAPTER_TIMEOUT", "5s")
	t.Setenv("WEIGHT_HEURISTIC", "lots")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 8*time.Second, cfg.AdapterTimeout)
	assert.Equal(t, service.DefaultWeights.Heuristic, cfg.Weights.Heuristic)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:           8080,
			AdapterTimeout: time.Second,
			Weights:        service.DefaultWeights,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		}
	}
	require.NoError(t, valid().Validate())

	t.Run("weights do not sum to one", func(t *testing.T) {
		cfg := valid()
		cfg.Weights.VirusTotal = 0.9
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidWeights)
	})

	t.Run("negative weight", func(t *testing.T) {
		cfg := valid()
		cfg.Weights.URLVoid = -0.05
		cfg.Weights.VirusTotal = 0.6
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidWeights)
	})

	tests := map[string]func(*Config){
		"port":    func(c *Config) { c.Port = 0 },
		"timeout": func(c *Config) { c.AdapterTimeout = 0 },
		"rps":     func(c *Config) { c.RateLimitRPS = -1 },
		"burst":   func(c *Config) { c.RateLimitBurst = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}
