package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/olegrjumin/urlrisk/internal/safebrowsing"
	"github.com/olegrjumin/urlrisk/internal/service"
	"github.com/olegrjumin/urlrisk/internal/urlvoid"
	"github.com/olegrjumin/urlrisk/internal/virustotal"
)

// ErrInvalidWeights is returned by Validate for a bad weight vector
var ErrInvalidWeights = service.ErrInvalidWeights

// ErrInvalid is returned by Validate for any other out-of-range setting
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port        int    // HTTP server port
	PingMessage string // Text returned by /api/ping

	// Logging
	LogLevel string
	LogJSON  bool

	// Scanning
	AdapterTimeout time.Duration   // Per-source lookup timeout
	Weights        service.Weights // Contribution of each source

	// Reputation sources; an empty key disables the source
	VirusTotal   virustotal.Config
	URLVoid      urlvoid.Config
	SafeBrowsing safebrowsing.Config

	// Rate limiting at the HTTP boundary; RPS 0 disables it
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables
// and returns a Config struct with defaults applied
func Load() *Config {
	timeout := getEnvAsDuration("ADAPTER_TIMEOUT", 8000*time.Millisecond)

	return &Config{
		Port:           getEnvAsInt("PORT", 8080),
		PingMessage:    getEnv("PING_MESSAGE", "URL risk API is running"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogJSON:        getEnvAsBool("LOG_JSON", false),
		AdapterTimeout: timeout,
		Weights: service.Weights{
			VirusTotal:   getEnvAsFloat("WEIGHT_VIRUSTOTAL", service.DefaultWeights.VirusTotal),
			SafeBrowsing: getEnvAsFloat("WEIGHT_SAFE_BROWSING", service.DefaultWeights.SafeBrowsing),
			Heuristic:    getEnvAsFloat("WEIGHT_HEURISTIC", service.DefaultWeights.Heuristic),
			URLVoid:      getEnvAsFloat("WEIGHT_URLVOID", service.DefaultWeights.URLVoid),
		},
		VirusTotal: virustotal.Config{
			APIKey:  getEnv("VIRUSTOTAL_API_KEY", ""),
			BaseURL: getEnv("VIRUSTOTAL_BASE_URL", virustotal.DefaultBaseURL),
			Timeout: timeout,
		},
		URLVoid: urlvoid.Config{
			APIKey:  getEnv("URLVOID_API_KEY", ""),
			BaseURL: getEnv("URLVOID_BASE_URL", urlvoid.DefaultBaseURL),
			Timeout: timeout,
		},
		SafeBrowsing: safebrowsing.Config{
			APIKey:  getEnv("GOOGLE_SAFE_BROWSING_API_KEY", ""),
			BaseURL: getEnv("SAFE_BROWSING_BASE_URL", safebrowsing.DefaultBaseURL),
			Timeout: timeout,
		},
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// Validate checks the loaded values before anything is started
func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Port)
	}
	if c.AdapterTimeout <= 0 {
		return fmt.Errorf("%w: adapter timeout %v", ErrInvalid, c.AdapterTimeout)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("%w: rate limit %v", ErrInvalid, c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("%w: rate limit burst %d", ErrInvalid, c.RateLimitBurst)
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as an integer
// If the variable doesn't exist or can't be parsed, returns the default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := strings.TrimSpace(getEnv(key, ""))
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration reads an environment variable as milliseconds and converts to time.Duration
// If the variable doesn't exist or can't be parsed, returns the default
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	// Parse as milliseconds
	ms, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return time.Duration(ms) * time.Millisecond
}
