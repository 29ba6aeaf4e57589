package core

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the orchestration core.
// It supports three-layer priority:
//  1. Default values (lowest)
//  2. Optional YAML file pointed at by GRIDMIND_CONFIG
//  3. Environment variables (highest)
//
// Missing required settings are the only fatal startup errors; everything
// else falls back to a default.
type Config struct {
	ServiceName string `yaml:"service_name"`

	Logging    LoggingConfig    `yaml:"logging"`
	Redis      RedisConfig      `yaml:"redis"`
	AI         AIConfig         `yaml:"ai"`
	APIs       APIConfig        `yaml:"apis"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Cache      CacheConfig      `yaml:"cache"`
	Freshness  FreshnessConfig  `yaml:"freshness"`
}

// RedisConfig locates the Redis-backed document index. Empty URL means
// the in-memory index is used instead (single-process, non-persistent).
type RedisConfig struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
}

// AIConfig configures the LLM used for decomposition and synthesis.
type AIConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// APIConfig holds keys and endpoints for the external data services.
// One key serves every NREL-hosted API (stations, rates, solar,
// optimization); the buildings library has its own endpoint.
type APIConfig struct {
	NRELAPIKey       string        `yaml:"nrel_api_key"`
	StationsBaseURL  string        `yaml:"stations_base_url"`
	RatesBaseURL     string        `yaml:"rates_base_url"`
	SolarBaseURL     string        `yaml:"solar_base_url"`
	OptimizerBaseURL string        `yaml:"optimizer_base_url"`
	BuildingsBaseURL string        `yaml:"buildings_base_url"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	OptimizerTimeout time.Duration `yaml:"optimizer_timeout"`
}

// ResilienceConfig carries the breaker and retry settings applied to
// every tool unless a tool overrides them.
type ResilienceConfig struct {
	Breaker BreakerSettings `yaml:"breaker"`
	Retry   RetrySettings   `yaml:"retry"`
}

// BreakerSettings is the per-breaker configuration surface.
type BreakerSettings struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	OpenTimeout      time.Duration `yaml:"open_timeout"`
	SuccessThreshold int           `yaml:"success_threshold"`
}

// RetrySettings is the retry policy configuration surface.
type RetrySettings struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialDelay    time.Duration `yaml:"initial_delay"`
	MaxDelay        time.Duration `yaml:"max_delay"`
	ExponentialBase float64       `yaml:"exponential_base"`
	Jitter          bool          `yaml:"jitter"`
}

// CacheConfig holds per-namespace TTLs for the in-process response cache.
// These are read-time TTLs: callers pass them to GetOrFetch, the cache
// never stores them.
type CacheConfig struct {
	StationTTL time.Duration `yaml:"station_ttl"`
	RateTTL    time.Duration `yaml:"rate_ttl"`
	SolarTTL   time.Duration `yaml:"solar_ttl"`
	GeocodeTTL time.Duration `yaml:"geocode_ttl"`
}

// FreshnessConfig holds per-domain TTLs for indexed data. These are
// longer than the cache TTLs because re-indexing is more expensive than
// re-fetching: stations change rarely (30 days), utility rates change
// monthly or quarterly (7 days), building measures almost never (90 days).
type FreshnessConfig struct {
	StationTTL   time.Duration `yaml:"station_ttl"`
	UtilityTTL   time.Duration `yaml:"utility_ttl"`
	BuildingsTTL time.Duration `yaml:"buildings_ttl"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName: "gridmind",
		Logging: LoggingConfig{
			Level:  "INFO",
			Output: "stdout",
		},
		Redis: RedisConfig{
			Namespace: "gridmind:index",
		},
		AI: AIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   2000,
		},
		APIs: APIConfig{
			StationsBaseURL:  "https://developer.nrel.gov/api/alt-fuel-stations/v1",
			RatesBaseURL:     "https://api.openei.org/utility_rates",
			SolarBaseURL:     "https://developer.nrel.gov/api/pvwatts/v8",
			OptimizerBaseURL: "https://developer.nrel.gov/api/reopt/stable",
			BuildingsBaseURL: "https://bcl.nrel.gov/api",
			RequestTimeout:   30 * time.Second,
			OptimizerTimeout: 5 * time.Minute,
		},
		Resilience: ResilienceConfig{
			Breaker: BreakerSettings{
				FailureThreshold: 5,
				OpenTimeout:      60 * time.Second,
				SuccessThreshold: 2,
			},
			Retry: RetrySettings{
				MaxAttempts:     3,
				InitialDelay:    time.Second,
				MaxDelay:        60 * time.Second,
				ExponentialBase: 2.0,
				Jitter:          true,
			},
		},
		Cache: CacheConfig{
			StationTTL: time.Hour,
			RateTTL:    24 * time.Hour,
			SolarTTL:   24 * time.Hour,
			GeocodeTTL: 7 * 24 * time.Hour,
		},
		Freshness: FreshnessConfig{
			StationTTL:   720 * time.Hour,
			UtilityTTL:   168 * time.Hour,
			BuildingsTTL: 90 * 24 * time.Hour,
		},
	}
}

// LoadConfig builds a Config from defaults, the optional YAML file named
// by GRIDMIND_CONFIG, and environment variables, then validates it.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("GRIDMIND_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	cfg.applyEnvironment()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironment() {
	setString(&c.ServiceName, "GRIDMIND_SERVICE_NAME")
	setString(&c.Redis.URL, "GRIDMIND_REDIS_URL")
	setString(&c.Redis.Namespace, "GRIDMIND_REDIS_NAMESPACE")

	setString(&c.AI.APIKey, "OPENAI_API_KEY")
	setString(&c.AI.BaseURL, "OPENAI_BASE_URL")
	setString(&c.AI.Model, "GRIDMIND_AI_MODEL")

	setString(&c.APIs.NRELAPIKey, "NREL_API_KEY")
	setString(&c.APIs.StationsBaseURL, "GRIDMIND_STATIONS_URL")
	setString(&c.APIs.RatesBaseURL, "GRIDMIND_RATES_URL")
	setString(&c.APIs.SolarBaseURL, "GRIDMIND_SOLAR_URL")
	setString(&c.APIs.OptimizerBaseURL, "GRIDMIND_OPTIMIZER_URL")
	setString(&c.APIs.BuildingsBaseURL, "GRIDMIND_BUILDINGS_URL")
	setDuration(&c.APIs.RequestTimeout, "GRIDMIND_REQUEST_TIMEOUT")
	setDuration(&c.APIs.OptimizerTimeout, "GRIDMIND_OPTIMIZER_TIMEOUT")

	setInt(&c.Resilience.Breaker.FailureThreshold, "GRIDMIND_BREAKER_FAILURE_THRESHOLD")
	setDuration(&c.Resilience.Breaker.OpenTimeout, "GRIDMIND_BREAKER_OPEN_TIMEOUT")
	setInt(&c.Resilience.Breaker.SuccessThreshold, "GRIDMIND_BREAKER_SUCCESS_THRESHOLD")

	setInt(&c.Resilience.Retry.MaxAttempts, "GRIDMIND_RETRY_MAX_ATTEMPTS")
	setDuration(&c.Resilience.Retry.InitialDelay, "GRIDMIND_RETRY_INITIAL_DELAY")
	setDuration(&c.Resilience.Retry.MaxDelay, "GRIDMIND_RETRY_MAX_DELAY")

	setDuration(&c.Freshness.StationTTL, "GRIDMIND_STATION_DATA_TTL")
	setDuration(&c.Freshness.UtilityTTL, "GRIDMIND_UTILITY_DATA_TTL")
	setDuration(&c.Freshness.BuildingsTTL, "GRIDMIND_BUILDINGS_DATA_TTL")
}

// Validate reports the first configuration problem found. Key absence is
// wrapped in ErrMissingConfiguration, bad values in ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY", ErrMissingConfiguration)
	}
	if c.APIs.NRELAPIKey == "" {
		return fmt.Errorf("%w: NREL_API_KEY", ErrMissingConfiguration)
	}
	if c.Resilience.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("%w: breaker failure_threshold must be at least 1, got %d",
			ErrInvalidConfiguration, c.Resilience.Breaker.FailureThreshold)
	}
	if c.Resilience.Breaker.SuccessThreshold < 1 {
		return fmt.Errorf("%w: breaker success_threshold must be at least 1, got %d",
			ErrInvalidConfiguration, c.Resilience.Breaker.SuccessThreshold)
	}
	if c.Resilience.Breaker.OpenTimeout <= 0 {
		return fmt.Errorf("%w: breaker open_timeout must be positive, got %v",
			ErrInvalidConfiguration, c.Resilience.Breaker.OpenTimeout)
	}
	if c.Resilience.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry max_attempts must be at least 1, got %d",
			ErrInvalidConfiguration, c.Resilience.Retry.MaxAttempts)
	}
	if c.Resilience.Retry.ExponentialBase < 1 {
		return fmt.Errorf("%w: retry exponential_base must be at least 1, got %f",
			ErrInvalidConfiguration, c.Resilience.Retry.ExponentialBase)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
