// Package config provides configuration loading and validation for the feed
// ranking service. It uses koanf to merge environment variables with
// optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for feed ranking.
type Config struct {
	// Environment
	Env string `koanf:"env"`

	// Feed shape
	FeedSize   int `koanf:"feed_size"`
	AuthorCap  int `koanf:"author_cap"`
	MinMatched int `koanf:"min_matched"`

	// Scoring
	ScoringWorkers  int    `koanf:"scoring_workers"`  // 0 = sequential
	CalibrationPath string `koanf:"calibration_path"` // optional weight overrides (JSON)

	// Context loading
	StoreTimeout time.Duration `koanf:"store_timeout"`
	TrendingTTL  time.Duration `koanf:"trending_ttl"`

	// Backends (both optional: absent means in-memory / in-process only)
	DatabaseURL string `koanf:"database_url"`
	RedisAddr   string `koanf:"redis_addr"`

	// Tracing
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporter     string  `koanf:"tracing_exporter"` // otlp-grpc, otlp-http
	TracingEndpoint     string  `koanf:"tracing_endpoint"`
	TracingSamplingRate float64 `koanf:"tracing_sampling_rate"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrInvalidFeedSize       = errors.New("FEEDCORE_FEED_SIZE must be > 0")
	ErrInvalidAuthorCap      = errors.New("FEEDCORE_AUTHOR_CAP must be > 0")
	ErrInvalidMinMatched     = errors.New("FEEDCORE_MIN_MATCHED must be > 0")
	ErrInvalidWorkers        = errors.New("FEEDCORE_SCORING_WORKERS must be >= 0")
	ErrInvalidStoreTimeout   = errors.New("FEEDCORE_STORE_TIMEOUT must be > 0")
	ErrInvalidTrendingTTL    = errors.New("FEEDCORE_TRENDING_TTL must be > 0")
	ErrInvalidSamplingRate   = errors.New("FEEDCORE_TRACING_SAMPLING_RATE must be between 0 and 1")
	ErrInvalidIntegerEnv     = errors.New("environment variable must be a valid integer")
	ErrInvalidDurationEnv    = errors.New("environment variable must be a valid duration")
)

// Default values.
const (
	DefaultEnv            = "development"
	DefaultFeedSize       = 20
	DefaultAuthorCap      = 2
	DefaultMinMatched     = 10
	DefaultScoringWorkers = 0
	DefaultStoreTimeout   = 2 * time.Second
	DefaultTrendingTTL    = 10 * time.Minute
)

// Load reads configuration from environment variables and an optional config
// file. Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error
// is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	feedSize, err := getEnvIntOrDefault("FEEDCORE_FEED_SIZE", k.Int("feed_size"), DefaultFeedSize)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	authorCap, err := getEnvIntOrDefault("FEEDCORE_AUTHOR_CAP", k.Int("author_cap"), DefaultAuthorCap)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	minMatched, err := getEnvIntOrDefault("FEEDCORE_MIN_MATCHED", k.Int("min_matched"), DefaultMinMatched)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	workers, err := getEnvIntOrDefault("FEEDCORE_SCORING_WORKERS", k.Int("scoring_workers"), DefaultScoringWorkers)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	storeTimeout, err := getEnvDurationOrDefault("FEEDCORE_STORE_TIMEOUT", k.Duration("store_timeout"), DefaultStoreTimeout)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	trendingTTL, err := getEnvDurationOrDefault("FEEDCORE_TRENDING_TTL", k.Duration("trending_ttl"), DefaultTrendingTTL)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	samplingRate, err := getEnvFloatOrDefault("FEEDCORE_TRACING_SAMPLING_RATE", k.Float64("tracing_sampling_rate"), 0.0)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	cfg := &Config{
		Env:                 getEnvOrDefaultMulti([]string{"FEEDCORE_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		FeedSize:            feedSize,
		AuthorCap:           authorCap,
		MinMatched:          minMatched,
		ScoringWorkers:      workers,
		CalibrationPath:     getEnvOrKoanf("FEEDCORE_CALIBRATION_PATH", k, "calibration_path"),
		StoreTimeout:        storeTimeout,
		TrendingTTL:         trendingTTL,
		DatabaseURL:         getEnvOrKoanf("FEEDCORE_DATABASE_URL", k, "database_url"),
		RedisAddr:           getEnvOrKoanf("FEEDCORE_REDIS_ADDR", k, "redis_addr"),
		TracingEnabled:      getEnvBoolOrKoanf("FEEDCORE_TRACING_ENABLED", k, "tracing_enabled"),
		TracingExporter:     getEnvOrKoanf("FEEDCORE_TRACING_EXPORTER", k, "tracing_exporter"),
		TracingEndpoint:     getEnvOrKoanf("FEEDCORE_TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingSamplingRate: samplingRate,
		TracingInsecure:     getEnvBoolOrKoanf("FEEDCORE_TRACING_INSECURE", k, "tracing_insecure"),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvBoolOrKoanf returns the environment variable as bool if set,
// otherwise the koanf value. Accepted true forms: true, 1, yes, on.
func getEnvBoolOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) bool {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return k.Bool(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set,
// otherwise the koanf value, or default. Returns an error if the environment
// variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envKey, ErrInvalidIntegerEnv)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault returns the environment variable as a duration if
// set (Go duration syntax, e.g. "2s", "10m"), otherwise the koanf value, or
// default.
func getEnvDurationOrDefault(envKey string, koanfVal time.Duration, defaultVal time.Duration) (time.Duration, error) {
	if val := os.Getenv(envKey); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", envKey, ErrInvalidDurationEnv)
		}
		return d, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set,
// otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all configuration values are usable.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.FeedSize <= 0 {
		errs = append(errs, ErrInvalidFeedSize)
	}
	if c.AuthorCap <= 0 {
		errs = append(errs, ErrInvalidAuthorCap)
	}
	if c.MinMatched <= 0 {
		errs = append(errs, ErrInvalidMinMatched)
	}
	if c.ScoringWorkers < 0 {
		errs = append(errs, ErrInvalidWorkers)
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, ErrInvalidStoreTimeout)
	}
	if c.TrendingTTL <= 0 {
		errs = append(errs, ErrInvalidTrendingTTL)
	}
	if c.TracingSamplingRate < 0 || c.TracingSamplingRate > 1 {
		errs = append(errs, ErrInvalidSamplingRate)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// Connection strings are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"env":                   c.Env,
		"feed_size":             strconv.Itoa(c.FeedSize),
		"author_cap":            strconv.Itoa(c.AuthorCap),
		"min_matched":           strconv.Itoa(c.MinMatched),
		"scoring_workers":       strconv.Itoa(c.ScoringWorkers),
		"calibration_path":      orNotSet(c.CalibrationPath),
		"store_timeout":         c.StoreTimeout.String(),
		"trending_ttl":          c.TrendingTTL.String(),
		"database_url":          maskDatabaseURL(c.DatabaseURL),
		"redis_addr":            orNotSet(c.RedisAddr),
		"tracing_enabled":       strconv.FormatBool(c.TracingEnabled),
		"tracing_exporter":      orNotSet(c.TracingExporter),
		"tracing_endpoint":      orNotSet(c.TracingEndpoint),
		"tracing_sampling_rate": strconv.FormatFloat(c.TracingSamplingRate, 'f', -1, 64),
	}
}

func orNotSet(s string) string {
	if s == "" {
		return "<not set>"
	}
	return s
}

// maskDatabaseURL masks the password in a database URL.
// Supports both postgres:// and postgresql:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return "****"
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
