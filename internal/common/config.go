// Package common provides shared utilities for the assessment pipeline.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the assessment pipeline.
type Config struct {
	Environment string           `toml:"environment"`
	Storage     StorageConfig    `toml:"storage"`
	Blob        BlobStoreConfig  `toml:"blob"`
	Assessment  AssessmentConfig `toml:"assessment"`
	Detector    DetectorConfig   `toml:"detector"`
	Logging     LoggingConfig    `toml:"logging"`
}

// StorageConfig holds the SurrealDB connection parameters.
type StorageConfig struct {
	Address  string `toml:"address"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database string `toml:"database"`
}

// BlobStoreConfig selects and configures the document blob backend.
type BlobStoreConfig struct {
	Backend string        `toml:"backend"` // "file" (default) or "s3"
	File    FileBlobConfig `toml:"file"`
	S3      S3BlobConfig  `toml:"s3"`
}

// FileBlobConfig holds local-disk blob store configuration.
type FileBlobConfig struct {
	BasePath string `toml:"base_path"`
}

// S3BlobConfig holds AWS S3 (or S3-compatible) blob store configuration.
type S3BlobConfig struct {
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"` // custom endpoint for MinIO/R2
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// AssessmentConfig tunes the TaskStore/Worker/BatchCoordinator trio.
// Duration fields are parsed from Go duration strings (e.g. "30s", "5m");
// an unparseable or empty value falls back to the documented default.
type AssessmentConfig struct {
	PollInterval        string `toml:"poll_interval"`        // worker idle-queue poll cadence, default 2s
	LeaseDuration        string `toml:"lease_duration"`        // task visibility timeout, default 5m
	MaxAttempts          int    `toml:"max_attempts"`          // default 5
	BackoffBase          string `toml:"backoff_base"`          // default = poll_interval
	BackoffCap           string `toml:"backoff_cap"`           // default 1h
	CoordinatorInterval  string `toml:"coordinator_interval"`  // batch rollup scan cadence, default 10s
	MaxConcurrentTasks   int    `toml:"max_concurrent_tasks"`  // worker pool width, default 5
	FreePlanMonthlyWords int    `toml:"free_plan_monthly_words"`
	FreePlanMonthlyChars int    `toml:"free_plan_monthly_chars"`
	ProPlanMonthlyWords  int    `toml:"pro_plan_monthly_words"`
	ProPlanMonthlyChars  int    `toml:"pro_plan_monthly_chars"`
}

// GetPollInterval parses PollInterval, defaulting to 2 seconds.
func (c *AssessmentConfig) GetPollInterval() time.Duration {
	return parseDurationOrDefault(c.PollInterval, 2*time.Second)
}

// GetLeaseDuration parses LeaseDuration, defaulting to 5 minutes.
func (c *AssessmentConfig) GetLeaseDuration() time.Duration {
	return parseDurationOrDefault(c.LeaseDuration, 5*time.Minute)
}

// GetBackoffBase parses BackoffBase, defaulting to GetPollInterval().
func (c *AssessmentConfig) GetBackoffBase() time.Duration {
	if c.BackoffBase == "" {
		return c.GetPollInterval()
	}
	return parseDurationOrDefault(c.BackoffBase, c.GetPollInterval())
}

// GetBackoffCap parses BackoffCap, defaulting to one hour.
func (c *AssessmentConfig) GetBackoffCap() time.Duration {
	return parseDurationOrDefault(c.BackoffCap, time.Hour)
}

// GetCoordinatorInterval parses CoordinatorInterval, defaulting to 10 seconds.
func (c *AssessmentConfig) GetCoordinatorInterval() time.Duration {
	return parseDurationOrDefault(c.CoordinatorInterval, 10*time.Second)
}

// GetMaxAttempts returns MaxAttempts, defaulting to 5.
func (c *AssessmentConfig) GetMaxAttempts() int {
	if c.MaxAttempts <= 0 {
		return 5
	}
	return c.MaxAttempts
}

// GetMaxConcurrentTasks returns MaxConcurrentTasks, defaulting to 5.
func (c *AssessmentConfig) GetMaxConcurrentTasks() int {
	if c.MaxConcurrentTasks <= 0 {
		return 5
	}
	return c.MaxConcurrentTasks
}

func parseDurationOrDefault(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// DetectorConfig holds the remote AI-detection service configuration.
type DetectorConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"` // requests per second
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the detector HTTP timeout, defaulting to 30s.
func (c *DetectorConfig) GetTimeout() time.Duration {
	return parseDurationOrDefault(c.Timeout, 30*time.Second)
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string   `toml:"level" mapstructure:"level"`
	Format     string   `toml:"format" mapstructure:"format"`
	Outputs    []string `toml:"outputs" mapstructure:"outputs"`
	FilePath   string   `toml:"file_path" mapstructure:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int      `toml:"max_backups" mapstructure:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Address:   "ws://localhost:8000/rpc",
			Username:  "root",
			Password:  "root",
			Namespace: "assessor",
			Database:  "assessor",
		},
		Blob: BlobStoreConfig{
			Backend: "file",
			File:    FileBlobConfig{BasePath: "data/blobs"},
		},
		Assessment: AssessmentConfig{
			PollInterval:         "2s",
			LeaseDuration:        "5m",
			MaxAttempts:          5,
			BackoffCap:           "1h",
			CoordinatorInterval:  "10s",
			MaxConcurrentTasks:   5,
			FreePlanMonthlyWords: 50_000,
			FreePlanMonthlyChars: 300_000,
			ProPlanMonthlyWords:  1_000_000,
			ProPlanMonthlyChars:  6_000_000,
		},
		Detector: DetectorConfig{
			RateLimit: 5,
			Timeout:   "30s",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Outputs:    []string{"console", "file"},
			FilePath:   "./logs/assessor.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ASSESSOR_ENV"); env != "" {
		config.Environment = env
	}
	if level := os.Getenv("ASSESSOR_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if addr := os.Getenv("ASSESSOR_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}
	if user := os.Getenv("ASSESSOR_STORAGE_USERNAME"); user != "" {
		config.Storage.Username = user
	}
	if pass := os.Getenv("ASSESSOR_STORAGE_PASSWORD"); pass != "" {
		config.Storage.Password = pass
	}
	if key := os.Getenv("ASSESSOR_DETECTOR_API_KEY"); key != "" {
		config.Detector.APIKey = key
	}
	if url := os.Getenv("ASSESSOR_DETECTOR_BASE_URL"); url != "" {
		config.Detector.BaseURL = url
	}
	if rl := os.Getenv("ASSESSOR_DETECTOR_RATE_LIMIT"); rl != "" {
		if v, err := strconv.Atoi(rl); err == nil {
			config.Detector.RateLimit = v
		}
	}
	if backend := os.Getenv("ASSESSOR_BLOB_BACKEND"); backend != "" {
		config.Blob.Backend = backend
	}
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
