// Package config loads tool settings from an optional YAML file and the
// environment. Environment variables win over the file; flags may override
// individual fields after Load.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Artifact store drivers.
const (
	DriverFS     = "fs"
	DriverS3     = "s3"
	DriverMemory = "memory"
)

// Config holds all tool settings.
type Config struct {
	CensusAPIKey string `mapstructure:"census_api_key"`
	IPUMSAPIKey  string `mapstructure:"ipums_api_key"`

	DataDir   string `mapstructure:"data_dir"` // raw downloads and the warehouse database
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	FetchCacheSize int           `mapstructure:"fetch_cache_size"`

	// Artifact store configuration.
	ArtifactDriver string `mapstructure:"artifact_driver"`
	ArtifactRoot   string `mapstructure:"out_dir"` // fs driver output directory
	S3Bucket       string `mapstructure:"s3_bucket"`
	S3Prefix       string `mapstructure:"s3_prefix"`
	S3Region       string `mapstructure:"s3_region"`
}

// Load reads configuration with precedence env > config file > defaults.
// cfgFile may be empty, in which case chartpress.yaml in the working
// directory is used when present. Credentials always come from the
// environment or the file, never from source.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("data_dir", "data")
	v.SetDefault("out_dir", "outputs")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("http_timeout", "60s")
	v.SetDefault("fetch_cache_size", 256)
	v.SetDefault("artifact_driver", DriverFS)

	// Keep the documented env names rather than a generated prefix scheme.
	bindings := map[string]string{
		"census_api_key":   "CENSUS_API_KEY",
		"ipums_api_key":    "IPUMS_API_KEY",
		"data_dir":         "CHARTPRESS_DATA_DIR",
		"out_dir":          "CHARTPRESS_OUT_DIR",
		"log_level":        "LOG_LEVEL",
		"log_format":       "LOG_FORMAT",
		"http_timeout":     "HTTP_TIMEOUT",
		"fetch_cache_size": "FETCH_CACHE_SIZE",
		"artifact_driver":  "ARTIFACT_DRIVER",
		"s3_bucket":        "ARTIFACT_S3_BUCKET",
		"s3_prefix":        "ARTIFACT_S3_PREFIX",
		"s3_region":        "AWS_REGION",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("chartpress")
		v.SetConfigType("yaml")
		// Optional when not named explicitly.
		_ = v.ReadInConfig()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.HTTPTimeout <= 0 {
		return nil, errors.New("invalid HTTP_TIMEOUT")
	}
	if cfg.FetchCacheSize <= 0 {
		return nil, errors.New("invalid FETCH_CACHE_SIZE")
	}
	switch cfg.ArtifactDriver {
	case DriverFS, DriverS3, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown ARTIFACT_DRIVER %q", cfg.ArtifactDriver)
	}
	if cfg.ArtifactDriver == DriverS3 && cfg.S3Bucket == "" {
		return nil, errors.New("ARTIFACT_DRIVER is s3 but ARTIFACT_S3_BUCKET is not set")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("CHARTPRESS_DATA_DIR is required")
	}

	return &cfg, nil
}
