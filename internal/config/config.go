// Package config assembles runtime settings from defaults, an optional YAML
// file, CONTRATOS_* environment variables and command-line flags, in that
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "CONTRATOS_"

// Config holds runtime settings for the API server.
//
// DatabaseDSN and RedisAddr are optional: when empty the server keeps accounts,
// contracts and sessions in memory. S3.Bucket empty disables artifacts.
type Config struct {
	HTTPAddr       string        `yaml:"http_addr"`
	GRPCAddr       string        `yaml:"grpc_addr"`
	DatabaseDSN    string        `yaml:"database_dsn"`
	RedisAddr      string        `yaml:"redis_addr"`
	AuthSecret     string        `yaml:"auth_secret"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	RateBurst      int           `yaml:"rate_burst"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	CORSOrigin     string        `yaml:"cors_origin"`
	LogLevel       string        `yaml:"log_level"`
	S3             S3            `yaml:"s3"`
}

// S3 configures artifact storage.
type S3 struct {
	Bucket      string        `yaml:"bucket"`
	Region      string        `yaml:"region"`
	Endpoint    string        `yaml:"endpoint"`
	AccessKey   string        `yaml:"access_key"`
	SecretKey   string        `yaml:"secret_key"`
	ArtifactTTL time.Duration `yaml:"artifact_ttl"`
}

// Default returns development defaults.
func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		GRPCAddr:       ":9090",
		SessionTTL:     24 * time.Hour,
		RequestTimeout: 10 * time.Second,
		RatePerSecond:  20,
		RateBurst:      40,
		MaxBodyBytes:   1 << 20,
		CORSOrigin:     "*",
		LogLevel:       "info",
		S3: S3{
			Region:      "us-east-1",
			ArtifactTTL: 15 * time.Minute,
		},
	}
}

// Load applies the YAML file at path (skipped when empty) and then the
// environment read through getenv on top of the defaults.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	env := func(name string) (string, bool) {
		v := strings.TrimSpace(getenv(envPrefix + name))
		return v, v != ""
	}
	strs := map[string]*string{
		"HTTP_ADDR":     &cfg.HTTPAddr,
		"GRPC_ADDR":     &cfg.GRPCAddr,
		"DATABASE_DSN":  &cfg.DatabaseDSN,
		"REDIS_ADDR":    &cfg.RedisAddr,
		"AUTH_SECRET":   &cfg.AuthSecret,
		"CORS_ORIGIN":   &cfg.CORSOrigin,
		"LOG_LEVEL":     &cfg.LogLevel,
		"S3_BUCKET":     &cfg.S3.Bucket,
		"S3_REGION":     &cfg.S3.Region,
		"S3_ENDPOINT":   &cfg.S3.Endpoint,
		"S3_ACCESS_KEY": &cfg.S3.AccessKey,
		"S3_SECRET_KEY": &cfg.S3.SecretKey,
	}
	for name, dst := range strs {
		if v, ok := env(name); ok {
			*dst = v
		}
	}
	durations := map[string]*time.Duration{
		"SESSION_TTL":     &cfg.SessionTTL,
		"REQUEST_TIMEOUT": &cfg.RequestTimeout,
		"S3_ARTIFACT_TTL": &cfg.S3.ArtifactTTL,
	}
	for name, dst := range durations {
		if v, ok := env(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = d
		}
	}
	if v, ok := env("RATE_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sRATE_PER_SECOND: %w", envPrefix, err)
		}
		cfg.RatePerSecond = f
	}
	if v, ok := env("RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sRATE_BURST: %w", envPrefix, err)
		}
		cfg.RateBurst = n
	}
	if v, ok := env("MAX_BODY_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_BODY_BYTES: %w", envPrefix, err)
		}
		cfg.MaxBodyBytes = n
	}
	return nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if strings.TrimSpace(c.AuthSecret) == "" {
		errs = append(errs, errors.New("auth_secret is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.RatePerSecond < 0 || c.RateBurst < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max_body_bytes must be positive"))
	}
	return errors.Join(errs...)
}
