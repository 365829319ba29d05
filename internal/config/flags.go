package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags declares the server flags on fs with the default values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a YAML config file")
	fs.String("http-addr", d.HTTPAddr, "HTTP listen address")
	fs.String("grpc-addr", d.GRPCAddr, "gRPC health listen address (empty disables)")
	fs.String("database-dsn", d.DatabaseDSN, "PostgreSQL DSN (empty keeps data in memory)")
	fs.String("redis-addr", d.RedisAddr, "Redis address for sessions (empty keeps sessions in memory)")
	fs.Duration("session-ttl", d.SessionTTL, "session lifetime")
	fs.Duration("request-timeout", d.RequestTimeout, "per-request timeout")
	fs.Float64("rate-per-second", d.RatePerSecond, "requests per second per client (0 disables)")
	fs.Int("rate-burst", d.RateBurst, "rate limiter burst")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	fs.String("s3-bucket", d.S3.Bucket, "bucket for rendered contracts (empty disables)")
	fs.String("s3-endpoint", d.S3.Endpoint, "S3-compatible endpoint, e.g. http://127.0.0.1:9000")
}

// ApplyFlags copies the flags the user set explicitly onto cfg.
func ApplyFlags(fs *pflag.FlagSet, cfg *Config) error {
	strs := map[string]*string{
		"http-addr":    &cfg.HTTPAddr,
		"grpc-addr":    &cfg.GRPCAddr,
		"database-dsn": &cfg.DatabaseDSN,
		"redis-addr":   &cfg.RedisAddr,
		"log-level":    &cfg.LogLevel,
		"s3-bucket":    &cfg.S3.Bucket,
		"s3-endpoint":  &cfg.S3.Endpoint,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	if fs.Changed("session-ttl") {
		v, err := fs.GetDuration("session-ttl")
		if err != nil {
			return err
		}
		cfg.SessionTTL = v
	}
	if fs.Changed("request-timeout") {
		v, err := fs.GetDuration("request-timeout")
		if err != nil {
			return err
		}
		cfg.RequestTimeout = v
	}
	if fs.Changed("rate-per-second") {
		v, err := fs.GetFloat64("rate-per-second")
		if err != nil {
			return err
		}
		cfg.RatePerSecond = v
	}
	if fs.Changed("rate-burst") {
		v, err := fs.GetInt("rate-burst")
		if err != nil {
			return err
		}
		cfg.RateBurst = v
	}
	return nil
}
