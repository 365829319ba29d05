package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultsNeedOnlyASecret(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.Validate())
	cfg.AuthSecret = "s"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
}

func TestLoadLayersYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contratos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9000"
auth_secret: from-file
session_ttl: 2h
rate_burst: 5
s3:
  bucket: contratos
  endpoint: http://minio:9000
`), 0o600))

	cfg, err := Load(path, envMap(map[string]string{
		"CONTRATOS_AUTH_SECRET":     "from-env",
		"CONTRATOS_REQUEST_TIMEOUT": "3s",
		"CONTRATOS_S3_REGION":       "sa-east-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "from-env", cfg.AuthSecret)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 5, cfg.RateBurst)
	assert.Equal(t, "contratos", cfg.S3.Bucket)
	assert.Equal(t, "sa-east-1", cfg.S3.Region)
	assert.Equal(t, 15*time.Minute, cfg.S3.ArtifactTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load("", envMap(map[string]string{"CONTRATOS_SESSION_TTL": "forever"}))
	assert.Error(t, err)
	_, err = Load("", envMap(map[string]string{"CONTRATOS_RATE_BURST": "many"}))
	assert.Error(t, err)
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	assert.Error(t, err)
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--http-addr=:7000", "--rate-burst=2", "--session-ttl=30m"}))

	cfg, err := Load("", envMap(map[string]string{
		"CONTRATOS_HTTP_ADDR": ":6000",
		"CONTRATOS_GRPC_ADDR": ":6001",
	}))
	require.NoError(t, err)
	require.NoError(t, ApplyFlags(fs, &cfg))
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, ":6001", cfg.GRPCAddr)
	assert.Equal(t, 2, cfg.RateBurst)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, float64(20), cfg.RatePerSecond)
}
