package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := writeConfigFile(t, `{
		"service": {
			"endpoint": "https://identifier.example.com",
			"request_timeout": "20s"
		},
		"logging": {"level": "debug"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://identifier.example.com", cfg.Service.Endpoint)
	assert.Equal(t, 20*time.Second, cfg.Service.RequestTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unspecified fields keep their defaults.
	assert.Equal(t, 24*time.Hour, cfg.Service.CacheTTL)
	assert.Equal(t, 3, cfg.Service.BatchChunkSize)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9090", cfg.Metrics.ListenAddr)
}

func TestLoad_MissingEndpointFailsValidation(t *testing.T) {
	path := writeConfigFile(t, `{}`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CROPVISION_ENDPOINT", "https://env.example.com")
	t.Setenv("CROPVISION_LOG_LEVEL", "warn")

	path := writeConfigFile(t, `{"service": {"endpoint": "https://file.example.com"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.Service.Endpoint)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_RejectsNonJSONPath(t *testing.T) {
	_, err := Load("config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only JSON config files allowed")
}

func TestLoad_RejectsPathTraversal(t *testing.T) {
	_, err := Load("../../../etc/secrets.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path traversal")
}

func TestLoad_RejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoad_RejectsOversizedFile(t *testing.T) {
	big := `{"pad": "` + strings.Repeat("x", maxConfigSize) + `"}`
	path := writeConfigFile(t, big)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestValidateJSONDepth(t *testing.T) {
	require.NoError(t, validateJSONDepth([]byte(`{"a": {"b": [1, 2, {"c": true}]}}`)))

	deep := strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1)
	require.Error(t, validateJSONDepth([]byte(deep)))

	// Braces inside strings do not count toward depth.
	require.NoError(t, validateJSONDepth([]byte(`{"a": "{{{{{{"}`)))
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	cfg.Service.Endpoint = "https://svc"
	require.NoError(t, cfg.Validate())

	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())
	cfg.Logging.Level = "info"

	cfg.Metrics.ListenAddr = ""
	require.Error(t, cfg.Validate())
	cfg.Metrics.Enabled = false
	require.NoError(t, cfg.Validate())
}
