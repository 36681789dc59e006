package llm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromReader(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "from-env")
	t.Setenv(envTimeout, "45s")

	cfg, err := LoadConfigFromReader(strings.NewReader(`
base_url: "https://example.com/v1"
api_key: "${TEST_LLM_KEY}"
default_model: fast
timeout: 30s
max_retries: 4
models:
  fast:
    model_name: gpt-4o-mini
    temperature: 0.2
`))
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/v1", cfg.BaseURL)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, 45*time.Second, cfg.Timeout, "env overrides file")
	assert.Equal(t, 4, cfg.MaxRetries)

	model, ok := cfg.Model("fast")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", model.ModelName)
	require.NotNil(t, model.Temperature)
	assert.InDelta(t, 0.2, *model.Temperature, 1e-9)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: k\ndefault_model: m\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, cfg.BaseURL)
	assert.Equal(t, defaultTimeout, cfg.Timeout)
	assert.Equal(t, defaultMaxRetries, cfg.MaxRetries)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig("/nonexistent/llm.yaml")
	require.ErrorContains(t, err, "open llm config")

	_, err = LoadConfigFromReader(strings.NewReader("default_model: m\n"))
	require.ErrorContains(t, err, "api_key")

	_, err = LoadConfigFromReader(strings.NewReader("api_key: k\ndefault_model: m\ntimeout: later\n"))
	require.ErrorContains(t, err, "invalid timeout")
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Models: map[string]ModelConfig{"a": {ModelName: "x"}}}
	cp := cfg.Clone()
	cp.Models["a"] = ModelConfig{ModelName: "y"}
	assert.Equal(t, "x", cfg.Models["a"].ModelName)
}
