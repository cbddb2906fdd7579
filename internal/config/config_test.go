package config

import (
	"os"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	assert.Equal(t, nil, err)

	assert.Equal(t, 3, cfg.Browser.PoolSize)
	assert.Equal(t, 3, cfg.Browser.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Browser.BackoffBase)
	assert.Equal(t, 20, cfg.DefaultLimit)
	assert.Equal(t, "none", cfg.Dedupe)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "", cfg.Classifier.Endpoint)
}

func TestLoadFromFile(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	content := `debug: true
sources_file: /etc/pulse/sources.yaml
browser:
  pool_size: 5
  max_attempts: 4
classifier:
  endpoint: https://model.example/classify
  spacing: 2s
default_limit: 10
dedupe: url
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	assert.Equal(t, nil, err)

	assert.Equal(t, true, cfg.Debug)
	assert.Equal(t, "/etc/pulse/sources.yaml", cfg.SourcesFile)
	assert.Equal(t, 5, cfg.Browser.PoolSize)
	assert.Equal(t, 4, cfg.Browser.MaxAttempts)
	assert.Equal(t, "https://model.example/classify", cfg.Classifier.Endpoint)
	assert.Equal(t, 2*time.Second, cfg.Classifier.Spacing)
	assert.Equal(t, 10, cfg.DefaultLimit)
	assert.Equal(t, "url", cfg.Dedupe)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PULSE_BROWSER_POOL_SIZE", "7")
	t.Setenv("PULSE_DEDUPE", "title")

	cfg, err := Load("")
	assert.Equal(t, nil, err)
	assert.Equal(t, 7, cfg.Browser.PoolSize)
	assert.Equal(t, "title", cfg.Dedupe)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := t.TempDir() + "/config.yaml"
	content := `dedupe: fuzzy`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	assert.NotEqual(t, nil, err)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.NotEqual(t, nil, err)
}
