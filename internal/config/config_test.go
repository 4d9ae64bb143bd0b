package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seoaudit/internal/oracle"
)

const sampleYAML = `crawler:
  max_pages: 50
  max_depth: 2
  ignore_query_params: true
  follow_external_links: false
  delay_ms: 250
  timeout_seconds: 5
  user_agent: "audit-bot/2.0"
oracle:
  enabled: true
  provider: ollama
  model: llama3
  base_url: http://localhost:11434
redis:
  enabled: false
  url: redis://localhost:6379/0
reporting:
  path: ./out
  format: json
logging:
  level: debug
  json_format: true
`

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seoaudit.yaml"), []byte(sampleYAML), 0644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Crawler.MaxPages)
	assert.Equal(t, 2, cfg.Crawler.MaxDepth)
	require.NotNil(t, cfg.Crawler.IgnoreQueryParams)
	assert.True(t, *cfg.Crawler.IgnoreQueryParams)
	assert.Equal(t, "audit-bot/2.0", cfg.Crawler.UserAgent)

	assert.True(t, cfg.Oracle.Enabled)
	assert.Equal(t, oracle.ProviderOllama, cfg.Oracle.Client.Provider)
	assert.Equal(t, "llama3", cfg.Oracle.Client.Model)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "./out", cfg.Reporting.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSONFormat)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}

func TestCrawlerOptionsDefaults(t *testing.T) {
	opts := CrawlerConfig{}.Options()

	assert.Equal(t, 100, opts.MaxPages)
	assert.Equal(t, 3, opts.MaxDepth)
	assert.True(t, opts.IgnoreQueryParams, "an absent key must keep the default, not collapse to false")
	assert.Equal(t, 500*time.Millisecond, opts.DelayBetweenRequests)
	assert.False(t, opts.FollowExternalLinks)
	assert.NotEmpty(t, opts.UserAgent)
}

func TestCrawlerOptionsOverrides(t *testing.T) {
	keepQuery := false
	opts := CrawlerConfig{
		MaxPages:            10,
		MaxDepth:            1,
		IgnoreQueryParams:   &keepQuery,
		FollowExternalLinks: true,
		DelayMs:             50,
		UserAgent:           "custom/1.0",
	}.Options()

	assert.Equal(t, 10, opts.MaxPages)
	assert.Equal(t, 1, opts.MaxDepth)
	assert.False(t, opts.IgnoreQueryParams)
	assert.True(t, opts.FollowExternalLinks)
	assert.Equal(t, 50*time.Millisecond, opts.DelayBetweenRequests)
	assert.Equal(t, "custom/1.0", opts.UserAgent)
}
