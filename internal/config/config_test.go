package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "product_urls.jsonl", cfg.Input.JSONLPath)
	require.Equal(t, 1000, cfg.Input.BatchSize)
	require.True(t, cfg.Input.ForceProcess)
	require.Equal(t, 10, cfg.Crawler.Workers)
	require.Equal(t, 4096, cfg.Crawler.MemoryLimitMB)
	require.Equal(t, 12, cfg.HTTP.TimeoutSeconds)
	require.Equal(t, 3, cfg.HTTP.MaxRetries)
	require.Len(t, cfg.HTTP.UserAgents, 3)
	require.True(t, cfg.Hardened.Enabled)
	require.Equal(t, []string{"glamira."}, cfg.Hardened.PreferredHosts)
	require.Equal(t, "product_names", cfg.DB.Table)
	require.Equal(t, 0, cfg.Server.Port)
	require.Equal(t, 10, cfg.Output.DumpMax)

	require.Len(t, cfg.Policies.Selectors, 18)
	require.Equal(t, "h1.page-title span.base", cfg.Policies.Selectors[0])
	require.Equal(t, "title", cfg.Policies.Selectors[len(cfg.Policies.Selectors)-1])
	require.Contains(t, cfg.Policies.BotWallIndicators, "cloudflare")
	require.Contains(t, cfg.Policies.SlugPrefixes, "glamira-")
	require.Equal(t, "de-DE,de;q=0.8,en;q=0.5", cfg.Policies.LocaleByTLD["de"])
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
input:
  jsonl_path: urls.jsonl
  batch_size: 50
  force_process: false
crawler:
  workers: 4
http:
  timeout_seconds: 20
  max_retries: 2
  backoff_base_ms: 500
  jitter_max_ms: 50
hardened:
  enabled: false
server:
  port: 8080
policies:
  brand_tokens: ["acme"]
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "urls.jsonl", cfg.Input.JSONLPath)
	require.Equal(t, 50, cfg.Input.BatchSize)
	require.False(t, cfg.Input.ForceProcess)
	require.Equal(t, 4, cfg.Crawler.Workers)
	require.False(t, cfg.Hardened.Enabled)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, []string{"acme"}, cfg.Policies.BrandTokens)

	require.Equal(t, 20*time.Second, cfg.HTTPTimeout())
	require.Equal(t, 500*time.Millisecond, cfg.BackoffBase())
	require.Equal(t, 50*time.Millisecond, cfg.JitterMax())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base, err := Load("")
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.Input.BatchSize = 0 }},
		{"zero workers", func(c *Config) { c.Crawler.Workers = 0 }},
		{"zero timeout", func(c *Config) { c.HTTP.TimeoutSeconds = 0 }},
		{"zero retries", func(c *Config) { c.HTTP.MaxRetries = 0 }},
		{"no user agents", func(c *Config) { c.HTTP.UserAgents = nil }},
		{"hardened without parallelism", func(c *Config) { c.Hardened.MaxParallel = 0 }},
		{"negative dump cap", func(c *Config) { c.Output.DumpMax = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	require.NoError(t, base.Validate())
}
