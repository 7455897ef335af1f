package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	require.NoError(t, err)

	require.Equal(t, 100, cfg.Scrape.PageSize)
	require.Equal(t, 500*time.Millisecond, cfg.Scrape.PolitenessDelay)
	require.Equal(t, 4, cfg.Fetch.MaxAttempts)
	require.Equal(t, time.Second, cfg.Fetch.Backoff)
	require.Equal(t, "EGLD", cfg.Scrape.NativeToken)
	require.Len(t, cfg.Jobs, 2)
	require.Equal(t, "collection", cfg.Jobs[0].Name)
	require.Equal(t, []string{"ROTG-fc7c99", "GUARDIAN-3d6635"}, cfg.Jobs[0].Collections)
	require.True(t, cfg.Jobs[0].Enabled)
	require.Equal(t, "*/30 * * * * *", cfg.Jobs[1].Schedule)
	require.False(t, cfg.Jobs[1].Enabled)
	require.Equal(t, "https://nfts-graph.elrond.com", cfg.Marketplaces.ElrondMarket.BaseURL)
}

func TestLoad_ElrondGraphFromEnv(t *testing.T) {
	t.Setenv("NFTM_MARKETPLACES_ELROND_BASE_URL", "https://graph.example.test")
	cfg, err := Load("", true)
	require.NoError(t, err)
	require.Equal(t, "https://graph.example.test", cfg.Marketplaces.ElrondMarket.BaseURL)
	require.Equal(t, "https://nfts-graph.elrond.com", cfg.Marketplaces.Xoxno.BaseURL)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
scrape:
  page_size: 50
jobs:
  - name: guardians
    schedule: "@every 2m"
    collections: ["GUARDIAN-3d6635"]
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	cfg, err := Load(path, false)
	require.NoError(t, err)
	require.Equal(t, 50, cfg.Scrape.PageSize)
	require.Len(t, cfg.Jobs, 1)
	require.Equal(t, "guardians", cfg.Jobs[0].Name)
	require.Equal(t, "https://api.elrond.com", cfg.Chain.BaseURL)
}

func TestValidate_RejectsBadJobs(t *testing.T) {
	base := Config{
		Chain:  ChainConfig{BaseURL: "http://chain"},
		Fetch:  FetchConfig{MaxAttempts: 4},
		Scrape: ScrapeConfig{PageSize: 100},
	}

	cfg := base
	cfg.Jobs = []JobConfig{{Name: "a", Schedule: "@every 1m"}}
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Jobs = []JobConfig{
		{Name: "a", Schedule: "@every 1m", Collections: []string{"X"}},
		{Name: "a", Schedule: "@every 1m", Collections: []string{"Y"}},
	}
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Jobs = []JobConfig{{Name: "a", Schedule: "@every 1m", Collections: []string{"X", "Y", "Z"}}}
	require.Error(t, cfg.Validate())

	cfg = base
	cfg.Jobs = []JobConfig{{Name: "a", Schedule: "@every 1m", Collections: []string{"X", "Y"}}}
	require.NoError(t, cfg.Validate())
}
