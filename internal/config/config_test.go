package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	settings, err := Load(GlobalFlags{Retries: -1})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if settings.OutputMode != "json" {
		t.Errorf("output = %q", settings.OutputMode)
	}
	if settings.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", settings.Timeout)
	}
	if settings.Retries != 2 {
		t.Errorf("retries = %d", settings.Retries)
	}
	if settings.MaxStale != 5*time.Minute {
		t.Errorf("max stale = %v", settings.MaxStale)
	}
	if !settings.CacheEnabled {
		t.Error("cache should default on")
	}
	if settings.PortfolioPath != "portfolio.yaml" {
		t.Errorf("portfolio = %q", settings.PortfolioPath)
	}
	if filepath.Base(settings.CachePath) != "cache.db" {
		t.Errorf("cache path = %q", settings.CachePath)
	}
	if filepath.Base(settings.ActionStorePath) != "actions.db" {
		t.Errorf("actions path = %q", settings.ActionStorePath)
	}
}

func TestLoadFileThenEnvThenFlags(t *testing.T) {
	cfgDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfgDir)
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cfgPath := filepath.Join(cfgDir, "rebalance", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		t.Fatal(err)
	}
	fileCfg := `
output: plain
timeout: 45s
retries: 5
portfolio: from-file.yaml
cache:
  max_stale: 1m
prices:
  url: "http://file.example/api"
`
	if err := os.WriteFile(cfgPath, []byte(fileCfg), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("REBALANCE_TIMEOUT", "20s")
	t.Setenv("REBALANCE_PORTFOLIO", "from-env.yaml")
	t.Setenv("REBALANCE_PRICE_API_KEY", "env-key")

	settings, err := Load(GlobalFlags{
		JSON:     true,
		Timeout:  "5s",
		Retries:  -1,
		MaxStale: "",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// File beats defaults, env beats file, flags beat env.
	if settings.OutputMode != "json" {
		t.Errorf("output = %q, flag should win", settings.OutputMode)
	}
	if settings.Timeout != 5*time.Second {
		t.Errorf("timeout = %v, flag should win", settings.Timeout)
	}
	if settings.PortfolioPath != "from-env.yaml" {
		t.Errorf("portfolio = %q, env should beat file", settings.PortfolioPath)
	}
	if settings.Retries != 5 {
		t.Errorf("retries = %d, file should beat default", settings.Retries)
	}
	if settings.MaxStale != time.Minute {
		t.Errorf("max stale = %v", settings.MaxStale)
	}
	if settings.PriceAPIURL != "http://file.example/api" {
		t.Errorf("price url = %q", settings.PriceAPIURL)
	}
	if settings.PriceAPIKey != "env-key" {
		t.Errorf("price key = %q", settings.PriceAPIKey)
	}
}

func TestLoadRejectsConflictingOutputFlags(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if _, err := Load(GlobalFlags{JSON: true, Plain: true, Retries: -1}); err == nil {
		t.Fatal("expected error for --json with --plain")
	}
}

func TestLoadSelectAndAllowlistParsing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	settings, err := Load(GlobalFlags{
		Select:         " needs_rebalancing , reason ,",
		EnableCommands: "plan, allocations",
		NoCache:        true,
		Retries:        -1,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(settings.SelectFields) != 2 || settings.SelectFields[0] != "needs_rebalancing" {
		t.Errorf("select = %v", settings.SelectFields)
	}
	if len(settings.EnableCommands) != 2 || settings.EnableCommands[1] != "allocations" {
		t.Errorf("allowlist = %v", settings.EnableCommands)
	}
	if settings.CacheEnabled {
		t.Error("--no-cache should disable cache")
	}
}
