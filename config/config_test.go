package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Address != ":8000" {
		t.Errorf("unexpected default address: %q", cfg.Server.Address)
	}
	if cfg.Server.StreamTimeout != 30*time.Second {
		t.Errorf("unexpected stream timeout: %v", cfg.Server.StreamTimeout)
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("unexpected cache TTL: %v", cfg.Cache.TTL)
	}
	if cfg.Video.SearchMode != "balanced" {
		t.Errorf("unexpected search mode: %q", cfg.Video.SearchMode)
	}
	if cfg.News.DetailedArticles != 3 {
		t.Errorf("unexpected detailed article count: %d", cfg.News.DetailedArticles)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("api key fallback not applied: %q", cfg.LLM.APIKey)
	}
}

func TestLoadConfigRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TICKERBRIEF_LLM_API_KEY", "")

	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error when no API key is configured")
	}
}

func TestVideoConfigValidate(t *testing.T) {
	for _, mode := range []string{"recent", "relevant", "popular", "balanced"} {
		if err := (VideoConfig{SearchMode: mode}).Validate(); err != nil {
			t.Errorf("mode %q should be valid: %v", mode, err)
		}
	}
	if err := (VideoConfig{SearchMode: "trending"}).Validate(); err == nil {
		t.Error("expected error for unknown search mode")
	}
}

func TestWatchlistConfigValidate(t *testing.T) {
	if err := (WatchlistConfig{Enabled: true}).Validate(); err == nil {
		t.Error("enabled watchlist without tickers should fail validation")
	}
	if err := (WatchlistConfig{Enabled: false}).Validate(); err != nil {
		t.Errorf("disabled watchlist should validate: %v", err)
	}
}
