package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FEED_MEDIA_BASE_URL", "https://cdn.example.com")
	t.Setenv("FEED_MEDIA_MANIFEST_URL", "https://manifests.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Media.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.Media.CacheTTL)
	}
	if cfg.Playback.DoubleTapWindow != 300*time.Millisecond {
		t.Errorf("DoubleTapWindow = %v, want 300ms", cfg.Playback.DoubleTapWindow)
	}
	if !cfg.Dynamo.PersistScores {
		t.Error("PersistScores should default to true")
	}
	if cfg.ManifestSource() != "https://manifests.example.com" {
		t.Errorf("ManifestSource = %q", cfg.ManifestSource())
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("FEED_MEDIA_BASE_URL", "https://cdn.example.com")
	t.Setenv("FEED_MEDIA_BUCKET", "brand-media")
	t.Setenv("FEED_PORT", "9090")
	t.Setenv("FEED_PLAYBACK_DOUBLE_TAP_WINDOW", "250ms")
	t.Setenv("FEED_REDIS_ADDR", "localhost:6379")
	t.Setenv("FEED_CATALOG", "nike,adidas,puma")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Catalog) != 3 || cfg.Catalog[1] != "adidas" {
		t.Errorf("Catalog = %v", cfg.Catalog)
	}
	if cfg.Port != 9090 || cfg.Playback.DoubleTapWindow != 250*time.Millisecond || cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ManifestSource() != "s3://brand-media" {
		t.Errorf("ManifestSource = %q", cfg.ManifestSource())
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing base url", func(t *testing.T) {
		t.Setenv("FEED_MEDIA_MANIFEST_URL", "https://manifests.example.com")
		if _, err := Load(); err == nil {
			t.Error("expected error for missing FEED_MEDIA_BASE_URL")
		}
	})

	t.Run("missing manifest location", func(t *testing.T) {
		t.Setenv("FEED_MEDIA_BASE_URL", "https://cdn.example.com")
		_, err := Load()
		if err == nil || !strings.Contains(err.Error(), "FEED_MEDIA_BUCKET") {
			t.Errorf("error = %v, want mention of FEED_MEDIA_BUCKET", err)
		}
	})
}
