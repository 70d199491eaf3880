// Package config loads feed settings from FEED_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment prefix for every setting.
const Prefix = "FEED"

// Config holds the runtime settings shared by the Lambda and the local server.
// Grouped settings are read as FEED_<GROUP>_<NAME>, e.g. FEED_MEDIA_BUCKET.
type Config struct {
	Port int `envconfig:"PORT" default:"8080"`

	// Catalog seeds the in-memory store when no DynamoDB table is set.
	Catalog []string `envconfig:"CATALOG"`

	Media struct {
		// Bucket holds manifests in S3. When empty, manifests are fetched from
		// ManifestURL over HTTP.
		Bucket      string        `envconfig:"BUCKET"`
		ManifestURL string        `envconfig:"MANIFEST_URL"`
		BaseURL     string        `envconfig:"BASE_URL" required:"true"`
		CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"5m"`
		Concurrency int           `envconfig:"RESOLVE_CONCURRENCY" default:"8"`
	} `envconfig:""`

	Redis struct {
		Addr     string `envconfig:"ADDR"`
		Password string `envconfig:"PASSWORD"`
		DB       int    `envconfig:"DB" default:"0"`
	} `envconfig:""`

	Dynamo struct {
		Table         string `envconfig:"TABLE"`
		PersistScores bool   `envconfig:"PERSIST_SCORES" default:"true"`
	} `envconfig:""`

	Origin struct {
		Secret   string `envconfig:"SECRET"`
		SSMParam string `envconfig:"SECRET_PARAM"`
	} `envconfig:""`

	Playback struct {
		DoubleTapWindow time.Duration `envconfig:"DOUBLE_TAP_WINDOW" default:"300ms"`
	} `envconfig:""`

	Server struct {
		ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
		ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
		WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
		SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	} `envconfig:""`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Media.Bucket == "" && cfg.Media.ManifestURL == "" {
		return Config{}, fmt.Errorf("failed to load config: one of %s_MEDIA_BUCKET or %s_MEDIA_MANIFEST_URL is required", Prefix, Prefix)
	}
	return cfg, nil
}

// ManifestSource names where manifests come from, for startup logs.
func (c Config) ManifestSource() string {
	if c.Media.Bucket != "" {
		return "s3://" + c.Media.Bucket
	}
	return c.Media.ManifestURL
}
