// Command feed-web runs the brand feed API as a local HTTP server with a
// Prometheus /metrics endpoint.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/brand-feed/internal/api"
	"github.com/fpang/brand-feed/internal/config"
	"github.com/fpang/brand-feed/internal/lambdaboot"
	"github.com/fpang/brand-feed/internal/logging"
	"github.com/fpang/brand-feed/internal/media"
	"github.com/fpang/brand-feed/internal/metrics"
	"github.com/fpang/brand-feed/internal/store"
)

// CLI flags
var (
	portFlag        int
	manifestURLFlag string
	baseURLFlag     string
	catalogFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "feed-web",
	Short: "Local server for the brand feed API",
	Long: `Feed Web serves the brand feed session API on localhost. Manifests come
from S3 when FEED_MEDIA_BUCKET is set, otherwise from --manifest-url.

Examples:
  feed-web --manifest-url http://localhost:9000/manifests --base-url http://localhost:9000/media
  feed-web --port 9090 --catalog brands.json`,
	RunE: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (default FEED_PORT or 8080)")
	rootCmd.Flags().StringVar(&manifestURLFlag, "manifest-url", "", "Base URL manifests are fetched from")
	rootCmd.Flags().StringVar(&baseURLFlag, "base-url", "", "Base URL media files are served from")
	rootCmd.Flags().StringVar(&catalogFlag, "catalog", "", "JSON file with the brand catalog (array of names); written to the table when FEED_DYNAMO_TABLE is set")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	initStart := time.Now()
	logging.Init()

	// Flags win over the environment.
	if manifestURLFlag != "" {
		os.Setenv(config.Prefix+"_MEDIA_MANIFEST_URL", manifestURLFlag)
	}
	if baseURLFlag != "" {
		os.Setenv(config.Prefix+"_MEDIA_BASE_URL", baseURLFlag)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if catalogFlag != "" {
		if cfg.Catalog, err = readCatalog(catalogFlag); err != nil {
			return err
		}
	}

	ctx := context.Background()
	var clients lambdaboot.AWSClients
	if cfg.Media.Bucket != "" || cfg.Dynamo.Table != "" {
		if clients, err = lambdaboot.InitAWS(ctx); err != nil {
			return err
		}
	}

	var getter media.ObjectGetter
	if clients.S3 != nil {
		getter = clients.S3
	}
	source, rdb := lambdaboot.ManifestSource(cfg, getter)
	if rdb != nil {
		defer rdb.Close()
	}

	var feedStore store.FeedStore = store.NewMemoryStore(cfg.Catalog)
	if cfg.Dynamo.Table != "" {
		feedStore = lambdaboot.InitDynamo(clients.Config, cfg.Dynamo.Table)
		// An explicit catalog file replaces the table's catalog.
		if catalogFlag != "" {
			if err := feedStore.PutCatalog(ctx, cfg.Catalog); err != nil {
				return fmt.Errorf("seed catalog: %w", err)
			}
			log.Info().Int("brands", len(cfg.Catalog)).Str("table", cfg.Dynamo.Table).Msg("Catalog written to DynamoDB")
		}
	}

	server := api.NewServer(feedStore, media.NewResolver(source, cfg.Media.BaseURL), api.Options{
		PersistScores:      cfg.Dynamo.PersistScores,
		DoubleTapWindow:    cfg.Playback.DoubleTapWindow,
		ResolveConcurrency: cfg.Media.Concurrency,
		SessionTTL:         cfg.Server.SessionTTL,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	reg.MustRegister(api.HTTPDuration)
	metrics.MustRegister(reg)

	root := chi.NewRouter()
	root.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	root.Mount("/", server.Router(api.RequestLog, api.PromMetrics))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.LocalCORS(gzhttp.GzipHandler(root)),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	reapCtx, stopReap := context.WithCancel(ctx)
	defer stopReap()
	go reapLoop(reapCtx, server, cfg.Server.SessionTTL)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP shutdown incomplete")
		}
		server.Shutdown(shutdownCtx)
	}()

	lambdaboot.StartupLog("feed-web", initStart).
		S3Bucket("manifests", cfg.Media.Bucket).
		DynamoTable("feed", cfg.Dynamo.Table).
		Endpoint("manifests", cfg.ManifestSource()).
		Endpoint("redis", cfg.Redis.Addr).
		Feature("manifestCache", rdb != nil).
		Feature("persistScores", cfg.Dynamo.PersistScores).
		Config("port", strconv.Itoa(cfg.Port)).
		Config("catalogSize", strconv.Itoa(len(cfg.Catalog))).
		Log()
	fmt.Printf("\n  Brand feed API: http://localhost:%d/api/health\n\n", cfg.Port)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func reapLoop(ctx context.Context, server *api.Server, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			server.Reap(ctx)
		}
	}
}

func readCatalog(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var brands []string
	if err := json.Unmarshal(data, &brands); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return brands, nil
}
