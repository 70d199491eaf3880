// Command feed-lambda serves the brand feed API behind API Gateway and
// CloudFront.
//
// Feed sessions are held in process memory, so the function must run with
// reserved concurrency 1; a second execution environment would answer 404
// for sessions opened in the first.
package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fpang/brand-feed/internal/api"
	"github.com/fpang/brand-feed/internal/config"
	"github.com/fpang/brand-feed/internal/lambdaboot"
	"github.com/fpang/brand-feed/internal/logging"
	"github.com/fpang/brand-feed/internal/media"
	"github.com/fpang/brand-feed/internal/store"
)

// Initialized at cold start.
var (
	server       *api.Server
	originSecret string
	redisClient  *redis.Client
)

func init() {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()
	clients, err := lambdaboot.InitAWS(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize AWS clients")
	}

	originSecret, err = lambdaboot.LoadOriginSecret(ctx, clients.SSM, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load origin verify secret")
	}
	if originSecret == "" {
		log.Warn().Msg("Origin secret not configured, origin verification disabled")
	}

	var source media.Source
	source, redisClient = lambdaboot.ManifestSource(cfg, clients.S3)
	resolver := media.NewResolver(source, cfg.Media.BaseURL)

	var feedStore store.FeedStore = store.NewMemoryStore(cfg.Catalog)
	if dynamo := lambdaboot.InitDynamo(clients.Config, cfg.Dynamo.Table); dynamo != nil {
		feedStore = dynamo
	}

	server = api.NewServer(feedStore, resolver, api.Options{
		PersistScores:      cfg.Dynamo.PersistScores,
		DoubleTapWindow:    cfg.Playback.DoubleTapWindow,
		ResolveConcurrency: cfg.Media.Concurrency,
		SessionTTL:         cfg.Server.SessionTTL,
	})

	lambdaboot.StartupLog("feed-lambda", initStart).
		CommitHash(commitHash).
		BuildTime(buildTime).
		S3Bucket("manifests", cfg.Media.Bucket).
		DynamoTable("feed", cfg.Dynamo.Table).
		SSMParam("originSecret", cfg.Origin.SSMParam).
		Endpoint("manifests", cfg.ManifestSource()).
		Endpoint("redis", cfg.Redis.Addr).
		Feature("originVerify", originSecret != "").
		Feature("manifestCache", redisClient != nil).
		Feature("persistScores", cfg.Dynamo.PersistScores).
		Config("doubleTapWindow", cfg.Playback.DoubleTapWindow.String()).
		Config("resolveConcurrency", strconv.Itoa(cfg.Media.Concurrency)).
		Config("sessionTTL", cfg.Server.SessionTTL.String()).
		Config("sessionStore", "in-process, requires reserved concurrency 1").
		Log()
}

// reapIdle ends idle sessions before each request; a warm container keeps
// sessions between invocations.
func reapIdle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.Reap(r.Context())
		next.ServeHTTP(w, r)
	})
}

func main() {
	handler := server.Router(api.OriginVerify(originSecret), api.EMFMetrics, reapIdle)

	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
