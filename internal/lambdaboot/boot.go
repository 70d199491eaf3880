// Package lambdaboot holds the cold-start wiring shared by the feed binaries:
// AWS config, S3 and DynamoDB clients, SSM secrets, the manifest source with
// its optional Redis cache, and the startup log.
package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fpang/brand-feed/internal/config"
	"github.com/fpang/brand-feed/internal/logging"
	"github.com/fpang/brand-feed/internal/media"
	"github.com/fpang/brand-feed/internal/store"
)

// AWSClients holds the AWS SDK config and the clients built from it.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
	S3     *s3.Client
}

// InitAWS loads the default AWS config and builds the common clients.
func InitAWS(ctx context.Context) (AWSClients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return AWSClients{}, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
		S3:     s3.NewFromConfig(cfg),
	}, nil
}

// InitDynamo creates the DynamoDB feed store, or returns nil when no table is
// configured.
func InitDynamo(cfg aws.Config, table string) *store.DynamoStore {
	if table == "" {
		log.Warn().Msg("DynamoDB table not set, using in-memory store")
		return nil
	}
	return store.NewDynamoStore(dynamodb.NewFromConfig(cfg), table)
}

// ParameterGetter is the SSM call used to read secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// LoadOriginSecret returns the CloudFront origin-verify secret: the configured
// value when set, otherwise the decrypted SSM parameter. With neither
// configured it returns "" and origin verification stays off.
func LoadOriginSecret(ctx context.Context, client ParameterGetter, cfg config.Config) (string, error) {
	if cfg.Origin.Secret != "" {
		return cfg.Origin.Secret, nil
	}
	if cfg.Origin.SSMParam == "" || client == nil {
		return "", nil
	}

	start := time.Now()
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(cfg.Origin.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("read origin secret %s: %w", cfg.Origin.SSMParam, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("read origin secret %s: empty parameter", cfg.Origin.SSMParam)
	}
	log.Debug().Str("param", cfg.Origin.SSMParam).Dur("elapsed", time.Since(start)).Msg("Origin secret loaded from SSM")
	return *out.Parameter.Value, nil
}

// ManifestSource builds the manifest source described by cfg: S3 when a
// bucket is configured, HTTP otherwise, wrapped in a Redis read-through cache
// when a Redis address is set. The returned client is nil without Redis; the
// caller closes it on shutdown.
func ManifestSource(cfg config.Config, s3Client media.ObjectGetter) (media.Source, *redis.Client) {
	var src media.Source
	if cfg.Media.Bucket != "" && s3Client != nil {
		src = media.NewS3Source(s3Client, cfg.Media.Bucket)
	} else {
		src = media.NewHTTPSource(cfg.Media.ManifestURL)
	}

	if cfg.Redis.Addr == "" {
		return src, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return media.NewCachedSource(src, rdb, cfg.Media.CacheTTL), rdb
}

// StartupLog starts a startup logger with the init duration filled in.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
