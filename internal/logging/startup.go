package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// StartupLogger collects process identity, resources and feature flags and
// emits them as one structured event, so a cold start can be understood from
// a single log line.
type StartupLogger struct {
	name         string
	commitHash   string
	buildTime    string
	initDuration time.Duration

	s3Buckets    map[string]string
	dynamoTables map[string]string
	ssmParams    map[string]string
	endpoints    map[string]string
	features     map[string]bool
	config       map[string]string
}

// NewStartupLogger creates a StartupLogger for the named binary
// (e.g. "feed-lambda", "feed-web").
func NewStartupLogger(name string) *StartupLogger {
	return &StartupLogger{
		name:         name,
		s3Buckets:    make(map[string]string),
		dynamoTables: make(map[string]string),
		ssmParams:    make(map[string]string),
		endpoints:    make(map[string]string),
		features:     make(map[string]bool),
		config:       make(map[string]string),
	}
}

// CommitHash sets the git commit hash baked in at build time.
func (s *StartupLogger) CommitHash(hash string) *StartupLogger {
	s.commitHash = hash
	return s
}

// BuildTime sets the UTC build timestamp baked in at build time.
func (s *StartupLogger) BuildTime(t string) *StartupLogger {
	s.buildTime = t
	return s
}

func (s *StartupLogger) S3Bucket(label, name string) *StartupLogger {
	s.s3Buckets[label] = name
	return s
}

func (s *StartupLogger) DynamoTable(label, name string) *StartupLogger {
	s.dynamoTables[label] = name
	return s
}

// SSMParam registers an SSM parameter path. Only the path is logged, never
// the value.
func (s *StartupLogger) SSMParam(label, path string) *StartupLogger {
	s.ssmParams[label] = path
	return s
}

// Endpoint registers a network dependency such as the manifest origin or the
// Redis cache.
func (s *StartupLogger) Endpoint(label, addr string) *StartupLogger {
	s.endpoints[label] = addr
	return s
}

// Feature registers a boolean feature flag (e.g. "manifestCache", "originVerify").
func (s *StartupLogger) Feature(name string, enabled bool) *StartupLogger {
	s.features[name] = enabled
	return s
}

// Config registers a non-sensitive configuration key-value pair.
func (s *StartupLogger) Config(key, value string) *StartupLogger {
	s.config[key] = value
	return s
}

func (s *StartupLogger) InitDuration(d time.Duration) *StartupLogger {
	s.initDuration = d
	return s
}

// EnvOrDefault returns the named environment variable, or defaultVal when it
// is empty or unset.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// Log emits a single structured INFO event with everything collected.
func (s *StartupLogger) Log() {
	s.emit(log.Info())
}

// LogTo emits the startup event on l instead of the global logger.
func (s *StartupLogger) LogTo(l zerolog.Logger) {
	s.emit(l.Info())
}

func (s *StartupLogger) emit(evt *zerolog.Event) {
	identity := zerolog.Dict().
		Str("name", s.name).
		Str("functionName", os.Getenv("AWS_LAMBDA_FUNCTION_NAME")).
		Str("region", os.Getenv("AWS_REGION")).
		Str("goVersion", runtime.Version()).
		Str("arch", runtime.GOARCH).
		Str("logLevel", EnvOrDefault("FEED_LOG_LEVEL", "info"))
	if s.commitHash != "" {
		identity = identity.Str("commitHash", s.commitHash)
	}
	if s.buildTime != "" {
		identity = identity.Str("buildTime", s.buildTime)
	}
	evt = evt.Dict("process", identity)

	resources := zerolog.Dict()
	hasResources := false
	for label, m := range map[string]map[string]string{
		"s3Buckets":    s.s3Buckets,
		"dynamoTables": s.dynamoTables,
		"ssmParams":    s.ssmParams,
		"endpoints":    s.endpoints,
	} {
		if len(m) > 0 {
			resources = resources.Dict(label, dictFromMap(m))
			hasResources = true
		}
	}
	if hasResources {
		evt = evt.Dict("resources", resources)
	}

	if len(s.features) > 0 {
		d := zerolog.Dict()
		for k, v := range s.features {
			d = d.Bool(k, v)
		}
		evt = evt.Dict("features", d)
	}
	if len(s.config) > 0 {
		evt = evt.Dict("config", dictFromMap(s.config))
	}
	if s.initDuration > 0 {
		evt = evt.Dur("initDuration", s.initDuration)
	}

	evt.Msg("Startup complete")
}

func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
