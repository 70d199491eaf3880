package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"info":  zerolog.InfoLevel,
		"":      zerolog.InfoLevel,
		"LOUD":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_Formats(t *testing.T) {
	var jsonOut, consoleOut bytes.Buffer

	l := New("json", &jsonOut, &consoleOut)
	l.Info().Str("brand", "acme").Msg("hello")
	var doc map[string]interface{}
	if err := json.Unmarshal(jsonOut.Bytes(), &doc); err != nil {
		t.Fatalf("json output not JSON: %v (%s)", err, jsonOut.String())
	}
	if doc["brand"] != "acme" || doc["message"] != "hello" {
		t.Errorf("json event = %v", doc)
	}
	if consoleOut.Len() != 0 {
		t.Error("json logger wrote to console writer")
	}

	jsonOut.Reset()
	l = New("console", &jsonOut, &consoleOut)
	l.Info().Msg("hello")
	if jsonOut.Len() != 0 || !strings.Contains(consoleOut.String(), "hello") {
		t.Errorf("console logger wrote json=%q console=%q", jsonOut.String(), consoleOut.String())
	}
}

func TestStartupLogger(t *testing.T) {
	var buf bytes.Buffer
	NewStartupLogger("feed-web").
		CommitHash("abc123").
		S3Bucket("media", "brand-media").
		DynamoTable("feed", "brand-feed").
		Endpoint("redis", "localhost:6379").
		Feature("manifestCache", true).
		Config("mediaBaseURL", "https://cdn").
		InitDuration(25 * time.Millisecond).
		LogTo(zerolog.New(&buf))

	var doc map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("startup event not JSON: %v", err)
	}
	process, _ := doc["process"].(map[string]interface{})
	if process["name"] != "feed-web" || process["commitHash"] != "abc123" {
		t.Errorf("process = %v", process)
	}
	resources, _ := doc["resources"].(map[string]interface{})
	for _, key := range []string{"s3Buckets", "dynamoTables", "endpoints"} {
		if _, ok := resources[key]; !ok {
			t.Errorf("resources missing %s: %v", key, resources)
		}
	}
	if _, ok := resources["ssmParams"]; ok {
		t.Error("empty ssmParams should be omitted")
	}
	features, _ := doc["features"].(map[string]interface{})
	if features["manifestCache"] != true {
		t.Errorf("features = %v", features)
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("FEED_TEST_VALUE", "set")
	if got := EnvOrDefault("FEED_TEST_VALUE", "fallback"); got != "set" {
		t.Errorf("got %q", got)
	}
	if got := EnvOrDefault("FEED_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("got %q", got)
	}
}
