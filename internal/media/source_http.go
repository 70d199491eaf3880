package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// defaultHTTPTimeout bounds a single manifest request.
	defaultHTTPTimeout = 15 * time.Second

	// maxManifestBytes caps how much of a manifest response is read.
	maxManifestBytes = 1 << 20
)

// HTTPSource fetches objects over HTTP from a public storage endpoint
// (CDN or bucket website), e.g. https://cdn.example.com/media.
type HTTPSource struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPSource creates an HTTPSource rooted at baseURL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Fetch GETs {baseURL}/{key}. A 404 maps to ErrNotFound; any other non-2xx
// status is an error.
func (s *HTTPSource) Fetch(ctx context.Context, key string) ([]byte, error) {
	url := s.baseURL + "/" + strings.TrimLeft(key, "/")
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", key, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("key", key).
		Int("statusCode", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Manifest fetched")

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("GET %s: %w", key, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: unexpected status %d", key, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return body, nil
}
