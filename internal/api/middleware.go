package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/fpang/brand-feed/internal/metrics"
)

// OriginVerify rejects requests without the x-origin-verify header CloudFront
// injects, so the API cannot be called around the CDN. An empty secret turns
// the check off.
func OriginVerify(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			if r.Header.Get("x-origin-verify") != secret {
				log.Warn().Str("path", r.URL.Path).Msg("Blocked request: missing or invalid x-origin-verify header")
				httpError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// routePattern returns the matched chi pattern, which keeps metric
// dimensions low-cardinality, e.g. /api/sessions/{id}/scroll.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// EMFMetrics emits one CloudWatch EMF record per request.
func EMFMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sr, r)

		metrics.New(metrics.Namespace).
			Dimension("Endpoint", routePattern(r)).
			Duration("RequestLatencyMs", time.Since(start)).
			Count("RequestCount").
			Property("method", r.Method).
			Property("statusCode", sr.statusCode).
			Flush()
	})
}

// HTTPDuration is the request histogram used by PromMetrics.
var HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "brandfeed",
	Name:      "http_request_duration_seconds",
	Help:      "API request latency by route, method and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route", "method", "status"})

// PromMetrics observes request latency into HTTPDuration.
func PromMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(sr, r)

		HTTPDuration.WithLabelValues(routePattern(r), r.Method, strconv.Itoa(sr.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

// RequestLog logs every API request at info level.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(sr, r)
		if strings.HasPrefix(r.URL.Path, "/api/") {
			log.Info().
				Str("method", r.Method).
				Str("route", routePattern(r)).
				Int("status", sr.statusCode).
				Dur("duration", time.Since(start)).
				Msg("API request")
		}
	})
}

// LocalCORS allows browser clients served from localhost during development.
func LocalCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:")) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
