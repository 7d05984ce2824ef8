package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/rs/cors"

	"github.com/beachhouses/CuppaChat-KDJK/internal/app"
	"github.com/beachhouses/CuppaChat-KDJK/pkg/metrics"
	"github.com/beachhouses/CuppaChat-KDJK/pkg/ratelimit"
)

type Middleware struct {
	cors   *cors.Cors
	rlimit *ratelimit.Limiter
	log    *slog.Logger
}

// NewMiddleware builds the shared middleware stack from config
func NewMiddleware(cfg app.Config, log *slog.Logger) *Middleware {
	return &Middleware{
		cors: cors.New(cors.Options{
			AllowedOrigins: cfg.CORSAllow,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		}),
		rlimit: ratelimit.New(cfg.RateLimitRPM, time.Minute),
		log:    log,
	}
}

// Wrap applies CORS, rate limiting, and request logging/metrics to a handler
func (m *Middleware) Wrap(h http.Handler) http.Handler {
	return m.cors.Handler(m.rlimit.Middleware(m.observe(h)))
}

// statusWriter captures the response code for logs and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// observe records per-request metrics and a debug log line.
func (m *Middleware) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/ws/") {
			// Upgraded connections report through the hub's own metrics,
			// and the websocket handshake needs the raw ResponseWriter
			// (it must stay an http.Hijacker).
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		path := normalizePath(r.URL.Path)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		m.log.Debug("http.request", "method", r.Method, "path", r.URL.Path, "status", ww.status, "latency", time.Since(start))
	})
}

// normalizePath keeps metric label cardinality bounded.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/uploads/") {
		return "/uploads/:name"
	}
	return path
}
