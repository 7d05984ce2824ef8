package httpx

import (
	"net/http"

	"log/slog"

	"github.com/beachhouses/CuppaChat-KDJK/internal/app"
	"github.com/beachhouses/CuppaChat-KDJK/internal/store"
	"github.com/beachhouses/CuppaChat-KDJK/internal/ws"
	"github.com/beachhouses/CuppaChat-KDJK/pkg/metrics"
)

// NewRouter wires up all HTTP routes, middleware, and handlers
func NewRouter(cfg app.Config, logger *slog.Logger, hub *ws.Hub, uploads *store.Uploads) http.Handler {
	mw := NewMiddleware(cfg, logger)
	uploadAPI := &UploadAPI{Store: uploads, MaxBytes: int64(cfg.MaxUploadMB) << 20}

	mux := http.NewServeMux()

	// Health / readiness / metrics
	mux.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))
	mux.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint: one session per connection
	mux.Handle("/ws/{room}/{username}", http.HandlerFunc(hub.ServeWS))

	// Attachment upload + static serving of uploaded files
	mux.Handle("POST /upload", http.HandlerFunc(uploadAPI.Upload))
	mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploads.Dir()))))

	// Chat page
	mux.Handle("/", http.HandlerFunc(Home))

	return mw.Wrap(mux) // CORS + rate limit + request metrics applied globally
}
