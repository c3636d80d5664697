package gateway

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/lexiqai/transcript-gateway/internal/config"
	"github.com/lexiqai/transcript-gateway/internal/observability"
)

//go:embed static/index.html
var indexPage []byte

// NewRouter wires the page, the browser stream, transcript downloads and
// the operational endpoints
func NewRouter(cfg *config.Config, manager *Manager, logger zerolog.Logger, checks ...observability.DependencyCheck) http.Handler {
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("HTTP request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/", handleIndex)
	r.Get("/streams/browser", manager.HandleBrowserWS())
	r.Get("/sessions/{sessionID}", manager.HandleSessionState())
	r.Get("/sessions/{sessionID}/transcript.txt", manager.HandleTranscriptDownload())

	r.Get("/health", observability.HealthCheckHandler())
	r.Get("/ready", observability.ReadinessHandler(checks...))

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}
