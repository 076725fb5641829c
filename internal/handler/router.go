package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	reflectionHandler "github.com/medlens/reflection/backend/internal/handler/reflection"
	"github.com/medlens/reflection/backend/internal/handler/stream"
	middlewarePkg "github.com/medlens/reflection/backend/internal/middleware"
	"github.com/medlens/reflection/backend/internal/service/pipeline"
	"github.com/medlens/reflection/backend/pkg/utils"
)

// NewRouter wires HTTP routes to the pipeline service. svc may be nil when
// the responder is not configured; submission endpoints then return 503.
func NewRouter(svc *pipeline.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"message": "Reflection backend API",
			"endpoints": map[string]string{
				"POST /api/reflection":                    "Submit a query for reflection analysis",
				"GET /api/reflection/{sessionID}":         "Get reflection results",
				"GET /api/reflection/{sessionID}/stream":  "Stream progress events (SSE)",
				"GET /api/reflection/{sessionID}/ws":      "Stream progress events (WebSocket)",
				"GET /api/evaluation/{sessionID}":         "Get needs evaluation results",
				"GET /api/prioritization/{sessionID}":     "Get needs prioritization results",
				"GET /api/sessions":                       "List sessions",
				"GET /health":                             "Health check",
			},
		})
	})

	r.Route("/api", func(api chi.Router) {
		if svc == nil {
			api.HandleFunc("/*", func(w http.ResponseWriter, _ *http.Request) {
				utils.RespondError(w, http.StatusServiceUnavailable, "reflection pipeline unavailable")
			})
			return
		}

		reflectionHandler.New(svc).RegisterRoutes(api)
		stream.New(svc).RegisterRoutes(api)
	})

	return r
}
