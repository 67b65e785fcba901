package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/pdfsummarizer/internal/api/handlers"
	"github.com/nikhilbhutani/pdfsummarizer/internal/api/middleware"
	"github.com/nikhilbhutani/pdfsummarizer/internal/auth"
	"github.com/nikhilbhutani/pdfsummarizer/internal/config"
)

// Deps are the services behind the HTTP surface.
type Deps struct {
	Documents handlers.DocumentService
	Summaries handlers.SummaryService
	Issuer    *auth.Issuer
	Checks    map[string]handlers.Check
	Logger    *slog.Logger
}

type Router struct {
	mux  *chi.Mux
	cfg  config.ServerConfig
	deps Deps
}

func NewRouter(cfg config.ServerConfig, deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Router{mux: chi.NewRouter(), cfg: cfg, deps: deps}
}

// Setup mounts middleware and routes. ctx bounds background work such as the
// rate limiter sweep.
func (rt *Router) Setup(ctx context.Context) http.Handler {
	r := rt.mux
	logger := rt.deps.Logger

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.CORSOrigins))

	if rt.cfg.RateLimitRPS > 0 {
		rl := middleware.NewRateLimiter(ctx, float64(rt.cfg.RateLimitRPS), rt.cfg.RateLimitRPS*2)
		r.Use(rl.Limit)
	}

	health := handlers.NewHealthHandler(rt.deps.Checks)
	r.Get("/", health.Root)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	tokenH := handlers.NewTokenHandler(rt.deps.Issuer, logger)
	r.Post("/token", tokenH.Issue)

	docH := handlers.NewDocumentHandler(rt.deps.Documents, rt.cfg.MaxUploadBytes, logger)
	r.Post("/upload", docH.Upload)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", docH.List)
		r.Get("/{id}", docH.Get)

		if rt.deps.Summaries != nil {
			sumH := handlers.NewSummaryHandler(rt.deps.Summaries, logger)
			jwt := auth.NewJWTMiddleware(rt.deps.Issuer)
			r.Group(func(r chi.Router) {
				r.Use(jwt.Authenticate)
				r.Post("/{id}/summarize", sumH.Summarize)
				r.Post("/{id}/ask", sumH.Ask)
			})
		}
	})

	return r
}
