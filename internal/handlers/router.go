package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Varun5711/tinyauth/internal/enrichment"
	"github.com/Varun5711/tinyauth/internal/logger"
	"github.com/Varun5711/tinyauth/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Auth        *AuthHandler
	Middleware  *middleware.AuthMiddleware
	RateLimiter *middleware.RateLimiter
	Activity    *ActivityHandler
	Health      HealthCheck
	Log         *logger.Logger

	// TrustedProxies may set the client address through forwarding headers.
	TrustedProxies enrichment.TrustedProxies
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(middleware.AccessLog(log))
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", healthHandler(cfg.Health))
	NewDocsHandler().RegisterRoutes(r)

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		r.Post("/register", cfg.Auth.Register)
		r.Post("/login", cfg.Auth.Login)
	})

	r.Route("/me", func(r chi.Router) {
		r.Use(cfg.Middleware.RequireAuth)
		r.Get("/", cfg.Auth.GetProfile)
		r.Patch("/", cfg.Auth.UpdateProfile)
		r.Delete("/", cfg.Auth.DeleteAccount)
		r.Post("/password", cfg.Auth.ChangePassword)
		if cfg.Activity != nil {
			r.Get("/activity", cfg.Activity.GetActivity)
		}
	})

	return r
}

func healthHandler(check HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":  "unavailable",
					"message": err.Error(),
				})
				return
			}
		}

		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
