package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mealmate/server/internal/api/handlers"
	"github.com/mealmate/server/internal/api/middleware"
	"github.com/mealmate/server/internal/api/respond"
	"github.com/mealmate/server/internal/config"
	"github.com/mealmate/server/internal/repository"
	"github.com/mealmate/server/internal/service"
)

// NewRouter wires the HTTP routes. limiter throttles the token exchange
// endpoint; the caller owns it and stops it on shutdown.
func NewRouter(services *service.Services, repos *repository.Repositories, limiter *middleware.RateLimiter, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.Logging(slog.Default()))
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigin))

	healthHandler := handlers.NewHealthHandler(repos.Health)
	authHandler := handlers.NewAuthHandler(services.Auth, !cfg.IsDevelopment())
	userHandler := handlers.NewUserHandler(services.Auth)

	r.Get("/health", healthHandler.Check)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth/kakao", func(r chi.Router) {
			r.With(limiter.Middleware).Post("/token_exchange", authHandler.KakaoTokenExchange)
			r.Get("/authorize", authHandler.KakaoAuthorize)
		})

		// Protected routes
		r.Route("/user", func(r chi.Router) {
			r.Use(middleware.Auth(services.Auth))
			r.Get("/me", userHandler.Me)
			r.Post("/logout", userHandler.Logout)
			r.Delete("/delete_account", userHandler.DeleteAccount)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "Not found")
	})

	return r
}
