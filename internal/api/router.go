package api

import (
	"net/http"
	"time"

	"github.com/Rrens/chat-archive/internal/api/handler"
	customMiddleware "github.com/Rrens/chat-archive/internal/api/middleware"
	"github.com/Rrens/chat-archive/internal/config"
	"github.com/Rrens/chat-archive/internal/mailer"
	"github.com/Rrens/chat-archive/internal/repository"
	"github.com/Rrens/chat-archive/internal/repository/redis"
	"github.com/Rrens/chat-archive/internal/security"
	"github.com/Rrens/chat-archive/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, store *repository.Store, redisClient *redis.Client, m mailer.Mailer) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.Security.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Security.RequestTimeout))
	}

	origins := cfg.Security.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize security components
	jwtManager := security.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
		cfg.Auth.ConfirmTokenTTL,
	)
	revocations := redis.NewRevocationStore(redisClient)
	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)

	policy := security.DefaultPasswordPolicy()
	if cfg.Auth.PasswordMinLength > 0 {
		policy.MinLength = cfg.Auth.PasswordMinLength
	}

	// Initialize services
	authService := service.NewAuthService(
		store.Users,
		store.Profiles,
		jwtManager,
		m,
		revocations,
		service.AuthOptions{
			RequireEmailConfirmation: cfg.Auth.RequireEmailConfirmation,
			PublicURL:                cfg.Server.PublicURL,
			UserCacheTTL:             cfg.Auth.UserCacheTTL,
			PasswordPolicy:           policy,
		},
		log.With().Str("component", "auth").Logger(),
	)
	oauthService := service.NewOAuthService(cfg.Auth.OAuth)
	log.Info().Strs("providers", oauthService.Providers()).Msg("OAuth providers registered")

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, oauthService)
	profileHandler := handler.NewProfileHandler(service.NewProfileService(store.Profiles))
	serviceHandler := handler.NewServiceHandler(service.NewServiceConnectionService(store.Services))
	chatHandler := handler.NewChatHandler(service.NewChatService(store.Chats))

	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager, authService)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	ready := map[string]handler.Pinger{"storage": store, "redis": redisClient}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(ready))

		// Public and optionally authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.OptionalAuth)
			r.Use(rateLimitMiddleware.Limit)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/signup", authHandler.SignUp)
				r.Post("/token", authHandler.Token)
				r.Post("/refresh", authHandler.Refresh)
				r.Post("/oauth", authHandler.OAuth)
				r.Get("/session", authHandler.Session)
				r.Get("/confirm", authHandler.Confirm)
				r.With(authMiddleware.Authenticate).Post("/logout", authHandler.Logout)
			})

			r.Get("/tables/{table}/count", handler.CountRows(store.Counter))
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Get("/profile", profileHandler.Get)
			r.Put("/profile", profileHandler.Update)

			r.Route("/services", func(r chi.Router) {
				r.Get("/", serviceHandler.List)
				r.Put("/{name}", serviceHandler.Update)
			})

			r.Route("/chats", func(r chi.Router) {
				r.Get("/", chatHandler.List)
				r.Post("/", chatHandler.Create)
				r.Get("/folders", chatHandler.Folders)
			})
		})
	})

	return r
}

// NewServer wraps the router with the configured timeouts
func NewServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           h,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
