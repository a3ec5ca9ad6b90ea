package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/crewchat-hq/crewchat/internal/api/middleware"
	"github.com/crewchat-hq/crewchat/internal/auth"
	"github.com/crewchat-hq/crewchat/internal/chat"
	"github.com/crewchat-hq/crewchat/internal/handlers"
	"github.com/crewchat-hq/crewchat/internal/member"
	"github.com/crewchat-hq/crewchat/internal/store"
	"github.com/crewchat-hq/crewchat/internal/ws"
)

// Deps bundles what the router needs.
type Deps struct {
	Logger    zerolog.Logger
	Store     store.MessageStore
	Redis     *store.RedisStore // optional
	Directory member.Directory
	Router    *chat.Router
	Verifier  *auth.Verifier
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (pass-through when Redis is not configured)
	limiter := middleware.NewRateLimiter(redisClient(d.Redis), d.Logger)
	r.Use(limiter.Middleware)

	// CORS - dashboards connect from their own origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(d.Store, d.Redis, d.Directory)
	authmw := middleware.NewAuthMiddleware(d.Verifier)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	// The connection endpoint validates its token during the handshake
	r.Get("/ws", ws.Handler(d.Router, d.Directory, d.Verifier, d.Logger))

	// Authenticated REST routes
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth)

		r.Get("/projects/{projectID}/messages", h.History)
	})

	return r
}

func redisClient(s *store.RedisStore) *redis.Client {
	if s == nil {
		return nil
	}
	return s.Client()
}
