// Package api exposes the HTTP surface of the contact service: REST
// endpoints built on huma over chi, plus the presence WebSocket.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rolodexapp/rolodex-server/internal/ratelimit"
	"github.com/rolodexapp/rolodex-server/internal/search"
	"github.com/rolodexapp/rolodex-server/internal/service"
	"github.com/rolodexapp/rolodex-server/internal/store"
	"github.com/rolodexapp/rolodex-server/internal/ws"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Auth    *service.AuthService
	User    *service.UserService
	Contact *service.ContactService
}

// Server is the HTTP server for the contact API.
type Server struct {
	store           *store.Store
	services        *Services
	searchIndex     *search.Index
	hub             *ws.Hub
	router          *chi.Mux
	api             huma.API
	logger          *slog.Logger
	authRateLimiter *ratelimit.KeyedRateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st *store.Store, services *Services, searchIndex *search.Index, hub *ws.Hub, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:           st,
		services:        services,
		searchIndex:     searchIndex,
		hub:             hub,
		router:          router,
		logger:          logger,
		authRateLimiter: newAuthRateLimiter(20, time.Minute, 10),
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Rolodex API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerUserRoutes()
	s.registerContactRoutes()
	s.registerPresenceRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-held resources.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	s.router.Use(s.authRateLimit)
	s.router.Use(authMiddleware(s.services.Auth))
}

// registerPresenceRoutes mounts the WebSocket endpoint for live editing
// presence. It bypasses huma: WebSocket upgrades need the raw connection.
func (s *Server) registerPresenceRoutes() {
	handler := ws.NewHandler(s.hub, s.services.Auth, s.logger)
	s.router.Get("/api/v1/presence/ws", handler.ServeHTTP)
}
