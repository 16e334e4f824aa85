package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/whatease/backend/internal/auth"
	"github.com/whatease/backend/internal/config"
	"github.com/whatease/backend/internal/handler/account"
	"github.com/whatease/backend/internal/handler/message"
	"github.com/whatease/backend/internal/handler/ws"
	"github.com/whatease/backend/internal/middleware"
	chatservice "github.com/whatease/backend/internal/service/chat"
	"github.com/whatease/backend/internal/store"
	"github.com/whatease/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(st store.Store, chatSvc *chatservice.Service, tokens *auth.Manager, rateCfg config.RateLimitConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	limiter := middleware.NewLimiterStore(rateCfg.PerMinute, rateCfg.Burst, time.Minute)

	accountHandler := account.New(st, tokens)
	messageHandler := message.New(chatSvc)
	wsHandler := ws.New(chatSvc, tokens)

	r.Route("/api", func(api chi.Router) {
		accountHandler.RegisterPublicRoutes(api, middleware.RateLimit(limiter))

		api.Group(func(protected chi.Router) {
			protected.Use(tokens.Middleware)
			accountHandler.RegisterProtectedRoutes(protected)
			messageHandler.RegisterRoutes(protected)
		})

		// The websocket route authenticates itself via query token.
		wsHandler.RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})

	return r
}
