package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"campaign-automator-api/internal/api/common"
	"campaign-automator-api/internal/api/execution"
	"campaign-automator-api/internal/api/health"
	"campaign-automator-api/internal/api/run"
	"campaign-automator-api/internal/config"
	"campaign-automator-api/internal/metrics"
	"campaign-automator-api/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Server struct {
	Router  *chi.Mux
	store   store.Storer
	runner  run.BatchRunner
	db      health.Pinger
	metrics *metrics.Metrics
	cfg     *config.Config
	Logger  *zap.Logger
}

// NewServer wires the routes. db and m may be nil.
func NewServer(s store.Storer, runner run.BatchRunner, db health.Pinger, m *metrics.Metrics, cfg *config.Config, log *zap.Logger) *Server {
	server := &Server{
		Router:  chi.NewRouter(),
		store:   s,
		runner:  runner,
		db:      db,
		metrics: m,
		cfg:     cfg,
		Logger:  log,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.Router.Use(middleware.RequestID)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(s.metrics.HTTPMiddleware)
	// Het run endpoint wordt door schedulers en browsers aangeroepen: alle origins, geen cookies.
	s.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "apikey", "x-client-info"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	if s.cfg.Metrics.Enabled && s.metrics != nil {
		s.Router.Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.Router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", health.HandleHealth(s.db, s.Logger))
		r.Options("/automation/run", run.HandlePreflight())

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/automation/run", run.HandleRunAutomation(s.runner, s.store, s.Logger))
			r.Get("/rules/{ruleId}/executions", execution.HandleGetRuleExecutions(s.store, s.Logger))
		})
	})
}

// authMiddleware valideert JWT en zet user ID en rol in context.
// Een service_role token heeft geen user ID nodig.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			common.WriteJSONError(w, http.StatusUnauthorized, "Geen authenticatie header", s.Logger)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		jwtKey := []byte(s.cfg.JWTSecret)

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("ongeldige signing method")
			}
			return jwtKey, nil
		})

		if err != nil || !token.Valid {
			common.WriteJSONError(w, http.StatusUnauthorized, "Ongeldige token", s.Logger)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			common.WriteJSONError(w, http.StatusUnauthorized, "Ongeldige claims", s.Logger)
			return
		}

		ctx := r.Context()
		role, _ := claims["role"].(string)
		if role != "" {
			ctx = context.WithValue(ctx, common.RoleContextKey, role)
		}

		userIDStr, ok := claims["user_id"].(string)
		if !ok {
			userIDStr, ok = claims["sub"].(string)
		}
		if !ok {
			if role == common.ServiceRole {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			common.WriteJSONError(w, http.StatusUnauthorized, "Geen user ID in token", s.Logger)
			return
		}

		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, "Ongeldig user ID", s.Logger)
			return
		}

		ctx = context.WithValue(ctx, common.UserContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
