// Package httpapi exposes the authentication and conversation services over
// HTTP with JSON bodies and bearer-token authentication.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ragkeeper/internal/service"
)

// Server wires the services into HTTP handlers.
type Server struct {
	auth    service.AuthService
	convs   service.ConversationService
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewServer constructs Server with required dependencies.
func NewServer(auth service.AuthService, convs service.ConversationService, log *zap.Logger, metrics *Metrics) *Server {
	return &Server{
		auth:    auth,
		convs:   convs,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
}

// Routes builds the router. allowedOrigins configures CORS for browser
// clients; an empty slice disables cross-origin access.
func (s *Server) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(Recover(s.log))
	r.Use(Logging(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.Limit(100, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(s.Authenticate, RequireAuth)
				r.Post("/logout", s.handleLogout)
				r.Get("/me", s.handleMe)
			})
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Use(s.Authenticate, RequireAuth)
			r.Post("/", s.handleCreateConversation)
			r.Get("/", s.handleListConversations)
			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", s.handleRenameConversation)
				r.Delete("/", s.handleDeleteConversation)
				r.Get("/messages", s.handleListMessages)
				r.Post("/messages", s.handleAppendMessage)
			})
		})
	})

	return r
}
