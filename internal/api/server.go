package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/accesshub/accesshub-server/internal/apperr"
	"github.com/accesshub/accesshub-server/internal/auth"
	"github.com/accesshub/accesshub-server/internal/config"
	"github.com/accesshub/accesshub-server/internal/entitlement"
	"github.com/accesshub/accesshub-server/internal/obs"
	"github.com/accesshub/accesshub-server/internal/storage"
)

// RESTServer represents the REST API server
type RESTServer struct {
	config   *config.Config
	store    storage.Store
	tokens   *auth.TokenService
	resolver *entitlement.Resolver
	audit    entitlement.AuditRecorder
	router   chi.Router
	server   *http.Server
}

// NewRESTServer creates a new REST API server
func NewRESTServer(cfg *config.Config, store storage.Store, audit entitlement.AuditRecorder) *RESTServer {
	s := &RESTServer{
		config:   cfg,
		store:    store,
		tokens:   auth.NewTokenService(&cfg.JWT, store),
		resolver: entitlement.NewResolver(store, audit),
		audit:    audit,
		router:   chi.NewRouter(),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(obs.Instrument)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Handle("/metrics", obs.Handler())

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr

	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// authenticate turns a bearer credential into an identity context.
// The user's active flag is re-read from the directory on every call,
// so deactivation takes effect on the very next request even while
// the access token is still cryptographically valid.
func (s *RESTServer) authenticate(r *http.Request) (auth.Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return auth.Identity{}, apperr.ErrNoToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return auth.Identity{}, apperr.ErrNoToken
	}

	claims, err := s.tokens.ValidateAccess(parts[1])
	if err != nil {
		return auth.Identity{}, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return auth.Identity{}, apperr.ErrInvalidToken
	}

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return auth.Identity{}, apperr.ErrUserInactive
		}
		return auth.Identity{}, err
	}
	if !user.Active {
		return auth.Identity{}, apperr.ErrUserInactive
	}

	return auth.Identity{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		TenantID: user.TenantID,
	}, nil
}

// authMiddleware rejects requests without a valid identity
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.authenticate(r)
		if err != nil {
			s.respondAppError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// optionalAuthMiddleware proceeds without identity context on any
// token problem, for endpoints serving both anonymous and
// authenticated traffic. The failure reason is still logged.
func (s *RESTServer) optionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.authenticate(r)
		if err != nil {
			var appErr *apperr.Error
			if errors.As(err, &appErr) && appErr != apperr.ErrNoToken {
				log.Debug().Str("code", appErr.Code).Msg("Optional auth proceeding unauthenticated")
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// requireAction gates a route group on the policy table
func (s *RESTServer) requireAction(action auth.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				s.respondAppError(w, apperr.ErrNoToken)
				return
			}

			if err := auth.RequireAction(actor, action); err != nil {
				s.respondAppError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
