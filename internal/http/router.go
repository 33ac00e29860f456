package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jwayn/go-auth-api/internal/auth"
	"github.com/jwayn/go-auth-api/internal/config"
	"github.com/jwayn/go-auth-api/internal/httputil"
	"github.com/jwayn/go-auth-api/internal/logging"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(cfg *config.Config, authHandler *auth.Handler, authMiddleware *auth.Middleware, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)

	// Auth routes (public)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/", authHandler.Register)
		r.Get("/", authHandler.Login)
		r.Post("/verify", authHandler.VerifyEmail)
		r.Get("/verify", authHandler.ResendVerification)
		r.Get("/passwordreset", authHandler.ForgotPassword)
		r.Post("/passwordreset", authHandler.ResetPassword)
	})

	// Protected routes (require a valid session)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get("/me", handleMe)
	})

	return r
}

// handleHealth is a simple health check endpoint.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}

// handleMe echoes the session claims of the authenticated caller.
func handleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.GetUserIDFromContext(r.Context())
	email, _ := auth.GetUserEmailFromContext(r.Context())
	verified, _ := auth.GetVerifiedFromContext(r.Context())

	httputil.RespondJSON(w, map[string]any{
		"user_id":  userID.String(),
		"email":    email,
		"verified": verified,
	}, http.StatusOK)
}
