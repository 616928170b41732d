package http

import (
	"context"
	"net/http"

	"github.com/go-auth-nosql/internal/application/account"
	"github.com/go-auth-nosql/internal/config"
	"github.com/go-auth-nosql/internal/domain"
	jwtinfra "github.com/go-auth-nosql/internal/infrastructure/jwt"
	"github.com/go-auth-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-auth-nosql/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// Deps holds the services and token provider the router serves.
type Deps struct {
	Accounts account.Service
	Tokens   *jwtinfra.Provider
}

// NewRouter builds and returns the application router. ctx bounds background
// work started for the router, such as rate-limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "client"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Tokens)
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(deps.Accounts, cfg.AuthCookieTTL, cfg.AppEnv == "production")

	r.Get("/", healthH.Welcome)
	r.Get("/health", healthH.Health)

	r.Route("/api/auth", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/signup", authH.Signup)
			r.Post("/signin", authH.Signin)
			r.Patch("/send-forgot-password-code", authH.SendForgotPasswordCode)
			r.Patch("/verify-forgot-password-code", authH.VerifyForgotPasswordCode)
		})

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Use(appmiddleware.RequireRole(domain.RoleUser, domain.RoleAdmin))

			r.Post("/signout", authH.Signout)
			r.With(sensitiveRL.Limit).Patch("/send-verification-code", authH.SendVerificationCode)
			r.With(sensitiveRL.Limit).Patch("/verify-verification-code", authH.VerifyVerificationCode)
			r.Patch("/change-password", authH.ChangePassword)
		})
	})

	return r
}
