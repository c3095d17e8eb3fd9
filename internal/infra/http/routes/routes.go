// Package routes registers all HTTP routes for the API.
// Routes are organized by domain for maintainability.
package routes

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maegy2011/FMS-sub000/internal/app"
	infrahttp "github.com/maegy2011/FMS-sub000/internal/infra/http"
	"github.com/maegy2011/FMS-sub000/internal/infra/http/handler"
	"github.com/maegy2011/FMS-sub000/internal/infra/http/middleware"
	"github.com/maegy2011/FMS-sub000/pkg/domain/user"
	"github.com/maegy2011/FMS-sub000/pkg/token"
)

// Middleware is an alias to the http package's Middleware type.
type Middleware = infrahttp.Middleware

// Router is an alias to the http package's Router interface.
type Router = infrahttp.Router

// Handlers holds all HTTP handlers for route registration.
type Handlers struct {
	Health        *handler.HealthHandler
	Auth          *handler.AuthHandler
	Recovery      *handler.RecoveryHandler
	Ledger        *handler.LedgerHandler
	SecurityEvent *handler.SecurityEventHandler
}

// Register registers all application routes.
func Register(r Router, h Handlers, tokens *token.Service, events *app.SecurityEventService) {
	// Probes and metrics sit outside authentication. The gate still
	// applies to them.
	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", promhttp.Handler().ServeHTTP)

	// Account recovery and session endpoints. All unauthenticated;
	// the recovery steps carry their own captcha proof instead.
	r.Group("/auth", func(auth Router) {
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.GET("/captcha", h.Recovery.IssueCaptcha)
		auth.POST("/user-questions", h.Recovery.UserQuestions)
		auth.POST("/verify-answers", h.Recovery.VerifyAnswers)
		auth.POST("/reset-password", h.Recovery.ResetPassword)
	})

	authenticated := middleware.Authenticate(tokens, events)

	r.Group("/api/v1", func(api Router) {
		api.Use(authenticated)

		api.Group("/entries", func(entries Router) {
			entries.POST("/", h.Ledger.Create)
			entries.GET("/", h.Ledger.List)
			entries.GET("/{id}", h.Ledger.Get)
			entries.PUT("/{id}", h.Ledger.Update)
			entries.DELETE("/{id}", h.Ledger.Delete)
		})

		api.GET("/security-events", h.SecurityEvent.List,
			middleware.RequireRole(events, user.RoleAdmin.String()))
	})
}
