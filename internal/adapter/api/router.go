package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/crewbase/crewbase/internal/adapter/api/handler"
	"github.com/crewbase/crewbase/internal/adapter/api/middleware"
	"github.com/crewbase/crewbase/internal/adapter/metrics"
	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/config"
	"github.com/crewbase/crewbase/internal/pkg/token"
	"github.com/crewbase/crewbase/internal/usecase"
)

// NewRouter creates and configures the main HTTP router. Every route runs
// behind the resolver and the access gate, in that order, so no business
// logic ever executes against an unresolved or disallowed partition.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	directory domain.TenantDirectory,
	authService *usecase.AuthService,
	quickService *usecase.QuickLoginService,
	provisionService *usecase.ProvisionService,
	operators domain.OperatorRepository,
	accounts domain.AccountRepository,
	issuer *token.Issuer,
	m *metrics.IdentityMetrics,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logging(logger))
	r.Use(middleware.ResolveTenant(directory, cfg.PlatformHostList(), logger))
	r.Use(middleware.AccessGate(m, logger))

	authHandler := handler.NewAuthHandler(authService, quickService, issuer, logger)
	adminHandler := handler.NewAdminHandler(provisionService, operators, accounts, logger)

	bearer := middleware.BearerAuth(issuer, authService, logger)
	loginLimit := middleware.LoginRateLimit(cfg.LoginRatePerMinute, cfg.LoginBurst, logger)

	r.Get("/healthz", adminHandler.HealthCheck)

	r.Route("/auth", func(r chi.Router) {
		r.With(loginLimit).Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.With(loginLimit).Get("/quick/{token}", authHandler.QuickRedeem)
		r.With(bearer).Post("/quick/issue", authHandler.QuickIssue)
	})

	r.With(bearer).Get("/me", authHandler.Me)

	r.Route("/admin", func(r chi.Router) {
		r.Use(bearer)

		r.Route("/platform", func(r chi.Router) {
			r.Use(middleware.PlatformOnly)
			r.Get("/tenants", adminHandler.ListTenants)
			r.Post("/tenants", adminHandler.ProvisionTenant)
			r.Post("/tenants/{slug}/suspend", adminHandler.SuspendTenant)
			r.Post("/tenants/{slug}/reactivate", adminHandler.ReactivateTenant)
			r.Post("/tenants/{slug}/renew", adminHandler.RenewTenant)
			r.Post("/tenants/{slug}/drop", adminHandler.DropTenant)
			r.Get("/operators", adminHandler.ListOperators)
		})

		r.Route("/tenant", func(r chi.Router) {
			r.Use(middleware.TenantAdmin)
			r.Get("/accounts", adminHandler.ListAccounts)
			r.Post("/accounts", adminHandler.CreateAccount)
			r.Post("/accounts/{id}/password", adminHandler.ResetAccountPassword)
		})
	})

	return r
}
