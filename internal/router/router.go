package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"village-portal/internal/config"
	"village-portal/internal/handler"
	"village-portal/internal/metrics"
	"village-portal/internal/middleware"
	"village-portal/internal/model"
)

type Handlers struct {
	Health       *handler.HealthHandler
	Auth         *handler.AuthHandler
	BudgetPlan   *handler.BudgetPlanHandler
	LegalProduct *handler.LegalProductHandler
	Finance      *handler.FinanceHandler
	Institution  *handler.InstitutionHandler
	Demographic  *handler.DemographicHandler
	Page         *handler.PageHandler
	Audit        *handler.AuditHandler
	File         *handler.FileHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(metrics.Instrument)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Health)
	r.Handle("/metrics", metrics.Handler())
	r.With(middleware.StreamingTimeout(10*time.Minute, 30*time.Second)).Get("/uploads/*", h.File.Serve)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", h.Auth.Login)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.Post("/logout", h.Auth.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
			auth.With(
				authMiddleware.RequireAuth,
				authMiddleware.RequireRoles(model.RoleAdministrator, model.RoleSuperAdmin),
				authMiddleware.RequireLiveSession,
			).Post("/register", h.Auth.Register)
		})

		api.Route("/public", func(pub chi.Router) {
			pub.Get("/budget-plans", h.BudgetPlan.List)
			pub.Get("/budget-plans/{id}/report", h.BudgetPlan.Report)
			pub.Get("/legal-products", h.LegalProduct.List)
			pub.Get("/institutions", h.Institution.List)
			pub.Get("/demographics/statistics", h.Demographic.Statistics)
			pub.Get("/pages/{slug}", h.Page.Get)
		})

		api.Group(func(admin chi.Router) {
			admin.Use(
				authMiddleware.RequireAuth,
				authMiddleware.RequireRoles(model.RoleAdministrator, model.RoleSuperAdmin),
				authMiddleware.RequireLiveSession,
			)

			admin.Get("/budget-plans", h.BudgetPlan.List)
			admin.Post("/budget-plans", h.BudgetPlan.Create)
			admin.Get("/budget-plans/{id}", h.BudgetPlan.Get)
			admin.Put("/budget-plans/{id}", h.BudgetPlan.Update)
			admin.Delete("/budget-plans/{id}", h.BudgetPlan.Delete)
			admin.Get("/budget-plans/{id}/finance-reports", h.Finance.ListReports)

			admin.Get("/legal-products", h.LegalProduct.List)
			admin.Post("/legal-products", h.LegalProduct.Create)
			admin.Get("/legal-products/{id}", h.LegalProduct.Get)
			admin.Put("/legal-products/{id}", h.LegalProduct.Update)
			admin.Delete("/legal-products/{id}", h.LegalProduct.Delete)

			admin.Post("/finance-reports", h.Finance.CreateReport)
			admin.Get("/finance-reports/{id}", h.Finance.GetReport)
			admin.Put("/finance-reports/{id}", h.Finance.UpdateReport)
			admin.Delete("/finance-reports/{id}", h.Finance.DeleteReport)
			admin.Get("/finance-reports/{id}/categories", h.Finance.Categories)
			admin.Put("/finance-reports/{id}/categories", h.Finance.ReconcileCategories)
			admin.Get("/categories/{id}/subcategories", h.Finance.Subcategories)
			admin.Put("/categories/{id}/subcategories", h.Finance.ReconcileSubcategories)
			admin.Get("/subcategories/{id}/budget-items", h.Finance.BudgetItems)
			admin.Put("/subcategories/{id}/budget-items", h.Finance.ReconcileBudgetItems)

			admin.Get("/institutions", h.Institution.List)
			admin.Post("/institutions", h.Institution.Create)
			admin.Get("/institutions/{id}", h.Institution.Get)
			admin.Put("/institutions/{id}", h.Institution.Update)
			admin.Delete("/institutions/{id}", h.Institution.Delete)
			admin.Get("/institutions/{id}/members", h.Institution.Members)
			admin.Put("/institutions/{id}/members", h.Institution.ReconcileMembers)

			admin.Get("/demographics", h.Demographic.List)
			admin.Get("/demographics/options", h.Demographic.Options)
			admin.Post("/demographics", h.Demographic.Create)
			admin.Get("/demographics/{id}", h.Demographic.Get)
			admin.Put("/demographics/{id}", h.Demographic.Update)
			admin.Delete("/demographics/{id}", h.Demographic.Delete)

			admin.Put("/pages/{slug}", h.Page.Save)

			admin.With(authMiddleware.RequireRoles(model.RoleSuperAdmin)).Get("/audit", h.Audit.List)
		})
	})

	return r
}
