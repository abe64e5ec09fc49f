package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"village-portal/internal/config"
	"village-portal/internal/database"
	"village-portal/internal/handler"
	"village-portal/internal/metrics"
	"village-portal/internal/middleware"
	"village-portal/internal/model"
	"village-portal/internal/reconcile"
	"village-portal/internal/repository"
	"village-portal/internal/router"
	"village-portal/internal/service"
	"village-portal/internal/storage"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

// Open connects to PostgreSQL and makes sure the schema exists. It backs both
// the server and the maintenance commands.
func Open(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	return db, nil
}

// NewAuthService builds the session manager from cfg.
func NewAuthService(cfg *config.Config, db *database.DB) (*service.AuthService, error) {
	return service.NewAuthService(repository.NewActorRepository(db), service.SessionConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		BcryptCost:    cfg.BcryptCost,
	})
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := storage.New(cfg.UploadRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	budgetPlanRepo := repository.NewBudgetPlanRepository(db)
	legalProductRepo := repository.NewLegalProductRepository(db)
	financeReportRepo := repository.NewFinanceReportRepository(db)
	institutionRepo := repository.NewInstitutionRepository(db)
	demographicRepo := repository.NewDemographicRepository(db)
	pageRepo := repository.NewPageRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	slog.Info("database ready")

	authService, err := NewAuthService(cfg, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}

	auditService := service.NewAuditService(auditRepo)
	budgetPlanService := service.NewBudgetPlanService(budgetPlanRepo, db, store)
	legalProductService := service.NewLegalProductService(legalProductRepo, db, store)
	financeService := service.NewFinanceService(financeReportRepo, budgetPlanRepo, service.FinanceReconcilers{
		Categories:    reconcile.New[model.CategoryFields, model.Category](db, repository.CategoryCollection{}),
		Subcategories: reconcile.New[model.SubcategoryFields, model.Subcategory](db, repository.SubcategoryCollection{}),
		BudgetItems:   reconcile.New[model.BudgetItemFields, model.BudgetItem](db, repository.BudgetItemCollection{}),
	})
	institutionService := service.NewInstitutionService(
		institutionRepo,
		db,
		reconcile.New[model.MemberFields, model.Member](db, repository.MemberCollection{}),
		store,
	)
	demographicService := service.NewDemographicService(demographicRepo)
	pageService := service.NewPageService(pageRepo)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Health: handler.NewHealthHandler(db),
		Auth: handler.NewAuthHandler(authService, auditService, handler.CookieConfig{
			Secure:   cfg.CookieSecure,
			SameSite: cfg.CookieSameSite,
		}),
		BudgetPlan:   handler.NewBudgetPlanHandler(budgetPlanService, auditService, cfg.MaxUploadSize),
		LegalProduct: handler.NewLegalProductHandler(legalProductService, auditService, cfg.MaxUploadSize),
		Finance:      handler.NewFinanceHandler(financeService, auditService),
		Institution:  handler.NewInstitutionHandler(institutionService, auditService, cfg.MaxUploadSize),
		Demographic:  handler.NewDemographicHandler(demographicService, auditService),
		Page:         handler.NewPageHandler(pageService, auditService),
		Audit:        handler.NewAuditHandler(auditService),
		File:         handler.NewFileHandler(store),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			db.Close,
		},
	}, nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			a.cleanup()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.server.Shutdown(shutdownCtx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for _, fn := range a.cleanupFuncs {
		fn()
	}
}
