package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"pocketledger/internal/auth"
	"pocketledger/internal/config"
	"pocketledger/internal/database"
	"pocketledger/internal/demo"
	"pocketledger/internal/handlers"
	"pocketledger/internal/middleware"
	"pocketledger/internal/provider"
	"pocketledger/internal/repository"
	"pocketledger/internal/services"
	"pocketledger/internal/sync"
	"pocketledger/internal/vault"
)

// App holds the application dependencies.
type App struct {
	config             *config.Config
	db                 *database.DB
	router             *chi.Mux
	authMiddleware     *middleware.AuthMiddleware
	authHandler        *handlers.AuthHandler
	linkHandler        *handlers.LinkHandler
	categoryHandler    *handlers.CategoryHandler
	transactionHandler *handlers.TransactionHandler
	goalHandler        *handlers.GoalHandler
	settingsHandler    *handlers.SettingsHandler
	balanceHandler     *handlers.BalanceHandler
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	if cfg.DemoMode {
		if err := demo.NewSeeder(db).SeedIfAbsent(); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	tokenVault, err := vault.New(cfg.EncryptionSecret)
	if err != nil {
		log.Fatalf("Failed to initialize token vault: %v", err)
	}

	providerClient := provider.NewHTTPClient(cfg.ProviderBaseURL, cfg.ProviderClientID, cfg.ProviderSecret)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	goalRepo := repository.NewGoalRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	jobRepo := repository.NewSyncJobRepository(db)

	// Services
	syncService := sync.NewService(db, tokenVault, providerClient,
		itemRepo, accountRepo, transactionRepo, categoryRepo, holdingRepo, jobRepo)
	spendingService := services.NewSpendingService(transactionRepo)

	tokens := auth.NewTokenManager(cfg.JWTSecret).WithDuration(cfg.JWTExpiry)

	app := &App{
		config:             cfg,
		db:                 db,
		authMiddleware:     middleware.NewAuthMiddleware(tokens, userRepo),
		authHandler:        handlers.NewAuthHandler(userRepo, tokens),
		linkHandler:        handlers.NewLinkHandler(providerClient, syncService, accountRepo, holdingRepo, jobRepo),
		categoryHandler:    handlers.NewCategoryHandler(categoryRepo, spendingService),
		transactionHandler: handlers.NewTransactionHandler(transactionRepo, categoryRepo, accountRepo),
		goalHandler:        handlers.NewGoalHandler(goalRepo),
		settingsHandler:    handlers.NewSettingsHandler(settingsRepo),
		balanceHandler:     handlers.NewBalanceHandler(syncService, accountRepo, userRepo),
	}
	app.setupRouter()

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      app.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://%s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func (app *App) setupRouter() {
	r := chi.NewRouter()

	// Chi middleware (aliased as chimw to avoid conflict with our middleware package)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", app.handleHealth)

	// Public auth routes, rate limited against brute force
	r.Group(func(r chi.Router) {
		r.Use(middleware.LimitAuth)
		r.Post("/api/auth/register", app.authHandler.Register)
		r.Post("/api/auth/login", app.authHandler.Login)
	})

	// Authenticated API
	r.Route("/api", func(r chi.Router) {
		r.Use(app.authMiddleware.RequireAuth)
		r.Use(middleware.LimitAPI)

		// Provider linking and sync. Sync endpoints get a stricter limit:
		// every refresh fans out into provider calls.
		r.Route("/link", func(r chi.Router) {
			r.Post("/token", app.linkHandler.CreateLinkToken)
			r.Get("/token/qr", app.linkHandler.LinkTokenQR)
			r.Get("/accounts", app.linkHandler.Accounts)
			r.Get("/investments", app.linkHandler.Investments)
			r.Get("/sync/{jobID}", app.linkHandler.SyncStatus)
			r.Delete("/unlink", app.linkHandler.Unlink)

			r.Group(func(r chi.Router) {
				r.Use(middleware.LimitSync)
				r.Post("/exchange", app.linkHandler.Exchange)
				r.Post("/refresh", app.linkHandler.Refresh)
			})
		})

		// Categories
		r.Get("/categories", app.categoryHandler.List)
		r.Post("/categories", app.categoryHandler.Create)
		r.Get("/categories/spending", app.categoryHandler.Spending)
		r.Put("/categories/{id}", app.categoryHandler.Update)
		r.Delete("/categories/{id}", app.categoryHandler.Delete)

		// Transactions
		r.Get("/transactions", app.transactionHandler.List)
		r.Put("/transactions/{id}/category", app.transactionHandler.Recategorize)

		// Goals
		r.Get("/goals", app.goalHandler.List)
		r.Post("/goals", app.goalHandler.Create)
		r.Put("/goals/{id}", app.goalHandler.Update)
		r.Delete("/goals/{id}", app.goalHandler.Delete)

		// Settings
		r.Get("/settings", app.settingsHandler.Get)
		r.Put("/settings", app.settingsHandler.Update)

		// Balances
		r.Get("/balances", app.balanceHandler.Get)
		r.Put("/balances/cash", app.balanceHandler.UpdateCash)
	})

	app.router = r
}

// handleHealth returns the server health status.
func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}
