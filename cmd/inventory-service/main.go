package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/meditrack/meditrack-backend/internal/inventory/consumers"
	"github.com/meditrack/meditrack-backend/internal/inventory/events"
	"github.com/meditrack/meditrack-backend/internal/inventory/handler"
	"github.com/meditrack/meditrack-backend/internal/inventory/notify"
	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/internal/inventory/service"
	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/meditrack/meditrack-backend/pkg/database"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("inventory-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("inventory-service", cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Connect to Redis for notification dedup. Running without it only means
	// duplicate low-stock alerts, so a failure does not stop the service.
	dedup, err := notify.NewDedup(&cfg.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, low stock alerts will not be deduplicated")
		dedup = nil
	} else {
		defer dedup.Close()
	}

	// Initialize repositories
	medicineRepo := repository.NewMedicineRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	ledgerService := service.NewLedgerService(medicineRepo, batchRepo, archiveRepo, publisher, dedup, &cfg.Inventory, log)
	requestService := service.NewRequestService(requestRepo, ledgerService, publisher, log)

	// Initialize handlers
	medicineHandler := handler.NewMedicineHandler(medicineRepo, log)
	stockHandler := handler.NewStockHandler(ledgerService, log)
	archiveHandler := handler.NewArchiveHandler(ledgerService, log)
	requestHandler := handler.NewRequestHandler(requestService, log)
	dashboardHandler := handler.NewDashboardHandler(ledgerService, log)
	exportHandler := handler.NewExportHandler(ledgerService, log)
	notificationHandler := handler.NewNotificationHandler(notificationRepo, log)

	// Start alert consumer: alert events become notification feed entries
	alertConsumer, err := consumers.NewAlertConsumer(rmq, notificationRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create alert consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := alertConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start alert consumer")
	}

	// Background expiry scan publishes warnings for batches nearing expiry
	expiryScanner := service.NewExpiryScanner(batchRepo, publisher, dedup, cfg.Inventory, log)
	expiryScheduler := service.NewExpiryScheduler(expiryScanner, cfg.Inventory.ScanInterval, log)
	expiryScheduler.Start(ctx)
	defer expiryScheduler.Stop()

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.Auth(&cfg.JWT))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "inventory-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
			"redis":    dedup.Health(r.Context()),
		})
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/medicines", func(r chi.Router) {
			r.Get("/", medicineHandler.List)
			r.Post("/", medicineHandler.Create)
		})

		r.Route("/branches/{branchID}", func(r chi.Router) {
			r.Post("/stock-in", stockHandler.StockIn)
			r.Post("/dispense", stockHandler.Dispense)
			r.Post("/archive", archiveHandler.Archive)

			r.Get("/inventory", stockHandler.Inventory)
			r.Get("/inventory/aggregated", stockHandler.Aggregated)
			r.Get("/inventory/export", exportHandler.Inventory)
			r.Get("/low-stock", stockHandler.LowStock)
			r.Get("/expiring", stockHandler.Expiring)
			r.Get("/movements", stockHandler.Movements)

			r.Route("/archived", func(r chi.Router) {
				r.Get("/", archiveHandler.List)
				r.Get("/export", exportHandler.Archived)
				r.Post("/{id}/restore", archiveHandler.Restore)
				r.Delete("/{id}", archiveHandler.Delete)
			})

			r.Route("/requests", func(r chi.Router) {
				r.Get("/", requestHandler.List)
				r.Post("/", requestHandler.Create)
				r.Post("/{id}/approve", requestHandler.Approve)
				r.Post("/{id}/reject", requestHandler.Reject)
				r.Post("/{id}/fulfill", requestHandler.Fulfill)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Put("/{id}/read", notificationHandler.MarkRead)
				r.Put("/read-all", notificationHandler.MarkAllRead)
			})

			r.Get("/dashboard", dashboardHandler.Stats)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop the consumer
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
