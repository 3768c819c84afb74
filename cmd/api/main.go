package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/sonkoltuk/sonkoltuk-backend/api/routes"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/audit"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/booking"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/customers"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/ingestion"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/offers"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/payments"
	"github.com/sonkoltuk/sonkoltuk-backend/internal/suppliers"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/config"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/db"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/logger"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/metrics"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/migrate"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/redis"
	"github.com/sonkoltuk/sonkoltuk-backend/pkg/security"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	credentialKey, err := cfg.Security.CredentialKey()
	if err != nil {
		logg.Error(context.Background(), "failed to decode credential key", err)
		os.Exit(1)
	}
	sealer, err := security.NewSealer(credentialKey)
	if err != nil {
		logg.Error(context.Background(), "failed to create credential sealer", err)
		os.Exit(1)
	}

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)

	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	supplierService, err := suppliers.NewService(suppliers.NewRepository(dbClient.DB()), sealer)
	if err != nil {
		logg.Error(context.Background(), "failed to create supplier service", err)
		os.Exit(1)
	}

	offerRepo := offers.NewRepository(dbClient.DB())
	offerService, err := offers.NewService(offerRepo, dbClient, auditService)
	if err != nil {
		logg.Error(context.Background(), "failed to create offer service", err)
		os.Exit(1)
	}

	ingestionService, err := ingestion.NewService(
		offerRepo,
		supplierService,
		auditService,
		engineMetrics,
		cfg.Ingestion.MaxBatchRows,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingestion service", err)
		os.Exit(1)
	}

	bookingService, err := booking.NewService(
		booking.NewRepository(dbClient.DB()),
		customers.NewRepository(dbClient.DB()),
		offerService,
		dbClient,
		auditService,
		engineMetrics,
		cfg.Booking.MaxSeatsPerOrder,
		cfg.Booking.PNRLength,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(
		payments.NewRepository(dbClient.DB()),
		booking.NewRepository(dbClient.DB()),
		supplierService,
		redisClient,
		cfg.Payment.CallbackGuardTTL,
		cfg.Payment.FallbackSecret,
		dbClient,
		auditService,
		engineMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			bookingService,
			paymentsService,
			ingestionService,
			offerService,
			auditService,
		),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop:
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	var closeErr error
	closeErr = multierr.Append(closeErr, redisClient.Close())
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		logg.Error(ctx, "error closing resources", closeErr)
		os.Exit(1)
	}
}
