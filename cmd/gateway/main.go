package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kelseyhightower/envconfig"

	"ipsgateway/internal/banking"
	bankingapi "ipsgateway/internal/banking/api"
	"ipsgateway/internal/common/database"
	"ipsgateway/internal/common/middleware"
	natsconn "ipsgateway/internal/common/nats"
	"ipsgateway/internal/consent"
	"ipsgateway/internal/directory"
	"ipsgateway/internal/routing"
	"ipsgateway/migrations"
)

// Config holds service configuration
type Config struct {
	Port        int    `envconfig:"GATEWAY_PORT" default:"8086"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	// EventsEnabled controls NATS event publishing; the gateway runs
	// fine without a broker.
	EventsEnabled  bool          `envconfig:"EVENTS_ENABLED" default:"false"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	Database  database.Config
	NATS      natsconn.Config
	Directory directory.Config
	Consent   consent.Config
	Routing   routing.Config
}

func main() {
	// Load configuration
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to process config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)

	// Create context that listens for shutdown signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Apply schema migrations
	if err := database.Migrate(cfg.Database, migrations.FS, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := database.New(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Optional NATS publisher
	var publisher routing.Publisher
	var dirPublisher directory.Publisher
	var natsClient *natsconn.Client
	if cfg.EventsEnabled {
		natsClient, err = natsconn.New(ctx, cfg.NATS, logger)
		if err != nil {
			logger.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()

		if _, err := natsClient.EnsureStream(ctx, "IPS_EVENTS", []string{"events.ips.>"}); err != nil {
			logger.Error("failed to ensure event stream", "error", err)
			os.Exit(1)
		}
		p := natsconn.NewPublisher(natsClient, logger)
		publisher = p
		dirPublisher = p
	}

	// Participant directory, seeded on first boot and refreshed in the
	// background
	dir := directory.New(cfg.Directory, directory.NewPostgresStore(db), dirPublisher, logger)
	if err := dir.Seed(ctx); err != nil {
		logger.Warn("participant register seeding failed", "error", err)
	}
	if err := dir.Refresh(ctx); err != nil {
		logger.Warn("initial participant refresh failed, serving configured defaults", "error", err)
	}
	go dir.Run(ctx, cfg.Directory.RefreshEvery)

	// Consent service client
	var tokenValidator consent.Validator = consent.NewClient(cfg.Consent, logger)

	// Routing engine and banking facade
	engine := routing.NewEngine(cfg.Routing,
		dir, routing.NewPostgresStore(db), publisher, logger)
	bankingService := banking.NewService(banking.NewPostgresStore(db), engine, logger)

	// Handlers
	handler := bankingapi.NewHandler(bankingService, engine, dir, tokenValidator, logger)
	idempotencyStore := middleware.NewPostgresIdempotencyStore(db)

	// Setup router
	r := chi.NewRouter()

	// Middleware. Compress wraps Idempotency so replays are cached and
	// served uncompressed, then compressed per request.
	r.Use(chimw.RequestID)
	r.Use(middleware.CorrelationID)
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Compress(5))
	r.Use(middleware.Idempotency(idempotencyStore, cfg.IdempotencyTTL, logger))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Ready check
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	// API routes
	r.Mount("/bon/v1/banking", handler.Routes())
	r.Mount("/ips", handler.IPSRoutes())

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting payment gateway",
			"port", cfg.Port,
			"environment", cfg.Environment,
			"events_enabled", cfg.EventsEnabled,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	// Wait for shutdown
	<-ctx.Done()

	// Graceful shutdown
	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
