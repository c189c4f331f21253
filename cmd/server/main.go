package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sitedock/be-pm-approvals/internal/auth"
	"github.com/sitedock/be-pm-approvals/internal/client"
	"github.com/sitedock/be-pm-approvals/internal/config"
	"github.com/sitedock/be-pm-approvals/internal/database"
	"github.com/sitedock/be-pm-approvals/internal/handler"
	"github.com/sitedock/be-pm-approvals/internal/logger"
	"github.com/sitedock/be-pm-approvals/internal/middleware"
	"github.com/sitedock/be-pm-approvals/internal/repository"
	"github.com/sitedock/be-pm-approvals/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting PM Approvals Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Optional NATS connection for decision events
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name(cfg.Service.Name))
		if err != nil {
			log.Fatal().Err(err).Str("url", cfg.NATS.URL).Msg("Failed to connect to NATS")
		}
		defer nc.Close()
		log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
	} else {
		log.Warn().Msg("NATS_URL not set; decision events disabled")
	}

	// Initialize repositories
	requestRepo := repository.NewApprovalRequestRepository(db)
	contactRepo := repository.NewContactRepository(db)
	auditRepo := repository.NewApprovalAuditRepository(db)

	// Initialize services
	publisher := client.NewEventPublisher(nc, log.Logger)
	resolver := service.NewApproverResolver(contactRepo)
	approvalService := service.NewApprovalService(requestRepo, contactRepo, resolver, auditRepo, publisher, log)

	// Setup HTTP routes
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	httpHandler := handler.NewHTTPHandler(approvalService, log)
	mux := http.NewServeMux()

	// Health check and metrics, outside the auth boundary
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Approval routes
	api := http.NewServeMux()
	api.HandleFunc("/api/v1/approvals", httpHandler.CreateRequest)
	api.HandleFunc("/api/v1/approvals/get", httpHandler.GetRequest)
	api.HandleFunc("/api/v1/approvals/decide", httpHandler.Decide)
	api.HandleFunc("/api/v1/approvals/resubmit", httpHandler.Resubmit)
	api.HandleFunc("/api/v1/approvals/candidates", httpHandler.Candidates)
	api.HandleFunc("/api/v1/approvals/pending", httpHandler.Pending)
	api.HandleFunc("/api/v1/approvals/history", httpHandler.History)
	mux.Handle("/api/v1/", verifier.Middleware(api))

	// Apply middleware
	var h http.Handler = mux
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.RequestID(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(cfg.Server.WriteTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
