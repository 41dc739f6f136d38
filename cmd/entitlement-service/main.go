package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dhoini/Entitlement-service/internal/api/rest"
	"github.com/Dhoini/Entitlement-service/internal/api/rest/handlers"
	"github.com/Dhoini/Entitlement-service/internal/config"
	"github.com/Dhoini/Entitlement-service/internal/integration/authz"
	"github.com/Dhoini/Entitlement-service/internal/integration/orchestrator"
	"github.com/Dhoini/Entitlement-service/internal/kafka"
	"github.com/Dhoini/Entitlement-service/internal/kafka/producer"
	"github.com/Dhoini/Entitlement-service/internal/metrics"
	"github.com/Dhoini/Entitlement-service/internal/middleware"
	"github.com/Dhoini/Entitlement-service/internal/repository"
	"github.com/Dhoini/Entitlement-service/internal/repository/postgres"
	"github.com/Dhoini/Entitlement-service/internal/service"
	"github.com/Dhoini/Entitlement-service/pkg/logger"
	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var log *logger.Logger

func init() {
	logLevel := logger.INFO
	if os.Getenv("DEBUG") == "true" {
		logLevel = logger.DEBUG
	}
	log = logger.New(logLevel)
}

func main() {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Prometheus
	promRegistry := prometheus.NewRegistry()
	entitlementMetrics := metrics.NewEntitlementMetrics(promRegistry, log)
	systemMetrics := metrics.NewSystemMetrics(promRegistry, log)

	systemMetrics.StartRecording(15 * time.Second)
	defer systemMetrics.Stop()

	// Storage. Falls back to in-memory stores when no DSN is
	// configured, which keeps local runs free of infrastructure.
	var paymentRepo repository.PaymentRepository
	var entitlementRepo repository.EntitlementRepository
	if cfg.Database.DSN != "" {
		dbPool, err := postgres.NewConnection(ctx, cfg.Database.DSN, log)
		if err != nil {
			log.Fatal("Failed to connect to database: %v", err)
		}
		defer dbPool.Close()
		paymentRepo = postgres.NewPostgresPaymentRepository(dbPool, log)
		entitlementRepo = postgres.NewPostgresEntitlementRepository(dbPool, log)
	} else {
		log.Warn("No database DSN configured, using in-memory stores")
		paymentRepo = repository.NewInMemoryPaymentRepository(log)
		entitlementRepo = repository.NewInMemoryEntitlementRepository(log)
	}

	// Kafka producer. The broker can come up after this service does,
	// so the bootstrap dials retry with exponential backoff before
	// giving up.
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(func() error {
		return kafka.EnsureKafkaTopics(cfg.Kafka.Brokers, log)
	}, bo); err != nil {
		log.Warn("Failed to ensure Kafka topics: %v", err)
	}

	var kafkaProducer sarama.SyncProducer
	bo.Reset()
	err = backoff.Retry(func() error {
		var produceErr error
		kafkaProducer, produceErr = kafka.NewSyncProducer(cfg.Kafka.Brokers, log)
		return produceErr
	}, bo)
	if err != nil {
		log.Fatal("Failed to create Kafka producer: %v", err)
	}
	defer kafkaProducer.Close()

	entitlementProducer := producer.NewKafkaEntitlementProducer(kafkaProducer, log)

	// External claims service, with an optional Redis read cache
	authzClient := authz.NewClient(authz.Config{
		BaseURL: cfg.Authz.BaseURL,
		APIKey:  cfg.Authz.APIKey,
		Timeout: time.Duration(cfg.Authz.TimeoutSeconds) * time.Second,
	}, log)

	var claimsService authz.ClaimsService = authzClient
	if cfg.Redis.Addr != "" {
		snapshotCache, err := authz.NewSnapshotCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Warn("Redis unavailable, claims reads go straight to authz: %v", err)
		} else {
			claimsService = authz.NewCachedClaimsService(authzClient, snapshotCache, log)
		}
	}

	orchestratorClient := orchestrator.NewClient(orchestrator.Config{
		BaseURL: cfg.Orchestrator.BaseURL,
		APIKey:  cfg.Orchestrator.APIKey,
		Timeout: time.Duration(cfg.Orchestrator.TimeoutSeconds) * time.Second,
	}, log)

	// Services
	entitlementService := service.NewEntitlementService(entitlementRepo, paymentRepo, entitlementProducer, entitlementMetrics, log)
	syncService := service.NewClaimsSyncService(claimsService, entitlementProducer, entitlementMetrics, service.SyncConfig{
		AdminRole:        cfg.Auth.AdminRole,
		RequireAdminRole: cfg.Auth.RequireAdminRole,
	}, log)
	verificationService := service.NewVerificationService(paymentRepo, entitlementService, syncService, entitlementProducer, entitlementMetrics, log)
	reconciliationService := service.NewReconciliationService(paymentRepo, entitlementRepo, claimsService, entitlementMetrics, log)

	// HTTP
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	jwtMiddleware := middleware.NewJWTMiddleware(cfg, log, &middleware.DefaultTokenValidator{
		Secret: []byte(cfg.Auth.JWTSecret),
	})

	router := rest.SetupRouter(log, promRegistry, jwtMiddleware, rest.Handlers{
		Payments:       handlers.NewPaymentHandler(verificationService, orchestratorClient, log),
		Entitlements:   handlers.NewEntitlementHandler(entitlementService, log),
		Claims:         handlers.NewClaimsHandler(syncService, log),
		Reconciliation: handlers.NewReconciliationHandler(reconciliationService, log),
	})

	server := rest.NewServer(router, cfg, log)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
