package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/crewbase/crewbase/internal/adapter/api"
	"github.com/crewbase/crewbase/internal/adapter/audit"
	"github.com/crewbase/crewbase/internal/adapter/metrics"
	"github.com/crewbase/crewbase/internal/adapter/repository/postgres"
	redisrepo "github.com/crewbase/crewbase/internal/adapter/repository/redis"
	"github.com/crewbase/crewbase/internal/domain"
	"github.com/crewbase/crewbase/internal/pkg/config"
	"github.com/crewbase/crewbase/internal/pkg/logger"
	"github.com/crewbase/crewbase/internal/pkg/quicktoken"
	"github.com/crewbase/crewbase/internal/pkg/token"
	"github.com/crewbase/crewbase/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewIdentityMetrics()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// --- Repositories ---
	tenantRepo := postgres.NewTenantRepository(db, logger)
	operatorRepo := postgres.NewOperatorRepository(db)
	accountRepo := postgres.NewAccountRepository(db)

	var directory domain.TenantDirectory = tenantRepo
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, directory cache disabled", "error", err)
		} else {
			directory = redisrepo.NewDirectoryCache(tenantRepo, redisClient, cfg.DirectoryCacheTTL, logger, m)
		}
	}

	// --- Audit Publisher ---
	var auditPublisher domain.AuditPublisher = audit.NopPublisher{}
	if cfg.KafkaBrokers != "" {
		kafkaPublisher := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic, logger)
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
	}

	// --- Services ---
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	signer := quicktoken.NewSigner(cfg.QuickLoginSecret, cfg.QuickLoginMaxAge)

	authService := usecase.NewAuthService(operatorRepo, accountRepo, auditPublisher, m, logger)
	quickService := usecase.NewQuickLoginService(signer, authService, auditPublisher, m, logger)
	provisionService := usecase.NewProvisionService(tenantRepo, auditPublisher, logger)

	// --- Ops Server (metrics) ---
	opsMux := http.NewServeMux()
	opsMux.Handle("/metrics", promhttp.Handler())
	opsServer := &http.Server{Addr: cfg.OpsAddr, Handler: opsMux}

	go func() {
		logger.Info("starting ops server", "addr", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server failed", "error", err)
		}
	}()

	// --- API Server ---
	router := api.NewRouter(cfg, logger, directory, authService, quickService, provisionService, operatorRepo, accountRepo, issuer, m)
	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown failed", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}
