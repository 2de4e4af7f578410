package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	anchorstore "github.com/creerlio2026/creerlio-platform-sub005/internal/anchor"
	anchorservice "github.com/creerlio2026/creerlio-platform-sub005/internal/anchor/service"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	auditworker "github.com/creerlio2026/creerlio-platform-sub005/internal/audit/worker"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/blob"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/chain"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/credential"
	credservice "github.com/creerlio2026/creerlio-platform-sub005/internal/credential/service"
	jwttoken "github.com/creerlio2026/creerlio-platform-sub005/internal/jwt_token"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/config"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/httpserver"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/logger"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/metrics"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/postgres"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/redis"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/ratelimit"
	httptransport "github.com/creerlio2026/creerlio-platform-sub005/internal/transport/http"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/verification"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	blobStore, err := blob.NewFSStore(cfg.Blob.Dir, cfg.PublicBaseURL+"/files", cfg.Blob.SigningSecret)
	if err != nil {
		log.Error("failed to open blob store", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	auditStore := audit.NewPostgres(db)
	publisher := audit.NewPublisher(auditStore, log)

	var worker *auditworker.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		worker, err = auditworker.New(ctx, cfg.Kafka, auditStore, log)
		if err != nil {
			log.Error("failed to start audit worker", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("kafka brokers not configured, audit events stay in the outbox")
	}

	var chainClient chain.Client
	if cfg.Chain.RPCURL != "" {
		ethClient, err := chain.NewEthClient(ctx, cfg.Chain)
		if err != nil {
			log.Error("failed to connect to chain", "error", err)
			os.Exit(1)
		}
		defer ethClient.Close()
		chainClient = ethClient
	} else {
		log.Warn("chain RPC not configured, anchoring disabled")
	}

	credStore := credential.NewPostgres(db)
	issuerStore := credential.NewPostgresIssuerStore(db)
	anchStore := anchorstore.NewPostgres(db)
	logStore := verification.NewPostgresStore(db)

	credOpts := []credservice.Option{
		credservice.WithMetrics(m),
		credservice.WithBaseURL(cfg.PublicBaseURL),
	}
	if chainClient != nil {
		credOpts = append(credOpts, credservice.WithChainClient(chainClient, cfg.Chain.ConfirmTimeout))
	}
	credSvc, err := credservice.New(credStore, anchStore, blobStore, publisher, log, credOpts...)
	if err != nil {
		log.Error("failed to build credential service", "error", err)
		os.Exit(1)
	}

	anchorSvc, err := anchorservice.New(anchStore, credStore, chainClient, publisher, log,
		anchorservice.ChainInfo{
			Name:            cfg.Chain.ChainName,
			Network:         cfg.Chain.Network,
			ContractAddress: cfg.Chain.ContractAddress,
		},
		anchorservice.WithMetrics(m),
		anchorservice.WithConfirmTimeout(cfg.Chain.ConfirmTimeout),
	)
	if err != nil {
		log.Error("failed to build anchor service", "error", err)
		os.Exit(1)
	}

	verifyOpts := []verification.Option{verification.WithMetrics(m)}
	if chainClient != nil {
		verifyOpts = append(verifyOpts, verification.WithChainClient(chainClient))
	}
	verifySvc, err := verification.New(credStore, issuerStore, anchStore, logStore, blobStore, publisher, log, verifyOpts...)
	if err != nil {
		log.Error("failed to build verification service", "error", err)
		os.Exit(1)
	}

	var limiter ratelimit.Limiter
	if redisClient != nil {
		limiter = ratelimit.NewRedisLimiter(redisClient.Client, cfg.VerifyRateLimit, cfg.VerifyRateWindow)
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.VerifyRateLimit, cfg.VerifyRateWindow)
	}

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:      log,
		Validator:   jwtService,
		Limiter:     limiter,
		Metrics:     m,
		Publisher:   publisher,
		Credentials: httptransport.NewCredentialHandler(credSvc, verifySvc, log),
		Anchors:     httptransport.NewAnchorHandler(anchorSvc, log),
		Verify:      httptransport.NewVerifyHandler(verifySvc, log),
		Files:       httptransport.NewFileHandler(blobStore, log),
		Health:      httptransport.NewHealthHandler(db, redisClient),
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting creerlio server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if worker != nil {
		g.Go(func() error {
			return worker.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
