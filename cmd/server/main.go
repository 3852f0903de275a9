package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	citizenHandler "civitas/internal/citizen/handler"
	citizenService "civitas/internal/citizen/service"
	citizenStore "civitas/internal/citizen/store"
	"civitas/internal/citizen/token"
	electionCache "civitas/internal/election/cache"
	electionHandler "civitas/internal/election/handler"
	electionMetrics "civitas/internal/election/metrics"
	electionService "civitas/internal/election/service"
	electionStore "civitas/internal/election/store"
	"civitas/internal/platform/config"
	"civitas/internal/platform/httpserver"
	"civitas/internal/platform/logger"
	"civitas/internal/platform/metrics"
	"civitas/internal/platform/middleware"
	"civitas/internal/platform/postgres"
	"civitas/internal/platform/redis"
	reportHandler "civitas/internal/report/handler"
	reportMetrics "civitas/internal/report/metrics"
	reportService "civitas/internal/report/service"
	reportStore "civitas/internal/report/store"
	reputationHandler "civitas/internal/reputation/handler"
	reputationMetrics "civitas/internal/reputation/metrics"
	reputationService "civitas/internal/reputation/service"
	reputationStore "civitas/internal/reputation/store"
	"civitas/pkg/platform/audit"
	"civitas/pkg/platform/audit/publisher"
	txctx "civitas/pkg/platform/tx"
)

// main wires stores, services and transports together and owns the server
// lifecycle. Business logic lives in the internal feature packages.
func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	log := logger.New()

	// Storage. Without a Postgres DSN the server runs on in-memory stores,
	// which is enough for local development and smoke testing.
	var (
		citizens  citizenStore.Store
		officials interface {
			reputationStore.OfficialStore
			reputationStore.RatingStore
		}
		elections electionStore.Store
		reports   reportStore.Store
		runner    interface {
			RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
		}
	)
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			log.Error("failed to connect to postgres", "error", err.Error())
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("failed to run migrations", "error", err.Error())
			return err
		}
		citizens = citizenStore.NewPostgres(db)
		officials = reputationStore.NewPostgres(db)
		elections = electionStore.NewPostgres(db)
		reports = reportStore.NewPostgres(db)
		runner = postgres.NewTxRunner(db, log, cfg.Postgres.TxMaxRetries)
		log.Info("using postgres storage")
	} else {
		citizens = citizenStore.NewMemory()
		officials = reputationStore.NewMemory()
		elections = electionStore.NewMemory()
		reports = reportStore.NewMemory()
		runner = txctx.NewMemoryRunner()
		log.Warn("no postgres DSN configured, using in-memory storage")
	}

	// Election results cache. Optional; a nil cache disables caching.
	var resultsCache electionCache.ResultsCache
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		resultsCache = electionCache.NewRedis(redisClient.Client, cfg.Redis.ResultsTTL)
		log.Info("election results cache enabled")
	}

	// Audit trail. Falls back to the in-process sink when Kafka is not
	// configured so services never need a nil check.
	var auditPublisher interface {
		Emit(ctx context.Context, event audit.Event) error
	}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := publisher.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err.Error())
			return err
		}
		defer kafka.Close()
		auditPublisher = kafka
		log.Info("audit events published to kafka", "topic", cfg.Kafka.AuditTopic)
	} else {
		auditPublisher = publisher.NewMemory()
		log.Warn("no kafka brokers configured, audit events stay in-process")
	}

	tokens := token.NewService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	validator := &tokenValidator{tokens: tokens}

	citizenSvc, err := citizenService.New(citizens, tokens,
		citizenService.WithLogger(log),
		citizenService.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return err
	}

	reputationSvc, err := reputationService.New(officials, officials, citizens, runner,
		reputationService.WithLogger(log),
		reputationService.WithAuditPublisher(auditPublisher),
		reputationService.WithMetrics(reputationMetrics.New()),
		reputationService.WithReportCounter(reports),
	)
	if err != nil {
		return err
	}

	electionOpts := []electionService.Option{
		electionService.WithLogger(log),
		electionService.WithAuditPublisher(auditPublisher),
		electionService.WithMetrics(electionMetrics.New()),
	}
	if resultsCache != nil {
		electionOpts = append(electionOpts, electionService.WithResultsCache(resultsCache))
	}
	electionSvc, err := electionService.New(elections, runner, citizens, electionOpts...)
	if err != nil {
		return err
	}

	reportSvc, err := reportService.New(reports, runner, citizens, officials,
		reportService.WithLogger(log),
		reportService.WithAuditPublisher(auditPublisher),
		reportService.WithMetrics(reportMetrics.New()),
	)
	if err != nil {
		return err
	}

	httpMetrics := metrics.New()

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(httpMetrics))

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	citizenHandler.New(citizenSvc, log, validator).Register(router)
	reputationHandler.New(reputationSvc, log, validator).Register(router)
	electionHandler.New(electionSvc, log, validator).Register(router)
	reportHandler.New(reportSvc, log, validator).Register(router)

	apiServer := httpserver.New(cfg.Server.Addr, router)

	metricsRouter := chi.NewRouter()
	metricsRouter.Handle("/metrics", metrics.Handler())
	metricsServer := httpserver.New(cfg.Server.MetricsAddr, metricsRouter)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting api server", "addr", cfg.Server.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Info("starting metrics server", "addr", cfg.Server.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Error("api server shutdown failed", "error", err.Error())
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown failed", "error", err.Error())
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// tokenValidator adapts the citizen token service to the middleware's
// validator interface.
type tokenValidator struct {
	tokens *token.Service
}

func (v *tokenValidator) ValidateAccessToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := v.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{
		CitizenID:         claims.CitizenID,
		VerificationLevel: claims.VerificationLevel,
	}, nil
}
