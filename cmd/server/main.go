// Command server wires the admission engine behind its HTTP surface.
// Business logic lives under internal/; main only assembles dependencies
// and owns the process lifecycle.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ingresso/internal/allocation"
	allochandler "ingresso/internal/allocation/handler"
	allocmetrics "ingresso/internal/allocation/metrics"
	"ingresso/internal/audit"
	"ingresso/internal/call"
	callhandler "ingresso/internal/call/handler"
	"ingresso/internal/candidate"
	candidatehandler "ingresso/internal/candidate/handler"
	"ingresso/internal/edition"
	"ingresso/internal/events"
	httpapi "ingresso/internal/http"
	"ingresso/internal/interest"
	interesthandler "ingresso/internal/interest/handler"
	"ingresso/internal/permission"
	"ingresso/internal/platform/config"
	"ingresso/internal/platform/httpserver"
	"ingresso/internal/platform/logger"
	"ingresso/internal/platform/postgres"
	platformredis "ingresso/internal/platform/redis"
	"ingresso/internal/preanalysis"
	prehandler "ingresso/internal/preanalysis/handler"
	premetrics "ingresso/internal/preanalysis/metrics"
	"ingresso/internal/quota"
	quotahandler "ingresso/internal/quota/handler"
	"ingresso/internal/review"
	reviewhandler "ingresso/internal/review/handler"
	"ingresso/internal/seat"
	"ingresso/internal/stage"
	stagehandler "ingresso/internal/stage/handler"
	stagemetrics "ingresso/internal/stage/metrics"
	id "ingresso/pkg/domain"
	"ingresso/pkg/platform/tx"
)

type stores struct {
	editions    edition.Store
	candidates  candidate.Store
	stages      stage.Store
	calls       call.Store
	interests   interest.Store
	reviews     review.Store
	seats       seat.Store
	quotas      quota.Store
	preAnalysis preanalysis.Store
	allocations allocation.Store
	audits      audit.Store
	runner      tx.Runner
}

// combinedGate sums the unresolved counts of both review workflows so a
// stage with either kind of pending work refuses to close.
type combinedGate struct {
	gates []stage.ReviewGate
}

func (g combinedGate) CountUnresolved(ctx context.Context, stageID id.StageID) (int, error) {
	total := 0
	for _, gate := range g.gates {
		n, err := gate.CountUnresolved(ctx, stageID)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// combinedDocuments asks each workflow in order and returns the first
// decided ruling; an application tracked by neither stays undecided.
type combinedDocuments struct {
	checks []allocation.DocumentCheck
}

func (d combinedDocuments) Validity(ctx context.Context, appID id.ApplicationID, stageID id.StageID) (bool, string, bool, error) {
	for _, check := range d.checks {
		valid, observation, decided, err := check.Validity(ctx, appID, stageID)
		if err != nil || decided {
			return valid, observation, decided, err
		}
	}
	return false, "", false, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := buildStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("store setup failed", zap.Error(err))
	}
	defer cleanup()

	publisher, err := buildEventPublisher(cfg)
	if err != nil {
		log.Fatal("event publisher setup failed", zap.Error(err))
	}

	cache, err := buildPermissionCache(ctx, cfg, log)
	if err != nil {
		log.Fatal("permission cache setup failed", zap.Error(err))
	}
	permissions := permission.NewService(permission.NewRegistry(), cache, permission.WithLogger(log))

	auditPublisher := audit.NewPublisher(st.audits)

	importer := candidate.NewService(st.candidates, st.editions, st.seats, st.runner,
		candidate.WithLogger(log))
	reviews := review.NewService(st.reviews, st.interests, st.stages,
		review.WithLogger(log), review.WithPublisher(publisher))
	preAnalysis := preanalysis.NewService(st.preAnalysis, st.stages, st.interests, st.candidates, st.runner,
		preanalysis.WithLogger(log), preanalysis.WithMetrics(premetrics.New()))

	documents := combinedDocuments{checks: []allocation.DocumentCheck{preAnalysis, reviews}}
	allocator := allocation.NewService(st.allocations, st.stages, st.calls, st.candidates, st.interests, st.seats,
		documents, st.runner,
		allocation.WithLogger(log),
		allocation.WithAuditPublisher(auditPublisher),
		allocation.WithMetrics(allocmetrics.New()),
		allocation.WithEventPublisher(publisher))

	gate := combinedGate{gates: []stage.ReviewGate{reviews, preAnalysis}}
	stages := stage.NewService(st.stages, st.candidates, gate, allocator, st.runner,
		stage.WithLogger(log),
		stage.WithAuditPublisher(auditPublisher),
		stage.WithMetrics(stagemetrics.New()))

	generator := call.NewGenerator(st.stages, st.seats, st.candidates, st.calls,
		call.WithLogger(log), call.WithAuditPublisher(auditPublisher))
	interests := interest.NewService(st.interests, st.stages, st.candidates,
		interest.WithLogger(log))
	quotas := quota.NewService(st.quotas, st.seats, st.runner,
		quota.WithLogger(log))

	router := httpapi.NewRouter(log, permissions,
		candidatehandler.New(importer, log),
		stagehandler.New(stages, log),
		callhandler.New(generator, log),
		interesthandler.New(interests, log),
		reviewhandler.New(reviews, log),
		prehandler.New(preAnalysis, log),
		allochandler.New(allocator, log),
		quotahandler.New(quotas, log),
	)

	srv := httpserver.New(cfg.HTTP.Addr, router)

	go func() {
		log.Info("server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, func(), error) {
	if cfg.Postgres.DSN == "" {
		log.Info("no postgres DSN configured, using in-memory stores")
		return &stores{
			editions:    edition.NewMemoryStore(),
			candidates:  candidate.NewMemoryStore(),
			stages:      stage.NewMemoryStore(),
			calls:       call.NewMemoryStore(),
			interests:   interest.NewMemoryStore(),
			reviews:     review.NewMemoryStore(),
			seats:       seat.NewMemoryStore(),
			quotas:      quota.NewMemoryStore(),
			preAnalysis: preanalysis.NewMemoryStore(),
			allocations: allocation.NewMemoryStore(),
			audits:      audit.NewMemoryStore(),
			runner:      tx.NewMemoryRunner(),
		}, func() {}, nil
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return &stores{
		editions:    edition.NewPostgres(db),
		candidates:  candidate.NewPostgres(db),
		stages:      stage.NewPostgres(db),
		calls:       call.NewPostgres(db),
		interests:   interest.NewPostgres(db),
		reviews:     review.NewPostgres(db),
		seats:       seat.NewPostgres(db),
		quotas:      quota.NewPostgres(db),
		preAnalysis: preanalysis.NewPostgres(db),
		allocations: allocation.NewPostgres(db),
		audits:      audit.NewPostgres(db),
		runner:      tx.NewSQLRunner(db),
	}, func() { _ = db.Close() }, nil
}

func buildEventPublisher(cfg *config.Config) (events.Publisher, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.NopPublisher{}, nil
	}
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

func buildPermissionCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (permission.Cache, error) {
	ttl := time.Duration(cfg.Permission.CacheTTLSecs) * time.Second
	switch cfg.Permission.CacheBackend {
	case "redis":
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		if client == nil {
			log.Warn("redis cache requested but no redis URL configured, caching disabled")
			return permission.DisabledCache{}, nil
		}
		return permission.NewRedisCache(client.Client, ttl), nil
	case "memory":
		return permission.NewMemoryCache(ttl), nil
	default:
		return permission.DisabledCache{}, nil
	}
}
