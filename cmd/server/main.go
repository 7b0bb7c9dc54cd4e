package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"

	authhandler "clarence/internal/auth/handler"
	authmetrics "clarence/internal/auth/metrics"
	authservice "clarence/internal/auth/service"
	"clarence/internal/auth/store/revocation"
	userstore "clarence/internal/auth/store/user"
	carrierclient "clarence/internal/carrier/client"
	carrierhandler "clarence/internal/carrier/handler"
	"clarence/internal/carrier/health"
	carriermetrics "clarence/internal/carrier/metrics"
	"clarence/internal/carrier/registry"
	carrierstore "clarence/internal/carrier/store"
	jwttoken "clarence/internal/jwt_token"
	"clarence/internal/platform/config"
	"clarence/internal/platform/httpserver"
	"clarence/internal/platform/logger"
	"clarence/internal/platform/metrics"
	"clarence/internal/platform/postgres"
	redisclient "clarence/internal/platform/redis"
	"clarence/internal/platform/sms"
	policyhandler "clarence/internal/policy/handler"
	policyservice "clarence/internal/policy/service"
	policystore "clarence/internal/policy/store"
	quotehandler "clarence/internal/quote/handler"
	quotemetrics "clarence/internal/quote/metrics"
	quoteservice "clarence/internal/quote/service"
	quotestore "clarence/internal/quote/store"
	ratelimitmetrics "clarence/internal/ratelimit/metrics"
	ratelimitservice "clarence/internal/ratelimit/service"
	ratelimitstore "clarence/internal/ratelimit/store"
	httptransport "clarence/internal/transport/http"
	verificationmetrics "clarence/internal/verification/metrics"
	verificationservice "clarence/internal/verification/service"
	verificationstore "clarence/internal/verification/store"
	"clarence/pkg/platform/circuit"
	"clarence/pkg/platform/events"
)

// infra holds the optional backing services. Nil members select the
// in-memory implementations.
type infra struct {
	db        *sql.DB
	redis     *redisclient.Client
	publisher events.Publisher
	closers   []func()
}

// stores bundles the persistence chosen for this process.
type stores struct {
	users        authservice.UserStore
	revocations  authservice.RevocationList
	verification verificationstore.Store
	counters     ratelimitstore.CounterStore
	carriers     carrierStore
	quotes       quoteStore
	policies     policyservice.Store
}

type carrierStore interface {
	registry.Store
	carrierstore.Writer
}

type quoteStore interface {
	quoteservice.Store
	policyservice.Quotes
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	inf, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer inf.close()

	reg := prometheus.DefaultRegisterer
	authMetrics := authmetrics.New(reg)
	st := buildStores(inf, authMetrics)
	if cfg.Carrier.SeedCarriers {
		n, err := carrierstore.SeedCarriers(ctx, st.carriers, cfg.Carrier.SeedBaseURL, cfg.Carrier.SeedAPIKey, time.Now())
		if err != nil {
			return fmt.Errorf("seed carriers: %w", err)
		}
		log.Info("carriers seeded", "inserted", n)
	}

	httpMetrics := metrics.New(reg)
	carrierMetrics := carriermetrics.New(reg)
	quoteMetrics := quotemetrics.New(reg)

	// Auth flows.
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTRefreshSecret, cfg.Auth.Issuer,
		jwttoken.WithTTLs(cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL),
	)
	verifier := verificationservice.New(st.verification, sms.NewLogSender(log),
		verificationservice.WithLogger(log),
		verificationservice.WithMetrics(verificationmetrics.New()),
	)
	limiter, err := ratelimitservice.New(st.counters,
		ratelimitservice.WithLogger(log),
		ratelimitservice.WithMetrics(ratelimitmetrics.New()),
	)
	if err != nil {
		return err
	}
	auth, err := authservice.New(st.users, verifier, limiter, tokens, st.revocations,
		authservice.WithLogger(log),
		authservice.WithMetrics(authMetrics),
		authservice.WithPublisher(inf.publisher),
		authservice.WithBcryptCost(cfg.Auth.BcryptCost),
	)
	if err != nil {
		return err
	}

	// Carriers.
	carriers := registry.New(st.carriers, registry.WithLogger(log))
	client := carrierclient.New(
		carrierclient.WithTimeouts(cfg.Carrier.QuoteTimeout, cfg.Carrier.BindTimeout, cfg.Carrier.HealthTimeout),
		carrierclient.WithTracer(otel.Tracer("clarence/carrier")),
		carrierclient.WithMetrics(carrierMetrics),
		carrierclient.WithLogger(log),
	)
	monitor := health.New(carriers, client,
		health.WithLogger(log),
		health.WithMetrics(carrierMetrics),
		health.WithPublisher(inf.publisher),
	)

	// Quotes.
	processor := quoteservice.NewProcessor(st.quotes, carriers, client,
		quoteservice.WithMaxConcurrentCalls(cfg.Quote.MaxConcurrentCalls),
		quoteservice.WithBreakers(circuit.NewSet(circuit.WithFailureThreshold(cfg.Carrier.BreakerThreshold))),
		quoteservice.WithProcessorPublisher(inf.publisher),
		quoteservice.WithProcessorLogger(log),
		quoteservice.WithProcessorMetrics(quoteMetrics),
		quoteservice.WithCarrierMetrics(carrierMetrics),
	)
	dispatcher := quoteservice.NewDispatcher(processor.Process,
		quoteservice.WithWorkers(cfg.Quote.Workers),
		quoteservice.WithQueueSize(cfg.Quote.QueueSize),
		quoteservice.WithDispatcherLogger(log),
		quoteservice.WithDispatcherMetrics(quoteMetrics),
	)
	dispatcher.Start()
	quotes, err := quoteservice.New(st.quotes, dispatcher,
		quoteservice.WithLogger(log),
		quoteservice.WithMetrics(quoteMetrics),
		quoteservice.WithPublisher(inf.publisher),
	)
	if err != nil {
		return err
	}

	// Policies.
	policies, err := policyservice.New(st.policies, st.quotes, carriers, client,
		policyservice.WithLogger(log),
		policyservice.WithPublisher(inf.publisher),
		policyservice.WithPurchases(quotes),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Metrics:   httpMetrics,
		Validator: jwttoken.NewMiddlewareAdapter(tokens),
		Public: []httptransport.Registrar{
			authhandler.New(auth, log),
			quotehandler.New(quotes, log),
			carrierhandler.New(carriers, monitor, log),
		},
		Protected: []httptransport.Registrar{
			policyhandler.New(policies, log),
		},
		Checks: inf.checks(),
	})
	srv := httpserver.New(cfg, router)

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go monitor.Run(monitorCtx, cfg.Carrier.HealthProbeInterval)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting clarence", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	stopMonitor()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Warn("quote processing cancelled before completion", "error", err)
	}
	return nil
}

func buildInfra(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	inf := &infra{}

	if cfg.Postgres.URL != "" {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		inf.db = db
		inf.closers = append(inf.closers, func() { _ = db.Close() })
		log.Info("postgres connected")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		inf.close()
		return nil, err
	}
	if rc != nil {
		inf.redis = rc
		inf.closers = append(inf.closers, func() { _ = rc.Close() })
		log.Info("redis connected")
	} else {
		log.Warn("REDIS_URL not set, using in-memory verification and rate limit stores")
	}

	switch cfg.Events.Backend {
	case config.EventsBackendKafka:
		pub, err := events.NewKafkaPublisher(ctx, cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, log)
		if err != nil {
			inf.close()
			return nil, err
		}
		inf.publisher = pub
		inf.closers = append(inf.closers, pub.Close)
	case config.EventsBackendAMQP:
		pub, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.AMQPQueue, log)
		if err != nil {
			inf.close()
			return nil, err
		}
		inf.publisher = pub
		inf.closers = append(inf.closers, func() { _ = pub.Close() })
	default:
		inf.publisher = events.NewLogPublisher(log)
	}
	return inf, nil
}

func buildStores(inf *infra, authMetrics *authmetrics.Metrics) stores {
	var st stores
	if inf.db != nil {
		st.users = userstore.NewPostgres(inf.db)
		st.carriers = carrierstore.NewPostgres(inf.db)
		st.quotes = quotestore.NewPostgres(inf.db)
		st.policies = policystore.NewPostgres(inf.db)
		st.revocations = revocation.NewPostgres(inf.db)
	} else {
		st.users = userstore.New()
		st.carriers = carrierstore.NewInMemory()
		st.quotes = quotestore.NewInMemory()
		st.policies = policystore.NewInMemory()
		st.revocations = revocation.NewInMemory(time.Now)
	}
	if inf.redis != nil {
		st.verification = verificationstore.NewRedisStore(inf.redis.Client)
		st.counters = ratelimitstore.NewRedis(inf.redis.Client)
		st.revocations = revocation.NewRedis(inf.redis.Client, revocation.WithLookupObserver(authMetrics.RevocationLookupMs))
	} else {
		st.verification = verificationstore.NewInMemoryStore()
		st.counters = ratelimitstore.NewInMemory(time.Now)
	}
	return st
}

func (i *infra) checks() map[string]httptransport.Check {
	checks := map[string]httptransport.Check{}
	if i.db != nil {
		checks["postgres"] = i.db.PingContext
	}
	if i.redis != nil {
		checks["redis"] = i.redis.Health
	}
	return checks
}

func (i *infra) close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
}
