// Package app wires configuration, clients, engines, consumers and the HTTP
// server into a runnable synchronizer service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/primecart/search-sync/internal/catalog"
	"github.com/primecart/search-sync/internal/config"
	"github.com/primecart/search-sync/internal/content"
	meili "github.com/primecart/search-sync/internal/engine/meilisearch"
	"github.com/primecart/search-sync/internal/engine/memory"
	"github.com/primecart/search-sync/internal/event"
	handler "github.com/primecart/search-sync/internal/handler/http"
	"github.com/primecart/search-sync/internal/service"
	"github.com/primecart/search-sync/pkg/health"
	"github.com/primecart/search-sync/pkg/httpclient"
	pkgkafka "github.com/primecart/search-sync/pkg/kafka"
	"github.com/primecart/search-sync/pkg/tracing"
)

// idempotencyTTL bounds how long processed event IDs are remembered.
const idempotencyTTL = 24 * time.Hour

// App wires together all dependencies and runs the synchronizer.
type App struct {
	cfg           *config.Config
	logger        *slog.Logger
	consumers     []*pkgkafka.Consumer
	producer      *pkgkafka.Producer
	dlqProducer   *pkgkafka.DLQProducer
	redisClient   *redis.Client
	httpServer    *http.Server
	traceShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{cfg: cfg, logger: logger}

	// Tracing. Enabled only when an OTLP endpoint is configured.
	traceCfg := tracing.DefaultConfig("search-sync")
	traceCfg.Environment = cfg.Environment
	traceCfg.OTLPEndpoint = cfg.OTLPEndpoint
	traceCfg.Enabled = cfg.OTLPEndpoint != ""
	traceShutdown, err := tracing.InitTracer(ctx, traceCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	app.traceShutdown = traceShutdown

	healthHandler := health.NewHandler()

	// Search engines, one per entity kind.
	var engines service.Engines
	switch cfg.SearchEngine {
	case config.EngineMeilisearch:
		client := meili.NewClient(cfg.MeiliURL, cfg.MeiliAPIKey)
		engines = service.Engines{
			Products:   client.Engine(cfg.MeiliIndexPrefix+"_products", logger),
			Brands:     client.Engine(cfg.MeiliIndexPrefix+"_brands", logger),
			Categories: client.Engine(cfg.MeiliIndexPrefix+"_categories", logger),
		}
		healthHandler.RegisterCritical("meilisearch", client.Ping)
		logger.Info("meilisearch engines initialized",
			slog.String("url", cfg.MeiliURL),
			slog.String("index_prefix", cfg.MeiliIndexPrefix),
		)
	default:
		engines = service.Engines{
			Products:   memory.New(),
			Brands:     memory.New(),
			Categories: memory.New(),
		}
		logger.Info("in-memory engines initialized")
	}

	// Upstream clients. The catalog fails fast; the content system gets the
	// generous profile because the enricher absorbs its failures anyway.
	catClient := catalog.NewClient(cfg.CatalogURL, httpclient.New(httpclient.TightConfig()), logger)
	healthHandler.RegisterCritical("catalog", catClient.Ping)

	contentClient := content.NewClient(cfg.ContentURL, cfg.ContentAPIKey, httpclient.New(httpclient.GenerousConfig()), logger)
	enricher := content.NewEnricher(contentClient, cfg.EnricherWorkers, logger)

	// Kafka producer for completion events.
	var publisher service.EventPublisher
	if cfg.KafkaEnabled() {
		app.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = app.producer
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
	}

	syncService := service.NewSyncService(catClient, enricher, contentClient, engines, publisher, cfg.SyncPageSize, logger)

	// Kafka consumers with shared deduplication.
	if cfg.KafkaEnabled() {
		var store pkgkafka.IdempotencyStore
		if cfg.RedisAddr != "" {
			app.redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			store = pkgkafka.NewRedisIdempotencyStore(app.redisClient, idempotencyTTL)
			healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
				return app.redisClient.Ping(ctx).Err()
			})
		} else {
			store = pkgkafka.NewMemoryIdempotencyStore(idempotencyTTL)
		}

		eventConsumer := event.NewConsumer(syncService, logger)
		dedupHandler := pkgkafka.IdempotentHandler(store, eventConsumer.Handle, logger)
		app.dlqProducer = pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)

		for _, topic := range event.Topics() {
			c := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
				Brokers:  cfg.KafkaBrokers,
				GroupID:  cfg.ConsumerGroup,
				Topic:    topic,
				MinBytes: 1,
				MaxBytes: 10e6,
			}, dedupHandler, logger).WithDLQ(app.dlqProducer)
			app.consumers = append(app.consumers, c)
		}
		logger.Info("kafka consumers initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Int("topic_count", len(event.Topics())),
		)
	}

	router := handler.NewRouter(syncService, healthHandler, cfg.Environment, logger)

	app.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 6 * time.Minute, // must outlast the sync route timeout
		IdleTimeout:  60 * time.Second,
	}

	return app, nil
}

// Run starts the HTTP server and Kafka consumers, blocking until the context
// is canceled or a component fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	for _, c := range a.consumers {
		c := c
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.dlqProducer != nil {
		if err := a.dlqProducer.Close(); err != nil {
			a.logger.Error("dlq producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.traceShutdown != nil {
		if err := a.traceShutdown(shutdownCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
