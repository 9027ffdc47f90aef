// Package app wires the matching service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"real-estate-matching/internal/activity"
	"real-estate-matching/internal/analytics"
	"real-estate-matching/internal/cleanup"
	"real-estate-matching/internal/config"
	"real-estate-matching/internal/database"
	"real-estate-matching/internal/events"
	"real-estate-matching/internal/handlers"
	"real-estate-matching/internal/matching"
	"real-estate-matching/internal/messaging"
	"real-estate-matching/internal/notify"
	"real-estate-matching/internal/push"
	"real-estate-matching/internal/ratelimit"
	"real-estate-matching/internal/scheduler"
	"real-estate-matching/internal/search"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App centralizes dependency wiring for the matching service.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	store     database.Store
	search    *search.SearchClient
	scheduler *scheduler.Scheduler
	consumer  *events.Consumer
	limiter   *ratelimit.RateLimiter

	httpServer *http.Server
}

// NewApp builds an App with all required dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	loc, err := analytics.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, logger: logger, store: store}

	var indexer events.ListingIndexer
	var bulkIndexer handlers.BulkIndexer
	var searchHealth handlers.HealthChecker
	if cfg.Search.Enabled {
		ms := cfg.Search.Meilisearch
		a.search = search.NewSearchClient(ms.Host, ms.APIKey, ms.Index, ms.PageSize, ms.MaxTotalHits, logger.Named("search"))
		if err := a.search.InitIndex(); err != nil {
			logger.Warn("failed to initialize search index", zap.Error(err))
		}
		indexer = a.search
		bulkIndexer = a.search
		searchHealth = a.search
	}

	sender, err := newSender(ctx, cfg.Push, logger.Named("push"))
	if err != nil {
		a.cleanup()
		return nil, err
	}
	dispatcher := notify.NewDispatcher(store, store, sender, logger.Named("notify"))

	var listingFinder matching.ListingFinder = store
	if cfg.Matching.ListingSource == "search" {
		listingFinder = matching.VerifiedListings(a.search, store)
	}
	engine := matching.NewEngine(store, listingFinder, store, dispatcher, logger.Named("matching"), cfg.Matching.DefaultRadiusKm)
	messages := messaging.NewService(store, dispatcher, logger.Named("messaging"))
	router := events.NewRouter(store, engine, messages, indexer, logger.Named("events"))
	if mem, ok := store.(*database.MemoryStore); ok {
		// Nothing else writes documents into the memory store
		logger.Warn("memory store records trigger payloads as stored documents")
		router.RecordPayloads(mem)
	}

	expirer := cleanup.NewService(store, logger.Named("cleanup"))
	aggregator := analytics.NewService(store, loc, logger.Named("analytics"))
	a.scheduler = scheduler.NewScheduler(expirer, aggregator, cfg.Scheduler, loc, logger.Named("scheduler"))

	if cfg.Events.Kafka.Enabled {
		a.consumer = events.NewConsumer(cfg.Events.Kafka, router, logger.Named("kafka"))
	}

	a.limiter = ratelimit.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.RequestsPerHour, cfg.RateLimit.Enabled)

	engineHTTP := handlers.NewRouter(cfg, handlers.Handlers{
		Triggers: handlers.NewTriggerHandler(router, logger.Named("triggers")),
		Activity: handlers.NewActivityHandler(activity.NewService(store, logger.Named("activity"))),
		Admin:    handlers.NewAdminHandler(a.scheduler, store, bulkIndexer, logger.Named("admin")),
		Matches:  handlers.NewMatchesHandler(store),
		Search:   searchHealth,
	}, a.limiter, logger)

	a.httpServer = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engineHTTP,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
	}

	return a, nil
}

func openStore(cfg config.DatabaseConfig, logger *zap.Logger) (database.Store, error) {
	switch cfg.Type {
	case "mysql":
		logger.Info("using MySQL with GORM", zap.String("host", cfg.MySQL.Host))
		s, err := database.NewGormStore(cfg.MySQL.Host, strconv.Itoa(cfg.MySQL.Port),
			cfg.MySQL.User, cfg.MySQL.Password, cfg.MySQL.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to MySQL: %w", err)
		}
		if err := s.InitSchema(); err != nil {
			s.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
		return s, nil
	case "postgres":
		logger.Info("using PostgreSQL", zap.String("host", cfg.Postgres.Host))
		s, err := database.NewPostgresStore(cfg.Postgres.Host, strconv.Itoa(cfg.Postgres.Port),
			cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to PostgreSQL: %w", err)
		}
		if err := s.InitSchema(); err != nil {
			s.Close()
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
		return s, nil
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		return database.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}
}

func newSender(ctx context.Context, cfg config.PushConfig, logger *zap.Logger) (push.Sender, error) {
	if cfg.Provider == "fcm" {
		s, err := push.NewFCMSender(ctx, cfg.ProjectID, cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("init FCM: %w", err)
		}
		return s, nil
	}
	return push.NewLogSender(logger), nil
}

// Run starts background services and blocks until ctx cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.cleanup()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.runHTTPServer(gctx)
	})

	g.Go(func() error {
		if err := a.scheduler.Run(gctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error {
			return a.consumer.Run(gctx)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				a.limiter.Prune()
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) runHTTPServer(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server started", zap.String("addr", a.httpServer.Addr))
		serverErr <- a.httpServer.ListenAndServe()
	}()

	select {
	// App context shutdown:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		err := <-serverErr
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	// HTTP server error:
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
}

func (a *App) cleanup() {
	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Warn("error closing Kafka consumer", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("error closing store", zap.Error(err))
		}
	}
}
