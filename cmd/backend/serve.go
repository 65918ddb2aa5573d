package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "shawty-backend/docs" // Import swagger docs
	"shawty-backend/internal/analytics"
	"shawty-backend/internal/auth"
	"shawty-backend/internal/cache"
	"shawty-backend/internal/config"
	"shawty-backend/internal/database"
	httpHandler "shawty-backend/internal/handler/http"
	"shawty-backend/internal/metrics"
	"shawty-backend/internal/ratelimit"
	"shawty-backend/internal/repository"
	"shawty-backend/internal/repository/memory"
	"shawty-backend/internal/repository/postgres"
	"shawty-backend/internal/service"
	"shawty-backend/internal/shortcode"
	"shawty-backend/pkg/logger"
	"shawty-backend/pkg/useragent"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	driverPostgres = "postgres"
	driverMemory   = "memory"

	version = "1.0.0"
)

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot read config: %w", err)
	}
	log := logger.New(cfg.Env)
	defer syncLogger(log)

	log.Info("starting shawty backend", zap.String("env", cfg.Env), zap.String("db_driver", cfg.Database.Driver))

	storage, closeStorage, err := openStorage(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	// Redis общий для кэша, лимитера и кэша геолокации
	redisClient := openRedis(&cfg.Redis, log)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("failed to close redis client", zap.Error(err))
			}
		}()
	}

	var (
		linkCache  cache.Cache       = cache.Noop{}
		kv         cache.KV          = cache.Noop{}
		limiter    ratelimit.Limiter = ratelimit.NewMemoryLimiter()
		redisCheck httpHandler.Check
	)
	if redisClient != nil {
		rc := cache.NewRedisCache(redisClient)
		linkCache, kv = rc, rc
		limiter = ratelimit.NewRedisLimiter(redisClient)
		redisCheck = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	allocator := shortcode.NewAllocator(
		cfg.URLShortener.AliasLength,
		cfg.URLShortener.MaxAttempts,
		cfg.URLShortener.BloomCapacity,
		cfg.URLShortener.BloomFalsePositive,
	)
	if err := warmAllocator(storage, allocator, log); err != nil {
		return err
	}

	prom := metrics.NewPrometheus()

	// Initialize User-Agent parser
	uaParser, err := useragent.NewParser(cfg.Analytics.RegexesPath, log)
	if err != nil {
		return fmt.Errorf("failed to initialize User-Agent parser: %w", err)
	}

	geo := analytics.NewCachedGeolocator(
		analytics.NewHTTPGeolocator(cfg.Analytics.GeoURL, cfg.Analytics.GeoTimeout),
		kv,
		cfg.Analytics.GeoCacheTTL,
		log,
	)
	processor := analytics.NewProcessor(storage, uaParser, geo, prom, log, processorConfig(cfg))
	if err := processor.Start(); err != nil {
		return fmt.Errorf("failed to start analytics processor: %w", err)
	}
	defer func() {
		if err := processor.Stop(); err != nil {
			log.Error("failed to stop analytics processor", zap.Error(err))
		}
	}()

	passwordService := auth.NewPasswordServiceWithCost(cfg.Auth.BcryptCost)
	jwtService := auth.NewJWTService(auth.NewJWTConfig(&cfg.Auth))

	gate := service.NewGate(storage, linkCache, passwordService, log)
	recorder := service.NewRecorder(storage, processor, log)
	linkService := service.NewLinkService(storage, linkCache, limiter, allocator, passwordService, prom, &cfg.RateLimit, log)
	redirector := service.NewRedirector(storage, linkCache, gate, recorder, limiter, prom, &cfg.URLShortener, &cfg.RateLimit, log)

	healthHandler := httpHandler.NewHealthHandler(storage.Ping, redisCheck, processor, version, log)
	apiServer := httpHandler.NewServer(
		linkService,
		redirector,
		healthHandler,
		auth.NewMiddleware(jwtService, cfg.HTTPServer.AllowedOrigins, log),
		prom.Handler(),
		httpHandler.Options{BaseURL: cfg.URLShortener.BaseURL, UnlockURL: cfg.URLShortener.UnlockURL},
		log,
	)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      apiServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down shawty backend", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
			return err
		}
	}

	// Сначала перестаем принимать запросы, затем отложенные вызовы
	// дренируют очередь аналитики и закрывают redis и базу
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}
	return nil
}

// openStorage открывает хранилище ссылок по драйверу из конфигурации
func openStorage(cfg *config.Database, log *zap.Logger) (repository.Storage, func(), error) {
	switch cfg.Driver {
	case driverMemory:
		log.Warn("using in-memory link store, data is lost on restart")
		return memory.New(), func() {}, nil
	case driverPostgres, "":
		db, err := database.NewConnection(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if err := database.Close(db, log); err != nil {
				log.Error("failed to close database connection", zap.Error(err))
			}
		}

		if cfg.AutoMigrate {
			log.Info("running database migrations (auto_migrate: true)")
			if err := database.AutoMigrate(db, log); err != nil {
				closeDB()
				return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
			}
		} else {
			log.Info("skipping database migrations (auto_migrate: false)")
		}
		return postgres.New(db, log), closeDB, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// openRedis возвращает nil, если redis отключен или недоступен при старте
func openRedis(cfg *config.Redis, log *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		log.Info("redis disabled, using in-process rate limiter and no cache")
		return nil
	}
	client, err := cache.NewClient(cfg)
	if err != nil {
		log.Warn("redis unavailable at startup, using in-process rate limiter and no cache",
			zap.String("addr", cfg.Addr), zap.Error(err))
		return nil
	}
	log.Info("connected to redis", zap.String("addr", cfg.Addr))
	return client
}

// warmAllocator загружает занятые коды в bloom фильтр
func warmAllocator(storage repository.Storage, allocator *shortcode.Allocator, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	codes, err := storage.ListCodes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load existing codes: %w", err)
	}
	allocator.Add(codes...)
	log.Info("short code filter warmed", zap.Int("codes", len(codes)))
	return nil
}

func processorConfig(cfg *config.Config) analytics.ProcessorConfig {
	pc := analytics.DefaultConfig()
	if cfg.Analytics.Workers > 0 {
		pc.WorkerCount = cfg.Analytics.Workers
	}
	if cfg.Analytics.BufferSize > 0 {
		pc.BufferSize = cfg.Analytics.BufferSize
	}
	if cfg.Analytics.Retries > 0 {
		pc.RetryAttempts = cfg.Analytics.Retries
	}
	if cfg.Analytics.RetryDelay > 0 {
		pc.RetryDelay = cfg.Analytics.RetryDelay
	}
	if cfg.Analytics.JobTimeout > 0 {
		pc.JobTimeout = cfg.Analytics.JobTimeout
	}
	if cfg.Analytics.DevCountry != "" {
		pc.DevCountry = cfg.Analytics.DevCountry
	}
	pc.ShutdownTimeout = cfg.HTTPServer.ShutdownTimeout
	return pc
}
