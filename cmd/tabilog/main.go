package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/tabilog/internal/api/http"
	"github.com/i474232898/tabilog/internal/config"
	"github.com/i474232898/tabilog/internal/enrich"
	"github.com/i474232898/tabilog/internal/planner"
	"github.com/i474232898/tabilog/internal/scheduler"
	"github.com/i474232898/tabilog/internal/store"
	"github.com/i474232898/tabilog/internal/weather"
	"github.com/i474232898/tabilog/internal/weather/providers"
)

func main() {
	// Load configuration (also reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Open-Meteo serves forecast and archive data; geocoding goes to Google
	// when an API key is configured.
	openMeteo := providers.NewOpenMeteo(httpClient, providers.OpenMeteoConfig{
		GeocodingURL: cfg.GeocodingURL,
		ForecastURL:  cfg.ForecastURL,
		ArchiveURL:   cfg.ArchiveURL,
		Language:     cfg.GeocodingLanguage,
		MaxRetries:   cfg.ProviderMaxRetries,
	})
	var geo weather.Geocoder = openMeteo
	if cfg.GeocoderAPIKey != "" {
		geo = providers.NewGoogleGeocoder(cfg.GeocoderAPIKey)
		zl.Info("using google geocoding")
	}
	geo = providers.NewCachedGeocoder(geo, cfg.GeocodeCacheTTL)

	weatherSvc := weather.NewService(geo, openMeteo, weather.SystemClock, zl.Named("weather"))
	syncer := enrich.NewSynchronizer(weatherSvc, weatherSvc.Clock(), cfg.SyncConcurrency, zl.Named("enrich"))

	kv, closeStore, err := openStore(cfg, zl)
	if err != nil {
		zl.Fatal("failed to open store", zap.Error(err))
	}
	defer closeStore()

	plannerSvc := planner.NewService(store.NewRepository(kv), syncer, weatherSvc.Clock(), cfg.ExchangeRate, zl.Named("planner"))
	if err := plannerSvc.Bootstrap(); err != nil {
		zl.Fatal("failed to initialize planner", zap.Error(err))
	}

	// Scheduler that upgrades reference-year weather once it is forecastable.
	sched := scheduler.New(plannerSvc, cfg.StalenessInterval, zl.Named("scheduler"))
	if err := sched.Start(); err != nil {
		zl.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "tabilog",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Weather enrichment runs inside some requests.
		WriteTimeout: 60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "tabilog",
		})
	})

	httpapi.RegisterRoutes(app, plannerSvc)

	go func() {
		zl.Info("listening", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			zl.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		zl.Error("error during shutdown", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	return zc.Build()
}

func openStore(cfg *config.AppConfig, zl *zap.Logger) (store.KV, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		zl.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}

	db, err := store.NewSQLite(cfg.DBPath, zl.Named("store"))
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			zl.Error("failed to close store", zap.Error(err))
		}
	}, nil
}
