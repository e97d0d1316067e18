package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type AppConfig struct {
	Port string

	// StoreDriver is "sqlite" or "memory".
	StoreDriver string
	DBPath      string

	HTTPTimeout time.Duration

	GeocodingURL      string
	ForecastURL       string
	ArchiveURL        string
	GeocodingLanguage string

	// GeocoderAPIKey switches geocoding to the Google Geocoding API when set.
	GeocoderAPIKey  string
	GeocodeCacheTTL time.Duration

	// ProviderMaxRetries is the number of retries per provider call (0 = none).
	ProviderMaxRetries int
	SyncConcurrency    int

	// StalenessInterval controls how often stored itineraries are checked for
	// reference weather that has entered the forecast window.
	StalenessInterval time.Duration

	// ExchangeRate is TWD per JPY.
	ExchangeRate float64

	LogLevel string
}

// Load reads configuration from environment with sensible defaults.
// A .env file, when present, is loaded first.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.Port = getenvDefault("PORT", "8080")

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", StoreSQLite))
	if cfg.StoreDriver != StoreSQLite && cfg.StoreDriver != StoreMemory {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %q or %q", cfg.StoreDriver, StoreSQLite, StoreMemory)
	}
	cfg.DBPath = getenvDefault("DB_PATH", "data/tabilog.db")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.GeocodingURL = os.Getenv("OPENMETEO_GEOCODING_URL")
	cfg.ForecastURL = os.Getenv("OPENMETEO_FORECAST_URL")
	cfg.ArchiveURL = os.Getenv("OPENMETEO_ARCHIVE_URL")
	cfg.GeocodingLanguage = getenvDefault("GEOCODING_LANGUAGE", "zh")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if cfg.GeocodeCacheTTL, err = getenvDuration("GEOCODE_CACHE_TTL", "24h"); err != nil {
		return nil, err
	}

	cfg.ProviderMaxRetries = getenvInt("PROVIDER_MAX_RETRIES", 0)
	if cfg.ProviderMaxRetries < 0 {
		return nil, fmt.Errorf("invalid PROVIDER_MAX_RETRIES: must not be negative")
	}
	cfg.SyncConcurrency = getenvInt("SYNC_CONCURRENCY", 8)

	if cfg.StalenessInterval, err = getenvDuration("STALENESS_INTERVAL", "1h"); err != nil {
		return nil, err
	}

	if cfg.ExchangeRate, err = getenvFloat("EXCHANGE_RATE", 0.22); err != nil {
		return nil, err
	}
	if cfg.ExchangeRate <= 0 {
		return nil, fmt.Errorf("invalid EXCHANGE_RATE: must be positive")
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
