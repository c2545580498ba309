// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fintrackhq/fintrack/internal/pager"
)

type Config struct {
	Addr string

	// Currency is the ISO code used when formatting amounts.
	Currency string

	PaginationMode pager.Mode
	DefaultLimit   int
	MaxLimit       int
	MaxQueryPages  int

	// BucketTZ is the IANA zone used for month bucketing.
	BucketTZ              *time.Location
	LastMonthsForChart    int
	LastRecordsForSummary int

	DatabaseURL string
	LevelDBPath string

	AMQPURL      string
	AMQPExchange string

	JWTSecret string

	// RouteID, when set, restricts the server to that one route.
	RouteID string
}

func Load() (Config, error) {
	cfg := Config{
		Addr:                  getEnv("ADDR", ":8080"),
		Currency:              getEnv("CURRENCY", "PEN"),
		DefaultLimit:          getEnvInt("DEFAULT_LIMIT", 0),
		MaxLimit:              getEnvInt("MAX_LIMIT", 100),
		MaxQueryPages:         getEnvInt("MAX_QUERY_PAGES", pager.DefaultMaxPages),
		LastMonthsForChart:    getEnvInt("LAST_MONTHS_FOR_CHART", 6),
		LastRecordsForSummary: getEnvInt("LAST_RECORDS_FOR_SUMMARY", 5),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		LevelDBPath:           os.Getenv("LEVELDB_PATH"),
		AMQPURL:               os.Getenv("AMQP_URL"),
		AMQPExchange:          getEnv("AMQP_EXCHANGE", "fintrack.events"),
		JWTSecret:             os.Getenv("JWT_HS256_SECRET"),
		RouteID:               os.Getenv("ROUTE_ID"),
	}

	mode, err := pager.ParseMode(os.Getenv("PAGINATION_MODE"))
	if err != nil {
		return Config{}, fmt.Errorf("PAGINATION_MODE: %w", err)
	}
	cfg.PaginationMode = mode

	cfg.BucketTZ = time.UTC
	if tz := os.Getenv("BUCKET_TZ"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("BUCKET_TZ: %w", err)
		}
		cfg.BucketTZ = loc
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MaxLimit < 0 {
		return fmt.Errorf("MAX_LIMIT must not be negative")
	}
	if c.DefaultLimit < 0 {
		return fmt.Errorf("DEFAULT_LIMIT must not be negative")
	}
	if c.MaxLimit > 0 && c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("DEFAULT_LIMIT %d exceeds MAX_LIMIT %d", c.DefaultLimit, c.MaxLimit)
	}
	if c.MaxQueryPages <= 0 {
		return fmt.Errorf("MAX_QUERY_PAGES must be positive")
	}
	if c.DatabaseURL != "" && c.LevelDBPath != "" {
		return fmt.Errorf("DATABASE_URL and LEVELDB_PATH are mutually exclusive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
