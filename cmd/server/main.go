package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fintrackhq/fintrack/internal/config"
	"github.com/fintrackhq/fintrack/internal/events"
	"github.com/fintrackhq/fintrack/internal/filter"
	httpapi "github.com/fintrackhq/fintrack/internal/httpapi/v1"
	"github.com/fintrackhq/fintrack/internal/insight"
	"github.com/fintrackhq/fintrack/internal/pager"
	"github.com/fintrackhq/fintrack/internal/service/expense"
	"github.com/fintrackhq/fintrack/internal/service/income"
	ldbstore "github.com/fintrackhq/fintrack/internal/storage/leveldb"
	"github.com/fintrackhq/fintrack/internal/storage/memory"
	pgstore "github.com/fintrackhq/fintrack/internal/storage/postgres"
)

// backend is the storage dependency set shared by both services.
type backend interface {
	expense.Repo
	expense.Writer
	income.Repo
	income.Writer
	httpapi.ReadyChecker
	httpapi.IdempotencyStore
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Local overrides for dev; absence is fine.
	_ = godotenv.Load()

	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	var (
		store   backend
		closeFn func()
	)
	switch {
	case cfg.DatabaseURL != "":
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		store = pg
		closeFn = pg.Close
		logger.Info("storage backend: postgres")
	case cfg.LevelDBPath != "":
		ldb, err := ldbstore.Open(cfg.LevelDBPath)
		if err != nil {
			logger.Error("failed to open leveldb", "err", err, "path", cfg.LevelDBPath)
			os.Exit(1)
		}
		store = ldb
		closeFn = func() { _ = ldb.Close() }
		logger.Info("storage backend: leveldb", "path", cfg.LevelDBPath)
	default:
		store = memory.New()
		logger.Info("storage backend: memory")
	}

	var pub events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQP(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Error("failed to connect to amqp", "err", err)
			os.Exit(1)
		}
		pub = p
		defer pub.Close()
		logger.Info("event publisher: amqp", "exchange", cfg.AMQPExchange)
	}

	paginator := pager.Paginator{Mode: cfg.PaginationMode, MaxPages: cfg.MaxQueryPages}
	expSvc := expense.New(store, store, paginator, pub)
	incSvc := income.New(store, store, paginator, pub)
	insSvc := insight.New(expSvc, incSvc,
		insight.WithLocation(cfg.BucketTZ),
		insight.WithLastRecords(cfg.LastRecordsForSummary),
		insight.WithLastMonths(cfg.LastMonthsForChart),
	)

	api := httpapi.New(expSvc, incSvc, insSvc, store, store, httpapi.Config{
		Currency:  cfg.Currency,
		Policy:    filter.Policy{MaxLimit: cfg.MaxLimit, DefaultLimit: cfg.DefaultLimit},
		Mode:      cfg.PaginationMode,
		JWTSecret: cfg.JWTSecret,
	}, logger)

	handler := api.Handler()
	if cfg.RouteID != "" {
		h, err := api.RouteHandler(cfg.RouteID)
		if err != nil {
			logger.Error("unknown ROUTE_ID", "err", err)
			os.Exit(1)
		}
		handler = h
		logger.Info("single-route mode", "route_id", cfg.RouteID)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("fintrack service listening", "addr", srv.Addr, "pagination_mode", string(cfg.PaginationMode))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
