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
	"golang.org/x/sync/errgroup"

	"github.com/tmoreira/caixa/internal/config"
	"github.com/tmoreira/caixa/internal/events"
	"github.com/tmoreira/caixa/internal/httpapi"
	"github.com/tmoreira/caixa/internal/service/ledgerreg"
	"github.com/tmoreira/caixa/internal/service/record"
	"github.com/tmoreira/caixa/internal/storage/memory"
	pgstore "github.com/tmoreira/caixa/internal/storage/postgres"
	"github.com/tmoreira/caixa/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional .env for local dev; the environment wins when both set a key.
	_ = godotenv.Load()

	cfg := config.Load()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	var (
		store   httpapi.Store
		closeFn func()
	)
	switch cfg.DataBackend {
	case config.BackendPostgres:
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		store = pg
		closeFn = pg.Close
		logger.Info("storage backend: postgres")
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("failed to open sqlite database", "err", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		store = db
		closeFn = func() { _ = db.Close() }
		logger.Info("storage backend: sqlite", "path", cfg.SQLiteDBPath)
	default:
		store = memory.New()
		logger.Info("storage backend: memory")
	}
	if closeFn != nil {
		defer closeFn()
	}

	// Seed the two default ledgers when the registry is empty.
	registry := ledgerreg.New(store, store)
	seeded, err := registry.EnsureDefaults(ctx)
	if err != nil {
		logger.Error("ledger seed failed", "err", err)
		os.Exit(1)
	}
	for _, l := range seeded {
		logger.Info("ledger available", "id", l.ID.String(), "name", l.Name, "type", string(l.Type))
	}

	// Change notifications over AMQP are optional; a nil notifier disables them.
	var notifier record.Notifier
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("failed to connect to AMQP broker", "err", err)
			os.Exit(1)
		}
		defer client.Close()
		notifier = client
		logger.Info("change notifications enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.New(store, notifier, logger).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("caixa service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
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

func buildLogger(cfg config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	if strings.ToLower(strings.TrimSpace(cfg.LogFormat)) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
