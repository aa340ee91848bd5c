// rummyd serves the rummy table engine over HTTP with live websocket events.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ayilmaz/rummy-table/internal/api"
	"github.com/ayilmaz/rummy-table/internal/domain"
	"github.com/ayilmaz/rummy-table/internal/engine"
	"github.com/ayilmaz/rummy-table/internal/notify"
	"github.com/ayilmaz/rummy-table/internal/persistence"
	"github.com/ayilmaz/rummy-table/internal/rules"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("rummyd failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	addr := envOr("RUMMYD_ADDR", ":8080")
	driver := envOr("RUMMYD_DB_DRIVER", "sqlite3")
	dsn := envOr("RUMMYD_DB_DSN", "file:rummyd.db?_fk=1")

	repo, cleanup, err := openRepository(logger, driver, dsn)
	if err != nil {
		return err
	}
	defer cleanup()

	hub := notify.NewHub(logger)
	eng := engine.New(repo, hub, rules.NewCryptoShuffler(), domain.DefaultTableConfig())
	server := api.NewServer(eng, repo, hub, logger)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "driver", driver)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}

func openRepository(logger *slog.Logger, driver string, dsn string) (persistence.Repository, func(), error) {
	if driver == "memory" {
		return persistence.NewInMemoryRepository(), func() {}, nil
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, nil, err
	}
	if driver == "sqlite3" {
		// sqlite gets confused by concurrent writers on one file.
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := persistence.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info("database ready", "driver", driver)

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn("closing database", "error", err)
		}
	}
	return persistence.NewSQLRepository(db), cleanup, nil
}

func envOr(key string, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
