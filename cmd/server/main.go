package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/pastegrid/internal/config"
	"github.com/JonMunkholm/pastegrid/internal/core"
	_ "github.com/JonMunkholm/pastegrid/internal/core/tables" // Register all tables
	"github.com/JonMunkholm/pastegrid/internal/grid"
	"github.com/JonMunkholm/pastegrid/internal/logging"
	"github.com/JonMunkholm/pastegrid/internal/store"
	"github.com/JonMunkholm/pastegrid/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"max_concurrent_saves", cfg.Session.MaxConcurrentSaves,
		"session_ttl", cfg.Session.IdleTTL,
		"api_key_required", cfg.Security.RequireAPIKey,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	db := store.New(pool)
	service := core.NewService(db, core.Options{
		Grid: core.GridDefaults{
			DateLayout:    cfg.Grid.DateFormat,
			BoolFormat:    grid.BoolFormat(cfg.Grid.BoolFormat),
			Separator:     cfg.Grid.MultiSeparator,
			MaxPasteBytes: cfg.Grid.MaxPasteBytes,
		},
		MaxConcurrentSaves: cfg.Session.MaxConcurrentSaves,
		SaveWait:           cfg.Session.SaveWait,
		Logger:             logger,
	})

	logger.Info("tables registered",
		"count", core.TableCount(),
		"groups", len(core.Groups()),
	)

	server := web.NewServer(service, web.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TrustedProxies: cfg.Security.TrustedProxies,
		RequireAPIKey:  cfg.Security.RequireAPIKey,
		APIKeys:        cfg.Security.APIKeys,
		MaxBodyBytes:   int64(cfg.Grid.MaxPasteBytes) + 4096,
		Ping:           db.Ping,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		service.StartSessionJanitor(gctx, cfg.Session.IdleTTL, cfg.Session.SweepInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.SaveStatus(); status.Active > 0 {
			logger.Info("waiting for saves to complete", "active", status.Active)
			if err := service.WaitForSaves(shutdownCtx); err != nil {
				logger.Warn("saves did not complete in time", "error", err)
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// connect opens and verifies the connection pool.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}
	return pool, nil
}
