package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/ericfisherdev/prsync/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/prsync/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/prsync/internal/application"
	"github.com/ericfisherdev/prsync/internal/config"
	"github.com/ericfisherdev/prsync/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"db_path", cfg.DBPath,
		"repositories", len(cfg.Repositories),
		"lookback_days", cfg.LookbackDays,
		"workers", cfg.Workers,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	mergeStore := sqliteadapter.NewMergeRepo(db)
	watermarkStore := sqliteadapter.NewWatermarkRepo(db)

	ghClient := githubadapter.NewClient(cfg.GitHubToken, githubadapter.Options{
		PerPage:      cfg.PerPage,
		RequestDelay: cfg.RequestDelay,
		MaxAttempts:  cfg.MaxAttempts,
	})

	// 6. Create sync service and run one sync cycle.
	fetcher := application.NewFetcher(ghClient, watermarkStore, time.Duration(cfg.LookbackDays)*24*time.Hour)
	syncSvc := application.NewSyncService(fetcher, mergeStore, watermarkStore, cfg.Workers)

	report := syncSvc.Run(ctx, cfg.Repositories)

	// 7. Exit non-zero only when the run as a whole failed: an authentication
	// error aborts the cycle, while per-repo failures are reported and the
	// remaining repos still sync.
	for _, rr := range report.Repos {
		if errors.Is(rr.Err, driven.ErrAuthentication) {
			return rr.Err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}
