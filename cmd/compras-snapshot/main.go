package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"compras/internal/cli"
	"compras/internal/log"
)

// compras-snapshot writes today's database snapshot once and exits.
// Meant for cron when the worker is not running.
func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentBackup)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	snapshotter := cli.InitSnapshotter(cfg, repo, logger)
	path, err := snapshotter.Run(ctx, time.Now())
	if err != nil {
		logger.Error("Snapshot failed", log.FieldError, err)
		repo.Close()
		os.Exit(1)
	}

	kept, err := snapshotter.List()
	if err != nil {
		logger.Warn("Failed to list snapshots", log.FieldError, err)
	}
	logger.Info("Snapshot written", "path", path, "kept", len(kept))
	fmt.Println(path)
}
