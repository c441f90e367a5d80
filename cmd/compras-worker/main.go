package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"compras/internal/amqp"
	"compras/internal/backup"
	"compras/internal/cli"
	"compras/internal/log"
	"compras/internal/metrics"
	"compras/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting compras-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	writer, err := cli.InitMirrorWriter(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize mirror", log.FieldError, err)
		os.Exit(1)
	}

	snapshotter := cli.InitSnapshotter(cfg, repo, logger)
	var onWrite worker.SnapshotRunner
	if cfg.SnapshotOnWrite {
		onWrite = snapshotter
	}
	mirror := worker.NewMirrorWorker(repo, writer, onWrite)

	logger.Info("Performing startup mirror...")
	if err := mirror.StartupMirror(ctx); err != nil {
		// Keep running; the next event for each period repairs it
		logger.Error("Startup mirror failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeRecordEvents(gctx, mirror.HandleRecordEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("Skipping AMQP message consumption - no AMQP_URL provided")
	}

	g.Go(func() error {
		runSnapshots(gctx, snapshotter, cfg.SnapshotInterval, logger)
		return nil
	})

	metricsSrv := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		logger.Info("Serving worker metrics", "addr", cfg.WorkerMetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

// runSnapshots takes a snapshot now and then every interval until ctx ends
func runSnapshots(ctx context.Context, s *backup.Snapshotter, interval time.Duration, logger *log.Logger) {
	take := func() {
		if _, err := s.Run(ctx, time.Now()); err != nil && ctx.Err() == nil {
			logger.Error("Scheduled snapshot failed", log.FieldError, err, log.FieldOperation, log.OpSnapshot)
		}
	}

	take()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			take()
		}
	}
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
