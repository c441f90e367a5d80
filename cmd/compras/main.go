package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"compras/internal/cache"
	"compras/internal/cli"
	apphttp "compras/internal/http"
	"compras/internal/log"
	"compras/internal/middleware/security"
	"compras/internal/openfoodfacts"
	"compras/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	logger.Info("Starting compras server", "port", cfg.Port)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	svcOpts := []services.Option{services.WithLogger(logger)}
	// Only a non-nil client may become the publisher, otherwise the
	// interface would hold a typed nil
	if client := cli.InitPublisher(cfg, logger); client != nil {
		defer client.Close()
		svcOpts = append(svcOpts, services.WithPublisher(client))
	}
	ledgerSvc := services.NewLedgerService(repo, svcOpts...)

	lookupCache := cache.NewLRUCache[openfoodfacts.CacheEntry](cfg.LookupCacheSize, cfg.LookupCacheTTL)
	cacheManager := cache.NewManager(logger.WithComponent(log.ComponentCache).Logger)
	cacheManager.Register(lookupCache)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	off := openfoodfacts.NewClient(cfg.OFFBaseURL, cfg.OFFTimeout,
		openfoodfacts.WithCredentials(cfg.OFFUserID, cfg.OFFPassword))

	detector, err := security.NewDetector(cfg.TrustedProxies)
	if err != nil {
		logger.Error("Invalid trusted proxies", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, ledgerSvc,
		apphttp.WithLookup(openfoodfacts.NewCachedLookup(off, lookupCache, cfg.LookupMissTTL)),
		apphttp.WithRegistrar(off),
		apphttp.WithSnapshots(cli.InitSnapshotter(cfg, repo, logger)),
		apphttp.WithReadiness(repo),
		apphttp.WithDefaultCredit(cfg.DefaultCredit),
		apphttp.WithLogger(logger),
		apphttp.WithDetector(detector),
	)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
