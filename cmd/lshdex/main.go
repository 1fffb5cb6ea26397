package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lshdex/internal/config"
	domds "github.com/kailas-cloud/lshdex/internal/domain/dataset"
	logpkg "github.com/kailas-cloud/lshdex/internal/logger"
	"github.com/kailas-cloud/lshdex/internal/metrics"
	"github.com/kailas-cloud/lshdex/internal/shingle"
	chiTransport "github.com/kailas-cloud/lshdex/internal/transport/chi"
	batchuc "github.com/kailas-cloud/lshdex/internal/usecase/batch"
	datasetuc "github.com/kailas-cloud/lshdex/internal/usecase/dataset"
	documentuc "github.com/kailas-cloud/lshdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/lshdex/internal/usecase/health"
	similarityuc "github.com/kailas-cloud/lshdex/internal/usecase/similarity"
	"github.com/kailas-cloud/lshdex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, "api", cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting lshdex API server",
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	ctx := context.Background()
	b, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer b.close()
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterLSHMetrics()

	defaults := domds.Params{
		Rows:        cfg.LSH.Rows,
		Bands:       cfg.LSH.Bands,
		ShingleType: shingle.Type(cfg.LSH.ShingleType),
		Modulo:      cfg.LSH.Modulo,
		BitWidth:    cfg.LSH.BitWidth,
	}

	// Create use case services
	dsSvc := datasetuc.New(b.datasets, b.documents, defaults).
		WithKeyAttempts(cfg.LSH.KeyAttempts).
		WithCache(cfg.Cache.DatasetsSize, time.Duration(cfg.Cache.DatasetsTTLSec)*time.Second)
	docSvc := documentuc.New(b.documents, dsSvc).
		WithPagination(cfg.Index.DefaultPageSize, cfg.Index.MaxPageSize)
	simSvc := similarityuc.New(b.documents, dsSvc).
		WithMaxConcurrency(cfg.Similarity.MaxConcurrency).
		WithDefaultLimit(cfg.Similarity.DefaultLimit)
	batchSvc := batchuc.New(docSvc, dsSvc).
		WithMaxBatchSize(cfg.Index.MaxBatchSize)

	healthSvc := healthuc.New(b.pinger)
	for name, c := range b.checks {
		healthSvc = healthSvc.WithCheck(name, c)
	}

	server := chiTransport.NewServer(dsSvc, docSvc, simSvc, batchSvc, healthSvc, logger)
	r := chiTransport.NewRouter(server, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
