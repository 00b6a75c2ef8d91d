// verifierd is the long-running verification service. It accepts job
// submissions over HTTP, runs them on a background worker pool, and serves
// status, results and XLSX exports.
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

	"github.com/verifyhq/scorecard-verifier/internal/async"
	"github.com/verifyhq/scorecard-verifier/internal/common"
	"github.com/verifyhq/scorecard-verifier/internal/export"
	"github.com/verifyhq/scorecard-verifier/internal/imaging"
	"github.com/verifyhq/scorecard-verifier/internal/llm"
	"github.com/verifyhq/scorecard-verifier/internal/llm/vision"
	"github.com/verifyhq/scorecard-verifier/internal/pipeline"
	"github.com/verifyhq/scorecard-verifier/internal/repository"
	"github.com/verifyhq/scorecard-verifier/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	common.LoadEnv()
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, cfg.Database.Path, logger)
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	jobs := repository.NewJobRepository(db, logger)
	results := repository.NewResultRepository(db, logger)

	client := vision.NewClient(vision.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	extractor := llm.NewExtractor(client, cfg.Pipeline.MaxAttempts, cfg.Pipeline.RetryDelay, logger)

	normalizer := imaging.NewNormalizer(imaging.Config{
		TargetSizeKB:  cfg.Imaging.TargetSizeKB,
		PdftoppmPath:  cfg.Imaging.PdftoppmPath,
		TesseractPath: cfg.Imaging.TesseractPath,
		RasterDPI:     cfg.Imaging.RasterDPI,
	}, nil, logger)

	orch := pipeline.NewOrchestrator(jobs, results, extractor, normalizer, pipeline.Config{
		TempDir:        cfg.Pipeline.TempDir,
		ExtractTimeout: cfg.LLM.Timeout,
		DocParallelism: cfg.Pipeline.DocParallelism,
	}, logger)

	queue := async.NewPipelineQueue(orch, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithJobTimeout(cfg.Pipeline.JobTimeout),
	)

	exporter := export.NewService(results, logger)
	srv := server.New(jobs, results, queue, exporter, cfg.Server.UploadDir, logger)

	httpSrv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}
