// verify-batch runs one verification job from the command line and writes
// the results workbook, without starting the HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/verifyhq/scorecard-verifier/internal/common"
	"github.com/verifyhq/scorecard-verifier/internal/export"
	"github.com/verifyhq/scorecard-verifier/internal/imaging"
	"github.com/verifyhq/scorecard-verifier/internal/llm"
	"github.com/verifyhq/scorecard-verifier/internal/llm/vision"
	"github.com/verifyhq/scorecard-verifier/internal/pipeline"
	"github.com/verifyhq/scorecard-verifier/internal/repository"
)

func main() {
	var (
		csvPath = flag.String("csv", "", "path to the master CSV (required)")
		dir     = flag.String("dir", "", "root directory of candidate folders (required)")
		out     = flag.String("out", "verification.xlsx", "output workbook path")
		dbPath  = flag.String("db", ":memory:", "sqlite path; default keeps results in memory")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *csvPath == "" || *dir == "" {
		fmt.Fprintln(os.Stderr, "usage: verify-batch -csv master.csv -dir ./scorecards [-out verification.xlsx]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	common.LoadEnv()
	cfg := common.LoadConfig()

	ctx := context.Background()

	db, err := repository.Open(ctx, *dbPath, logger)
	if err != nil {
		fatal(logger, "database open failed", err)
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

	job, err := jobs.Create(ctx)
	if err != nil {
		fatal(logger, "job create failed", err)
	}

	if err := orch.Run(ctx, job.ID, *csvPath, *dir); err != nil {
		fatal(logger, "verification run failed", err)
	}

	data, err := export.NewService(results, logger).ExportJobXLSX(ctx, job.ID)
	if err != nil {
		fatal(logger, "export failed", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fatal(logger, "write workbook failed", err)
	}

	fmt.Printf("wrote %s (job %s)\n", *out, job.ID)
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}
