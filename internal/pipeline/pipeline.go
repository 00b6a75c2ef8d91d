// Package pipeline sequences one verification job: load master, scan
// documents, then normalize, extract, verify, retry and persist per
// document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/verifyhq/scorecard-verifier/constants"
	"github.com/verifyhq/scorecard-verifier/internal/common"
	"github.com/verifyhq/scorecard-verifier/internal/llm"
	"github.com/verifyhq/scorecard-verifier/internal/master"
	"github.com/verifyhq/scorecard-verifier/internal/repository"
	"github.com/verifyhq/scorecard-verifier/internal/scanner"
	"github.com/verifyhq/scorecard-verifier/internal/verify"
)

// retryFieldLabel is the human-readable field name used in the
// single-field re-extraction prompt.
const retryFieldLabel = "Registration Number"

// Normalizer is the slice of the imaging package the orchestrator needs.
type Normalizer interface {
	Compress(ctx context.Context, sourcePath, destDir string) (string, string, error)
	CorrectOrientation(ctx context.Context, imagePath string) error
}

// Config holds orchestrator tunables.
type Config struct {
	TempDir        string
	ExtractTimeout time.Duration // per-document, not per-job
	DocParallelism int           // 1 = strictly sequential
}

// Orchestrator owns the master table and document list for the duration of
// one job; no other component mutates them.
type Orchestrator struct {
	log        *slog.Logger
	jobs       repository.JobRepository
	results    repository.ResultRepository
	extractor  llm.ScorecardExtractor
	normalizer Normalizer
	cfg        Config
}

func NewOrchestrator(
	jobs repository.JobRepository,
	results repository.ResultRepository,
	extractor llm.ScorecardExtractor,
	normalizer Normalizer,
	cfg Config,
	logger *slog.Logger,
) *Orchestrator {
	if cfg.ExtractTimeout <= 0 {
		cfg.ExtractTimeout = 5 * time.Minute
	}
	if cfg.DocParallelism <= 0 {
		cfg.DocParallelism = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		log:        logger,
		jobs:       jobs,
		results:    results,
		extractor:  extractor,
		normalizer: normalizer,
		cfg:        cfg,
	}
}

// Run executes the job end to end. Master load and an empty scan are
// job-fatal; every other failure is captured into the affected document's
// row and processing continues. The job reaches COMPLETE whenever the loop
// ran to the end, even if every document failed extraction.
func (o *Orchestrator) Run(ctx context.Context, jobID uuid.UUID, masterCSVPath, sourceRoot string) error {
	if err := o.jobs.SetStatus(ctx, jobID, constants.JobStatusProcessing, ""); err != nil {
		return err
	}

	processed, err := o.run(ctx, jobID, masterCSVPath, sourceRoot)
	if err != nil {
		o.log.Error("pipeline.job_failed", "job_id", jobID, "error", err)
		if serr := o.jobs.SetStatus(ctx, jobID, constants.JobStatusFailed,
			fmt.Sprintf("An error occurred: %v", err)); serr != nil {
			o.log.Error("pipeline.status_update_failed", "job_id", jobID, "error", serr)
		}
		return err
	}

	details := fmt.Sprintf("Successfully processed %d documents.", processed)
	if err := o.jobs.SetStatus(ctx, jobID, constants.JobStatusComplete, details); err != nil {
		return err
	}
	o.log.Info("pipeline.job_complete", "job_id", jobID, "processed", processed)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, jobID uuid.UUID, masterCSVPath, sourceRoot string) (int, error) {
	tmp, err := newTempScope(o.cfg.TempDir, jobID, o.log)
	if err != nil {
		return 0, err
	}
	defer tmp.Close()

	table, err := master.Load(masterCSVPath, o.log)
	if err != nil {
		return 0, err
	}

	docs, err := scanner.Scan(sourceRoot, o.log)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrScanEmpty, err)
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("%w: scanner found no scorecard files under %s", common.ErrScanEmpty, sourceRoot)
	}

	// Deterministic processing order.
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if o.cfg.DocParallelism > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.DocParallelism)
		for _, id := range ids {
			g.Go(func() error {
				return o.processDocument(gctx, jobID, tmp.Dir(), table, id, docs[id])
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
		return len(ids), nil
	}

	for _, id := range ids {
		if err := o.processDocument(ctx, jobID, tmp.Dir(), table, id, docs[id]); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

// processDocument runs one document's normalize → extract → verify → retry →
// derive → re-verify → persist chain. It returns an error only when the
// result cannot be persisted; everything else becomes a marker row.
func (o *Orchestrator) processDocument(
	ctx context.Context,
	jobID uuid.UUID,
	tmpDir string,
	table *master.Table,
	applicantID, sourcePath string,
) error {
	fileName := filepath.Base(sourcePath)
	o.log.Info("pipeline.document.start", "job_id", jobID, "applicant_id", applicantID, "file", fileName)

	compressedPath, compressMsg, err := o.normalizer.Compress(ctx, sourcePath, tmpDir)
	o.log.Info("pipeline.compress", "applicant_id", applicantID, "status", compressMsg)
	if err != nil {
		return o.persist(ctx, jobID, verify.ErrorRow(applicantID, constants.MarkerCompressionFailed))
	}

	if err := o.normalizer.CorrectOrientation(ctx, compressedPath); err != nil {
		// Best-effort; proceed with the unrotated image.
		o.log.Warn("pipeline.orientation_failed", "applicant_id", applicantID, "error", err)
	}

	docCtx, cancel := context.WithTimeout(ctx, o.cfg.ExtractTimeout)
	defer cancel()

	fields, err := o.extractor.ExtractScorecard(docCtx, compressedPath)
	if err != nil {
		marker := constants.MarkerParseError
		if errors.Is(err, common.ErrExtractionTransport) {
			marker = constants.MarkerAPIOrFileError
		}
		return o.persist(ctx, jobID, verify.ErrorRow(applicantID, fmt.Sprintf("%s: %v", marker, err)))
	}

	// Provisional verification decides whether the targeted retry fires.
	_, failed := verify.Verify(table, applicantID, &fields)

	if slices.Contains(failed, "registration_id") {
		o.log.Info("pipeline.retry.registration_id", "applicant_id", applicantID)
		var hint string
		if rec, ok := table.Lookup(applicantID); ok {
			hint = rec.Get("name")
		}
		newRegID, rerr := o.extractor.ExtractSingleField(docCtx, compressedPath, retryFieldLabel, hint)
		if rerr == nil && newRegID != "" {
			o.log.Info("pipeline.retry.replaced",
				"applicant_id", applicantID,
				"old", fields.RegistrationID,
				"new", newRegID,
			)
			fields.RegistrationID = newRegID
		}
	}

	fields = verify.DerivePaperCode(fields)
	row, _ := verify.Verify(table, applicantID, &fields)
	return o.persist(ctx, jobID, row)
}

func (o *Orchestrator) persist(ctx context.Context, jobID uuid.UUID, row verify.Row) error {
	flat := verify.SanitizeRow(row.Flatten())
	if err := verify.ValidateRow(flat); err != nil {
		return fmt.Errorf("row for applicant %s: %w", row.ApplicantID, err)
	}
	if err := o.results.Upsert(ctx, jobID, row.ApplicantID, flat); err != nil {
		return err
	}
	o.log.Info("pipeline.document.saved", "job_id", jobID, "applicant_id", row.ApplicantID)
	return nil
}
