package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verifyhq/scorecard-verifier/constants"
	"github.com/verifyhq/scorecard-verifier/internal/common"
)

// Job is one end-to-end verification run.
type Job struct {
	ID        uuid.UUID
	Status    constants.JobStatus
	Details   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type JobRepository interface {
	Create(ctx context.Context) (*Job, error)
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	SetStatus(ctx context.Context, id uuid.UUID, status constants.JobStatus, details string) error
}

type jobRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewJobRepository(db *sql.DB, logger *slog.Logger) JobRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &jobRepo{db: db, log: logger}
}

func (r *jobRepo) Create(ctx context.Context) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:        uuid.New(),
		Status:    constants.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (id, status, details, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		job.ID.String(), string(job.Status), job.Details, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		r.log.Error("jobs.create_failed", "error", err)
		return nil, err
	}
	r.log.Info("jobs.created", "job_id", job.ID)
	return job, nil
}

func (r *jobRepo) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	var (
		job    Job
		status string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, status, details, created_at, updated_at FROM jobs WHERE id = ?`,
		id.String(),
	).Scan(&job.ID, &status, &job.Details, &job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("JOB_NOT_FOUND", id.String(), common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	job.Status = constants.JobStatus(status)
	return &job, nil
}

func (r *jobRepo) SetStatus(ctx context.Context, id uuid.UUID, status constants.JobStatus, details string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, details = ?, updated_at = ? WHERE id = ?`,
		string(status), details, time.Now().UTC(), id.String(),
	)
	if err != nil {
		r.log.Error("jobs.set_status_failed", "job_id", id, "status", status, "error", err)
		return err
	}
	r.log.Info("jobs.status", "job_id", id, "status", status)
	return nil
}
