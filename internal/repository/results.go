package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ResultRepository is the upsert-by-id store for verification rows.
// Reprocessing an applicant overwrites its prior row.
type ResultRepository interface {
	Upsert(ctx context.Context, jobID uuid.UUID, applicantID string, row map[string]string) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]map[string]string, error)
}

type resultRepo struct {
	db  *sql.DB
	log *slog.Logger
}

func NewResultRepository(db *sql.DB, logger *slog.Logger) ResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &resultRepo{db: db, log: logger}
}

func (r *resultRepo) Upsert(ctx context.Context, jobID uuid.UUID, applicantID string, row map[string]string) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO verification_results (job_id, applicant_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (job_id, applicant_id)
		DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		jobID.String(), applicantID, string(data), now, now,
	)
	if err != nil {
		r.log.Error("results.upsert_failed", "job_id", jobID, "applicant_id", applicantID, "error", err)
		return err
	}
	r.log.Info("results.upserted", "job_id", jobID, "applicant_id", applicantID)
	return nil
}

func (r *resultRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]map[string]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT data FROM verification_results WHERE job_id = ? ORDER BY applicant_id`,
		jobID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			r.log.Warn("results.rows_close_error", "error", cerr)
		}
	}()

	var out []map[string]string
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		row := make(map[string]string)
		if err := json.Unmarshal([]byte(data), &row); err != nil {
			return nil, fmt.Errorf("decode stored row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
