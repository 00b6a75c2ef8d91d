package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/verifyhq/scorecard-verifier/constants"
	"github.com/verifyhq/scorecard-verifier/internal/common"
)

func openTestDB(t *testing.T) (JobRepository, ResultRepository) {
	t.Helper()
	db, err := Open(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewJobRepository(db, nil), NewResultRepository(db, nil)
}

func TestJobLifecycle(t *testing.T) {
	jobs, _ := openTestDB(t)
	ctx := context.Background()

	job, err := jobs.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if job.Status != constants.JobStatusPending {
		t.Errorf("new job status = %s, want PENDING", job.Status)
	}

	if err := jobs.SetStatus(ctx, job.ID, constants.JobStatusProcessing, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if err := jobs.SetStatus(ctx, job.ID, constants.JobStatusComplete, "Successfully processed 2 documents."); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, err := jobs.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != constants.JobStatusComplete {
		t.Errorf("status = %s, want COMPLETE", got.Status)
	}
	if got.Details != "Successfully processed 2 documents." {
		t.Errorf("details = %q", got.Details)
	}
}

func TestJobGetNotFound(t *testing.T) {
	jobs, _ := openTestDB(t)

	_, err := jobs.Get(context.Background(), uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestResultUpsertIsIdempotentByApplicant(t *testing.T) {
	jobs, results := openTestDB(t)
	ctx := context.Background()

	job, err := jobs.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	first := map[string]string{"id": "1001", "error": "PARSE_ERROR"}
	second := map[string]string{"id": "1001", "error": "", "name_status": "True"}

	if err := results.Upsert(ctx, job.ID, "1001", first); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := results.Upsert(ctx, job.ID, "1001", second); err != nil {
		t.Fatalf("Upsert (second): %v", err)
	}

	rows, err := results.ListByJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("ListByJob: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, reprocessing must overwrite, not append", len(rows))
	}
	if rows[0]["error"] != "" || rows[0]["name_status"] != "True" {
		t.Errorf("row = %v, want latest write to win", rows[0])
	}
}

func TestResultListOrderedByApplicant(t *testing.T) {
	jobs, results := openTestDB(t)
	ctx := context.Background()

	job, _ := jobs.Create(ctx)
	for _, id := range []string{"1003", "1001", "1002"} {
		if err := results.Upsert(ctx, job.ID, id, map[string]string{"id": id}); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := results.ListByJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"1001", "1002", "1003"}
	for i, w := range want {
		if rows[i]["id"] != w {
			t.Errorf("rows[%d] = %q, want %q", i, rows[i]["id"], w)
		}
	}
}

func TestResultsScopedToJob(t *testing.T) {
	jobs, results := openTestDB(t)
	ctx := context.Background()

	jobA, _ := jobs.Create(ctx)
	jobB, _ := jobs.Create(ctx)
	if err := results.Upsert(ctx, jobA.ID, "1001", map[string]string{"id": "1001"}); err != nil {
		t.Fatal(err)
	}

	rows, err := results.ListByJob(ctx, jobB.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Errorf("job B sees %d rows from job A", len(rows))
	}
}
