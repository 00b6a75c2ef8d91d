package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/verifyhq/scorecard-verifier/constants"
	"github.com/verifyhq/scorecard-verifier/internal/common"
	"github.com/verifyhq/scorecard-verifier/internal/llm"
	"github.com/verifyhq/scorecard-verifier/internal/repository"
)

// stubExtractor returns canned fields and records the targeted-retry calls.
type stubExtractor struct {
	fields      llm.ScorecardFields
	extractErr  error
	singleValue string
	singleErr   error

	extractCalls int
	singleCalls  int
	singleField  string
	singleHint   string
}

func (s *stubExtractor) ExtractScorecard(_ context.Context, _ string) (llm.ScorecardFields, error) {
	s.extractCalls++
	if s.extractErr != nil {
		return llm.ScorecardFields{}, s.extractErr
	}
	return s.fields, nil
}

func (s *stubExtractor) ExtractSingleField(_ context.Context, _ string, fieldName, contextHint string) (string, error) {
	s.singleCalls++
	s.singleField = fieldName
	s.singleHint = contextHint
	return s.singleValue, s.singleErr
}

// stubNormalizer copies the source into destDir and does nothing else.
type stubNormalizer struct {
	compressErr error
}

func (s *stubNormalizer) Compress(_ context.Context, sourcePath, destDir string) (string, string, error) {
	if s.compressErr != nil {
		return "", "encode failed", s.compressErr
	}
	dest := filepath.Join(destDir, filepath.Base(sourcePath))
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", "read failed", err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", "write failed", err
	}
	return dest, "Success with JPEG (Q=85) at 10.0 KB", nil
}

func (s *stubNormalizer) CorrectOrientation(_ context.Context, _ string) error {
	return nil
}

type fixture struct {
	jobs      repository.JobRepository
	results   repository.ResultRepository
	jobID     uuid.UUID
	masterCSV string
	sourceDir string
}

const masterRow = "1001,a@x.com,Asha Rao,Ravi Rao,999,CS22S11234567,2022,CS,55.5,78.2,1042\n"

func matchingFields() llm.ScorecardFields {
	return llm.ScorecardFields{
		Name:           "Asha Rao",
		FatherName:     "Ravi Rao",
		RegistrationID: "CS22S11234567",
		Year:           "2022",
		Score:          "55.5",
		ScoreOf100:     "78.2",
		Rank:           "1042",
	}
}

func newFixture(t *testing.T, masterCSV string, applicantIDs ...string) *fixture {
	t.Helper()
	db, err := repository.Open(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	jobs := repository.NewJobRepository(db, nil)
	job, err := jobs.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "master.csv")
	if err := os.WriteFile(csvPath, []byte(masterCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	srcDir := filepath.Join(dir, "scorecards")
	for _, id := range applicantIDs {
		folder := filepath.Join(srcDir, "can_"+id)
		if err := os.MkdirAll(folder, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(folder, "gate_scorecard.jpg"), []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	return &fixture{
		jobs:      jobs,
		results:   repository.NewResultRepository(db, nil),
		jobID:     job.ID,
		masterCSV: csvPath,
		sourceDir: srcDir,
	}
}

func (f *fixture) orchestrator(t *testing.T, ext llm.ScorecardExtractor, norm Normalizer) *Orchestrator {
	t.Helper()
	return NewOrchestrator(f.jobs, f.results, ext, norm, Config{TempDir: t.TempDir()}, nil)
}

func (f *fixture) run(t *testing.T, ext llm.ScorecardExtractor, norm Normalizer) error {
	t.Helper()
	return f.orchestrator(t, ext, norm).Run(context.Background(), f.jobID, f.masterCSV, f.sourceDir)
}

func (f *fixture) jobState(t *testing.T) (constants.JobStatus, string) {
	t.Helper()
	job, err := f.jobs.Get(context.Background(), f.jobID)
	if err != nil {
		t.Fatal(err)
	}
	return job.Status, job.Details
}

func (f *fixture) rows(t *testing.T) []map[string]string {
	t.Helper()
	rows, err := f.results.ListByJob(context.Background(), f.jobID)
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestRunHappyPath(t *testing.T) {
	fx := newFixture(t, masterRow, "1001")
	ext := &stubExtractor{fields: matchingFields()}

	if err := fx.run(t, ext, &stubNormalizer{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	status, details := fx.jobState(t)
	if status != constants.JobStatusComplete {
		t.Fatalf("status = %s, want COMPLETE", status)
	}
	if details != "Successfully processed 1 documents." {
		t.Errorf("details = %q", details)
	}

	rows := fx.rows(t)
	if len(rows) != 1 {
		t.Fatalf("got %d rows", len(rows))
	}
	row := rows[0]
	if row["error"] != "" {
		t.Fatalf("error = %q", row["error"])
	}
	for _, f := range []string{"name", "father_name", "registration_id", "year", "paper_code", "score", "scoreof100", "rank"} {
		if row[f+"_status"] != "True" {
			t.Errorf("%s_status = %q, want True", f, row[f+"_status"])
		}
	}
	if row["extracted_paper_code"] != "CS" {
		t.Errorf("extracted_paper_code = %q, want derived CS", row["extracted_paper_code"])
	}
	if ext.singleCalls != 0 {
		t.Errorf("retry fired %d times on a clean extraction", ext.singleCalls)
	}
}

func TestRunRetryReplacesRegistrationID(t *testing.T) {
	fx := newFixture(t, masterRow, "1001")
	bad := matchingFields()
	bad.RegistrationID = "GARBLED"
	ext := &stubExtractor{fields: bad, singleValue: "CS22S11234567"}

	if err := fx.run(t, ext, &stubNormalizer{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if ext.singleCalls != 1 {
		t.Fatalf("retry fired %d times, want exactly once", ext.singleCalls)
	}
	if ext.singleField != "Registration Number" {
		t.Errorf("retried field = %q", ext.singleField)
	}
	if ext.singleHint != "Asha Rao" {
		t.Errorf("hint = %q, want master name", ext.singleHint)
	}

	row := fx.rows(t)[0]
	if row["registration_id_status"] != "True" {
		t.Errorf("registration_id_status = %q after successful retry", row["registration_id_status"])
	}
	if row["paper_code_status"] != "True" {
		t.Errorf("paper_code_status = %q, derivation must use the retried value", row["paper_code_status"])
	}
}

func TestRunRetryErrorKeepsOriginalValue(t *testing.T) {
	fx := newFixture(t, masterRow, "1001")
	bad := matchingFields()
	bad.RegistrationID = "GARBLED"
	ext := &stubExtractor{fields: bad, singleErr: errors.New("backend down")}

	if err := fx.run(t, ext, &stubNormalizer{}); err != nil {
		t.Fatalf("retry failure must not fail the job: %v", err)
	}

	row := fx.rows(t)[0]
	if row["extracted_registration_id"] != "GARBLED" {
		t.Errorf("extracted_registration_id = %q, want original kept", row["extracted_registration_id"])
	}
	if row["registration_id_status"] != "False" {
		t.Errorf("registration_id_status = %q", row["registration_id_status"])
	}
}

func TestRunRetryEmptyValueKeepsOriginal(t *testing.T) {
	fx := newFixture(t, masterRow, "1001")
	bad := matchingFields()
	bad.RegistrationID = "GARBLED"
	ext := &stubExtractor{fields: bad, singleValue: ""}

	if err := fx.run(t, ext, &stubNormalizer{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := fx.rows(t)[0]["extracted_registration_id"]; got != "GARBLED" {
		t.Errorf("extracted_registration_id = %q, empty retry value must not overwrite", got)
	}
}

func TestRunCompressionFailureMarksRow(t *testing.T) {
	fx := newFixture(t, masterRow, "1001")
	ext := &stubExtractor{fields: matchingFields()}

	err := fx.run(t, ext, &stubNormalizer{compressErr: fmt.Errorf("%w: encode", common.ErrNormalization)})
	if err != nil {
		t.Fatalf("per-document failure must not fail the job: %v", err)
	}

	status, _ := fx.jobState(t)
	if status != constants.JobStatusComplete {
		t.Errorf("status = %s, want COMPLETE", status)
	}
	row := fx.rows(t)[0]
	if row["error"] != constants.MarkerCompressionFailed {
		t.Errorf("error = %q", row["error"])
	}
	if ext.extractCalls != 0 {
		t.Errorf("extraction ran %d times on an unnormalizable document", ext.extractCalls)
	}
}

func TestRunExtractionErrorMarkers(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		marker string
	}{
		{"transport", fmt.Errorf("%w: connection refused", common.ErrExtractionTransport), constants.MarkerAPIOrFileError},
		{"parse exhaustion", fmt.Errorf("%w: after 3 attempts", common.ErrExtractionParse), constants.MarkerParseError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture(t, masterRow, "1001")
			ext := &stubExtractor{extractErr: tc.err}

			if err := fx.run(t, ext, &stubNormalizer{}); err != nil {
				t.Fatalf("Run: %v", err)
			}
			row := fx.rows(t)[0]
			if !strings.HasPrefix(row["error"], tc.marker) {
				t.Errorf("error = %q, want prefix %q", row["error"], tc.marker)
			}
		})
	}
}

func TestRunIDNotInMaster(t *testing.T) {
	fx := newFixture(t, masterRow, "2002")
	ext := &stubExtractor{fields: matchingFields()}

	if err := fx.run(t, ext, &stubNormalizer{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	row := fx.rows(t)[0]
	if row["error"] != constants.MarkerIDNotFound {
		t.Errorf("error = %q", row["error"])
	}
	if ext.singleCalls != 0 {
		t.Errorf("retry fired for an unknown applicant")
	}
}

func TestRunEmptyScanFailsJob(t *testing.T) {
	fx := newFixture(t, masterRow) // no candidate folders
	ext := &stubExtractor{fields: matchingFields()}

	if err := fx.run(t, ext, &stubNormalizer{}); err == nil {
		t.Fatal("empty scan must be job-fatal")
	}
	status, details := fx.jobState(t)
	if status != constants.JobStatusFailed {
		t.Errorf("status = %s, want FAILED", status)
	}
	if !strings.HasPrefix(details, "An error occurred:") {
		t.Errorf("details = %q", details)
	}
}

func TestRunMasterLoadFailureFailsJob(t *testing.T) {
	fx := newFixture(t, masterRow, "1001")

	orch := fx.orchestrator(t, &stubExtractor{}, &stubNormalizer{})
	err := orch.Run(context.Background(), fx.jobID, filepath.Join(t.TempDir(), "missing.csv"), fx.sourceDir)
	if !errors.Is(err, common.ErrLoad) {
		t.Fatalf("err = %v, want ErrLoad", err)
	}
	status, _ := fx.jobState(t)
	if status != constants.JobStatusFailed {
		t.Errorf("status = %s, want FAILED", status)
	}
}

func TestRunCleansTempDir(t *testing.T) {
	fx := newFixture(t, masterRow, "1001")
	tempBase := t.TempDir()
	orch := NewOrchestrator(fx.jobs, fx.results, &stubExtractor{fields: matchingFields()}, &stubNormalizer{},
		Config{TempDir: tempBase}, nil)

	if err := orch.Run(context.Background(), fx.jobID, fx.masterCSV, fx.sourceDir); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempBase, "scv_compress", fx.jobID.String())); !os.IsNotExist(err) {
		t.Errorf("job temp dir not removed: %v", err)
	}
}

func TestRunMultipleDocumentsSorted(t *testing.T) {
	fx := newFixture(t,
		masterRow+"1002,b@x.com,Vikram Singh,Ajit Singh,888,EE21S1000,2021,EE,41.0,60.0,2201\n",
		"1002", "1001")
	ext := &stubExtractor{fields: matchingFields()}

	if err := fx.run(t, ext, &stubNormalizer{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, details := fx.jobState(t)
	if details != "Successfully processed 2 documents." {
		t.Errorf("details = %q", details)
	}
	rows := fx.rows(t)
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0]["id"] != "1001" || rows[1]["id"] != "1002" {
		t.Errorf("row order = %q, %q", rows[0]["id"], rows[1]["id"])
	}
}
