package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// tempScope owns a job's normalization artifacts directory. Close removes
// it on every exit path; the orchestrator defers it before any work runs.
type tempScope struct {
	dir string
	log *slog.Logger
}

func newTempScope(base string, jobID uuid.UUID, logger *slog.Logger) (*tempScope, error) {
	dir := filepath.Join(base, "scv_compress", jobID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &tempScope{dir: dir, log: logger}, nil
}

func (t *tempScope) Dir() string {
	return t.dir
}

func (t *tempScope) Close() {
	if err := os.RemoveAll(t.dir); err != nil {
		t.log.Warn("pipeline.temp_cleanup_error", "dir", t.dir, "error", err)
		return
	}
	t.log.Debug("pipeline.temp_cleaned", "dir", t.dir)
}
