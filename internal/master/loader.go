// Package master loads the trusted applicant record set from a headerless
// CSV and indexes it by applicant id for the verification stage.
package master

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/verifyhq/scorecard-verifier/internal/common"
)

// baseColumns is the positional schema of the master CSV. Files with more
// columns get generic extra_col_N names; files with fewer just use a prefix.
var baseColumns = []string{
	"id", "email", "name", "father_name", "phone", "registration_id",
	"year", "paper_code", "score", "scoreof100", "rank",
}

// Record is one applicant row with original casing preserved and cells
// whitespace-stripped.
type Record map[string]string

// Get returns the value for a column, or "" when the column is absent.
func (r Record) Get(field string) string {
	return r[field]
}

// Table is the loaded master record set, indexed by applicant id.
type Table struct {
	rows  map[string]Record
	order []string
}

// Lookup returns the record for an applicant id. The second return value
// distinguishes an absent id from a present row with empty cells.
func (t *Table) Lookup(id string) (Record, bool) {
	rec, ok := t.rows[id]
	return rec, ok
}

// Len reports the number of indexed applicants.
func (t *Table) Len() int {
	return len(t.rows)
}

// IDs returns applicant ids in file order.
func (t *Table) IDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Load parses the headerless master CSV at path. Every cell is
// whitespace-stripped; case is preserved. Rows are indexed by the first
// column (id). Duplicate ids keep the last row.
func Load(path string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("master.load.start", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, common.NewAppError("MASTER_LOAD", fmt.Sprintf("open %s", path), common.ErrLoad)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Warn("master.load.close_error", "error", cerr)
		}
	}()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows may carry trailing extra columns
	r.TrimLeadingSpace = true

	t := &Table{rows: make(map[string]Record)}
	line := 0
	for {
		cells, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Error("master.load.parse_error", "line", line, "error", err)
			return nil, common.NewAppError("MASTER_LOAD", "unparsable master csv", common.ErrLoad)
		}
		line++
		if len(cells) == 0 {
			continue
		}
		rec := make(Record, len(cells))
		for i, cell := range cells {
			rec[columnName(i)] = strings.TrimSpace(cell)
		}
		id := rec["id"]
		if id == "" {
			logger.Warn("master.load.skip_row", "line", line, "reason", "empty id cell")
			continue
		}
		if _, dup := t.rows[id]; !dup {
			t.order = append(t.order, id)
		}
		t.rows[id] = rec
	}

	if len(t.rows) == 0 {
		logger.Error("master.load.empty", "path", path)
		return nil, common.NewAppError("MASTER_LOAD", "no indexable rows (id column missing or empty)", common.ErrLoad)
	}

	logger.Info("master.load.ok", "path", path, "rows", len(t.rows))
	return t, nil
}

func columnName(i int) string {
	if i < len(baseColumns) {
		return baseColumns[i]
	}
	return fmt.Sprintf("extra_col_%d", i+1-len(baseColumns))
}
