// Package verify compares extracted scorecard fields against the master
// record for one applicant and builds the persisted report row.
package verify

import (
	"strings"

	"github.com/verifyhq/scorecard-verifier/constants"
	"github.com/verifyhq/scorecard-verifier/internal/llm"
	"github.com/verifyhq/scorecard-verifier/internal/master"
)

// MatchStatus is the tri-state comparison outcome. An empty master value can
// never match: absence of ground truth is always a mismatch in the report.
type MatchStatus int

const (
	Mismatch MatchStatus = iota
	Match
	NoGroundTruth
)

// Report serializes the status at the persistence boundary.
func (s MatchStatus) Report() string {
	if s == Match {
		return "True"
	}
	return "False"
}

// ComparedFields is the fixed, ordered set of fields in every report row.
// The names double as master-table column names.
var ComparedFields = []string{
	"name", "father_name", "registration_id", "year",
	"paper_code", "score", "scoreof100", "rank",
}

// charsToTrim are stripped from both sides before comparing.
const charsToTrim = " \t\n\v\f\r.,"

// FieldResult is one compared field's triple.
type FieldResult struct {
	Field     string
	Input     string
	Extracted string
	Status    MatchStatus
}

// Row is the per-document verification output.
type Row struct {
	ApplicantID string
	Error       string // marker for short-circuited rows, empty otherwise
	Fields      []FieldResult
}

// ErrorRow builds a short-circuited row carrying only a marker.
func ErrorRow(applicantID, marker string) Row {
	return Row{ApplicantID: applicantID, Error: marker}
}

// Verify compares the extracted fields against the master record. An id
// absent from the master table or a nil field set short-circuits into an
// error row with an empty failed-fields list. Otherwise every compared field
// yields a triple, and the names of non-matching fields are collected for
// the targeted-retry decision.
func Verify(table *master.Table, applicantID string, fields *llm.ScorecardFields) (Row, []string) {
	rec, ok := table.Lookup(applicantID)
	if !ok {
		return ErrorRow(applicantID, constants.MarkerIDNotFound), nil
	}
	if fields == nil {
		return ErrorRow(applicantID, constants.MarkerParseError+": extracted data is not a valid field set"), nil
	}

	row := Row{ApplicantID: applicantID}
	var failed []string

	for _, field := range ComparedFields {
		input := rec.Get(field)
		extracted := fields.Get(field)
		status := compare(input, extracted)
		if status != Match {
			failed = append(failed, field)
		}
		row.Fields = append(row.Fields, FieldResult{
			Field:     field,
			Input:     input,
			Extracted: extracted,
			Status:    status,
		})
	}
	return row, failed
}

// compare lowercases and trims whitespace, periods and commas from both
// sides. Equality with a non-empty master value is the only Match.
func compare(input, extracted string) MatchStatus {
	in := strings.Trim(strings.ToLower(input), charsToTrim)
	ex := strings.Trim(strings.ToLower(extracted), charsToTrim)
	if in == "" {
		return NoGroundTruth
	}
	if in == ex {
		return Match
	}
	return Mismatch
}

// Headers returns the stable flat column order: id, error marker, then an
// input/extracted/status triple per compared field.
func Headers() []string {
	out := []string{"id", "error"}
	for _, f := range ComparedFields {
		out = append(out, "input_"+f, "extracted_"+f, f+"_status")
	}
	return out
}

// Flatten renders the row as a flat key/value set in Headers order.
// Short-circuited rows carry the marker under "error" and empty triples.
func (r Row) Flatten() map[string]string {
	out := map[string]string{
		"id":    r.ApplicantID,
		"error": r.Error,
	}
	for _, f := range ComparedFields {
		out["input_"+f] = ""
		out["extracted_"+f] = ""
		out[f+"_status"] = ""
	}
	for _, fr := range r.Fields {
		out["input_"+fr.Field] = fr.Input
		out["extracted_"+fr.Field] = fr.Extracted
		out[fr.Field+"_status"] = fr.Status.Report()
	}
	return out
}
