// Package scanner discovers candidate source documents under a root
// directory laid out as can_<applicant_id>/<...gate_scorecard...>.
package scanner

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/verifyhq/scorecard-verifier/constants"
)

// Scan enumerates immediate subdirectories of root that follow the
// candidate-folder naming convention and locates the first file whose name
// contains the scorecard marker (case-insensitive). Malformed folder names
// are skipped without failing the scan. An empty map is a valid result; a
// missing root is an error for the caller to handle.
func Scan(root string, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("scanner.start", "root", root)

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source root is not a valid directory: %s", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read source root: %w", err)
	}

	found := make(map[string]string)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), constants.CandidateFolderPrefix) {
			continue
		}
		applicantID := name[len(constants.CandidateFolderPrefix):]
		if !validApplicantID(applicantID) {
			logger.Warn("scanner.skip_malformed", "dir", name)
			continue
		}

		folder := filepath.Join(root, name)
		files, err := os.ReadDir(folder)
		if err != nil {
			logger.Warn("scanner.read_dir_error", "dir", folder, "error", err)
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if strings.Contains(strings.ToLower(f.Name()), constants.ScorecardMarker) {
				found[applicantID] = filepath.Join(folder, f.Name())
				logger.Info("scanner.found", "applicant_id", applicantID, "file", f.Name())
				break // first match wins, stop scanning this folder
			}
		}
	}

	logger.Info("scanner.done", "root", root, "found", len(found))
	return found, nil
}

// validApplicantID requires a non-empty numeric suffix after the folder
// prefix; anything else is a malformed folder name.
func validApplicantID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
