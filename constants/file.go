package constants

import "strings"

// AllowedExtensions holds the source document types the normalizer accepts.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"webp": {},
}

// CandidateFolderPrefix is the naming convention for applicant folders,
// e.g. "can_1001" maps to applicant id "1001".
const CandidateFolderPrefix = "can_"

// ScorecardMarker is the case-insensitive substring that identifies a
// scorecard file inside a candidate folder.
const ScorecardMarker = "gate_scorecard"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// AllowedExt reports whether a normalized extension is a supported source type.
func AllowedExt(ext string) bool {
	_, ok := AllowedExtensions[ext]
	return ok
}
