package constants

// JobStatus is the canonical status for rows in the jobs table.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending    JobStatus = "PENDING"    // created, not yet picked up
	JobStatusProcessing JobStatus = "PROCESSING" // pipeline running
	JobStatusComplete   JobStatus = "COMPLETE"   // pipeline ran to the end
	JobStatusFailed     JobStatus = "FAILED"     // terminal failure
)

// Marker strings written into result rows for per-document failures.
const (
	MarkerIDNotFound        = "ID NOT FOUND IN MASTER CSV"
	MarkerCompressionFailed = "COMPRESSION_FAILED"
	MarkerParseError        = "PARSE_ERROR"
	MarkerAPIOrFileError    = "API_OR_FILE_ERROR"
	MarkerNotAvailable      = "N/A"
)
