package llm

import "context"

// ExpectedFieldCount is the arity of the comma-separated extraction response.
const ExpectedFieldCount = 7

// ScorecardFields is the normalized shape we want from the vision model.
// PaperCode is never extracted directly; it is derived from RegistrationID.
type ScorecardFields struct {
	Name           string `json:"name"`
	FatherName     string `json:"father_name"`
	RegistrationID string `json:"registration_id"`
	Year           string `json:"year"`
	Score          string `json:"score"`
	ScoreOf100     string `json:"scoreof100"`
	Rank           string `json:"rank"`
	PaperCode      string `json:"paper_code"`
}

// Get returns a field by its report name. Unknown names return "".
func (f ScorecardFields) Get(name string) string {
	switch name {
	case "name":
		return f.Name
	case "father_name":
		return f.FatherName
	case "registration_id":
		return f.RegistrationID
	case "year":
		return f.Year
	case "score":
		return f.Score
	case "scoreof100":
		return f.ScoreOf100
	case "rank":
		return f.Rank
	case "paper_code":
		return f.PaperCode
	}
	return ""
}

// ScorecardExtractor is the interface the pipeline depends on.
type ScorecardExtractor interface {
	ExtractScorecard(ctx context.Context, imagePath string) (ScorecardFields, error)
	ExtractSingleField(ctx context.Context, imagePath, fieldName, contextHint string) (string, error)
}

// Completer sends one instruction plus one image to the extraction backend
// and returns the raw text completion.
type Completer interface {
	Complete(ctx context.Context, prompt, imagePath string) (string, error)
}
