package llm

import "strings"

// cleanResponse strips markdown artifacts the model tends to wrap values in.
func cleanResponse(raw string) string {
	cleaned := strings.ReplaceAll(raw, "*", "")
	cleaned = strings.ReplaceAll(cleaned, "`", "")
	return strings.TrimSpace(cleaned)
}

// parseLine splits a cleaned response into trimmed comma-separated values.
func parseLine(cleaned string) []string {
	parts := strings.Split(cleaned, ",")
	values := make([]string, len(parts))
	for i, p := range parts {
		values[i] = strings.TrimSpace(p)
	}
	return values
}

// fieldsFromValues zips a correctly sized value list into the fixed field
// vocabulary. Order follows the extraction prompt.
func fieldsFromValues(values []string) ScorecardFields {
	return ScorecardFields{
		Name:           values[0],
		FatherName:     values[1],
		RegistrationID: values[2],
		Year:           values[3],
		Score:          values[4],
		ScoreOf100:     values[5],
		Rank:           values[6],
	}
}
