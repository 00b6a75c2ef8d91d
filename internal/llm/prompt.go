package llm

import "fmt"

// scorecardPrompt instructs the model to emit exactly one comma-separated
// line with the seven extracted fields, in vocabulary order.
const scorecardPrompt = `From the provided image of a GATE scorecard, extract the specified fields. The output MUST be a single line of comma-separated values without any headers or labels.
Fields to Extract:
	1.Candidate's Name
	2.Father's Name
	3.Registration Number: This is a critical 13-character alphanumeric code. It follows a strict pattern: XXYYSA####### where:
							XX is the 2-letter paper code (e.g., CS, ME, EC).
							YY is the 2-digit examination year (e.g., 22 for 2022).
							SA is the session identifier, like S1, S2, S3, etc.
							####### is the 7-digit unique applicant ID - Numbers Only.
							The entire string (e.g., CS22S12093082) MUST be extracted as one piece.
	4.Year of Examination: Extract the 4-digit year.
	5.GATE Score: The normalized score, typically out of 1000.
	6.Marks out of 100: The actual marks obtained by the candidate.
	7.All India Rank: The candidate's rank, often labeled as AIR.
	Output Format Example:
	John Doe,Robert Doe,CS24S21098765,2024,850,85.50,123`

// singleFieldPrompt builds the narrowly scoped re-extraction instruction.
func singleFieldPrompt(fieldName, contextHint string) string {
	return fmt.Sprintf(
		"The document shows information for a candidate named '%s'. "+
			"Analyze the image and extract ONLY the %s. "+
			"Do not provide any other text, labels, or explanations. "+
			"Just return the value of the %s.",
		contextHint, fieldName, fieldName,
	)
}
