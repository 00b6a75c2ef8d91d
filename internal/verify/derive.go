package verify

import (
	"strings"

	"github.com/verifyhq/scorecard-verifier/constants"
	"github.com/verifyhq/scorecard-verifier/internal/llm"
)

// DerivePaperCode fills PaperCode from the first two characters of the
// registration identifier, uppercased. Identifiers shorter than two
// characters get an explicit not-available marker. Pure; never fails.
func DerivePaperCode(fields llm.ScorecardFields) llm.ScorecardFields {
	reg := strings.TrimSpace(fields.RegistrationID)
	if len(reg) >= 2 {
		fields.PaperCode = strings.ToUpper(reg[:2])
	} else {
		fields.PaperCode = constants.MarkerNotAvailable
	}
	return fields
}
