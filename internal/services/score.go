package services

import "github.com/immuned/rheumabot/internal/models"

// Severity thresholds over the summed 1-based option ranks, inclusive.
const (
	moderateFloor   = 8
	severeFloor     = 15
	verySevereFloor = 22
)

// Score sums the 1-based option ranks of a completed answer list and maps the
// total to a severity category. Pure: no I/O, no shared state.
func Score(answers []models.Answer) models.ScoreResult {
	total := 0
	for _, a := range answers {
		total += a.Rank
	}
	return models.ScoreResult{Numeric: total, Severity: severityFor(total)}
}

func severityFor(score int) models.Severity {
	switch {
	case score >= verySevereFloor:
		return models.SeverityVerySevere
	case score >= severeFloor:
		return models.SeveritySevere
	case score >= moderateFloor:
		return models.SeverityModerate
	default:
		return models.SeverityMild
	}
}

const (
	closingBase   = "Obrigado por responder às perguntas!"
	closingUrgent = " Recomendamos que você consulte um médico imediatamente devido à gravidade da sua condição."
)

// ClosingMessage returns the participant-facing completion text. Only the
// very-severe category carries the urgent-consultation addendum.
func ClosingMessage(sev models.Severity) string {
	if sev == models.SeverityVerySevere {
		return closingBase + closingUrgent
	}
	return closingBase
}
