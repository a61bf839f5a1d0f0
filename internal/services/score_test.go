package services

import (
	"strings"
	"testing"

	"github.com/immuned/rheumabot/internal/models"
)

func answersWithRanks(ranks []int) []models.Answer {
	out := make([]models.Answer, len(ranks))
	for i, r := range ranks {
		out[i] = models.Answer{Ordinal: i, Rank: r}
	}
	return out
}

func TestScoreSumsRanks(t *testing.T) {
	ranks := []int{1, 2, 1, 4, 2, 1, 3, 2}
	got := Score(answersWithRanks(ranks))
	if got.Numeric != 16 {
		t.Fatalf("Score numeric = %d, want 16", got.Numeric)
	}
	if got.Severity != models.SeveritySevere {
		t.Fatalf("Score severity = %s, want %s", got.Severity, models.SeveritySevere)
	}
}

func TestScoreDeterministic(t *testing.T) {
	ranks := []int{3, 1, 4, 2, 2, 3, 1, 4}
	first := Score(answersWithRanks(ranks))
	for i := 0; i < 10; i++ {
		if got := Score(answersWithRanks(ranks)); got != first {
			t.Fatalf("Score not deterministic: %v vs %v", got, first)
		}
	}
}

func TestSeverityBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  models.Severity
	}{
		{7, models.SeverityMild},
		{8, models.SeverityModerate},
		{14, models.SeverityModerate},
		{15, models.SeveritySevere},
		{21, models.SeveritySevere},
		{22, models.SeverityVerySevere},
		{32, models.SeverityVerySevere},
	}
	for _, c := range cases {
		if got := severityFor(c.score); got != c.want {
			t.Fatalf("severityFor(%d) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestClosingMessage(t *testing.T) {
	for _, sev := range []models.Severity{models.SeverityMild, models.SeverityModerate, models.SeveritySevere} {
		msg := ClosingMessage(sev)
		if msg != closingBase {
			t.Fatalf("ClosingMessage(%s) = %q, want base text only", sev, msg)
		}
	}
	urgent := ClosingMessage(models.SeverityVerySevere)
	if !strings.HasPrefix(urgent, closingBase) || !strings.Contains(urgent, "consulte um médico") {
		t.Fatalf("ClosingMessage(very_severe) missing urgent addendum: %q", urgent)
	}
}

func TestScoreAllMaxRanks(t *testing.T) {
	got := Score(answersWithRanks([]int{4, 4, 4, 4, 4, 4, 4, 4}))
	if got.Numeric != 32 || got.Severity != models.SeverityVerySevere {
		t.Fatalf("Score = %+v, want 32/very_severe", got)
	}
}
