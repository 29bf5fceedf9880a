package services

import (
	"math"

	"github.com/wordpath/learning-service/internal/models"
)

// Score computation is pure and total: any attempt collection maps to a
// percentage in [0, 100], and an empty collection maps to 0.

// Percentage returns round(100 * correct / total), or 0 when total is 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// ScoreRoundAttempts computes the round-test score. Each word contributes a
// written outcome and, if the choice stage was reached for it, a choice
// outcome. Denominators are counted explicitly so an abandoned stage does
// not penalize words that never got a choice sub-question.
func ScoreRoundAttempts(attempts []models.RoundAttempt) int {
	correct, total := 0, 0
	for _, a := range attempts {
		total++
		if a.WrittenCorrect {
			correct++
		}
		if a.ChoiceCorrect != nil {
			total++
			if *a.ChoiceCorrect {
				correct++
			}
		}
	}
	return Percentage(correct, total)
}

// ScoreGradedAnswers computes the authoritative online-test score from
// teacher-marked correctness flags. Ungraded answers count against the
// denominator but never toward it.
func ScoreGradedAnswers(answers []models.OnlineTestAnswer) int {
	correct := 0
	for _, a := range answers {
		if a.Correct != nil && *a.Correct {
			correct++
		}
	}
	return Percentage(correct, len(answers))
}
