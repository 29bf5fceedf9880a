package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wordpath/learning-service/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 0, Percentage(5, 0))
	assert.Equal(t, 0, Percentage(0, 10))
	assert.Equal(t, 100, Percentage(10, 10))
	assert.Equal(t, 50, Percentage(5, 10))
	// Half-up rounding
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 70, Percentage(7, 10))
}

func TestScoreRoundAttempts(t *testing.T) {
	t.Run("both stages graded", func(t *testing.T) {
		// 5 words, 3 written correct, 4 choice correct: 7/10.
		attempts := []models.RoundAttempt{
			{WordID: 1, WrittenCorrect: true, ChoiceCorrect: boolPtr(true)},
			{WordID: 2, WrittenCorrect: true, ChoiceCorrect: boolPtr(true)},
			{WordID: 3, WrittenCorrect: true, ChoiceCorrect: boolPtr(true)},
			{WordID: 4, WrittenCorrect: false, ChoiceCorrect: boolPtr(true)},
			{WordID: 5, WrittenCorrect: false, ChoiceCorrect: boolPtr(false)},
		}
		assert.Equal(t, 70, ScoreRoundAttempts(attempts))
	})

	t.Run("missing choice answers shrink the denominator", func(t *testing.T) {
		// Choice stage never reached: only written outcomes count.
		attempts := []models.RoundAttempt{
			{WordID: 1, WrittenCorrect: true},
			{WordID: 2, WrittenCorrect: false},
		}
		assert.Equal(t, 50, ScoreRoundAttempts(attempts))
	})

	t.Run("empty set scores zero", func(t *testing.T) {
		assert.Equal(t, 0, ScoreRoundAttempts(nil))
		assert.Equal(t, 0, ScoreRoundAttempts([]models.RoundAttempt{}))
	})

	t.Run("all correct scores hundred", func(t *testing.T) {
		attempts := []models.RoundAttempt{
			{WordID: 1, WrittenCorrect: true, ChoiceCorrect: boolPtr(true)},
			{WordID: 2, WrittenCorrect: true, ChoiceCorrect: boolPtr(true)},
		}
		assert.Equal(t, 100, ScoreRoundAttempts(attempts))
	})

	t.Run("order invariance", func(t *testing.T) {
		attempts := []models.RoundAttempt{
			{WordID: 1, WrittenCorrect: true, ChoiceCorrect: boolPtr(false)},
			{WordID: 2, WrittenCorrect: false, ChoiceCorrect: boolPtr(true)},
			{WordID: 3, WrittenCorrect: true},
			{WordID: 4, WrittenCorrect: false, ChoiceCorrect: boolPtr(true)},
			{WordID: 5, WrittenCorrect: true, ChoiceCorrect: boolPtr(true)},
		}
		want := ScoreRoundAttempts(attempts)

		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 10; i++ {
			shuffled := make([]models.RoundAttempt, len(attempts))
			copy(shuffled, attempts)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			assert.Equal(t, want, ScoreRoundAttempts(shuffled))
		}
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 50; i++ {
			attempts := make([]models.RoundAttempt, rng.Intn(12))
			for j := range attempts {
				attempts[j] = models.RoundAttempt{
					WordID:         uint(j + 1),
					WrittenCorrect: rng.Intn(2) == 0,
				}
				if rng.Intn(2) == 0 {
					attempts[j].ChoiceCorrect = boolPtr(rng.Intn(2) == 0)
				}
			}
			score := ScoreRoundAttempts(attempts)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	})
}

func TestScoreGradedAnswers(t *testing.T) {
	t.Run("ungraded answers count against the denominator", func(t *testing.T) {
		answers := []models.OnlineTestAnswer{
			{WordID: 1, Correct: boolPtr(true)},
			{WordID: 2, Correct: boolPtr(false)},
			{WordID: 3}, // never marked
		}
		assert.Equal(t, 33, ScoreGradedAnswers(answers))
	})

	t.Run("empty answers score zero", func(t *testing.T) {
		assert.Equal(t, 0, ScoreGradedAnswers(nil))
	})

	t.Run("fully correct", func(t *testing.T) {
		answers := []models.OnlineTestAnswer{
			{WordID: 1, Correct: boolPtr(true)},
			{WordID: 2, Correct: boolPtr(true)},
		}
		assert.Equal(t, 100, ScoreGradedAnswers(answers))
	})
}

func TestAnswersMatch(t *testing.T) {
	cases := []struct {
		name     string
		given    string
		expected string
		want     bool
	}{
		{"exact", "cat", "cat", true},
		{"case insensitive", "CaT", "cat", true},
		{"surrounding whitespace", "  cat \t", "cat", true},
		{"backtick apostrophe", "don`t worry", "don't worry", true},
		{"typographic apostrophe", "don’t worry", "don't worry", true},
		{"wrong word", "dog", "cat", false},
		{"inner whitespace differs", "do nt", "dont", false},
		{"empty answer", "", "cat", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AnswersMatch(tc.given, tc.expected))
		})
	}
}
