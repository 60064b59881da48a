package elimination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/quizroyale/go/internal/models"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func answer(player, selected string, offset time.Duration) models.Answer {
	return models.Answer{
		PlayerID:        player,
		QuestionID:      "q1",
		SelectedAnswer:  selected,
		ServerTimestamp: base.Add(offset),
	}
}

func TestScore_EliminatesSlowestCorrect(t *testing.T) {
	answers := []models.Answer{
		answer("player1", "A", 1*time.Second),
		answer("player2", "B", 2*time.Second),
		answer("player3", "A", 3*time.Second),
	}

	res := Score(answers, "A", false)

	assert.Equal(t, []string{"player1", "player3"}, res.CorrectAnswerers)
	assert.Equal(t, []string{"player2"}, res.IncorrectAnswerers)
	assert.Equal(t, "player3", res.EliminatedPlayerID)
	assert.Empty(t, res.WinnerID)
	assert.True(t, res.HasElimination())
}

func TestScore_FinalQuestionCrownsFastestCorrect(t *testing.T) {
	answers := []models.Answer{
		answer("player1", "A", 5200*time.Millisecond),
		answer("player2", "B", 2000*time.Millisecond),
		answer("player3", "A", 7800*time.Millisecond),
	}

	res := Score(answers, "A", true)

	assert.Equal(t, "player1", res.WinnerID)
	assert.Empty(t, res.EliminatedPlayerID)
	assert.Equal(t, []string{"player1", "player3"}, res.CorrectAnswerers)
}

func TestScore_SafeRounds(t *testing.T) {
	tests := []struct {
		name    string
		answers []models.Answer
	}{
		{name: "no answers", answers: nil},
		{name: "nobody correct", answers: []models.Answer{
			answer("p1", "B", time.Second),
			answer("p2", "C", 2*time.Second),
		}},
		{name: "single correct", answers: []models.Answer{
			answer("p1", "A", time.Second),
			answer("p2", "C", 2*time.Second),
			answer("p3", "", 3*time.Second),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(tt.answers, "A", false)
			assert.Empty(t, res.EliminatedPlayerID)
			assert.Empty(t, res.WinnerID)
			assert.Len(t, res.AllAnswers, len(tt.answers))
		})
	}
}

func TestScore_FinalQuestionWithoutCorrectAnswers(t *testing.T) {
	res := Score([]models.Answer{answer("p1", "B", time.Second)}, "A", true)
	assert.Empty(t, res.WinnerID)
	assert.Empty(t, res.EliminatedPlayerID)
}

func TestScore_UsesServerTimestampNotResponseTime(t *testing.T) {
	fast := answer("honest", "A", 1*time.Second)
	fast.ResponseTime = 9.5
	cheat := answer("cheater", "A", 2*time.Second)
	cheat.ResponseTime = 0.01

	res := Score([]models.Answer{cheat, fast}, "A", false)

	assert.Equal(t, []string{"honest", "cheater"}, res.CorrectAnswerers)
	assert.Equal(t, "cheater", res.EliminatedPlayerID)
}

func TestScore_TiesKeepSubmissionOrder(t *testing.T) {
	first := answer("first", "A", time.Second)
	second := answer("second", "A", time.Second)

	res := Score([]models.Answer{first, second}, "A", false)
	assert.Equal(t, "second", res.EliminatedPlayerID)

	final := Score([]models.Answer{first, second}, "A", true)
	assert.Equal(t, "first", final.WinnerID)
}

func TestScore_DoesNotMutateInput(t *testing.T) {
	answers := []models.Answer{
		answer("p1", "A", 2*time.Second),
		answer("p2", "A", 1*time.Second),
	}
	snapshot := append([]models.Answer(nil), answers...)

	res := Score(answers, "A", false)

	assert.Equal(t, snapshot, answers)
	require.Len(t, res.AllAnswers, 2)
	for _, a := range res.AllAnswers {
		assert.True(t, a.IsCorrect)
	}
	for _, a := range answers {
		assert.False(t, a.IsCorrect)
	}
}

func TestScore_EmptyCorrectAnswerNeverMatchesTimeouts(t *testing.T) {
	res := Score([]models.Answer{
		answer("p1", "", time.Second),
		answer("p2", "", 2*time.Second),
	}, "", false)

	assert.Empty(t, res.CorrectAnswerers)
	assert.Equal(t, []string{"p1", "p2"}, res.IncorrectAnswerers)
	assert.Empty(t, res.EliminatedPlayerID)
}

func TestScore_Deterministic(t *testing.T) {
	answers := []models.Answer{
		answer("a", "C", 3*time.Second),
		answer("b", "C", 1*time.Second),
		answer("c", "D", 2*time.Second),
		answer("d", "C", 2*time.Second),
	}

	first := Score(answers, "C", false)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Score(answers, "C", false))
	}
	assert.Equal(t, []string{"b", "d", "a"}, first.CorrectAnswerers)
	assert.Equal(t, "a", first.EliminatedPlayerID)
}
