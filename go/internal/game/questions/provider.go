package questions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mcdev12/quizroyale/go/internal/models"
)

// ErrNotFound is returned when no question set exists for a game.
var ErrNotFound = errors.New("no questions for game")

// Provider supplies the ordered question list for a game.
type Provider interface {
	GameQuestions(ctx context.Context, gameCode string) ([]models.Question, error)
}

// validate orders questions by position and checks every one is playable.
func validate(qs []models.Question) ([]models.Question, error) {
	out := make([]models.Question, len(qs))
	copy(out, qs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })

	seen := make(map[string]bool, len(out))
	for i, q := range out {
		if q.ID == "" {
			return nil, fmt.Errorf("question %d: missing id", i)
		}
		if seen[q.ID] {
			return nil, fmt.Errorf("question %s: duplicate id", q.ID)
		}
		seen[q.ID] = true
		if q.CorrectAnswer == "" || !models.IsValidOption(q.CorrectAnswer) {
			return nil, fmt.Errorf("question %s: invalid correct answer %q", q.ID, q.CorrectAnswer)
		}
		if _, ok := q.Options[q.CorrectAnswer]; !ok {
			return nil, fmt.Errorf("question %s: correct answer %s has no option text", q.ID, q.CorrectAnswer)
		}
	}
	return out, nil
}
