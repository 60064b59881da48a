// Package elimination decides who leaves the game after a question.
//
// Score is pure: it performs no I/O, never mutates its input and returns the
// same Result for the same input slice. Ordering always uses the server
// arrival timestamp. The client reported response time is never consulted.
package elimination

import (
	"sort"

	"github.com/mcdev12/quizroyale/go/internal/models"
)

// Result is the outcome of scoring a single question.
type Result struct {
	// EliminatedPlayerID is empty when nobody was eliminated.
	EliminatedPlayerID string
	// WinnerID is only set on the final question.
	WinnerID           string
	CorrectAnswerers   []string
	IncorrectAnswerers []string
	AllAnswers         []models.Answer
}

// HasElimination reports whether the round removed a player.
func (r Result) HasElimination() bool {
	return r.EliminatedPlayerID != ""
}

// HasWinner reports whether the round crowned a winner.
func (r Result) HasWinner() bool {
	return r.WinnerID != ""
}

// Score classifies answers against correctAnswer and applies the round rule.
//
// On a regular question the slowest correct answerer is eliminated, but only
// when at least two players answered correctly. On the final question the
// fastest correct answerer wins and nobody is eliminated. Answers must be
// given in submission order so that equal timestamps fall back to it.
func Score(answers []models.Answer, correctAnswer string, isFinalQuestion bool) Result {
	res := Result{
		CorrectAnswerers:   []string{},
		IncorrectAnswerers: []string{},
		AllAnswers:         make([]models.Answer, 0, len(answers)),
	}

	var correct []models.Answer
	for _, a := range answers {
		// a is a copy; the caller's record is untouched
		a.IsCorrect = a.SelectedAnswer != "" && a.SelectedAnswer == correctAnswer
		res.AllAnswers = append(res.AllAnswers, a)
		if a.IsCorrect {
			correct = append(correct, a)
		} else {
			res.IncorrectAnswerers = append(res.IncorrectAnswerers, a.PlayerID)
		}
	}

	sort.SliceStable(correct, func(i, j int) bool {
		return correct[i].ServerTimestamp.Before(correct[j].ServerTimestamp)
	})
	for _, a := range correct {
		res.CorrectAnswerers = append(res.CorrectAnswerers, a.PlayerID)
	}

	if isFinalQuestion {
		if len(correct) >= 1 {
			res.WinnerID = correct[0].PlayerID
		}
		return res
	}

	// zero or one correct answer is a safe round
	if len(correct) >= 2 {
		res.EliminatedPlayerID = correct[len(correct)-1].PlayerID
	}
	return res
}
