package models

import "time"

// Answer option codes. An empty selection means the player timed out.
const (
	OptionA = "A"
	OptionB = "B"
	OptionC = "C"
	OptionD = "D"
)

// Answer is one player's response to one question. Values are never modified
// after submission; scoring works on copies.
type Answer struct {
	PlayerID        string    `json:"playerId"`
	QuestionID      string    `json:"questionId"`
	SelectedAnswer  string    `json:"selectedAnswer"`
	ResponseTime    float64   `json:"responseTime"` // client reported seconds, display only
	ServerTimestamp time.Time `json:"serverTimestamp"`
	IsCorrect       bool      `json:"isCorrect"`
}

// IsValidOption reports whether s is one of the four option codes or empty.
func IsValidOption(s string) bool {
	switch s {
	case "", OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}
