package events

import "github.com/mcdev12/quizroyale/go/internal/models"

// TimerUpdatePayload is sent once when a question starts and then every second.
type TimerUpdatePayload struct {
	RemainingTime int  `json:"remainingTime"`
	IsUrgent      bool `json:"isUrgent"`
}

// QuestionStartedPayload announces a question. It never carries the answer.
type QuestionStartedPayload struct {
	QuestionID      string            `json:"questionId"`
	Index           int               `json:"index"`
	Total           int               `json:"total"`
	Text            string            `json:"text"`
	Options         map[string]string `json:"options"`
	TimeLimit       int               `json:"timeLimit"`
	IsFinalQuestion bool              `json:"isFinalQuestion"`
}

// QuestionResultPayload is broadcast after a question has been scored.
type QuestionResultPayload struct {
	QuestionID         string   `json:"questionId"`
	CorrectAnswer      string   `json:"correctAnswer"`
	Explanation        string   `json:"explanation,omitempty"`
	EliminatedPlayerID *string  `json:"eliminatedPlayerId"`
	WinnerID           *string  `json:"winnerId"`
	CorrectAnswerers   []string `json:"correctAnswerers"`
	IncorrectAnswerers []string `json:"incorrectAnswerers"`
	Survivors          []string `json:"survivors"`
	IsFinalQuestion    bool     `json:"isFinalQuestion"`
}

// PlayerEliminatedPayload is sent only when a round eliminated someone.
type PlayerEliminatedPayload struct {
	PlayerID      string `json:"playerId"`
	QuestionID    string `json:"questionId"`
	CorrectAnswer string `json:"correctAnswer"`
}

// GameOverPayload closes the game.
type GameOverPayload struct {
	WinnerID     *string               `json:"winnerId"`
	FinalRanking []models.RankingEntry `json:"finalRanking"`
}

// GameStartingPayload announces the countdown before the first question.
type GameStartingPayload struct {
	StartsIn       int `json:"startsIn"`
	TotalQuestions int `json:"totalQuestions"`
	PlayerCount    int `json:"playerCount"`
}

// GamePausedPayload is sent when the admin freezes the clock.
type GamePausedPayload struct {
	QuestionID    string `json:"questionId"`
	RemainingTime int    `json:"remainingTime"`
}

// GameResumedPayload is sent when a paused question continues.
type GameResumedPayload struct {
	QuestionID    string `json:"questionId"`
	RemainingTime int    `json:"remainingTime"`
}

// AnswerAcceptedPayload acknowledges a submission to its sender only.
type AnswerAcceptedPayload struct {
	QuestionID string `json:"questionId"`
}

// PlayerJoinedPayload tells the room a member arrived.
type PlayerJoinedPayload struct {
	PlayerID    string `json:"playerId"`
	PlayerCount int    `json:"playerCount"`
}

// ErrorPayload is sent to a single client whose request was refused.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Optional turns an empty id into a JSON null.
func Optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
