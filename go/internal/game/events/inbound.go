package events

import "encoding/json"

// Inbound message types consumed by the engine.
const (
	MessageTypeSubmitAnswer = "submit-answer"
	MessageTypeAdminAction  = "admin-action"
)

// AdminActionType enumerates what an admin may ask for.
type AdminActionType string

const (
	AdminActionStartGame    AdminActionType = "start-game"
	AdminActionNextQuestion AdminActionType = "next-question"
	AdminActionEndGame      AdminActionType = "end-game"
	AdminActionPauseGame    AdminActionType = "pause-game"
)

// ClientMessage is the envelope clients send over the socket or the bus.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SubmitAnswer is a player's answer submission.
type SubmitAnswer struct {
	GameCode       string  `json:"gameCode"`
	PlayerID       string  `json:"playerId"`
	QuestionID     string  `json:"questionId"`
	SelectedAnswer string  `json:"selectedAnswer"`
	ResponseTime   float64 `json:"responseTime"`
}

// AdminAction is a control request from the game admin.
type AdminAction struct {
	Action   AdminActionType `json:"action"`
	GameCode string          `json:"gameCode"`
	AdminID  string          `json:"adminId"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}
