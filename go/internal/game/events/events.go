package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GameEvent is the envelope for every message the engine sends to clients.
type GameEvent struct {
	ID        string          `json:"id"`
	GameCode  string          `json:"gameCode"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType identifies an outbound event.
type EventType string

const (
	EventTypeTimerUpdate      EventType = "timer-update"
	EventTypeQuestionStarted  EventType = "question-started"
	EventTypeQuestionResult   EventType = "question-result"
	EventTypePlayerEliminated EventType = "player-eliminated"
	EventTypeGameOver         EventType = "game-over"
	EventTypeGameStarting     EventType = "game-starting"
	EventTypeGamePaused       EventType = "game-paused"
	EventTypeGameResumed      EventType = "game-resumed"
	EventTypeAnswerAccepted   EventType = "answer-accepted"
	EventTypePlayerJoined     EventType = "player-joined"
	EventTypeError            EventType = "error"
)

// NewEvent wraps a payload in an envelope.
func NewEvent(gameCode string, eventType EventType, payload any, at time.Time) (*GameEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &GameEvent{
		ID:        uuid.New().String(),
		GameCode:  gameCode,
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}

// Decode unmarshals the event data into v.
func (e *GameEvent) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}
