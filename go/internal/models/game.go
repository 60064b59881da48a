package models

// RoomStatus defines the lifecycle status of a game room.
type RoomStatus string

const (
	RoomStatusWaiting    RoomStatus = "waiting"
	RoomStatusStarting   RoomStatus = "starting"
	RoomStatusInProgress RoomStatus = "in_progress"
	RoomStatusFinished   RoomStatus = "finished"
)

// RoundPhase is the sub-state of the current question while a game is in progress.
type RoundPhase string

const (
	RoundPhaseIdle      RoundPhase = "idle"
	RoundPhaseAccepting RoundPhase = "accepting_answers"
	RoundPhasePaused    RoundPhase = "paused"
	RoundPhaseScoring   RoundPhase = "scoring"
	RoundPhaseResults   RoundPhase = "results"
)

// PlayerState describes a room member from the engine's point of view.
type PlayerState string

const (
	PlayerStateActive       PlayerState = "active"
	PlayerStateDisconnected PlayerState = "disconnected"
	PlayerStateEliminated   PlayerState = "eliminated"
)

// RankingEntry is one row of the final standings.
type RankingEntry struct {
	Rank           int    `json:"rank"`
	PlayerID       string `json:"playerId"`
	Eliminated     bool   `json:"eliminated"`
	CorrectAnswers int    `json:"correctAnswers"`
}
