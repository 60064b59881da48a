package room

import "github.com/mcdev12/quizroyale/go/internal/models"

// Snapshot is a read-only view of a room for state sync and admin tooling.
type Snapshot struct {
	Code                 string            `json:"code"`
	AdminID              string            `json:"adminId"`
	Status               models.RoomStatus `json:"status"`
	Phase                models.RoundPhase `json:"phase"`
	MaxPlayers           int               `json:"maxPlayers"`
	TotalQuestions       int               `json:"totalQuestions"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
	CurrentQuestionID    string            `json:"currentQuestionId,omitempty"`
	Players              []PlayerSnapshot  `json:"players"`
	EliminatedPlayers    []string          `json:"eliminatedPlayers"`
	AnsweredCount        int               `json:"answeredCount"`
	RemainingTime        *int              `json:"remainingTime,omitempty"`
	WinnerID             string            `json:"winnerId,omitempty"`
}

// PlayerSnapshot is one member in a Snapshot.
type PlayerSnapshot struct {
	PlayerID       string             `json:"playerId"`
	State          models.PlayerState `json:"state"`
	CorrectAnswers int                `json:"correctAnswers"`
}

// Snapshot copies the room state. Caller must hold the lock.
func (r *Room) Snapshot() Snapshot {
	s := Snapshot{
		Code:                 r.Code,
		AdminID:              r.AdminID,
		Status:               r.status,
		Phase:                r.phase,
		MaxPlayers:           r.MaxPlayers,
		TotalQuestions:       r.totalQuestions,
		CurrentQuestionIndex: r.currentQuestionIndex,
		CurrentQuestionID:    r.currentQuestionID,
		Players:              make([]PlayerSnapshot, 0, len(r.joinOrder)),
		EliminatedPlayers:    r.EliminatedPlayers(),
		AnsweredCount:        len(r.activeAnswers),
		WinnerID:             r.winnerID,
	}
	for _, id := range r.joinOrder {
		s.Players = append(s.Players, PlayerSnapshot{
			PlayerID:       id,
			State:          r.PlayerState(id),
			CorrectAnswers: r.correctCounts[id],
		})
	}
	switch {
	case r.timer != nil:
		remaining := r.timer.Remaining
		s.RemainingTime = &remaining
	case r.phase == models.RoundPhasePaused:
		remaining := CeilSeconds(r.pausedRemaining)
		s.RemainingTime = &remaining
	}
	return s
}
