package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
	"github.com/mcdev12/quizroyale/go/internal/models"
)

// pausePayload optionally forces the direction of a pause-game action.
// Without it the action toggles.
type pausePayload struct {
	Paused *bool `json:"paused"`
}

// HandleAdminAction checks the caller is the room's admin and applies the
// action.
func (c *Controller) HandleAdminAction(ctx context.Context, action events.AdminAction) error {
	r, err := c.registry.Get(action.GameCode)
	if err != nil {
		return err
	}
	if action.AdminID == "" || action.AdminID != r.AdminID {
		log.Warn().
			Str("game_code", r.Code).
			Str("admin_id", action.AdminID).
			Str("action", string(action.Action)).
			Msg("unauthorized admin action")
		return fmt.Errorf("%s on %s: %w", action.Action, r.Code, ErrUnauthorized)
	}

	log.Info().
		Str("game_code", r.Code).
		Str("admin_id", action.AdminID).
		Str("action", string(action.Action)).
		Msg("handling admin action")

	switch action.Action {
	case events.AdminActionStartGame:
		return c.startGame(r)
	case events.AdminActionNextQuestion:
		return c.nextQuestion(r)
	case events.AdminActionPauseGame:
		var p pausePayload
		if len(action.Payload) > 0 && string(action.Payload) != "null" {
			if err := json.Unmarshal(action.Payload, &p); err != nil {
				return fmt.Errorf("failed to unmarshal pause payload: %w", err)
			}
		}
		return c.pauseGame(r, p.Paused)
	case events.AdminActionEndGame:
		c.endGame(r)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action.Action)
	}
}

// startGame moves a waiting room into the countdown before question one.
func (c *Controller) startGame(r *room.Room) error {
	r.Lock()
	defer r.Unlock()

	if r.Status() != models.RoomStatusWaiting {
		return fmt.Errorf("%w: game %s is %s", ErrInvalidTransition, r.Code, r.Status())
	}
	if r.TotalQuestions() == 0 {
		return fmt.Errorf("game %s: %w", r.Code, ErrNoQuestions)
	}
	if len(r.Players()) == 0 {
		return fmt.Errorf("game %s: %w", r.Code, ErrNoPlayers)
	}
	if err := r.Transition(models.RoomStatusStarting); err != nil {
		return err
	}

	c.broadcast(r.Code, events.EventTypeGameStarting, events.GameStartingPayload{
		StartsIn:       int(c.cfg.StartDelay / time.Second),
		TotalQuestions: r.TotalQuestions(),
		PlayerCount:    len(r.Players()),
	})

	if c.cfg.StartDelay <= 0 {
		return c.beginGameLocked(r)
	}
	r.SetStartTimer(c.clock.AfterFunc(c.cfg.StartDelay, func() {
		defer recoverRound(r.Code)
		r.Lock()
		defer r.Unlock()
		if err := c.beginGameLocked(r); err != nil {
			log.Error().Err(err).Str("game_code", r.Code).Msg("failed to begin game")
		}
	}))
	return nil
}

func (c *Controller) beginGameLocked(r *room.Room) error {
	// The countdown may have been cancelled by end-game.
	if r.Status() != models.RoomStatusStarting {
		return nil
	}
	if err := r.Transition(models.RoomStatusInProgress); err != nil {
		return err
	}
	log.Info().Str("game_code", r.Code).Int("players", len(r.Players())).Msg("game in progress")
	return c.startQuestionLocked(r, 0)
}

// nextQuestion advances from a scored question, ending the game when the
// last question is behind us.
func (c *Controller) nextQuestion(r *room.Room) error {
	r.Lock()
	defer r.Unlock()

	if r.Status() != models.RoomStatusInProgress || r.Phase() != models.RoundPhaseResults {
		return fmt.Errorf("%w: game %s is %s/%s", ErrInvalidTransition, r.Code, r.Status(), r.Phase())
	}
	next := r.CurrentQuestionIndex() + 1
	if next >= r.TotalQuestions() {
		c.finishLocked(r, "")
		return nil
	}
	return c.startQuestionLocked(r, next)
}

// pauseGame freezes or resumes the running question. A nil want toggles.
func (c *Controller) pauseGame(r *room.Room, want *bool) error {
	r.Lock()
	defer r.Unlock()

	phase := r.Phase()
	pause := phase == models.RoundPhaseAccepting
	if want != nil {
		pause = *want
	}

	switch {
	case pause && phase == models.RoundPhaseAccepting:
		remaining := time.Duration(c.QuestionSeconds()) * time.Second
		if qt := r.Timer(); qt != nil {
			remaining = qt.EndsAt.Sub(c.clock.Now())
		}
		r.ClearTimers()
		r.Pause(remaining)
		c.broadcast(r.Code, events.EventTypeGamePaused, events.GamePausedPayload{
			QuestionID:    r.CurrentQuestionID(),
			RemainingTime: room.CeilSeconds(remaining),
		})
		log.Info().Str("game_code", r.Code).Dur("remaining", remaining).Msg("question paused")
		return nil

	case !pause && phase == models.RoundPhasePaused:
		remaining := r.Resume()
		c.broadcast(r.Code, events.EventTypeGameResumed, events.GameResumedPayload{
			QuestionID:    r.CurrentQuestionID(),
			RemainingTime: room.CeilSeconds(remaining),
		})
		log.Info().Str("game_code", r.Code).Dur("remaining", remaining).Msg("question resumed")
		switch {
		case remaining <= 0:
			c.processResultsLocked(r, triggerDeadline)
		case r.AllAnswered():
			// the last player still thinking left during the pause
			c.processResultsLocked(r, triggerAllAnswered)
		default:
			c.armQuestionTimer(r, remaining)
		}
		return nil
	}
	return fmt.Errorf("%w: cannot pause=%t game %s in phase %s", ErrInvalidTransition, pause, r.Code, phase)
}

// endGame finishes the game if it is still running and removes the room.
func (c *Controller) endGame(r *room.Room) {
	r.Lock()
	c.finishLocked(r, "")
	r.Unlock()

	c.registry.Delete(r.Code)
	c.metrics.SetActiveRooms(c.registry.Len())
	log.Info().Str("game_code", r.Code).Msg("game removed")
}

// CancelGame ends a game without an admin check. Used for cancellations
// coming from the admin panel's database.
func (c *Controller) CancelGame(ctx context.Context, code string) error {
	r, err := c.registry.Get(code)
	if err != nil {
		return err
	}
	c.endGame(r)
	return nil
}

// finishLocked moves the room to finished and emits game-over once. When no
// winner was crowned and exactly one survivor is left in a started game,
// that survivor wins.
func (c *Controller) finishLocked(r *room.Room, winnerID string) {
	r.ClearTimers()
	r.ClearStartTimer()
	status := r.Status()
	if status == models.RoomStatusFinished {
		return
	}

	if winnerID == "" && status == models.RoomStatusInProgress {
		if survivors := r.Survivors(); len(survivors) == 1 {
			winnerID = survivors[0]
		}
	}
	r.SetWinner(winnerID)
	if err := r.Transition(models.RoomStatusFinished); err != nil {
		log.Error().Err(err).Str("game_code", r.Code).Msg("failed to finish game")
		return
	}
	r.SetPhase(models.RoundPhaseIdle)

	if !r.MarkGameOver() {
		return
	}
	c.broadcast(r.Code, events.EventTypeGameOver, events.GameOverPayload{
		WinnerID:     events.Optional(winnerID),
		FinalRanking: Ranking(r),
	})
	c.metrics.RecordGameFinished(winnerID != "")
	log.Info().
		Str("game_code", r.Code).
		Str("winner", winnerID).
		Int("eliminated", len(r.EliminatedPlayers())).
		Msg("game over")
}
