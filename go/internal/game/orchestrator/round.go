package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroyale/go/internal/game/elimination"
	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
	"github.com/mcdev12/quizroyale/go/internal/models"
)

// What closed a question, for logs and metrics.
const (
	triggerDeadline    = "deadline"
	triggerAllAnswered = "all_answered"
	triggerAdmin       = "admin"
)

// StartQuestion opens question index for answers and starts its countdown.
func (c *Controller) StartQuestion(ctx context.Context, code string, index int) error {
	r, err := c.registry.Get(code)
	if err != nil {
		return err
	}
	r.Lock()
	defer r.Unlock()
	if r.Status() != models.RoomStatusInProgress {
		return fmt.Errorf("%w: game %s is %s", ErrInvalidTransition, code, r.Status())
	}
	return c.startQuestionLocked(r, index)
}

func (c *Controller) startQuestionLocked(r *room.Room, index int) error {
	q, ok := r.Question(index)
	if !ok {
		return fmt.Errorf("game %s question %d: %w", r.Code, index, ErrNoQuestions)
	}
	isFinal := index == r.TotalQuestions()-1
	seconds := c.QuestionSeconds()

	r.ClearTimers()
	r.BeginQuestion(index, q.ID, isFinal)

	c.broadcast(r.Code, events.EventTypeQuestionStarted, events.QuestionStartedPayload{
		QuestionID:      q.ID,
		Index:           index,
		Total:           r.TotalQuestions(),
		Text:            q.Text,
		Options:         q.Options,
		TimeLimit:       seconds,
		IsFinalQuestion: isFinal,
	})
	c.armQuestionTimer(r, time.Duration(seconds)*time.Second)

	log.Info().
		Str("game_code", r.Code).
		Str("question_id", q.ID).
		Int("index", index).
		Bool("final", isFinal).
		Int("survivors", len(r.Survivors())).
		Msg("question started")
	return nil
}

// armQuestionTimer replaces the room's countdown with a fresh one of the given
// length and emits the starting value right away. Displayed seconds round up.
func (c *Controller) armQuestionTimer(r *room.Room, d time.Duration) {
	seconds := room.CeilSeconds(d)
	qt := room.NewQuestionTimer(
		r.NextTimerSeq(),
		c.clock.NewTimer(d),
		c.clock.NewTicker(TickInterval),
		seconds,
	)
	qt.EndsAt = c.clock.Now().Add(d)
	r.ArmTimer(qt)

	c.broadcast(r.Code, events.EventTypeTimerUpdate, events.TimerUpdatePayload{
		RemainingTime: seconds,
		IsUrgent:      seconds <= UrgentThreshold,
	})

	go c.runTicks(r, qt)
	go c.awaitDeadline(r, qt)
}

func (c *Controller) runTicks(r *room.Room, qt *room.QuestionTimer) {
	defer recoverRound(r.Code)
	for {
		select {
		case <-qt.Done():
			return
		case <-qt.Ticker.Chan():
		}
		if !c.tick(r, qt) {
			return
		}
	}
}

// tick emits one timer update. It reports false once the countdown is over
// or the timer has been replaced.
func (c *Controller) tick(r *room.Room, qt *room.QuestionTimer) bool {
	r.Lock()
	defer r.Unlock()
	if !r.IsActiveTimer(qt) {
		return false
	}
	if qt.Remaining > 0 {
		qt.Remaining--
	}
	c.broadcast(r.Code, events.EventTypeTimerUpdate, events.TimerUpdatePayload{
		RemainingTime: qt.Remaining,
		IsUrgent:      qt.Remaining <= UrgentThreshold,
	})
	if qt.Remaining == 0 {
		qt.Ticker.Stop()
		return false
	}
	return true
}

func (c *Controller) awaitDeadline(r *room.Room, qt *room.QuestionTimer) {
	defer recoverRound(r.Code)
	select {
	case <-qt.Done():
		return
	case <-qt.Deadline.Chan():
	}

	r.Lock()
	defer r.Unlock()
	// A stale deadline lost the race to early completion or a newer question.
	if !r.IsActiveTimer(qt) || r.Phase() != models.RoundPhaseAccepting {
		return
	}
	c.processResultsLocked(r, triggerDeadline)
}

// SubmitAnswer records a player's answer. Rejections are reported through the
// boolean; the error is only set when the room does not exist.
func (c *Controller) SubmitAnswer(ctx context.Context, msg events.SubmitAnswer) (bool, error) {
	r, err := c.registry.Get(msg.GameCode)
	if err != nil {
		return false, err
	}

	r.Lock()
	defer r.Unlock()
	defer recoverRound(r.Code)

	reason := r.RecordAnswer(msg.PlayerID, msg.QuestionID, msg.SelectedAnswer, msg.ResponseTime, c.clock.Now())
	if reason != room.Accepted {
		c.metrics.RecordSubmission(string(reason))
		log.Debug().
			Str("game_code", r.Code).
			Str("player_id", msg.PlayerID).
			Str("question_id", msg.QuestionID).
			Str("reason", string(reason)).
			Msg("answer rejected")
		return false, nil
	}

	c.metrics.RecordSubmission("accepted")
	c.sendToPlayer(r.Code, msg.PlayerID, events.EventTypeAnswerAccepted, events.AnswerAcceptedPayload{
		QuestionID: msg.QuestionID,
	})

	if r.AllAnswered() {
		c.processResultsLocked(r, triggerAllAnswered)
	}
	return true, nil
}

// ProcessResults scores the current question now, ahead of its deadline.
func (c *Controller) ProcessResults(ctx context.Context, code string) error {
	r, err := c.registry.Get(code)
	if err != nil {
		return err
	}
	r.Lock()
	defer r.Unlock()
	switch r.Phase() {
	case models.RoundPhaseAccepting, models.RoundPhasePaused:
	default:
		return fmt.Errorf("%w: no open question in %s (phase %s)", ErrInvalidTransition, code, r.Phase())
	}
	c.processResultsLocked(r, triggerAdmin)
	return nil
}

// processResultsLocked scores the current question exactly once, applies the
// outcome and either ends the game or waits for the admin to advance.
func (c *Controller) processResultsLocked(r *room.Room, trigger string) {
	started := time.Now()
	r.ClearTimers()
	defer c.recoverScoring(r)

	q, ok := r.CurrentQuestion()
	if !ok {
		log.Error().Str("game_code", r.Code).Int("index", r.CurrentQuestionIndex()).Msg("no current question to score")
		r.SetPhase(models.RoundPhaseResults)
		return
	}
	r.SetPhase(models.RoundPhaseScoring)

	isFinal := r.IsFinalQuestion()
	answers := r.Answers()
	result := elimination.Score(answers, q.CorrectAnswer, isFinal)

	r.CreditCorrect(result.CorrectAnswerers)
	if result.HasElimination() {
		r.Eliminate(result.EliminatedPlayerID)
		c.metrics.RecordElimination()
	}
	survivors := r.Survivors()

	c.broadcast(r.Code, events.EventTypeQuestionResult, events.QuestionResultPayload{
		QuestionID:         q.ID,
		CorrectAnswer:      q.CorrectAnswer,
		Explanation:        q.Explanation,
		EliminatedPlayerID: events.Optional(result.EliminatedPlayerID),
		WinnerID:           events.Optional(result.WinnerID),
		CorrectAnswerers:   result.CorrectAnswerers,
		IncorrectAnswerers: result.IncorrectAnswerers,
		Survivors:          survivors,
		IsFinalQuestion:    isFinal,
	})
	if result.HasElimination() {
		c.broadcast(r.Code, events.EventTypePlayerEliminated, events.PlayerEliminatedPayload{
			PlayerID:      result.EliminatedPlayerID,
			QuestionID:    q.ID,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	log.Info().
		Str("game_code", r.Code).
		Str("question_id", q.ID).
		Str("trigger", trigger).
		Int("answers", len(answers)).
		Int("correct", len(result.CorrectAnswerers)).
		Int("incorrect", len(result.IncorrectAnswerers)).
		Str("eliminated", result.EliminatedPlayerID).
		Str("winner", result.WinnerID).
		Int("survivors", len(survivors)).
		Msg("question scored")

	if isFinal || result.HasWinner() || len(survivors) <= 1 {
		c.finishLocked(r, result.WinnerID)
	} else {
		r.SetPhase(models.RoundPhaseResults)
	}
	c.metrics.RecordRound(trigger, len(answers), time.Since(started))
}

// recoverScoring keeps a fault while scoring from stranding the room in the
// scoring phase with no timer. The admin can still advance or end the game.
func (c *Controller) recoverScoring(r *room.Room) {
	v := recover()
	if v == nil {
		return
	}
	log.Error().
		Str("game_code", r.Code).
		Str("question_id", r.CurrentQuestionID()).
		Interface("panic", v).
		Msg("recovered from fault while scoring question")

	r.ClearTimers()
	if r.Status() == models.RoomStatusInProgress {
		r.SetPhase(models.RoundPhaseResults)
	}
}
