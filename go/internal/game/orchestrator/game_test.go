package orchestrator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
	"github.com/mcdev12/quizroyale/go/internal/models"
)

func TestAdminAction_Unauthorized(t *testing.T) {
	h := newHarness(t, 3, "p1")

	for _, adminID := range []string{"", "p1", "someone"} {
		err := h.ctrl.HandleAdminAction(context.Background(), events.AdminAction{
			Action:   events.AdminActionStartGame,
			GameCode: testCode,
			AdminID:  adminID,
		})
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	assert.Equal(t, models.RoomStatusWaiting, h.snapshot(t).Status)
	assert.Empty(t, h.rec.ofType(events.EventTypeGameStarting))
}

func TestAdminAction_UnknownAndMissingRoom(t *testing.T) {
	h := newHarness(t, 3, "p1")
	assert.ErrorIs(t, h.admin("restart-game"), ErrUnknownAction)

	err := h.ctrl.HandleAdminAction(context.Background(), events.AdminAction{
		Action:   events.AdminActionStartGame,
		GameCode: "NOPE",
		AdminID:  testAdmin,
	})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestStartGame_Countdown(t *testing.T) {
	rec := &recorder{}
	clock := clockwork.NewFakeClock()
	ctrl := NewController(room.NewRegistry(), makeQuestions(2), rec, Config{
		StartDelay: 3 * time.Second,
		Clock:      clock,
	})
	_, err := ctrl.CreateGame(context.Background(), testCode, testAdmin, 0, 0)
	require.NoError(t, err)
	require.NoError(t, ctrl.JoinPlayer(context.Background(), testCode, "p1"))

	start := events.AdminAction{Action: events.AdminActionStartGame, GameCode: testCode, AdminID: testAdmin}
	require.NoError(t, ctrl.HandleAdminAction(context.Background(), start))

	starting := rec.ofType(events.EventTypeGameStarting)
	require.Len(t, starting, 1)
	assert.Equal(t, 3, decode[events.GameStartingPayload](t, starting[0]).StartsIn)

	s, err := ctrl.Snapshot(testCode)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusStarting, s.Status)
	assert.ErrorIs(t, ctrl.HandleAdminAction(context.Background(), start), ErrInvalidTransition)

	clock.Advance(3 * time.Second)
	rec.waitFor(t, events.EventTypeQuestionStarted, 1)

	s, err = ctrl.Snapshot(testCode)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusInProgress, s.Status)
	assert.Equal(t, 0, s.CurrentQuestionIndex)
}

func TestStartGame_NeedsPlayers(t *testing.T) {
	h := newHarness(t, 3)
	assert.ErrorIs(t, h.admin(events.AdminActionStartGame), ErrNoPlayers)
}

func TestJoin_AfterStartRejected(t *testing.T) {
	h := newHarness(t, 3, "p1", "p2")
	h.start(t)

	err := h.ctrl.JoinPlayer(context.Background(), testCode, "late")
	assert.ErrorIs(t, err, room.ErrGameStarted)

	require.NoError(t, h.ctrl.DisconnectPlayer(context.Background(), testCode, "p2"))
	assert.NoError(t, h.ctrl.JoinPlayer(context.Background(), testCode, "p2"), "members may reconnect")
	assert.Equal(t, models.PlayerStateActive, h.snapshot(t).Players[1].State)
}

func TestNextQuestion_Flow(t *testing.T) {
	h := newHarness(t, 2, "p1", "p2", "p3")
	h.start(t)

	assert.ErrorIs(t, h.admin(events.AdminActionNextQuestion), ErrInvalidTransition, "question still open")

	require.True(t, h.submit(t, "p1", "q1", "A"))
	require.True(t, h.submit(t, "p2", "q1", "B"))
	require.True(t, h.submit(t, "p3", "q1", "B"))
	h.rec.waitFor(t, events.EventTypeQuestionResult, 1)

	require.NoError(t, h.admin(events.AdminActionNextQuestion))
	started := h.rec.waitFor(t, events.EventTypeQuestionStarted, 2)
	p := decode[events.QuestionStartedPayload](t, started[1])
	assert.Equal(t, "q2", p.QuestionID)
	assert.True(t, p.IsFinalQuestion)

	initial := decode[events.TimerUpdatePayload](t, h.rec.ofType(events.EventTypeTimerUpdate)[1])
	assert.Equal(t, 10, initial.RemainingTime, "every question restarts the full countdown")

	require.True(t, h.submit(t, "p3", "q2", "A"))
	h.clock.Advance(10 * time.Second)
	over := decode[events.GameOverPayload](t, h.rec.waitFor(t, events.EventTypeGameOver, 1)[0])
	require.NotNil(t, over.WinnerID)
	assert.Equal(t, "p3", *over.WinnerID)
}

func TestNextQuestion_PastLastEndsGame(t *testing.T) {
	h := newHarness(t, 1, "p1", "p2")
	h.start(t)

	r, err := h.registry.Get(testCode)
	require.NoError(t, err)
	// Force a non-final results phase to exercise the out-of-questions path.
	r.Lock()
	r.ClearTimers()
	r.SetPhase(models.RoundPhaseResults)
	r.Unlock()

	require.NoError(t, h.admin(events.AdminActionNextQuestion))
	over := decode[events.GameOverPayload](t, h.rec.waitFor(t, events.EventTypeGameOver, 1)[0])
	assert.Nil(t, over.WinnerID)
	assert.Equal(t, models.RoomStatusFinished, h.snapshot(t).Status)
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t, 3, "p1", "p2")
	h.start(t)

	for i := 1; i <= 3; i++ {
		h.clock.Advance(time.Second)
		h.rec.waitFor(t, events.EventTypeTimerUpdate, i+1)
	}

	require.NoError(t, h.admin(events.AdminActionPauseGame))
	paused := decode[events.GamePausedPayload](t, h.rec.waitFor(t, events.EventTypeGamePaused, 1)[0])
	assert.Equal(t, 7, paused.RemainingTime)
	assert.False(t, h.submit(t, "p1", "q1", "A"), "answers are closed while paused")

	h.clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h.rec.ofType(events.EventTypeQuestionResult))
	s := h.snapshot(t)
	assert.Equal(t, models.RoundPhasePaused, s.Phase)
	require.NotNil(t, s.RemainingTime)
	assert.Equal(t, 7, *s.RemainingTime)

	require.NoError(t, h.admin(events.AdminActionPauseGame))
	resumed := decode[events.GameResumedPayload](t, h.rec.waitFor(t, events.EventTypeGameResumed, 1)[0])
	assert.Equal(t, 7, resumed.RemainingTime)
	updates := h.rec.ofType(events.EventTypeTimerUpdate)
	assert.Equal(t, 7, decode[events.TimerUpdatePayload](t, updates[len(updates)-1]).RemainingTime)

	assert.True(t, h.submit(t, "p1", "q1", "A"))
	h.clock.Advance(7 * time.Second)
	h.rec.waitFor(t, events.EventTypeQuestionResult, 1)
}

func TestPause_ExplicitDirection(t *testing.T) {
	h := newHarness(t, 3, "p1", "p2")
	h.start(t)

	resume, err := json.Marshal(map[string]bool{"paused": false})
	require.NoError(t, err)
	err = h.ctrl.HandleAdminAction(context.Background(), events.AdminAction{
		Action:   events.AdminActionPauseGame,
		GameCode: testCode,
		AdminID:  testAdmin,
		Payload:  resume,
	})
	assert.ErrorIs(t, err, ErrInvalidTransition, "cannot resume a running question")
}

func TestEndGame_RemovesRoom(t *testing.T) {
	h := newHarness(t, 3, "p1", "p2")
	h.start(t)

	require.NoError(t, h.admin(events.AdminActionEndGame))
	over := h.rec.waitFor(t, events.EventTypeGameOver, 1)
	require.Len(t, over, 1)

	_, err := h.registry.Get(testCode)
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
	assert.ErrorIs(t, h.admin(events.AdminActionEndGame), room.ErrRoomNotFound)

	h.clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h.rec.ofType(events.EventTypeQuestionResult), "end-game cancels the countdown")
	assert.Len(t, h.rec.ofType(events.EventTypeGameOver), 1)
}

func TestCancelGame_DuringCountdown(t *testing.T) {
	rec := &recorder{}
	clock := clockwork.NewFakeClock()
	registry := room.NewRegistry()
	ctrl := NewController(registry, makeQuestions(2), rec, Config{StartDelay: 3 * time.Second, Clock: clock})
	_, err := ctrl.CreateGame(context.Background(), testCode, testAdmin, 0, 0)
	require.NoError(t, err)
	require.NoError(t, ctrl.JoinPlayer(context.Background(), testCode, "p1"))
	require.NoError(t, ctrl.HandleAdminAction(context.Background(), events.AdminAction{
		Action: events.AdminActionStartGame, GameCode: testCode, AdminID: testAdmin,
	}))

	require.NoError(t, ctrl.CancelGame(context.Background(), testCode))
	clock.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, rec.ofType(events.EventTypeQuestionStarted))
	assert.Equal(t, 0, registry.Len())
}

func TestCreateGame(t *testing.T) {
	h := newHarness(t, 3)

	_, err := h.ctrl.CreateGame(context.Background(), testCode, testAdmin, 0, 0)
	assert.ErrorIs(t, err, room.ErrAlreadyExists)

	ctrl := NewController(room.NewRegistry(), fixedQuestions(nil), &recorder{}, Config{})
	_, err = ctrl.CreateGame(context.Background(), "EMPTY1", testAdmin, 0, 0)
	assert.ErrorIs(t, err, ErrNoQuestions)

	r, err := h.ctrl.CreateGame(context.Background(), "SMALL1", testAdmin, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, r.MaxPlayers)
	r.Lock()
	assert.Equal(t, 1, r.TotalQuestions())
	r.Unlock()

	require.NoError(t, h.ctrl.JoinPlayer(context.Background(), "SMALL1", "a"))
	require.NoError(t, h.ctrl.JoinPlayer(context.Background(), "SMALL1", "b"))
	assert.ErrorIs(t, h.ctrl.JoinPlayer(context.Background(), "SMALL1", "c"), room.ErrRoomFull)

	assert.Len(t, h.ctrl.Snapshots(), 2)
}

func TestResume_ScoresWhenOnlyDisconnectedPlayersRemain(t *testing.T) {
	h := newHarness(t, 3, "p1", "p2", "p3")
	h.start(t)

	require.True(t, h.submit(t, "p1", "q1", "A"))
	require.True(t, h.submit(t, "p2", "q1", "A"))
	require.NoError(t, h.admin(events.AdminActionPauseGame))
	require.NoError(t, h.ctrl.DisconnectPlayer(context.Background(), testCode, "p3"))
	assert.Empty(t, h.rec.ofType(events.EventTypeQuestionResult), "nothing is scored while paused")

	require.NoError(t, h.admin(events.AdminActionPauseGame))
	results := h.rec.ofType(events.EventTypeQuestionResult)
	require.Len(t, results, 1, "resuming closes a question nobody connected is still answering")

	res := decode[events.QuestionResultPayload](t, results[0])
	require.NotNil(t, res.EliminatedPlayerID)
	assert.Equal(t, "p2", *res.EliminatedPlayerID)
	assert.Contains(t, res.Survivors, "p3")
	assert.Equal(t, models.RoundPhaseResults, h.snapshot(t).Phase)
}

func TestPause_KeepsPartialSeconds(t *testing.T) {
	h := newHarness(t, 3, "p1", "p2")
	h.start(t)

	for i := 0; i < 11; i++ {
		h.clock.Advance(900 * time.Millisecond)
		require.NoError(t, h.admin(events.AdminActionPauseGame))
		require.NoError(t, h.admin(events.AdminActionPauseGame))
	}
	paused := h.rec.ofType(events.EventTypeGamePaused)
	require.Len(t, paused, 11)
	assert.Equal(t, 10, decode[events.GamePausedPayload](t, paused[0]).RemainingTime, "9.1s left shows as 10")
	assert.Equal(t, 1, decode[events.GamePausedPayload](t, paused[10]).RemainingTime)

	// 9.9s of the countdown have run
	assert.Empty(t, h.rec.ofType(events.EventTypeQuestionResult))
	s := h.snapshot(t)
	require.NotNil(t, s.RemainingTime)
	assert.Equal(t, 1, *s.RemainingTime)

	h.clock.Advance(200 * time.Millisecond)
	h.rec.waitFor(t, events.EventTypeQuestionResult, 1)
}
