package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
	"github.com/mcdev12/quizroyale/go/internal/models"
)

const (
	testCode  = "GAME01"
	testAdmin = "admin-1"
)

type sent struct {
	to    string
	event *events.GameEvent
}

// recorder is a Broadcaster that keeps everything it is given.
type recorder struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recorder) Broadcast(_ string, ev *events.GameEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{event: ev})
	return nil
}

func (r *recorder) SendToPlayer(_ string, playerID string, ev *events.GameEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{to: playerID, event: ev})
	return nil
}

func (r *recorder) ofType(typ events.EventType) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, s := range r.sent {
		if s.event.Type == typ {
			out = append(out, s)
		}
	}
	return out
}

// waitFor blocks until at least n events of typ were recorded.
func (r *recorder) waitFor(t *testing.T, typ events.EventType, n int) []sent {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(r.ofType(typ)) >= n
	}, 2*time.Second, 2*time.Millisecond, "waiting for %d %s events", n, typ)
	return r.ofType(typ)
}

func decode[T any](t *testing.T, s sent) T {
	t.Helper()
	var v T
	require.NoError(t, s.event.Decode(&v))
	return v
}

type fixedQuestions []models.Question

func (f fixedQuestions) GameQuestions(context.Context, string) ([]models.Question, error) {
	return f, nil
}

func makeQuestions(n int) fixedQuestions {
	qs := make(fixedQuestions, n)
	for i := range qs {
		qs[i] = models.Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       map[string]string{"A": "right", "B": "wrong", "C": "wrong", "D": "wrong"},
			CorrectAnswer: models.OptionA,
			Explanation:   "A is right",
			Position:      i,
		}
	}
	return qs
}

type harness struct {
	ctrl     *Controller
	rec      *recorder
	clock    *clockwork.FakeClock
	registry *room.Registry
}

func newHarness(t *testing.T, numQuestions int, players ...string) *harness {
	t.Helper()
	h := &harness{
		rec:      &recorder{},
		clock:    clockwork.NewFakeClock(),
		registry: room.NewRegistry(),
	}
	h.ctrl = NewController(h.registry, makeQuestions(numQuestions), h.rec, Config{
		QuestionDuration: 10 * time.Second,
		Clock:            h.clock,
	})
	_, err := h.ctrl.CreateGame(context.Background(), testCode, testAdmin, 0, 0)
	require.NoError(t, err)
	for _, p := range players {
		require.NoError(t, h.ctrl.JoinPlayer(context.Background(), testCode, p))
	}
	return h
}

func (h *harness) admin(action events.AdminActionType) error {
	return h.ctrl.HandleAdminAction(context.Background(), events.AdminAction{
		Action:   action,
		GameCode: testCode,
		AdminID:  testAdmin,
	})
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.admin(events.AdminActionStartGame))
	h.rec.waitFor(t, events.EventTypeQuestionStarted, 1)
}

func (h *harness) submit(t *testing.T, playerID, questionID, selected string) bool {
	t.Helper()
	ok, err := h.ctrl.SubmitAnswer(context.Background(), events.SubmitAnswer{
		GameCode:       testCode,
		PlayerID:       playerID,
		QuestionID:     questionID,
		SelectedAnswer: selected,
		ResponseTime:   1.5,
	})
	require.NoError(t, err)
	return ok
}

func (h *harness) snapshot(t *testing.T) room.Snapshot {
	t.Helper()
	s, err := h.ctrl.Snapshot(testCode)
	require.NoError(t, err)
	return s
}
