package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/metrics"
	"github.com/mcdev12/quizroyale/go/internal/game/questions"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
	"github.com/mcdev12/quizroyale/go/internal/models"
)

const (
	// TickInterval is how often timer-update is emitted while a question runs.
	TickInterval = time.Second
	// UrgentThreshold marks timer updates urgent at or below this many seconds.
	UrgentThreshold = 3

	DefaultQuestionDuration = 10 * time.Second
	DefaultStartDelay       = 3 * time.Second
	DefaultMaxPlayers       = 100
)

var (
	ErrUnauthorized  = errors.New("not the game admin")
	ErrUnknownAction = errors.New("unknown admin action")
	ErrNoQuestions   = errors.New("game has no questions")
	ErrNoPlayers     = errors.New("game has no players")
	// ErrInvalidTransition is returned when an admin action does not fit the
	// current game or round state.
	ErrInvalidTransition = room.ErrInvalidTransition
)

// Config tunes a Controller. Zero values fall back to the defaults, except
// StartDelay where zero starts the first question immediately.
type Config struct {
	QuestionDuration  time.Duration
	StartDelay        time.Duration
	DefaultMaxPlayers int
	Clock             clockwork.Clock
	Metrics           metrics.Collector
}

func (c Config) withDefaults() Config {
	if c.QuestionDuration < time.Second {
		c.QuestionDuration = DefaultQuestionDuration
	}
	if c.StartDelay < 0 {
		c.StartDelay = DefaultStartDelay
	}
	if c.DefaultMaxPlayers <= 0 {
		c.DefaultMaxPlayers = DefaultMaxPlayers
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Metrics == nil {
		c.Metrics = metrics.NoOp{}
	}
	return c
}

// Controller drives every game in a registry: question countdowns, answer
// intake, scoring and the game lifecycle. Room state is only touched while
// holding that room's lock.
type Controller struct {
	registry    *room.Registry
	questions   questions.Provider
	broadcaster events.Broadcaster
	clock       clockwork.Clock
	metrics     metrics.Collector
	cfg         Config
}

func NewController(registry *room.Registry, provider questions.Provider, broadcaster events.Broadcaster, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		registry:    registry,
		questions:   provider,
		broadcaster: broadcaster,
		clock:       cfg.Clock,
		metrics:     cfg.Metrics,
		cfg:         cfg,
	}
}

// QuestionSeconds is the full countdown of a question.
func (c *Controller) QuestionSeconds() int {
	return int(c.cfg.QuestionDuration / time.Second)
}

// CreateGame loads the question set and registers a waiting room. A
// totalQuestions of zero plays every available question.
func (c *Controller) CreateGame(ctx context.Context, code, adminID string, maxPlayers, totalQuestions int) (*room.Room, error) {
	qs, err := c.questions.GameQuestions(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions for %s: %w", code, err)
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("game %s: %w", code, ErrNoQuestions)
	}
	if maxPlayers <= 0 {
		maxPlayers = c.cfg.DefaultMaxPlayers
	}

	r, err := c.registry.Create(code, adminID, maxPlayers, totalQuestions)
	if err != nil {
		return nil, err
	}
	r.Lock()
	r.SetQuestions(qs)
	total := r.TotalQuestions()
	r.Unlock()

	c.metrics.SetActiveRooms(c.registry.Len())
	log.Info().
		Str("game_code", r.Code).
		Str("admin_id", adminID).
		Int("max_players", maxPlayers).
		Int("total_questions", total).
		Msg("game created")
	return r, nil
}

// JoinPlayer admits a player to a room, or reconnects a returning member.
func (c *Controller) JoinPlayer(ctx context.Context, code, playerID string) error {
	r, err := c.registry.Get(code)
	if err != nil {
		return err
	}

	r.Lock()
	defer r.Unlock()
	if err := r.AddPlayer(playerID); err != nil {
		return fmt.Errorf("player %s cannot join %s: %w", playerID, code, err)
	}
	c.broadcast(r.Code, events.EventTypePlayerJoined, events.PlayerJoinedPayload{
		PlayerID:    playerID,
		PlayerCount: len(r.Players()),
	})
	log.Debug().Str("game_code", r.Code).Str("player_id", playerID).Msg("player joined")
	return nil
}

// DisconnectPlayer marks a member as disconnected. They are not eliminated;
// the current question just stops waiting for them.
func (c *Controller) DisconnectPlayer(ctx context.Context, code, playerID string) error {
	r, err := c.registry.Get(code)
	if err != nil {
		return err
	}

	r.Lock()
	defer r.Unlock()
	if !r.Disconnect(playerID) {
		return nil
	}
	log.Debug().Str("game_code", r.Code).Str("player_id", playerID).Msg("player disconnected")

	if r.Phase() == models.RoundPhaseAccepting && r.AllAnswered() {
		c.processResultsLocked(r, triggerAllAnswered)
	}
	return nil
}

// Snapshot returns a read-only copy of a room.
func (c *Controller) Snapshot(code string) (room.Snapshot, error) {
	r, err := c.registry.Get(code)
	if err != nil {
		return room.Snapshot{}, err
	}
	r.Lock()
	defer r.Unlock()
	return r.Snapshot(), nil
}

// Snapshots returns a copy of every room, ordered by code.
func (c *Controller) Snapshots() []room.Snapshot {
	rooms := c.registry.List()
	out := make([]room.Snapshot, 0, len(rooms))
	for _, r := range rooms {
		r.Lock()
		out = append(out, r.Snapshot())
		r.Unlock()
	}
	return out
}

func (c *Controller) broadcast(code string, eventType events.EventType, payload any) {
	ev, err := events.NewEvent(code, eventType, payload, c.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("game_code", code).Msg("failed to build event")
		return
	}
	if err := c.broadcaster.Broadcast(code, ev); err != nil {
		log.Warn().Err(err).Str("game_code", code).Str("event_type", string(eventType)).Msg("failed to broadcast event")
	}
}

func (c *Controller) sendToPlayer(code, playerID string, eventType events.EventType, payload any) {
	ev, err := events.NewEvent(code, eventType, payload, c.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("game_code", code).Msg("failed to build event")
		return
	}
	if err := c.broadcaster.SendToPlayer(code, playerID, ev); err != nil {
		log.Warn().Err(err).Str("game_code", code).Str("player_id", playerID).Str("event_type", string(eventType)).Msg("failed to send event")
	}
}

// recoverRound keeps a fault in one room from taking down the process.
func recoverRound(code string) {
	if v := recover(); v != nil {
		log.Error().Str("game_code", code).Interface("panic", v).Msg("recovered from fault in round controller")
	}
}
