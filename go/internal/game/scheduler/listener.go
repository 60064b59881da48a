package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroyale/go/internal/game/room"
)

// GameManager is what the scheduler drives.
type GameManager interface {
	CreateGame(ctx context.Context, code, adminID string, maxPlayers, totalQuestions int) (*room.Room, error)
	CancelGame(ctx context.Context, code string) error
}

type Config struct {
	DatabaseURL      string
	ScheduledChannel string
	CancelledChannel string
	FallbackInterval time.Duration
	PingInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		ScheduledChannel: "quiz_game_scheduled",
		CancelledChannel: "quiz_game_cancelled",
		FallbackInterval: 30 * time.Second,
		PingInterval:     90 * time.Second,
	}
}

// Listener opens rooms for games the admin panel schedules, using Postgres
// LISTEN/NOTIFY with a periodic sweep for anything missed.
type Listener struct {
	listener *pq.Listener
	store    GameStore
	games    GameManager
	cfg      Config
}

func NewListener(store GameStore, games GameManager, cfg Config) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	for _, channel := range []string{cfg.ScheduledChannel, cfg.CancelledChannel} {
		if err := l.Listen(channel); err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to listen to channel %s: %w", channel, err)
		}
	}

	log.Info().
		Str("scheduled_channel", cfg.ScheduledChannel).
		Str("cancelled_channel", cfg.CancelledChannel).
		Msg("listening for game notifications")

	return &Listener{listener: l, store: store, games: games, cfg: cfg}, nil
}

// Start processes notifications until ctx is cancelled. Waiting games are
// loaded once up front.
func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("scheduler started")

	if err := sweep(ctx, l.store, l.games); err != nil {
		log.Error().Err(err).Msg("failed initial sweep of waiting games")
	}

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler shutting down")
			return l.listener.Close()
		case note := <-l.listener.Notify:
			if note == nil {
				// Connection was re-established; notifications may have been lost.
				if err := sweep(ctx, l.store, l.games); err != nil {
					log.Error().Err(err).Msg("failed sweep after reconnect")
				}
				continue
			}
			if err := handleNotification(ctx, l.games, l.cfg, note.Channel, note.Extra); err != nil {
				log.Error().Err(err).Str("channel", note.Channel).Msg("failed to handle notification")
			}
		case <-fallbackTicker.C:
			if err := sweep(ctx, l.store, l.games); err != nil {
				log.Error().Err(err).Msg("failed sweep of waiting games")
			}
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func handleNotification(ctx context.Context, games GameManager, cfg Config, channel, extra string) error {
	var g ScheduledGame
	if err := json.Unmarshal([]byte(extra), &g); err != nil {
		return fmt.Errorf("invalid notification payload: %w", err)
	}
	if g.Code == "" {
		return errors.New("notification without game code")
	}

	switch channel {
	case cfg.ScheduledChannel:
		return host(ctx, games, g)
	case cfg.CancelledChannel:
		err := games.CancelGame(ctx, g.Code)
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil
		}
		if err == nil {
			log.Info().Str("game_code", g.Code).Msg("scheduled game cancelled")
		}
		return err
	default:
		return fmt.Errorf("unexpected channel %q", channel)
	}
}

// sweep hosts every waiting game that has no room yet.
func sweep(ctx context.Context, store GameStore, games GameManager) error {
	waiting, err := store.WaitingGames(ctx)
	if err != nil {
		return err
	}
	for _, g := range waiting {
		if err := host(ctx, games, g); err != nil {
			log.Error().Err(err).Str("game_code", g.Code).Msg("failed to host waiting game")
		}
	}
	return nil
}

func host(ctx context.Context, games GameManager, g ScheduledGame) error {
	_, err := games.CreateGame(ctx, g.Code, g.AdminID, g.MaxPlayers, g.TotalQuestions)
	if errors.Is(err, room.ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to host game %s: %w", g.Code, err)
	}
	log.Info().Str("game_code", g.Code).Str("admin_id", g.AdminID).Msg("hosting scheduled game")
	return nil
}
