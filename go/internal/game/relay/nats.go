package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Config holds NATS settings for the event relay and the command consumer.
type Config struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration

	EventStream   string
	EventSubjects string // prefix, events go to <prefix>.<code>.<type>
	EventMaxAge   time.Duration

	CommandStream   string
	CommandSubjects string // prefix, commands arrive on <prefix>.>
	ConsumerName    string
	MaxDeliver      int
	AckWait         time.Duration
	MaxAckPending   int
	RetryDelay      time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:             nats.DefaultURL,
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		EventStream:     "GAME_EVENTS",
		EventSubjects:   "game.events",
		EventMaxAge:     24 * time.Hour,
		CommandStream:   "GAME_COMMANDS",
		CommandSubjects: "game.commands",
		ConsumerName:    "quiz-engine",
		MaxDeliver:      5,
		AckWait:         30 * time.Second,
		MaxAckPending:   1000,
		RetryDelay:      time.Second,
	}
}

// Connect opens a NATS connection with a JetStream context.
func Connect(cfg Config) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.Name("quizroyale-engine"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return nc, js, nil
}

// EnsureStreams creates the event and command streams when missing.
func EnsureStreams(ctx context.Context, js jetstream.JetStream, cfg Config) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        cfg.EventStream,
			Description: "Quiz game events fanned out from the engine",
			Subjects:    []string{cfg.EventSubjects + ".>"},
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      cfg.EventMaxAge,
			Storage:     jetstream.FileStorage,
			Duplicates:  2 * time.Minute,
		},
		{
			Name:        cfg.CommandStream,
			Description: "Player answers and admin actions bound for the engine",
			Subjects:    []string{cfg.CommandSubjects + ".>"},
			Retention:   jetstream.WorkQueuePolicy,
			Storage:     jetstream.FileStorage,
		},
	}

	for _, sc := range streams {
		if _, err := js.Stream(ctx, sc.Name); err == nil {
			continue
		}
		if _, err := js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream %s: %w", sc.Name, err)
		}
		log.Info().Str("stream", sc.Name).Msg("created JetStream stream")
	}
	return nil
}
