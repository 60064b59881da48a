package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
)

// CommandHandler is what the consumer drives.
type CommandHandler interface {
	SubmitAnswer(ctx context.Context, msg events.SubmitAnswer) (bool, error)
	HandleAdminAction(ctx context.Context, action events.AdminAction) error
}

// disposition says what to do with a command message after handling.
type disposition int

const (
	dispAck disposition = iota
	dispRetry
	dispTerm
)

// CommandConsumer feeds commands published by other services (for example a
// separate socket tier) into the engine.
type CommandConsumer struct {
	js       jetstream.JetStream
	consumer jetstream.Consumer
	handler  CommandHandler
	config   Config
}

func NewCommandConsumer(ctx context.Context, js jetstream.JetStream, handler CommandHandler, cfg Config) (*CommandConsumer, error) {
	cc := &CommandConsumer{js: js, handler: handler, config: cfg}
	if err := cc.ensureConsumer(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return cc, nil
}

func (cc *CommandConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := cc.js.Stream(ctx, cc.config.CommandStream)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.Consumer(ctx, cc.config.ConsumerName)
	if err == nil {
		log.Info().Str("consumer", cc.config.ConsumerName).Str("stream", cc.config.CommandStream).Msg("using existing JetStream consumer")
		cc.consumer = consumer
		return nil
	}

	consumer, err = stream.CreateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          cc.config.ConsumerName,
		Durable:       cc.config.ConsumerName,
		Description:   "Quiz engine command consumer",
		FilterSubject: cc.config.CommandSubjects + ".>",
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    cc.config.MaxDeliver,
		AckWait:       cc.config.AckWait,
		MaxAckPending: cc.config.MaxAckPending,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	log.Info().Str("consumer", cc.config.ConsumerName).Str("stream", cc.config.CommandStream).Msg("created JetStream consumer")
	cc.consumer = consumer
	return nil
}

// Start consumes until ctx is cancelled.
func (cc *CommandConsumer) Start(ctx context.Context) error {
	log.Info().Str("consumer", cc.config.ConsumerName).Msg("starting command consumer")

	messageCh := make(chan jetstream.Msg, 100)
	consumeCtx, err := cc.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("command consumer shutting down")
			return nil
		case msg := <-messageCh:
			cc.settle(msg, cc.handle(ctx, msg.Subject(), msg.Data()))
		}
	}
}

func (cc *CommandConsumer) settle(msg jetstream.Msg, d disposition) {
	var err error
	switch d {
	case dispAck:
		err = msg.Ack()
	case dispRetry:
		err = msg.NakWithDelay(cc.config.RetryDelay)
	case dispTerm:
		err = msg.Term()
	}
	if err != nil {
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to settle command")
	}
}

// handle applies one command. Malformed messages are terminated; commands
// for rooms this process does not hold yet are retried, since the room may
// still be on its way in from the scheduler.
func (cc *CommandConsumer) handle(ctx context.Context, subject string, data []byte) disposition {
	var msg events.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("dropping malformed command")
		return dispTerm
	}

	var err error
	switch msg.Type {
	case events.MessageTypeSubmitAnswer:
		var submit events.SubmitAnswer
		if err := json.Unmarshal(msg.Data, &submit); err != nil {
			log.Warn().Err(err).Str("subject", subject).Msg("dropping malformed submit-answer")
			return dispTerm
		}
		_, err = cc.handler.SubmitAnswer(ctx, submit)
	case events.MessageTypeAdminAction:
		var action events.AdminAction
		if err := json.Unmarshal(msg.Data, &action); err != nil {
			log.Warn().Err(err).Str("subject", subject).Msg("dropping malformed admin-action")
			return dispTerm
		}
		err = cc.handler.HandleAdminAction(ctx, action)
	default:
		log.Warn().Str("subject", subject).Str("type", msg.Type).Msg("dropping unknown command type")
		return dispTerm
	}

	switch {
	case err == nil:
		return dispAck
	case errors.Is(err, room.ErrRoomNotFound):
		log.Debug().Err(err).Str("subject", subject).Msg("room not found, retrying command")
		return dispRetry
	default:
		log.Info().Err(err).Str("subject", subject).Msg("command refused")
		return dispAck
	}
}
