package relay

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
)

// AsyncPublisher is the part of jetstream.JetStream the publisher uses.
type AsyncPublisher interface {
	PublishMsgAsync(msg *nats.Msg, opts ...jetstream.PublishOpt) (jetstream.PubAckFuture, error)
}

// Publisher mirrors game events onto JetStream so other services can follow
// a game. It implements events.Broadcaster and never waits for acks.
type Publisher struct {
	js     AsyncPublisher
	prefix string
}

func NewPublisher(js AsyncPublisher, subjectPrefix string) *Publisher {
	return &Publisher{js: js, prefix: subjectPrefix}
}

// EventSubject is where a room-wide event is published.
func (p *Publisher) EventSubject(gameCode string, eventType events.EventType) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, gameCode, eventType)
}

// PlayerSubject is where an event for a single player is published.
func (p *Publisher) PlayerSubject(gameCode, playerID string, eventType events.EventType) string {
	return fmt.Sprintf("%s.%s.player.%s.%s", p.prefix, gameCode, playerID, eventType)
}

func (p *Publisher) Broadcast(gameCode string, event *events.GameEvent) error {
	return p.publish(p.EventSubject(gameCode, event.Type), event)
}

func (p *Publisher) SendToPlayer(gameCode, playerID string, event *events.GameEvent) error {
	return p.publish(p.PlayerSubject(gameCode, playerID, event.Type), event)
}

func (p *Publisher) publish(subject string, event *events.GameEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{string(event.Type)},
			"Game-Code":  []string{event.GameCode},
			"Event-ID":   []string{event.ID},
		},
	}
	if _, err := p.js.PublishMsgAsync(msg, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}
	return nil
}
