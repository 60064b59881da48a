package events

import "errors"

// Broadcaster delivers events to the members of a room. Implementations must
// not block: the engine calls them while holding the room lock.
type Broadcaster interface {
	Broadcast(gameCode string, event *GameEvent) error
	SendToPlayer(gameCode, playerID string, event *GameEvent) error
}

// MultiBroadcaster fans an event out to several transports.
type MultiBroadcaster []Broadcaster

func (m MultiBroadcaster) Broadcast(gameCode string, event *GameEvent) error {
	var errs []error
	for _, b := range m {
		if err := b.Broadcast(gameCode, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiBroadcaster) SendToPlayer(gameCode, playerID string, event *GameEvent) error {
	var errs []error
	for _, b := range m {
		if err := b.SendToPlayer(gameCode, playerID, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Broadcast(string, *GameEvent) error            { return nil }
func (Discard) SendToPlayer(string, string, *GameEvent) error { return nil }
