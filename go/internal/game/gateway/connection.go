package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/orchestrator"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
)

var ErrBroadcastQueueFull = errors.New("broadcast queue full")

// Error codes carried by error events.
const (
	ErrorCodeBadRequest   = "bad_request"
	ErrorCodeRateLimited  = "rate_limited"
	ErrorCodeUnauthorized = "unauthorized"
	ErrorCodeNotFound     = "not_found"
	ErrorCodeInvalidState = "invalid_state"
	ErrorCodeInternal     = "internal"
)

// trySend queues data without blocking. A connection that cannot keep up is
// dropped.
func (c *Connection) trySend(data []byte) bool {
	cm := c.Manager
	cm.mu.RLock()
	if !cm.gameConnections[c.GameCode][c] {
		cm.mu.RUnlock()
		return false
	}
	select {
	case c.Send <- data:
		cm.mu.RUnlock()
		return true
	default:
	}
	cm.mu.RUnlock()

	log.Warn().
		Str("connection_id", c.ID).
		Str("player_id", c.UserID).
		Msg("connection send buffer full, closing connection")
	c.drop()
	return false
}

// drop unregisters the connection and closes the socket. The player is
// marked disconnected when this was their last socket in the game.
func (c *Connection) drop() {
	removed, last := c.Manager.unregisterConnection(c)
	c.Conn.Close()
	if !removed || !last || c.Role != RolePlayer {
		return
	}
	if err := c.Manager.service.DisconnectPlayer(context.Background(), c.GameCode, c.UserID); err != nil && !errors.Is(err, room.ErrRoomNotFound) {
		log.Error().Err(err).Str("game_code", c.GameCode).Str("player_id", c.UserID).Msg("failed to mark player disconnected")
	}
}

func (c *Connection) writePump() {
	cfg := c.Manager.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.drop()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to send ping")
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	cfg := c.Manager.config
	defer c.drop()

	c.Conn.SetReadLimit(cfg.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			return
		}
		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	}
}

// handleClientMessage dispatches one inbound message. Identity always comes
// from the connection, never from the payload.
func (c *Connection) handleClientMessage(message []byte) {
	if !c.limiter.Allow() {
		c.sendError(ErrorCodeRateLimited, "too many messages")
		return
	}

	var msg events.ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendError(ErrorCodeBadRequest, "malformed message")
		return
	}

	ctx := context.Background()
	switch msg.Type {
	case events.MessageTypeSubmitAnswer:
		if c.Role != RolePlayer {
			c.sendError(ErrorCodeUnauthorized, "only players can answer")
			return
		}
		var submit events.SubmitAnswer
		if err := json.Unmarshal(msg.Data, &submit); err != nil {
			c.sendError(ErrorCodeBadRequest, "malformed submit-answer")
			return
		}
		submit.GameCode = c.GameCode
		submit.PlayerID = c.UserID
		// Rejections are silent; accepted answers are acknowledged by the engine.
		if _, err := c.Manager.service.SubmitAnswer(ctx, submit); err != nil {
			c.sendServiceError(err)
		}

	case events.MessageTypeAdminAction:
		var action events.AdminAction
		if err := json.Unmarshal(msg.Data, &action); err != nil {
			c.sendError(ErrorCodeBadRequest, "malformed admin-action")
			return
		}
		action.GameCode = c.GameCode
		action.AdminID = c.UserID
		if err := c.Manager.service.HandleAdminAction(ctx, action); err != nil {
			c.sendServiceError(err)
		}

	default:
		log.Debug().
			Str("connection_id", c.ID).
			Str("player_id", c.UserID).
			Str("type", msg.Type).
			Msg("ignoring unknown client message")
		c.sendError(ErrorCodeBadRequest, "unknown message type")
	}
}

func (c *Connection) sendServiceError(err error) {
	code := ErrorCodeInternal
	switch {
	case errors.Is(err, orchestrator.ErrUnauthorized):
		code = ErrorCodeUnauthorized
	case errors.Is(err, room.ErrRoomNotFound):
		code = ErrorCodeNotFound
	case errors.Is(err, orchestrator.ErrInvalidTransition),
		errors.Is(err, orchestrator.ErrNoPlayers),
		errors.Is(err, orchestrator.ErrNoQuestions):
		code = ErrorCodeInvalidState
	case errors.Is(err, orchestrator.ErrUnknownAction):
		code = ErrorCodeBadRequest
	}
	log.Debug().Err(err).Str("connection_id", c.ID).Str("code", code).Msg("request refused")
	c.sendError(code, err.Error())
}

// sendError writes an error event to this connection only.
func (c *Connection) sendError(code, message string) {
	ev, err := events.NewEvent(c.GameCode, events.EventTypeError, events.ErrorPayload{Code: code, Message: message}, time.Now())
	if err != nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.trySend(data)
}
