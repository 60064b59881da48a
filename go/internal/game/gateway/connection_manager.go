package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
)

// ConnectionManager manages WebSocket connections grouped by game code and
// implements events.Broadcaster for them.
type ConnectionManager struct {
	gameConnections map[string]map[*Connection]bool
	mu              sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	service  GameService

	broadcastCh chan BroadcastMessage
}

// Connection is one client socket bound to a game.
type Connection struct {
	ID       string
	UserID   string
	GameCode string
	Role     Role
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	limiter *rate.Limiter

	ConnectedAt time.Time
}

// Role is what a connection may do in its game.
type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	// Inbound messages per second allowed per connection, with a burst.
	MessageRate  rate.Limit
	MessageBurst int
	CheckOrigin  func(r *http.Request) bool
}

// BroadcastMessage is an event queued for delivery.
type BroadcastMessage struct {
	GameCode string
	Event    *events.GameEvent
	UserID   string // if set, only this user receives it
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		MessageRate:     5,
		MessageBurst:    10,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig, service GameService) *ConnectionManager {
	return &ConnectionManager{
		gameConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		service:     service,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// SetService binds the game service after construction. The controller takes
// the manager as its broadcaster, so one of the two has to be wired late.
// Must be called before Start.
func (cm *ConnectionManager) SetService(service GameService) {
	cm.service = service
}

// Start delivers queued events until ctx is cancelled.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP request and starts the socket pumps.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID, gameCode string, role Role) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		GameCode:    gameCode,
		Role:        role,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		limiter:     rate.NewLimiter(cm.config.MessageRate, cm.config.MessageBurst),
		ConnectedAt: time.Now(),
	}
	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("player_id", userID).
		Str("game_code", gameCode).
		Str("role", string(role)).
		Msg("WebSocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.gameConnections[conn.GameCode] == nil {
		cm.gameConnections[conn.GameCode] = make(map[*Connection]bool)
	}
	cm.gameConnections[conn.GameCode][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("game_code", conn.GameCode).
		Int("total_connections", len(cm.gameConnections[conn.GameCode])).
		Msg("connection registered")
}

// unregisterConnection removes a connection and reports whether the user has
// no other socket left in that game.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) (removed, lastForUser bool) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.gameConnections[conn.GameCode]
	if !exists || !connections[conn] {
		return false, false
	}
	delete(connections, conn)
	close(conn.Send)

	lastForUser = true
	for other := range connections {
		if other.UserID == conn.UserID {
			lastForUser = false
			break
		}
	}
	if len(connections) == 0 {
		delete(cm.gameConnections, conn.GameCode)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("player_id", conn.UserID).
		Str("game_code", conn.GameCode).
		Msg("connection unregistered")
	return true, lastForUser
}

// Broadcast queues an event for every connection in a game.
func (cm *ConnectionManager) Broadcast(gameCode string, event *events.GameEvent) error {
	return cm.enqueue(BroadcastMessage{GameCode: gameCode, Event: event})
}

// SendToPlayer queues an event for one user's connections in a game.
func (cm *ConnectionManager) SendToPlayer(gameCode, playerID string, event *events.GameEvent) error {
	return cm.enqueue(BroadcastMessage{GameCode: gameCode, Event: event, UserID: playerID})
}

func (cm *ConnectionManager) enqueue(message BroadcastMessage) error {
	select {
	case cm.broadcastCh <- message:
		return nil
	default:
		log.Warn().
			Str("game_code", message.GameCode).
			Str("player_id", message.UserID).
			Msg("broadcast channel full, dropping message")
		return ErrBroadcastQueueFull
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	var targets []*Connection
	for conn := range cm.gameConnections[message.GameCode] {
		if message.UserID != "" && conn.UserID != message.UserID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		conn.trySend(data)
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("game_code", message.GameCode).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// Stats summarises open connections.
type Stats struct {
	TotalConnections int            `json:"totalConnections"`
	ActiveGames      int            `json:"activeGames"`
	GameConnections  map[string]int `json:"gameConnections"`
}

func (cm *ConnectionManager) Stats() Stats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := Stats{
		ActiveGames:     len(cm.gameConnections),
		GameConnections: make(map[string]int, len(cm.gameConnections)),
	}
	for code, connections := range cm.gameConnections {
		stats.TotalConnections += len(connections)
		stats.GameConnections[code] = len(connections)
	}
	return stats
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	var all []*Connection
	for _, connections := range cm.gameConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range all {
		conn.Conn.Close()
	}
}
