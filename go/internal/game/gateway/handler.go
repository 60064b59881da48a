package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
)

// GameService is what the gateway needs from the game engine.
type GameService interface {
	JoinPlayer(ctx context.Context, code, playerID string) error
	DisconnectPlayer(ctx context.Context, code, playerID string) error
	SubmitAnswer(ctx context.Context, msg events.SubmitAnswer) (bool, error)
	HandleAdminAction(ctx context.Context, action events.AdminAction) error
	Snapshot(code string) (room.Snapshot, error)
	Snapshots() []room.Snapshot
}

// Handler serves the WebSocket endpoint and read-only game state.
type Handler struct {
	connections *ConnectionManager
	service     GameService
}

func NewHandler(cm *ConnectionManager, service GameService) *Handler {
	return &Handler{connections: cm, service: service}
}

// HandleGameConnection upgrades GET /ws/game?game_code=...&user_id=...[&role=admin].
// Players are admitted to the room before the upgrade.
func (h *Handler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	gameCode := strings.TrimSpace(q.Get("game_code"))
	userID := strings.TrimSpace(q.Get("user_id"))
	if gameCode == "" || userID == "" {
		http.Error(w, "game_code and user_id are required", http.StatusBadRequest)
		return
	}

	role := RolePlayer
	if q.Get("role") == string(RoleAdmin) {
		role = RoleAdmin
	}

	switch role {
	case RoleAdmin:
		snap, err := h.service.Snapshot(gameCode)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if snap.AdminID != userID {
			http.Error(w, "not the game admin", http.StatusForbidden)
			return
		}
	default:
		if err := h.service.JoinPlayer(r.Context(), gameCode, userID); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	if err := h.connections.UpgradeConnection(w, r, userID, gameCode, role); err != nil {
		// The upgrader has already replied to the client.
		log.Error().
			Err(err).
			Str("game_code", gameCode).
			Str("player_id", userID).
			Msg("failed to upgrade WebSocket connection")
		if role == RolePlayer {
			_ = h.service.DisconnectPlayer(context.Background(), gameCode, userID)
		}
	}
}

// HandleGetGame serves GET /api/games/{code}.
func (h *Handler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	snap, err := h.service.Snapshot(code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleListGames serves GET /api/games.
func (h *Handler) HandleListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Snapshots())
}

func (h *Handler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connections.Stats())
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/game", h.HandleGameConnection)
	mux.HandleFunc("GET /ws/stats", h.HandleConnectionStats)
	mux.HandleFunc("GET /api/games", h.HandleListGames)
	mux.HandleFunc("GET /api/games/{code}", h.HandleGetGame)
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		status = http.StatusNotFound
	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrGameStarted),
		errors.Is(err, room.ErrGameFinished):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
