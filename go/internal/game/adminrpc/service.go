package adminrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/orchestrator"
	"github.com/mcdev12/quizroyale/go/internal/game/questions"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
)

const ServiceName = "quizroyale.admin.v1.AdminService"

const (
	CreateGameProcedure    = "/" + ServiceName + "/CreateGame"
	PerformActionProcedure = "/" + ServiceName + "/PerformAction"
	GetRoomProcedure       = "/" + ServiceName + "/GetRoom"
	ListRoomsProcedure     = "/" + ServiceName + "/ListRooms"
)

// GameService defines what the admin surface needs from the game controller
type GameService interface {
	CreateGame(ctx context.Context, code, adminID string, maxPlayers, totalQuestions int) (*room.Room, error)
	HandleAdminAction(ctx context.Context, action events.AdminAction) error
	Snapshot(code string) (room.Snapshot, error)
	Snapshots() []room.Snapshot
}

// Service serves admin RPCs. Request and response bodies are
// google.protobuf.Struct so the surface needs no generated code.
type Service struct {
	games   GameService
	newCode func() string
}

// NewService creates the admin service. newCode mints a game code when a
// CreateGame request leaves it empty.
func NewService(games GameService, newCode func() string) *Service {
	return &Service{games: games, newCode: newCode}
}

// Handler returns the path prefix and handler to mount on a mux.
func (s *Service) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(CreateGameProcedure, connect.NewUnaryHandler(CreateGameProcedure, s.CreateGame, opts...))
	mux.Handle(PerformActionProcedure, connect.NewUnaryHandler(PerformActionProcedure, s.PerformAction, opts...))
	mux.Handle(GetRoomProcedure, connect.NewUnaryHandler(GetRoomProcedure, s.GetRoom, opts...))
	mux.Handle(ListRoomsProcedure, connect.NewUnaryHandler(ListRoomsProcedure, s.ListRooms, opts...))
	return "/" + ServiceName + "/", mux
}

// CreateGame opens a room. Fields: gameCode (optional), adminId, maxPlayers,
// totalQuestions.
func (s *Service) CreateGame(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.AsMap()
	adminID := stringField(fields, "adminId")
	if adminID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("adminId is required"))
	}
	code := strings.TrimSpace(stringField(fields, "gameCode"))
	if code == "" {
		code = s.newCode()
	}

	r, err := s.games.CreateGame(ctx, code, adminID, intField(fields, "maxPlayers"), intField(fields, "totalQuestions"))
	if err != nil {
		return nil, toConnectError(err)
	}

	snap, err := s.games.Snapshot(r.Code)
	if err != nil {
		return nil, toConnectError(err)
	}
	return snapshotResponse(snap)
}

// PerformAction applies an admin action. Fields: gameCode, adminId, action,
// payload (optional object).
func (s *Service) PerformAction(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.AsMap()
	action := events.AdminAction{
		Action:   events.AdminActionType(stringField(fields, "action")),
		GameCode: stringField(fields, "gameCode"),
		AdminID:  stringField(fields, "adminId"),
	}
	if action.GameCode == "" || action.Action == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("gameCode and action are required"))
	}
	if payload, ok := fields["payload"]; ok && payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		action.Payload = raw
	}

	if err := s.games.HandleAdminAction(ctx, action); err != nil {
		log.Debug().
			Err(err).
			Str("game_code", action.GameCode).
			Str("admin_id", action.AdminID).
			Str("action", string(action.Action)).
			Msg("admin rpc action failed")
		return nil, toConnectError(err)
	}

	snap, err := s.games.Snapshot(action.GameCode)
	if errors.Is(err, room.ErrRoomNotFound) {
		// end-game removes the room
		return connect.NewResponse(&structpb.Struct{Fields: map[string]*structpb.Value{
			"gameCode": structpb.NewStringValue(action.GameCode),
			"removed":  structpb.NewBoolValue(true),
		}}), nil
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return snapshotResponse(snap)
}

// GetRoom returns the snapshot of one room. Fields: gameCode.
func (s *Service) GetRoom(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	code := stringField(req.Msg.AsMap(), "gameCode")
	if code == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("gameCode is required"))
	}
	snap, err := s.games.Snapshot(code)
	if err != nil {
		return nil, toConnectError(err)
	}
	return snapshotResponse(snap)
}

// ListRooms returns every hosted room under "rooms".
func (s *Service) ListRooms(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	snaps := s.games.Snapshots()
	rooms := make([]any, 0, len(snaps))
	for _, snap := range snaps {
		m, err := toMap(snap)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		rooms = append(rooms, m)
	}

	resp, err := structpb.NewStruct(map[string]any{"rooms": rooms})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(resp), nil
}

func snapshotResponse(snap room.Snapshot) (*connect.Response[structpb.Struct], error) {
	m, err := toMap(snap)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(st), nil
}

// toMap goes through JSON so the result only holds types structpb accepts.
func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return m, nil
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func intField(fields map[string]any, key string) int {
	f, _ := fields[key].(float64)
	return int(f)
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, room.ErrRoomNotFound), errors.Is(err, questions.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, orchestrator.ErrUnauthorized):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, room.ErrAlreadyExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, orchestrator.ErrUnknownAction), errors.Is(err, room.ErrInvalidCode):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, room.ErrInvalidTransition),
		errors.Is(err, room.ErrGameStarted),
		errors.Is(err, room.ErrGameFinished),
		errors.Is(err, room.ErrRoomFull),
		errors.Is(err, orchestrator.ErrNoPlayers),
		errors.Is(err, orchestrator.ErrNoQuestions):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
