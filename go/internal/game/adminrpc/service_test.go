package adminrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/mcdev12/quizroyale/go/internal/game/orchestrator"
	"github.com/mcdev12/quizroyale/go/internal/game/room"
	"github.com/mcdev12/quizroyale/go/internal/models"
)

type fakeGames struct {
	registry *room.Registry
	actions  []events.AdminAction
	err      error
}

func (f *fakeGames) CreateGame(_ context.Context, code, adminID string, maxPlayers, totalQuestions int) (*room.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.registry.Create(code, adminID, maxPlayers, totalQuestions)
}

func (f *fakeGames) HandleAdminAction(_ context.Context, action events.AdminAction) error {
	f.actions = append(f.actions, action)
	if f.err != nil {
		return f.err
	}
	if action.Action == events.AdminActionEndGame {
		f.registry.Delete(action.GameCode)
	}
	return nil
}

func (f *fakeGames) Snapshot(code string) (room.Snapshot, error) {
	r, err := f.registry.Get(code)
	if err != nil {
		return room.Snapshot{}, err
	}
	r.Lock()
	defer r.Unlock()
	return r.Snapshot(), nil
}

func (f *fakeGames) Snapshots() []room.Snapshot {
	var out []room.Snapshot
	for _, r := range f.registry.List() {
		r.Lock()
		out = append(out, r.Snapshot())
		r.Unlock()
	}
	return out
}

func newTestServer(t *testing.T, games *fakeGames) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(NewService(games, func() string { return "MINTED" }).Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, procedure string, body map[string]any) (*structpb.Struct, error) {
	t.Helper()
	msg, err := structpb.NewStruct(body)
	require.NoError(t, err)
	client := connect.NewClient[structpb.Struct, structpb.Struct](srv.Client(), srv.URL+procedure)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func TestCreateGame(t *testing.T) {
	games := &fakeGames{registry: room.NewRegistry()}
	srv := newTestServer(t, games)

	resp, err := call(t, srv, CreateGameProcedure, map[string]any{
		"adminId":        "admin-1",
		"maxPlayers":     25,
		"totalQuestions": 5,
	})
	require.NoError(t, err)
	fields := resp.AsMap()
	assert.Equal(t, "MINTED", fields["code"])
	assert.Equal(t, "admin-1", fields["adminId"])
	assert.Equal(t, float64(25), fields["maxPlayers"])
	assert.Equal(t, string(models.RoomStatusWaiting), fields["status"])

	_, err = call(t, srv, CreateGameProcedure, map[string]any{"gameCode": "MINTED", "adminId": "admin-1"})
	assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))

	_, err = call(t, srv, CreateGameProcedure, map[string]any{"gameCode": "X"})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestPerformAction(t *testing.T) {
	games := &fakeGames{registry: room.NewRegistry()}
	_, err := games.registry.Create("GAME01", "admin-1", 10, 3)
	require.NoError(t, err)
	srv := newTestServer(t, games)

	resp, err := call(t, srv, PerformActionProcedure, map[string]any{
		"gameCode": "GAME01",
		"adminId":  "admin-1",
		"action":   "pause-game",
		"payload":  map[string]any{"paused": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "GAME01", resp.AsMap()["code"])

	require.Len(t, games.actions, 1)
	got := games.actions[0]
	assert.Equal(t, events.AdminActionPauseGame, got.Action)
	assert.Equal(t, "admin-1", got.AdminID)
	assert.JSONEq(t, `{"paused":true}`, string(got.Payload))

	resp, err = call(t, srv, PerformActionProcedure, map[string]any{
		"gameCode": "GAME01",
		"adminId":  "admin-1",
		"action":   "end-game",
	})
	require.NoError(t, err)
	assert.Equal(t, true, resp.AsMap()["removed"])
}

func TestPerformAction_ErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code connect.Code
	}{
		{room.ErrRoomNotFound, connect.CodeNotFound},
		{orchestrator.ErrUnauthorized, connect.CodePermissionDenied},
		{orchestrator.ErrUnknownAction, connect.CodeInvalidArgument},
		{fmt.Errorf("start: %w", room.ErrInvalidTransition), connect.CodeFailedPrecondition},
		{orchestrator.ErrNoPlayers, connect.CodeFailedPrecondition},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			games := &fakeGames{registry: room.NewRegistry(), err: tc.err}
			srv := newTestServer(t, games)
			_, err := call(t, srv, PerformActionProcedure, map[string]any{
				"gameCode": "GAME01",
				"adminId":  "admin-1",
				"action":   "start-game",
			})
			assert.Equal(t, tc.code, connect.CodeOf(err))
		})
	}
}

func TestGetAndListRooms(t *testing.T) {
	games := &fakeGames{registry: room.NewRegistry()}
	r, err := games.registry.Create("GAME01", "admin-1", 10, 3)
	require.NoError(t, err)
	r.Lock()
	err = r.AddPlayer("p1")
	r.Unlock()
	require.NoError(t, err)
	srv := newTestServer(t, games)

	resp, err := call(t, srv, GetRoomProcedure, map[string]any{"gameCode": "GAME01"})
	require.NoError(t, err)
	data, err := json.Marshal(resp.AsMap()["players"])
	require.NoError(t, err)
	assert.JSONEq(t, `[{"playerId":"p1","state":"active","correctAnswers":0}]`, string(data))

	_, err = call(t, srv, GetRoomProcedure, map[string]any{"gameCode": "NOPE"})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	resp, err = call(t, srv, ListRoomsProcedure, map[string]any{})
	require.NoError(t, err)
	rooms, ok := resp.AsMap()["rooms"].([]any)
	require.True(t, ok)
	assert.Len(t, rooms, 1)
}
