package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"planning-poker/domain"
	"planning-poker/errors"
	"planning-poker/observability"
	"planning-poker/runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type stubRooms struct {
	create  func(roomName, userName string, titles []string) (runtime.CreatedRoom, error)
	state   func(roomID string) (domain.RoomState, error)
	summary func(roomID string) (domain.RoomSummary, error)
}

func (s stubRooms) CreateRoom(_ context.Context, roomName, userName string, titles []string) (runtime.CreatedRoom, error) {
	return s.create(roomName, userName, titles)
}

func (s stubRooms) RoomState(_ context.Context, roomID string) (domain.RoomState, error) {
	return s.state(roomID)
}

func (s stubRooms) Summary(_ context.Context, roomID string) (domain.RoomSummary, error) {
	return s.summary(roomID)
}

func newTestRouter(rooms RoomCoordinator, stats StatsSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	h := NewHandler(log, rooms, stats, "http://localhost:3000/")
	h.now = func() time.Time { return time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC) }
	return NewRouter(log, h, http.NotFoundHandler(), "http://localhost:3000")
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	request := httptest.NewRequest(method, path, &payload)
	request.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, request)
	return w
}

func TestHandler_CreateRoom(t *testing.T) {
	req := require.New(t)
	var gotTitles []string
	router := newTestRouter(stubRooms{
		create: func(roomName, userName string, titles []string) (runtime.CreatedRoom, error) {
			req.Equal("Sprint 42", roomName)
			req.Equal("Alice", userName)
			gotTitles = titles
			return runtime.CreatedRoom{RoomID: "room-1", UserID: "user-1", TasksCreated: 2, Token: "abc.def"}, nil
		},
	}, observability.NewMonitor())

	// When a room is created with a task list
	w := do(router, http.MethodPost, "/api/rooms", map[string]any{
		"roomName": "Sprint 42", "userName": "Alice", "tasks": []string{"A", "B"},
	})

	// Then the link carries the rejoin token
	req.Equal(http.StatusCreated, w.Code)
	var response CreateRoomResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &response))
	req.Equal(CreateRoomResponse{
		RoomID:       "room-1",
		RoomURL:      "http://localhost:3000/room/room-1?rejoin=abc.def",
		UserID:       "user-1",
		TasksCreated: 2,
		Token:        "abc.def",
	}, response)
	req.Equal([]string{"A", "B"}, gotTitles)
	req.Equal("http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_CreateRoom_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		body any
		err  error
		code int
	}{
		{name: "missing user name", body: map[string]any{"roomName": "x"}, code: http.StatusBadRequest},
		{name: "not json", body: "nope", code: http.StatusBadRequest},
		{name: "blank name refused by the room", body: map[string]any{"roomName": "x", "userName": " "},
			err: errors.ErrEmptyName, code: http.StatusBadRequest},
		{name: "busy room", body: map[string]any{"roomName": "x", "userName": "y"},
			err: errors.ErrRoomBusy, code: http.StatusServiceUnavailable},
		{name: "storage failure stays private", body: map[string]any{"roomName": "x", "userName": "y"},
			err: context.Canceled, code: http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			router := newTestRouter(stubRooms{
				create: func(string, string, []string) (runtime.CreatedRoom, error) {
					return runtime.CreatedRoom{}, tc.err
				},
			}, observability.NewMonitor())

			w := do(router, http.MethodPost, "/api/rooms", tc.body)

			req.Equal(tc.code, w.Code)
			req.Contains(w.Body.String(), "error")
			req.NotContains(w.Body.String(), "canceled")
		})
	}
}

func TestHandler_Room_Views(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(stubRooms{
		state: func(roomID string) (domain.RoomState, error) {
			if roomID != "room-1" {
				return domain.RoomState{}, errors.ErrRoomNotFound
			}
			return domain.RoomState{Room: domain.Room{ID: "room-1", Name: "Sprint"}}, nil
		},
		summary: func(roomID string) (domain.RoomSummary, error) {
			return domain.RoomSummary{RoomID: roomID, TotalVotingSeconds: 90, VotedTasks: 3}, nil
		},
	}, observability.NewMonitor())

	w := do(router, http.MethodGet, "/api/rooms/room-1", nil)
	req.Equal(http.StatusOK, w.Code)
	var state domain.RoomState
	req.NoError(json.Unmarshal(w.Body.Bytes(), &state))
	req.Equal("Sprint", state.Room.Name)

	w = do(router, http.MethodGet, "/api/rooms/room-2", nil)
	req.Equal(http.StatusNotFound, w.Code)
	req.JSONEq(`{"error":"room not found"}`, w.Body.String())

	w = do(router, http.MethodGet, "/api/rooms/room-1/summary", nil)
	req.Equal(http.StatusOK, w.Code)
	var summary domain.RoomSummary
	req.NoError(json.Unmarshal(w.Body.Bytes(), &summary))
	req.Equal(90, summary.TotalVotingSeconds)
}

func TestHandler_Health_And_Stats(t *testing.T) {
	req := require.New(t)
	monitor := observability.NewMonitor()
	monitor.RoomStarted()
	monitor.ConnectionOpened()
	router := newTestRouter(stubRooms{}, monitor)

	// Without a process sample the health has no process block
	w := do(router, http.MethodGet, "/health", nil)
	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"status":"ok","timestamp":"2024-03-14T09:00:00Z"}`, w.Body.String())

	monitor.RecordProcess(observability.ProcessStats{PID: 42, Status: observability.Running})
	w = do(router, http.MethodGet, "/health", nil)
	var health map[string]any
	req.NoError(json.Unmarshal(w.Body.Bytes(), &health))
	req.Contains(health, "process")

	w = do(router, http.MethodGet, "/api/stats", nil)
	req.Equal(http.StatusOK, w.Code)
	var stats observability.Stats
	req.NoError(json.Unmarshal(w.Body.Bytes(), &stats))
	req.Equal(int64(1), stats.ActiveRooms)
	req.Equal(int64(1), stats.Connections)
}

func TestRouter_Preflight(t *testing.T) {
	req := require.New(t)
	router := newTestRouter(stubRooms{}, observability.NewMonitor())

	w := do(router, http.MethodOptions, "/api/rooms", nil)

	req.Equal(http.StatusNoContent, w.Code)
	req.Equal("http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
