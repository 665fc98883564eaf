// Package api is the HTTP surface: room creation with a shareable link,
// read-only room views, health and stats, and the websocket upgrade.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"planning-poker/domain"
	"planning-poker/errors"
	"planning-poker/observability"
	"planning-poker/runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type RoomCoordinator interface {
	CreateRoom(ctx context.Context, roomName, userName string, titles []string) (runtime.CreatedRoom, error)
	RoomState(ctx context.Context, roomID string) (domain.RoomState, error)
	Summary(ctx context.Context, roomID string) (domain.RoomSummary, error)
}

type StatsSource interface {
	Snapshot() observability.Stats
	Process() (observability.ProcessStats, bool)
}

type CreateRoomRequest struct {
	RoomName string   `json:"roomName" binding:"required,max=128"`
	UserName string   `json:"userName" binding:"required,max=64"`
	Tasks    []string `json:"tasks" binding:"max=500,dive,max=512"`
}

type CreateRoomResponse struct {
	RoomID       string `json:"roomId"`
	RoomURL      string `json:"roomUrl"`
	UserID       string `json:"userId"`
	TasksCreated int    `json:"tasksCreated"`
	Token        string `json:"token"`
}

type Handler struct {
	log       *slog.Logger
	rooms     RoomCoordinator
	stats     StatsSource
	clientURL string
	now       func() time.Time
}

func NewHandler(log *slog.Logger, rooms RoomCoordinator, stats StatsSource, clientURL string) *Handler {
	return &Handler{
		log:       log,
		rooms:     rooms,
		stats:     stats,
		clientURL: strings.TrimRight(clientURL, "/"),
		now:       time.Now,
	}
}

func (h *Handler) CreateRoom(c *gin.Context) {
	var request CreateRoomRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.log.Debug("Invalid room creation request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: invalid request body", errors.ErrValidation)})
		return
	}
	created, err := h.rooms.CreateRoom(c.Request.Context(), request.RoomName, request.UserName, request.Tasks)
	if err != nil {
		h.abort(c, err)
		return
	}
	h.log.Info("Room created over HTTP", "room", created.RoomID, "tasks", created.TasksCreated)
	c.JSON(http.StatusCreated, CreateRoomResponse{
		RoomID:       created.RoomID,
		RoomURL:      h.roomURL(created.RoomID, created.Token),
		UserID:       created.UserID,
		TasksCreated: created.TasksCreated,
		Token:        created.Token,
	})
}

// roomURL is the link the creator shares with itself, the token restores
// its seat from any browser.
func (h *Handler) roomURL(roomID, token string) string {
	return fmt.Sprintf("%s/room/%s?rejoin=%s", h.clientURL, url.PathEscape(roomID), url.QueryEscape(token))
}

func (h *Handler) GetRoom(c *gin.Context) {
	state, err := h.rooms.RoomState(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) GetSummary(c *gin.Context) {
	summary, err := h.rooms.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "timestamp": h.now().UTC()}
	if process, ok := h.stats.Process(); ok {
		body["process"] = process
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}

func (h *Handler) abort(c *gin.Context, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"error": errors.Public(err)})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errors.ErrRoomBusy), errors.Is(err, errors.ErrCoordinatorStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch errors.Kind(err) {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrNotAuthorized:
		return http.StatusForbidden
	case errors.ErrInvalidState:
		return http.StatusConflict
	case errors.ErrValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
