package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"progman-api/internal/datecalc"
	"progman-api/internal/dto"
	"progman-api/internal/realtime"
	"progman-api/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	dispatchWait   = 15 * time.Second
)

type WSHandler struct {
	hub       *realtime.Hub
	schedules service.ScheduleService
	comments  service.CommentService
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewWSHandler creates the websocket endpoint. An empty origin list or "*" accepts any origin.
func NewWSHandler(
	hub *realtime.Hub,
	schedules service.ScheduleService,
	comments service.CommentService,
	allowedOrigins []string,
	logger *zap.Logger,
) *WSHandler {
	return &WSHandler{
		hub:       hub,
		schedules: schedules,
		comments:  comments,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWebSocket godoc
// @Summary      Real-time channel
// @Description  Frames are {"event": name, "data": payload}. See the join-project and join-comment-page events.
// @Tags         websocket
// @Success      101 {string} string "Switching Protocols"
// @Router       /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	conn := h.hub.Register()
	h.logger.Info("WebSocket connected",
		zap.String("conn_id", conn.ID),
		zap.String("remote", c.ClientIP()),
	)

	go h.writePump(ws, conn)
	go h.readPump(ws, conn)
}

func (h *WSHandler) readPump(ws *websocket.Conn, conn *realtime.Conn) {
	defer func() {
		h.hub.Unregister(conn)
		ws.Close()
		h.logger.Info("WebSocket disconnected", zap.String("conn_id", conn.ID))
	}()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", zap.String("conn_id", conn.ID), zap.Error(err))
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchWait)
		h.dispatch(ctx, conn, message)
		cancel()
	}
}

func (h *WSHandler) writePump(ws *websocket.Conn, conn *realtime.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case frame, ok := <-conn.Outbound():
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch handles one client frame. Failures are reported to the sender as an error event.
func (h *WSHandler) dispatch(ctx context.Context, conn *realtime.Conn, message []byte) {
	var env dto.Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		h.sendError(conn, "invalid frame")
		return
	}

	switch env.Event {
	case dto.EventJoinProject:
		var p dto.JoinProjectPayload
		if err := decodeData(env.Data, &p); err != nil || p.ProjectID == 0 {
			h.sendError(conn, "projectId is required")
			return
		}
		h.hub.JoinProject(conn, p.ProjectID)
		rows, err := h.schedules.ListSchedules(ctx, p.ProjectID)
		if err != nil {
			h.sendError(conn, "failed to load schedule")
			return
		}
		h.send(conn, dto.EventSchedulesUpdated, rows)

	case dto.EventUpdateSchedule:
		var p dto.UpdateSchedulePayload
		if err := decodeData(env.Data, &p); err != nil {
			h.sendError(conn, "invalid update-schedule payload")
			return
		}
		if p.ID != 0 && p.Changes != nil {
			if _, err := h.schedules.UpdateSchedule(ctx, p.ID, p.Changes); err != nil {
				h.sendError(conn, errorMessage(err))
			}
			return
		}
		if p.ProjectID == 0 {
			p.ProjectID, _ = h.hub.Scope(conn)
		}
		if p.ProjectID == 0 {
			h.sendError(conn, "projectId is required")
			return
		}
		if err := h.schedules.BroadcastSnapshot(ctx, p.ProjectID); err != nil {
			h.sendError(conn, errorMessage(err))
		}

	case dto.EventJoinCommentPage:
		var p dto.CommentPageScope
		if err := decodeData(env.Data, &p); err != nil {
			h.sendError(conn, "invalid join-comment-page payload")
			return
		}
		if p.ProjectID == 0 {
			p.ProjectID, _ = h.hub.Scope(conn)
		}
		if p.ProjectID == 0 || !datecalc.Valid(p.Date) {
			h.sendError(conn, "projectId and date are required")
			return
		}
		h.hub.JoinCommentPage(conn, p.ProjectID, p.Date)

	case dto.EventLeaveComment:
		h.hub.LeaveCommentPage(conn)

	case dto.EventRefreshComments:
		var p dto.CommentPageScope
		if err := decodeData(env.Data, &p); err != nil {
			h.sendError(conn, "invalid refresh-comments payload")
			return
		}
		p = h.commentScope(conn, p)
		if p.ProjectID == 0 || p.Date == "" {
			h.sendError(conn, "projectId and date are required")
			return
		}
		if err := h.comments.RefreshComments(ctx, p.ProjectID, p.Date); err != nil {
			h.sendError(conn, errorMessage(err))
		}

	default:
		h.sendError(conn, "unknown event: "+env.Event)
	}
}

// commentScope fills what p omits from the comment page conn is on, then from
// the project it joined
func (h *WSHandler) commentScope(conn *realtime.Conn, p dto.CommentPageScope) dto.CommentPageScope {
	projectID, page := h.hub.Scope(conn)
	if p.ProjectID == 0 {
		p.ProjectID = page.ProjectID
	}
	if p.ProjectID == 0 {
		p.ProjectID = projectID
	}
	if p.Date == "" {
		p.Date = page.Date
	}
	return p
}

func decodeData(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return json.Unmarshal(data, v)
}

func (h *WSHandler) send(conn *realtime.Conn, event string, payload interface{}) {
	frame, err := realtime.Encode(event, payload)
	if err != nil {
		h.logger.Error("Failed to encode frame", zap.String("event", event), zap.Error(err))
		return
	}
	if !h.hub.Send(conn, frame) {
		h.logger.Debug("Frame not queued", zap.String("conn_id", conn.ID), zap.String("event", event))
	}
}

func (h *WSHandler) sendError(conn *realtime.Conn, message string) {
	h.send(conn, dto.EventError, dto.ErrorPayload{Message: message})
}
