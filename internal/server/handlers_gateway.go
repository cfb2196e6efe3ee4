package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/F0laf0lu/Chat-API/internal/auth"
	"github.com/F0laf0lu/Chat-API/internal/broadcast"
	"github.com/F0laf0lu/Chat-API/internal/domain"
	"github.com/F0laf0lu/Chat-API/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same-origin enforcement happens at the proxy
	},
}

// inboundHandlers routes client control frames by their "type" tag.
// Unknown types are ignored so newer clients don't break older servers.
var inboundHandlers = map[string]func(handle *broadcast.Handle, frame []byte){
	"heartbeat": func(handle *broadcast.Handle, _ []byte) {
		handle.ExtendReadDeadline()
	},
}

func dispatchInbound(handle *broadcast.Handle, frame []byte) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		slog.Debug("Ignoring malformed inbound frame", "user", handle.User())
		return
	}

	handler, ok := inboundHandlers[envelope.Type]
	if !ok {
		slog.Debug("Ignoring unknown inbound frame type", "type", envelope.Type, "user", handle.User())
		return
	}
	handler(handle, frame)
}

// handleChatSocket upgrades the request to a WebSocket and subscribes it
// to the room's broadcast key. All rejects happen before the upgrade, so
// a refused client sees a plain HTTP status instead of an error frame.
func (s *Server) handleChatSocket(c echo.Context) error {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		metrics.GatewayConnectsTotal.WithLabelValues("rejected_request").Inc()
		return c.String(http.StatusBadRequest, "Invalid room id")
	}

	// Browsers cannot set headers on WebSocket dials, so the token may
	// arrive as a query param instead.
	token := c.QueryParam("token")
	if token == "" {
		token = bearerToken(c.Request())
	}
	claims, err := auth.ParseToken(s.jwtConfig, token)
	if err != nil {
		metrics.GatewayConnectsTotal.WithLabelValues("rejected_auth").Inc()
		return c.String(http.StatusUnauthorized, "Authentication required")
	}

	ctx := c.Request().Context()

	room, err := s.rooms.GetByID(ctx, roomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		metrics.GatewayConnectsTotal.WithLabelValues("rejected_room").Inc()
		return c.String(http.StatusNotFound, "Room not found")
	}
	if err != nil {
		slog.Error("Failed to load room", "room_id", roomID, "error", err)
		return c.String(http.StatusInternalServerError, "Failed to load room")
	}

	if err := s.access.Authorize(ctx, room, claims.UserID); err != nil {
		metrics.GatewayConnectsTotal.WithLabelValues("rejected_auth").Inc()
		return c.String(http.StatusForbidden, "Access denied")
	}

	ip := c.RealIP()
	if ok, reason := s.limits.Acquire(ip); !ok {
		metrics.GatewayConnectsTotal.WithLabelValues("rejected_limit").Inc()
		slog.Warn("Connection limit reached", "ip", ip, "reason", reason)
		return c.String(http.StatusTooManyRequests, fmt.Sprintf("Connection limit reached (%s)", reason))
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.limits.Release(ip)
		slog.Warn("Failed to upgrade WebSocket", "error", err)
		return nil
	}

	// The broadcast key is derived once at connect time. A room renamed
	// afterwards keeps serving this connection under the old key until
	// the client reconnects.
	key := domain.BroadcastKey(room.RoomName)
	handle := broadcast.NewHandle(conn, claims.Username, s.clock)

	if err := s.registry.Subscribe(key, handle); err != nil {
		metrics.GatewayConnectsTotal.WithLabelValues("rejected_capacity").Inc()
		slog.Warn("Failed to subscribe connection", "room_key", key, "user", claims.Username, "error", err)
		handle.Close()
		s.limits.Release(ip)
		return nil
	}

	metrics.GatewayConnectsTotal.WithLabelValues("accepted").Inc()
	slog.Info("Client connected", "room_key", key, "user", claims.Username)

	// Unsubscribe runs exactly once on every exit path, including abrupt
	// transport failures surfaced as read errors. If the registry already
	// evicted this handle, the call is a no-op.
	defer func() {
		s.registry.Unsubscribe(key, handle)
		handle.Close()
		s.limits.Release(ip)
		slog.Info("Client disconnected", "room_key", key, "user", claims.Username)
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			break
		}
		dispatchInbound(handle, frame)
	}

	return nil
}
