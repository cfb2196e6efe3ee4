package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth routes
	s.echo.POST("/auth/login", s.handleLogin)

	// API routes (rate limited per IP)
	api := s.echo.Group("/api", newRateLimiter(s.config.HTTPRatePerSecond, s.config.HTTPRateBurst))

	api.POST("/users", s.handleRegister)
	api.GET("/users/:id", s.handleGetUser, s.requireAuth)

	api.POST("/rooms", s.handleCreateRoom, s.requireAuth)
	api.GET("/rooms", s.handleListRooms, s.requireAuth)
	api.GET("/rooms/:room_id", s.handleGetRoom, s.requireAuth)

	api.POST("/rooms/:room_id/members", s.handleAddMember, s.requireAuth)
	api.GET("/rooms/:room_id/members", s.handleGetMembers, s.requireAuth)
	api.GET("/rooms/:room_id/members/:user_id", s.handleGetMember, s.requireAuth)
	api.DELETE("/rooms/:room_id/members/:user_id", s.handleRemoveMember, s.requireAuth)

	api.GET("/rooms/:room_id/chat", s.handleJoinChat, s.requireAuth)
	api.POST("/rooms/:room_id/chat", s.handleSendMessage, s.requireAuth)
	api.GET("/rooms/:room_id/messages", s.handleListMessages, s.requireAuth)

	// Live connection endpoint. Authentication happens inside the handler
	// (token query param or bearer header) so rejects can refuse the
	// upgrade instead of sending an error frame.
	s.echo.GET("/ws/chat/:room_id", s.handleChatSocket)
}
