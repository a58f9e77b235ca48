package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if s.socket != nil {
		s.echo.GET("/ws", echo.WrapHandler(s.socket))
	}

	ws := s.echo.Group("/websocket")
	ws.GET("/status", s.handleSocketStatus)
	ws.POST("/broadcast", s.handleBroadcast)
	ws.POST("/room/:room", s.handleSendToRoom)
	ws.POST("/client/:clientId", s.handleSendToClient)
	ws.POST("/notification", s.handleNotification)
	ws.POST("/heartbeat", s.handleHeartbeat)

	s.echo.POST("/sync", s.handleSyncAll)
	s.echo.POST("/sync/:job", s.handleSyncJob)
	s.echo.GET("/sync/status", s.handleSyncStatus)

	s.echo.GET("/content", s.handleListContent)
	s.echo.GET("/content/count", s.handleCountContent)
}
