package server

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"news_relay/internal/domain"
	"news_relay/internal/realtime"
)

type sendRequest struct {
	Event string           `json:"event"`
	Data  realtime.Payload `json:"data"`
}

type notificationRequest struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	TargetRoom string `json:"targetRoom"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	Delivered int    `json:"delivered"`
	Message   string `json:"message"`
}

func (s *Server) bindSend(c echo.Context) (sendRequest, error) {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Event == "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, "event is required")
	}
	if req.Data == nil {
		req.Data = realtime.Payload{}
	}
	return req, nil
}

func (s *Server) handleSocketStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.dispatcher.Status())
}

func (s *Server) handleBroadcast(c echo.Context) error {
	req, err := s.bindSend(c)
	if err != nil {
		return err
	}

	n := s.dispatcher.BroadcastAll(req.Event, req.Data)
	return c.JSON(http.StatusOK, sendResponse{Success: true, Delivered: n, Message: "broadcast sent"})
}

func (s *Server) handleSendToRoom(c echo.Context) error {
	room, err := domain.ParseRoom(c.Param("room"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, sendResponse{Message: err.Error()})
	}

	req, err := s.bindSend(c)
	if err != nil {
		return err
	}

	n := s.dispatcher.SendToRoom(req.Event, req.Data, room)
	return c.JSON(http.StatusOK, sendResponse{Success: true, Delivered: n, Message: "sent to room " + room.String()})
}

func (s *Server) handleSendToClient(c echo.Context) error {
	req, err := s.bindSend(c)
	if err != nil {
		return err
	}

	clientID := c.Param("clientId")
	if !s.dispatcher.SendToClient(req.Event, req.Data, clientID) {
		return c.JSON(http.StatusNotFound, sendResponse{
			Message: fmt.Errorf("%w: %s", domain.ErrConnectionNotFound, clientID).Error(),
		})
	}
	return c.JSON(http.StatusOK, sendResponse{Success: true, Delivered: 1, Message: "sent to client"})
}

func (s *Server) handleNotification(c echo.Context) error {
	var req notificationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var target *domain.Room
	if req.TargetRoom != "" {
		room, err := domain.ParseRoom(req.TargetRoom)
		if err != nil {
			return c.JSON(http.StatusBadRequest, sendResponse{Message: err.Error()})
		}
		target = &room
	}

	kind := req.Type
	if kind == "" {
		kind = "info"
	}

	n := s.dispatcher.SendNotification(map[string]any{
		"title":   req.Title,
		"message": req.Message,
		"type":    kind,
	}, target)
	return c.JSON(http.StatusOK, sendResponse{Success: true, Delivered: n, Message: "notification sent"})
}

func (s *Server) handleHeartbeat(c echo.Context) error {
	n := s.dispatcher.Heartbeat()
	return c.JSON(http.StatusOK, sendResponse{Success: true, Delivered: n, Message: "heartbeat sent"})
}
