// Package server exposes the realtime socket and the management HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"news_relay/internal/domain"
	"news_relay/internal/realtime"
	"news_relay/internal/scheduler"
)

// Dispatcher is the realtime fan-out used by the management routes.
type Dispatcher interface {
	BroadcastAll(event string, payload realtime.Payload) int
	SendToRoom(event string, payload realtime.Payload, room domain.Room) int
	SendToClient(event string, payload realtime.Payload, connID string) bool
	SendNotification(content any, room *domain.Room) int
	Heartbeat() int
	Status() realtime.Status
}

type SyncRunner interface {
	Trigger(ctx context.Context, jobID string) (domain.SyncResult, error)
	TriggerAll(ctx context.Context) (map[string]domain.SyncResult, int)
	Status() []scheduler.JobStatus
}

type ContentReader interface {
	Find(ctx context.Context, filter domain.ContentFilter, opts domain.FindOptions) ([]domain.ContentItem, error)
	Count(ctx context.Context, filter domain.ContentFilter) (int64, error)
}

type SyncStateReader interface {
	List(ctx context.Context) ([]domain.SyncState, error)
}

type Deps struct {
	Dispatcher  Dispatcher
	Socket      http.Handler
	Syncs       SyncRunner
	Contents    ContentReader
	SyncStates  SyncStateReader
	SyncTimeout time.Duration
	Logger      *slog.Logger
}

type Server struct {
	echo        *echo.Echo
	dispatcher  Dispatcher
	socket      http.Handler
	syncs       SyncRunner
	contents    ContentReader
	syncStates  SyncStateReader
	syncTimeout time.Duration
	logger      *slog.Logger
	startTime   time.Time
}

func New(deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	logger := deps.Logger.With("component", "http")

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				logger.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			logger.Debug("request", attrs...)
			return nil
		},
	}))

	if deps.SyncTimeout <= 0 {
		deps.SyncTimeout = 5 * time.Minute
	}

	srv := &Server{
		echo:        e,
		dispatcher:  deps.Dispatcher,
		socket:      deps.Socket,
		syncs:       deps.Syncs,
		contents:    deps.Contents,
		syncStates:  deps.SyncStates,
		syncTimeout: deps.SyncTimeout,
		logger:      logger,
		startTime:   time.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	s.logger.Info("starting http server", "addr", addr)
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
