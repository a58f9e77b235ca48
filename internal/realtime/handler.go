package realtime

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type HandlerConfig struct {
	SendBuffer     int
	ReadLimit      int64
	AllowedOrigins []string // empty allows every origin
}

// Handler upgrades HTTP requests and runs the client pumps.
type Handler struct {
	gateway  *Gateway
	cfg      HandlerConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHandler(gateway *Gateway, cfg HandlerConfig, logger *slog.Logger) *Handler {
	h := &Handler{
		gateway: gateway,
		cfg:     cfg,
		logger:  logger.With("component", "ws_handler"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.cfg.AllowedOrigins, origin)
}

// ServeHTTP blocks for the lifetime of the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(uuid.NewString(), ws, h.cfg.SendBuffer, h.logger)
	go client.writePump()

	h.gateway.Connect(client)
	defer h.gateway.Disconnect(client)

	client.readPump(h.cfg.ReadLimit, func(in Inbound) {
		h.gateway.Handle(client, in)
	})
}
