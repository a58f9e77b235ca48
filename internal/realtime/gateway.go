package realtime

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"news_relay/internal/domain"
	"news_relay/internal/metrics"
)

type legacyAlias struct {
	room      domain.Room
	subscribe bool
}

// Topic-specific events kept for older clients. They forward into
// Subscribe/Unsubscribe with the room fixed.
var legacyAliases = map[string]legacyAlias{
	"subscribeNews":      {room: domain.RoomNews, subscribe: true},
	"unsubscribeNews":    {room: domain.RoomNews, subscribe: false},
	"subscribeFinance":   {room: domain.RoomFinance, subscribe: true},
	"unsubscribeFinance": {room: domain.RoomFinance, subscribe: false},
	"subscribeSport":     {room: domain.RoomSport, subscribe: true},
	"unsubscribeSport":   {room: domain.RoomSport, subscribe: false},
}

// Gateway handles connection lifecycle and inbound client events.
type Gateway struct {
	registry   *Registry
	rooms      *Rooms
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewGateway(registry *Registry, rooms *Rooms, dispatcher *Dispatcher, logger *slog.Logger) *Gateway {
	return &Gateway{
		registry:   registry,
		rooms:      rooms,
		dispatcher: dispatcher,
		logger:     logger.With("component", "gateway"),
	}
}

// Connect registers conn and acknowledges it with its assigned id.
func (g *Gateway) Connect(conn Conn) {
	g.registry.Add(conn)
	count := g.registry.Count()
	metrics.ConnectedClients.Set(float64(count))

	g.logger.Info("client connected", "client_id", conn.ID(), "connected", count)

	g.dispatcher.reply(conn, EventConnected, Payload{
		"message":  "Connected",
		"clientId": conn.ID(),
	})
}

// Disconnect removes conn from the registry and from every room it joined.
func (g *Gateway) Disconnect(conn Conn) {
	left := g.rooms.LeaveAll(conn.ID())
	g.registry.Remove(conn.ID())
	count := g.registry.Count()
	metrics.ConnectedClients.Set(float64(count))

	g.logger.Info("client disconnected",
		"client_id", conn.ID(),
		"rooms_left", len(left),
		"connected", count,
	)
}

// Handle routes one inbound frame.
func (g *Gateway) Handle(conn Conn, in Inbound) {
	switch in.Event {
	case EventMessage:
		g.echo(conn, in.Data)
	case EventSubscribe:
		roomType, extra := splitRoomType(decodePayload(in.Data))
		g.Subscribe(conn, roomType, extra)
	case EventUnsubscribe:
		roomType, extra := splitRoomType(decodePayload(in.Data))
		g.Unsubscribe(conn, roomType, extra)
	default:
		alias, ok := legacyAliases[in.Event]
		if !ok {
			metrics.InboundEvents.WithLabelValues("unknown", "ignored").Inc()
			g.logger.Warn("unknown client event", "client_id", conn.ID(), "event", in.Event)
			return
		}
		g.logger.Debug("legacy event forwarded", "client_id", conn.ID(), "event", in.Event, "room", alias.room.String())
		_, extra := splitRoomType(decodePayload(in.Data))
		if alias.subscribe {
			g.Subscribe(conn, alias.room.String(), extra)
		} else {
			g.Unsubscribe(conn, alias.room.String(), extra)
		}
	}
}

// Subscribe joins conn to roomType. Unknown names are reported to the sender
// only and change nothing. A repeated subscribe is confirmed again.
func (g *Gateway) Subscribe(conn Conn, roomType string, extra Payload) {
	room, err := domain.ParseRoom(roomType)
	if err != nil {
		metrics.InboundEvents.WithLabelValues(EventSubscribe, "rejected").Inc()
		g.dispatcher.reply(conn, EventSubscriptionError, Payload{"message": err.Error()})
		return
	}

	if _, live := g.registry.Get(conn.ID()); live {
		added := g.rooms.Join(room, conn.ID())
		g.logger.Info("client subscribed", "client_id", conn.ID(), "room", room.String(), "added", added)
	}
	metrics.InboundEvents.WithLabelValues(EventSubscribe, "ok").Inc()

	if extra == nil {
		extra = Payload{}
	}
	g.dispatcher.reply(conn, EventSubscriptionConfirmed, Payload{
		"message":      room.Label() + " subscription confirmed",
		"roomType":     room.String(),
		"subscription": extra,
	})
}

// Unsubscribe is symmetric with Subscribe; leaving a room conn never joined is confirmed too.
func (g *Gateway) Unsubscribe(conn Conn, roomType string, extra Payload) {
	room, err := domain.ParseRoom(roomType)
	if err != nil {
		metrics.InboundEvents.WithLabelValues(EventUnsubscribe, "rejected").Inc()
		g.dispatcher.reply(conn, EventUnsubscriptionError, Payload{"message": err.Error()})
		return
	}

	removed := g.rooms.Leave(room, conn.ID())
	metrics.InboundEvents.WithLabelValues(EventUnsubscribe, "ok").Inc()
	g.logger.Info("client unsubscribed", "client_id", conn.ID(), "room", room.String(), "removed", removed, "extra", extra)

	g.dispatcher.reply(conn, EventUnsubscriptionConfirmed, Payload{
		"message":  room.Label() + " unsubscription confirmed",
		"roomType": room.String(),
	})
}

func (g *Gateway) echo(conn Conn, data json.RawMessage) {
	metrics.InboundEvents.WithLabelValues(EventMessage, "ok").Inc()
	g.logger.Debug("message received", "client_id", conn.ID())

	var original any
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &original); err != nil {
			original = string(data)
		}
	}

	g.dispatcher.reply(conn, EventMessageReceived, Payload{
		"message":         "Message received",
		"originalMessage": original,
	})
}

func decodePayload(data json.RawMessage) Payload {
	payload := Payload{}
	if len(bytes.TrimSpace(data)) == 0 {
		return payload
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}
	}
	return payload
}

// splitRoomType pulls roomType out of payload and returns the remaining fields.
func splitRoomType(payload Payload) (string, Payload) {
	roomType, _ := payload["roomType"].(string)
	extra := make(Payload, len(payload))
	for k, v := range payload {
		if k != "roomType" {
			extra[k] = v
		}
	}
	return roomType, extra
}
