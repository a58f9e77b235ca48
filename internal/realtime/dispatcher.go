package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"news_relay/internal/domain"
	"news_relay/internal/metrics"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Dispatcher delivers frames to all connections, a room, or a single
// connection. Delivery is best-effort and at-most-once: nothing is retried
// or persisted, and each call works on a snapshot taken when it starts.
type Dispatcher struct {
	registry *Registry
	rooms    *Rooms
	clock    clockwork.Clock
	location *time.Location
	logger   *slog.Logger
}

func NewDispatcher(registry *Registry, rooms *Rooms, clock clockwork.Clock, location *time.Location, logger *slog.Logger) *Dispatcher {
	if location == nil {
		location = time.UTC
	}
	return &Dispatcher{
		registry: registry,
		rooms:    rooms,
		clock:    clock,
		location: location,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Status is the registry view exposed to the management surface.
type Status struct {
	IsAvailable      bool     `json:"isAvailable"`
	ConnectedClients int      `json:"connectedClients"`
	ClientIDs        []string `json:"clientIds"`
	Timestamp        string   `json:"timestamp"`
}

// Timestamp formats the current server time in the configured zone.
func (d *Dispatcher) Timestamp() string {
	return d.clock.Now().In(d.location).Format(timestampLayout)
}

// BroadcastAll sends to every live connection and returns how many frames were queued.
func (d *Dispatcher) BroadcastAll(event string, payload Payload) int {
	conns := d.registry.Snapshot()
	if len(conns) == 0 {
		d.logger.Warn("no connected clients, broadcast skipped", "event", event)
		return 0
	}

	delivered := d.deliver(conns, Message{Event: event, Data: d.stamp(payload)}, "all")

	d.logger.Info("broadcast to all clients",
		"event", event,
		"connected", len(conns),
		"delivered", delivered,
	)
	return delivered
}

// SendToRoom sends to the current members of room. An empty room is a no-op.
func (d *Dispatcher) SendToRoom(event string, payload Payload, room domain.Room) int {
	ids := d.rooms.Members(room)
	if len(ids) == 0 {
		return 0
	}

	conns := make([]Conn, 0, len(ids))
	for _, id := range ids {
		if conn, ok := d.registry.Get(id); ok {
			conns = append(conns, conn)
		}
	}

	delivered := d.deliver(conns, Message{Event: event, Data: d.stamp(payload)}, "room")

	d.logger.Info("sent to room",
		"event", event,
		"room", room.String(),
		"members", len(conns),
		"delivered", delivered,
	)
	return delivered
}

// SendToClient returns false when connID is not live; that is a normal outcome.
func (d *Dispatcher) SendToClient(event string, payload Payload, connID string) bool {
	conn, ok := d.registry.Get(connID)
	if !ok {
		d.logger.Warn("client not connected, message not sent", "event", event, "client_id", connID)
		return false
	}

	sent := d.deliver([]Conn{conn}, Message{Event: event, Data: d.stamp(payload)}, "client") == 1
	d.logger.Debug("sent to client", "event", event, "client_id", connID, "sent", sent)
	return sent
}

// SendNotification wraps content in the notification envelope and routes it
// to room when given, otherwise to everyone.
func (d *Dispatcher) SendNotification(content any, room *domain.Room) int {
	payload := Payload{
		"type":    "notification",
		"content": content,
		"message": "System notification",
	}
	if room != nil {
		return d.SendToRoom(EventNotification, payload, *room)
	}
	return d.BroadcastAll(EventNotification, payload)
}

// Push announces fresh content to subscribers of room using its topic event.
func (d *Dispatcher) Push(room domain.Room, content any) int {
	return d.SendToRoom(room.PushEvent(), Payload{
		"type":    room.String(),
		"content": content,
		"message": room.Label() + " push",
	}, room)
}

func (d *Dispatcher) Heartbeat() int {
	return d.BroadcastAll(EventHeartbeat, Payload{
		"message":    "Server heartbeat",
		"serverTime": d.Timestamp(),
	})
}

// RunHeartbeat broadcasts a heartbeat every interval until ctx is done.
func (d *Dispatcher) RunHeartbeat(ctx context.Context, interval time.Duration) {
	ticker := d.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			d.Heartbeat()
		}
	}
}

func (d *Dispatcher) Status() Status {
	return Status{
		IsAvailable:      true,
		ConnectedClients: d.registry.Count(),
		ClientIDs:        d.registry.IDs(),
		Timestamp:        d.Timestamp(),
	}
}

// reply answers the sender of an inbound event directly, live or not.
func (d *Dispatcher) reply(conn Conn, event string, payload Payload) bool {
	return d.deliver([]Conn{conn}, Message{Event: event, Data: d.stamp(payload)}, "client") == 1
}

func (d *Dispatcher) deliver(conns []Conn, msg Message, scope string) int {
	delivered := 0
	for _, conn := range conns {
		if conn.Send(msg) {
			delivered++
			continue
		}
		metrics.MessagesDropped.Inc()
		d.logger.Debug("frame dropped", "event", msg.Event, "client_id", conn.ID())
	}
	metrics.MessagesSent.WithLabelValues(scope).Add(float64(delivered))
	return delivered
}

func (d *Dispatcher) stamp(payload Payload) Payload {
	out := make(Payload, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["timestamp"] = d.Timestamp()
	return out
}
