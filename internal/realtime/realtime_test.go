package realtime

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_relay/internal/domain"
)

type fakeConn struct {
	id   string
	full bool

	mu   sync.Mutex
	msgs []Message
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(msg Message) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

func (f *fakeConn) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.Event)
	}
	return out
}

func (f *fakeConn) last() Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[len(f.msgs)-1]
}

type fixture struct {
	registry   *Registry
	rooms      *Rooms
	clock      *clockwork.FakeClock
	dispatcher *Dispatcher
	gateway    *Gateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loc := time.FixedZone("CST", 8*3600)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 10, 2, 2, 29, 0, time.UTC))

	registry := NewRegistry()
	rooms := NewRooms()
	dispatcher := NewDispatcher(registry, rooms, clock, loc, logger)
	return &fixture{
		registry:   registry,
		rooms:      rooms,
		clock:      clock,
		dispatcher: dispatcher,
		gateway:    NewGateway(registry, rooms, dispatcher, logger),
	}
}

func (f *fixture) connect(id string) *fakeConn {
	conn := newFakeConn(id)
	f.gateway.Connect(conn)
	return conn
}

func inbound(t *testing.T, event string, data any) Inbound {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return Inbound{Event: event, Data: raw}
}

func TestConnect_SendsConnectedFrame(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("c1")

	require.Equal(t, []string{EventConnected}, conn.events())
	msg := conn.last()
	assert.Equal(t, "c1", msg.Data["clientId"])
	assert.Equal(t, "2025-07-10T10:02:29.000+08:00", msg.Data["timestamp"])
	assert.Equal(t, 1, f.registry.Count())
}

func TestSubscribe_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("c1")

	f.gateway.Handle(conn, inbound(t, EventSubscribe, map[string]any{"roomType": "finance"}))
	f.gateway.Handle(conn, inbound(t, EventSubscribe, map[string]any{"roomType": "finance"}))

	assert.Equal(t, 1, f.rooms.Count(domain.RoomFinance))
	assert.Equal(t, []string{EventConnected, EventSubscriptionConfirmed, EventSubscriptionConfirmed}, conn.events())
	assert.Equal(t, "finance", conn.last().Data["roomType"])
}

func TestSubscribe_UnknownRoomLeavesMembershipUnchanged(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("c1")

	f.gateway.Handle(conn, inbound(t, EventSubscribe, map[string]any{"roomType": "weather"}))

	assert.Equal(t, EventSubscriptionError, conn.last().Event)
	assert.Contains(t, conn.last().Data["message"], "supported rooms")
	for _, room := range domain.AllRooms() {
		assert.False(t, f.rooms.IsMember(room, "c1"))
	}
}

func TestSubscribe_EchoesExtraFields(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("c1")

	f.gateway.Handle(conn, inbound(t, EventSubscribe, map[string]any{"roomType": "news", "symbols": "AAPL"}))

	sub, ok := conn.last().Data["subscription"].(Payload)
	require.True(t, ok)
	assert.Equal(t, "AAPL", sub["symbols"])
	assert.NotContains(t, sub, "roomType")
}

func TestUnsubscribe_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("c1")

	f.gateway.Handle(conn, inbound(t, EventUnsubscribe, map[string]any{"roomType": "news"}))
	f.gateway.Handle(conn, inbound(t, EventSubscribe, map[string]any{"roomType": "news"}))
	f.gateway.Handle(conn, inbound(t, EventUnsubscribe, map[string]any{"roomType": "news"}))
	f.gateway.Handle(conn, inbound(t, EventUnsubscribe, map[string]any{"roomType": "news"}))

	assert.Equal(t, 0, f.rooms.Count(domain.RoomNews))
	assert.Equal(t, EventUnsubscriptionConfirmed, conn.last().Event)
}

func TestLegacyAliases(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("c1")

	f.gateway.Handle(conn, Inbound{Event: "subscribeFinance"})
	assert.True(t, f.rooms.IsMember(domain.RoomFinance, "c1"))

	f.gateway.Handle(conn, Inbound{Event: "subscribeNews", Data: json.RawMessage(`{"roomType":"finance"}`)})
	assert.True(t, f.rooms.IsMember(domain.RoomNews, "c1"))

	f.gateway.Handle(conn, Inbound{Event: "unsubscribeFinance"})
	assert.False(t, f.rooms.IsMember(domain.RoomFinance, "c1"))
}

func TestMessageEcho(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("c1")

	f.gateway.Handle(conn, Inbound{Event: EventMessage, Data: json.RawMessage(`{"text":"hi"}`)})

	msg := conn.last()
	assert.Equal(t, EventMessageReceived, msg.Event)
	assert.Equal(t, map[string]any{"text": "hi"}, msg.Data["originalMessage"])
}

func TestUnknownEventIgnored(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("c1")

	f.gateway.Handle(conn, Inbound{Event: "dance"})

	assert.Equal(t, []string{EventConnected}, conn.events())
}

func TestDisconnect_RemovesFromEveryRoom(t *testing.T) {
	f := newFixture(t)
	conn := f.connect("c1")
	f.gateway.Subscribe(conn, "news", nil)
	f.gateway.Subscribe(conn, "finance", nil)

	f.gateway.Disconnect(conn)

	assert.Equal(t, 0, f.registry.Count())
	assert.Equal(t, 0, f.rooms.Count(domain.RoomNews))
	assert.Equal(t, 0, f.rooms.Count(domain.RoomFinance))
	assert.False(t, f.dispatcher.SendToClient("x", Payload{}, "c1"))
}

func TestBroadcastAll(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 0, f.dispatcher.BroadcastAll("news", Payload{"a": 1}))

	c1 := f.connect("c1")
	c2 := f.connect("c2")
	c2.full = true

	assert.Equal(t, 1, f.dispatcher.BroadcastAll("news", Payload{"a": 1}))
	msg := c1.last()
	assert.Equal(t, "news", msg.Event)
	assert.Equal(t, 1, msg.Data["a"])
	assert.Contains(t, msg.Data, "timestamp")
}

func TestBroadcastAll_DoesNotMutatePayload(t *testing.T) {
	f := newFixture(t)
	f.connect("c1")
	payload := Payload{"a": 1}

	f.dispatcher.BroadcastAll("news", payload)

	assert.NotContains(t, payload, "timestamp")
}

func TestSendToRoom(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 0, f.dispatcher.SendToRoom("x", Payload{}, domain.RoomNews))

	c1 := f.connect("c1")
	c2 := f.connect("c2")
	f.gateway.Subscribe(c1, "news", nil)

	assert.Equal(t, 1, f.dispatcher.SendToRoom("newsPush", Payload{}, domain.RoomNews))
	assert.Equal(t, "newsPush", c1.last().Event)
	assert.NotContains(t, c2.events(), "newsPush")
}

func TestSendToClient(t *testing.T) {
	f := newFixture(t)
	c1 := f.connect("c1")

	assert.True(t, f.dispatcher.SendToClient("ping", Payload{}, "c1"))
	assert.Equal(t, "ping", c1.last().Event)
	assert.False(t, f.dispatcher.SendToClient("ping", Payload{}, "ghost"))
}

func TestSendNotification(t *testing.T) {
	f := newFixture(t)
	c1 := f.connect("c1")
	c2 := f.connect("c2")
	f.gateway.Subscribe(c2, "finance", nil)

	room := domain.RoomFinance
	assert.Equal(t, 1, f.dispatcher.SendNotification("rates up", &room))
	assert.Equal(t, EventNotification, c2.last().Event)
	assert.Equal(t, "notification", c2.last().Data["type"])
	assert.Equal(t, "rates up", c2.last().Data["content"])

	assert.Equal(t, 2, f.dispatcher.SendNotification("all hands", nil))
	assert.Equal(t, "all hands", c1.last().Data["content"])
}

func TestPush(t *testing.T) {
	f := newFixture(t)
	c1 := f.connect("c1")
	f.gateway.Subscribe(c1, "finance", nil)

	assert.Equal(t, 1, f.dispatcher.Push(domain.RoomFinance, map[string]any{"title": "t"}))
	msg := c1.last()
	assert.Equal(t, "financePush", msg.Event)
	assert.Equal(t, "finance", msg.Data["type"])
	assert.Equal(t, "Finance push", msg.Data["message"])
}

func TestStatusAndHeartbeat(t *testing.T) {
	f := newFixture(t)
	c1 := f.connect("c1")

	status := f.dispatcher.Status()
	assert.True(t, status.IsAvailable)
	assert.Equal(t, 1, status.ConnectedClients)
	assert.Equal(t, []string{"c1"}, status.ClientIDs)

	assert.Equal(t, 1, f.dispatcher.Heartbeat())
	assert.Equal(t, EventHeartbeat, c1.last().Event)
	assert.Equal(t, "Server heartbeat", c1.last().Data["message"])
	assert.Equal(t, "2025-07-10T10:02:29.000+08:00", c1.last().Data["serverTime"])
}
