package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"rent-hub/domain"
	"rent-hub/domain/event"
	"rent-hub/runtime"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts Options) (*runtime.Hub, *httptest.Server) {
	hub := runtime.NewHub(slog.Default())
	srv := httptest.NewServer(NewServer(slog.Default(), hub, opts).Routes())
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, name event.Name, payload any) {
	envelope, err := event.NewEnvelope(name, payload)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, envelope))
}

func receive(t *testing.T, conn *websocket.Conn) event.Envelope {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var envelope event.Envelope
	require.NoError(t, wsjson.Read(ctx, conn, &envelope))
	return envelope
}

// silent reports whether nothing arrives within wait.
func silent(conn *websocket.Conn, wait time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	var envelope event.Envelope
	return wsjson.Read(ctx, conn, &envelope) != nil
}

func setup(t *testing.T, conn *websocket.Conn, identity string) {
	send(t, conn, event.Setup, event.SetupPayload{Identity: identity})
	require.Equal(t, event.Connected, receive(t, conn).Event)
}

func TestServer_Message_Scenario(t *testing.T) {
	req := require.New(t)
	hub, srv := newTestServer(t, DefaultOptions())
	a, b, c := dial(t, srv), dial(t, srv), dial(t, srv)

	// Given u1 and u2 in chat c1 and u3 elsewhere
	setup(t, a, "u1")
	setup(t, b, "u2")
	setup(t, c, "u3")
	send(t, a, event.JoinChat, "c1")
	send(t, b, event.JoinChat, "c1")
	req.Eventually(func() bool {
		return len(hub.Registry().Members(domain.Chat("c1"))) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// When u1 sends a message
	send(t, a, event.NewMessage, json.RawMessage(`{"chatId":"c1","participantA":"u1","participantB":"u2","body":"hi"}`))

	// Then A and B get it once and C gets nothing
	for _, conn := range []*websocket.Conn{a, b} {
		envelope := receive(t, conn)
		req.Equal(event.MessageReceived, envelope.Event)
		req.JSONEq(`{"chatId":"c1","participantA":"u1","participantB":"u2","body":"hi"}`, string(envelope.Payload))
		req.True(silent(conn, 100*time.Millisecond))
	}
	req.True(silent(c, 100*time.Millisecond))
}

func TestServer_Malformed_Frame_Reports_Error(t *testing.T) {
	req := require.New(t)
	_, srv := newTestServer(t, DefaultOptions())
	conn := dial(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req.NoError(conn.Write(ctx, websocket.MessageText, []byte("not json")))

	envelope := receive(t, conn)
	req.Equal(event.Error, envelope.Event)
	var payload event.ErrorPayload
	req.NoError(json.Unmarshal(envelope.Payload, &payload))
	req.Equal("malformed_frame", payload.Code)

	// And the connection is still usable
	setup(t, conn, "u1")
}

func TestServer_Rate_Limit(t *testing.T) {
	req := require.New(t)
	opts := DefaultOptions()
	opts.InboundRate = 0.001
	opts.InboundBurst = 1
	_, srv := newTestServer(t, opts)
	conn := dial(t, srv)

	// Given the single token spent on setup
	setup(t, conn, "u1")

	// When another event arrives right away
	send(t, conn, event.JoinChat, "c1")

	// Then it is refused
	envelope := receive(t, conn)
	req.Equal(event.Error, envelope.Event)
	req.Contains(string(envelope.Payload), "rate_limited")
}

func TestServer_Close_Drops_Rooms(t *testing.T) {
	req := require.New(t)
	hub, srv := newTestServer(t, DefaultOptions())
	conn := dial(t, srv)
	setup(t, conn, "u1")
	send(t, conn, event.JoinChat, "c1")
	req.Eventually(func() bool { return hub.Registry().Members(domain.Chat("c1")) != nil }, 2*time.Second, 10*time.Millisecond)

	// When the client goes away
	req.NoError(conn.Close(websocket.StatusNormalClosure, "bye"))

	// Then nothing is left behind
	req.Eventually(func() bool {
		connections, rooms := hub.Stats()
		return connections == 0 && rooms == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Unanswered_Ping_Disconnects(t *testing.T) {
	req := require.New(t)
	opts := DefaultOptions()
	opts.PingInterval = 100 * time.Millisecond
	opts.PingTimeout = 200 * time.Millisecond
	hub, srv := newTestServer(t, opts)

	// Given an identified client that stops reading, so pongs are never sent
	conn := dial(t, srv)
	setup(t, conn, "u1")
	req.Len(hub.Registry().Members(domain.Identity("u1")), 1)

	// Then the liveness check gives up and the connection leaves every room
	req.Eventually(func() bool {
		connections, rooms := hub.Stats()
		return connections == 0 && rooms == 0
	}, 2*time.Second, 20*time.Millisecond)
	req.Empty(hub.Registry().Members(domain.Identity("u1")))
}

func TestServer_Disconnect_Event_Closes_Connection(t *testing.T) {
	req := require.New(t)
	hub, srv := newTestServer(t, DefaultOptions())
	conn := dial(t, srv)
	setup(t, conn, "u1")

	send(t, conn, event.Disconnect, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	req.Equal(websocket.StatusNormalClosure, websocket.CloseStatus(err))
	req.Nil(hub.Registry().Members(domain.Identity("u1")))
}

func TestServer_Health_And_Rooms(t *testing.T) {
	req := require.New(t)
	_, srv := newTestServer(t, DefaultOptions())
	conn := dial(t, srv)
	setup(t, conn, "u1")

	res, err := http.Get(srv.URL + "/healthz")
	req.NoError(err)
	defer res.Body.Close()
	req.Equal(http.StatusOK, res.StatusCode)
	var health healthResponse
	req.NoError(json.NewDecoder(res.Body).Decode(&health))
	req.Equal("ok", health.Status)
	req.Equal(1, health.Connections)
	req.Equal(1, health.Rooms)

	res, err = http.Get(srv.URL + "/debug/rooms")
	req.NoError(err)
	defer res.Body.Close()
	var rooms []runtime.RoomSnapshot
	req.NoError(json.NewDecoder(res.Body).Decode(&rooms))
	req.Len(rooms, 1)
	req.Equal("identity:u1", rooms[0].Room)
	req.Len(rooms[0].Members, 1)
}

func TestServer_Origin_Allow_List(t *testing.T) {
	req := require.New(t)
	opts := DefaultOptions()
	opts.OriginPatterns = []string{"rent.example.com"}
	_, srv := newTestServer(t, opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	header := http.Header{}
	header.Set("Origin", "https://evil.example.org")
	_, res, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", &websocket.DialOptions{HTTPHeader: header})
	req.Error(err)
	req.Equal(http.StatusForbidden, res.StatusCode)
}
