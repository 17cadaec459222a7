package runtime

import (
	"context"
	"rent-hub/contract"
	"rent-hub/domain"
	"rent-hub/domain/event"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// recordingConn keeps every envelope delivered to it.
type recordingConn struct {
	id     string
	mu     sync.Mutex
	events []event.Envelope
}

func newRecordingConn() *recordingConn {
	return &recordingConn{id: uuid.NewString()}
}

func (c *recordingConn) ID() string { return c.id }

func (c *recordingConn) Deliver(_ context.Context, e event.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *recordingConn) received(name event.Name) []event.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Filter(c.events, func(e event.Envelope, _ int) bool { return e.Event == name })
}

func ids(conns []contract.Connection) []string {
	return lo.Map(conns, func(c contract.Connection, _ int) string { return c.ID() })
}

func TestRegistry_Join_One_Room_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newRecordingConn()
	roomID := domain.Chat("c1")

	// Given no connection and no room
	req.Nil(registry.Members(roomID))

	// When a connection joins a room
	registry.Join(conn, roomID)

	// Then the room exists with that single member
	req.Equal([]string{conn.ID()}, ids(registry.Members(roomID)))
	req.Equal([]domain.RoomID{roomID}, registry.Rooms(conn))
	connections, rooms := registry.Stats()
	req.Equal(1, connections)
	req.Equal(1, rooms)
}

func TestRegistry_Join_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newRecordingConn()
	roomID := domain.Chat("c1")

	// When the same connection joins twice
	registry.Join(conn, roomID)
	registry.Join(conn, roomID)

	// Then it is listed once
	req.Len(registry.Members(roomID), 1)
	req.Len(registry.Rooms(conn), 1)
}

func TestRegistry_Leave_Removes_Empty_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn1 := newRecordingConn()
	conn2 := newRecordingConn()
	roomID := domain.Chat("c1")

	registry.Join(conn1, roomID)
	registry.Join(conn2, roomID)

	// When one connection leaves
	registry.Leave(conn1, roomID)

	// Then only the other one remains
	req.Equal([]string{conn2.ID()}, ids(registry.Members(roomID)))
	req.Empty(registry.Rooms(conn1))

	// When the last one leaves, twice
	registry.Leave(conn2, roomID)
	registry.Leave(conn2, roomID)

	// Then the room is gone
	req.Nil(registry.Members(roomID))
	req.Empty(registry.Snapshot())
	connections, rooms := registry.Stats()
	req.Zero(connections)
	req.Zero(rooms)
}

func TestRegistry_Leave_Unknown_Room_Is_NoOp(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conn := newRecordingConn()

	registry.Join(conn, domain.Chat("c1"))
	registry.Leave(conn, domain.Chat("nope"))

	req.Equal([]domain.RoomID{domain.Chat("c1")}, registry.Rooms(conn))
}

func TestRegistry_DropAll_Leaves_No_Trace(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	leaving := newRecordingConn()
	staying := newRecordingConn()

	// Given a connection in its identity room and two chats, one shared
	registry.Join(leaving, domain.Identity("u1"))
	registry.Join(leaving, domain.Chat("c1"))
	registry.Join(leaving, domain.Chat("c2"))
	registry.Join(staying, domain.Chat("c2"))

	// When it disconnects
	left := registry.DropAll(leaving)

	// Then it was removed from all three rooms
	req.ElementsMatch([]domain.RoomID{domain.Identity("u1"), domain.Chat("c1"), domain.Chat("c2")}, left)
	for _, roomID := range left {
		req.NotContains(ids(registry.Members(roomID)), leaving.ID())
	}
	req.Empty(registry.Rooms(leaving))

	// And the rooms it was alone in are gone
	snapshot := registry.Snapshot()
	req.Len(snapshot, 1)
	req.Equal("chat:c2", snapshot[0].Room)
	req.Equal([]string{staying.ID()}, snapshot[0].Members)

	// And resolving can never return it again
	req.NotContains(ids(registry.Resolve(left...)), leaving.ID())

	// And dropping again is harmless
	req.Empty(registry.DropAll(leaving))
}

func TestRegistry_Resolve_Deduplicates_Overlapping_Rooms(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	inAll := newRecordingConn()
	inChat := newRecordingConn()
	outsider := newRecordingConn()

	registry.Join(inAll, domain.Chat("c1"))
	registry.Join(inAll, domain.Identity("u1"))
	registry.Join(inAll, domain.Identity("u2"))
	registry.Join(inChat, domain.Chat("c1"))
	registry.Join(outsider, domain.Identity("u3"))

	resolved := registry.Resolve(domain.Chat("c1"), domain.Identity("u1"), domain.Identity("u2"))

	req.ElementsMatch([]string{inAll.ID(), inChat.ID()}, ids(resolved))
	req.Nil(registry.Resolve(domain.Chat("empty")))
}

func TestRegistry_Concurrent_Join_And_DropAll(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conns := lo.Times(50, func(_ int) *recordingConn { return newRecordingConn() })

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *recordingConn) {
			defer wg.Done()
			registry.Join(c, domain.Identity(c.ID()))
			registry.Join(c, domain.Chat("lobby"))
			_ = registry.Resolve(domain.Chat("lobby"))
			registry.DropAll(c)
		}(c)
	}
	wg.Wait()

	// Then every trace of every connection is gone
	req.Empty(registry.Snapshot())
	connections, rooms := registry.Stats()
	req.Zero(connections)
	req.Zero(rooms)
}
