package runtime

import (
	"rent-hub/contract"
	"rent-hub/domain"
	"sort"
	"sync"

	"github.com/samber/lo"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set map[string]struct{}

// Registry is the room index shared by every connection handler.
// One registry-wide lock keeps both directions of the index consistent:
// a connection is listed in a room if and only if the room is listed for it.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]contract.Connection         // connection id -> handle
	roomMembers map[domain.RoomID]Set                  // room -> connection ids
	joined      map[string]map[domain.RoomID]struct{} // connection id -> rooms
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]contract.Connection),
		roomMembers: make(map[domain.RoomID]Set),
		joined:      make(map[string]map[domain.RoomID]struct{}),
	}
}

// Join adds the connection to the room, creating the room on the fly.
// Joining twice has the same effect as joining once.
func (r *Registry) Join(conn contract.Connection, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	r.connections[id] = conn

	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(Set)
	}
	r.roomMembers[roomID][id] = struct{}{}

	if _, ok := r.joined[id]; !ok {
		r.joined[id] = make(map[domain.RoomID]struct{})
	}
	r.joined[id][roomID] = struct{}{}
}

// Leave removes the connection from the room. Unknown rooms are ignored.
func (r *Registry) Leave(conn contract.Connection, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leave(conn.ID(), roomID)
}

func (r *Registry) leave(id string, roomID domain.RoomID) {
	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, id)
		// If no one is left in the room, remove the room entry entirely
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
	if rooms, ok := r.joined[id]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.joined, id)
			delete(r.connections, id)
		}
	}
}

// Members returns the connections currently in the room, nil when there are none.
func (r *Registry) Members(roomID domain.RoomID) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	return lo.Map(lo.Keys(members), func(id string, _ int) contract.Connection {
		return r.connections[id]
	})
}

// Resolve returns the union of the rooms' members, each connection once.
// The whole union is computed under a single read lock so that a
// connection dropped before the call can never be part of the result.
func (r *Registry) Resolve(roomIDs ...domain.RoomID) []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(Set)
	var resolved []contract.Connection
	for _, roomID := range roomIDs {
		for id := range r.roomMembers[roomID] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			resolved = append(resolved, r.connections[id])
		}
	}
	return resolved
}

// DropAll removes the connection from every room it belongs to and
// returns those rooms. Rooms left empty are deleted.
func (r *Registry) DropAll(conn contract.Connection) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	rooms := lo.Keys(r.joined[id])
	for _, roomID := range rooms {
		r.leave(id, roomID)
	}
	delete(r.joined, id)
	delete(r.connections, id)
	return rooms
}

// Rooms returns the rooms the connection currently belongs to.
func (r *Registry) Rooms(conn contract.Connection) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.joined[conn.ID()])
}

type RoomSnapshot struct {
	Room    string   `json:"room"`
	Kind    string   `json:"kind"`
	Key     string   `json:"key"`
	Members []string `json:"members"`
}

// Snapshot lists every room with its member connection ids, sorted by room.
func (r *Registry) Snapshot() []RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make([]RoomSnapshot, 0, len(r.roomMembers))
	for roomID, members := range r.roomMembers {
		ids := lo.Keys(members)
		sort.Strings(ids)
		snapshots = append(snapshots, RoomSnapshot{
			Room:    roomID.String(),
			Kind:    roomID.Kind.String(),
			Key:     roomID.Key,
			Members: ids,
		})
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Room < snapshots[j].Room })
	return snapshots
}

// Stats returns the number of indexed connections and live rooms.
func (r *Registry) Stats() (connections, rooms int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections), len(r.roomMembers)
}
