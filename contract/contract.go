//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"rent-hub/domain"
	"rent-hub/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is one live bidirectional channel as seen by the hub.
// Deliver must not block: a full outbound queue is reported as an error.
type Connection interface {
	ID() string
	Deliver(ctx context.Context, e event.Envelope) error
}

type IRegistry interface {
	Join(conn Connection, roomID domain.RoomID)
	Leave(conn Connection, roomID domain.RoomID)
	Members(roomID domain.RoomID) []Connection
	Resolve(roomIDs ...domain.RoomID) []Connection
	DropAll(conn Connection) []domain.RoomID
	Rooms(conn Connection) []domain.RoomID
}

type IRouter interface {
	Publish(ctx context.Context, name event.Name, payload any, targets ...domain.RoomID) int
}

// IdentityVerifier checks the proof a client sends with setup.
// Issuing that proof belongs to the external auth service.
type IdentityVerifier interface {
	Verify(identity, token string) error
}
