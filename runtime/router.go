package runtime

import (
	"context"
	"errors"
	"log/slog"
	"rent-hub/contract"
	"rent-hub/domain"
	"rent-hub/domain/event"
	apperr "rent-hub/errors"
	"time"
)

var _ contract.IRouter = (*Router)(nil)

// Router fans one outbound event out to every connection of the target rooms.
//
// The payload is marshaled once and the recipient set is resolved atomically
// by the registry, so a connection sitting in several targeted rooms gets a
// single copy. Deliveries are sequential and never block: a connection whose
// queue is full is handed to onOverflow and skipped.
type Router struct {
	log        *slog.Logger
	registry   contract.IRegistry
	telemetry  chan event.Event
	onOverflow func(conn contract.Connection)
}

func NewRouter(log *slog.Logger,
	registry contract.IRegistry,
	telemetry chan event.Event,
	onOverflow func(conn contract.Connection)) *Router {
	return &Router{log: log, registry: registry, telemetry: telemetry, onOverflow: onOverflow}
}

// Publish returns how many connections accepted the event.
func (r *Router) Publish(ctx context.Context, name event.Name, payload any, targets ...domain.RoomID) int {
	envelope, err := event.NewEnvelope(name, payload)
	if err != nil {
		r.log.Error("Unable to encode outbound event", "event", name, "error", err)
		return 0
	}

	delivered := 0
	for _, conn := range r.registry.Resolve(targets...) {
		err := conn.Deliver(ctx, envelope)
		switch {
		case err == nil:
			delivered++
		case errors.Is(err, apperr.ErrOutboundFull):
			r.log.Warn("Slow consumer, evicting", "connection_id", conn.ID(), "event", name)
			r.emit(event.SlowConsumerEvictedType, event.SlowConsumerEvicted{ConnectionID: conn.ID(), Event: name})
			if r.onOverflow != nil {
				r.onOverflow(conn)
			}
		case errors.Is(err, apperr.ErrConnectionClosed):
			r.log.Debug("Skipping closed connection", "connection_id", conn.ID(), "event", name)
		default:
			r.log.Warn("Delivery failed", "connection_id", conn.ID(), "event", name, "error", err)
		}
	}

	r.emit(event.FannedOutType, event.FannedOut{Event: name, Rooms: targets, Recipients: delivered})
	return delivered
}

// emit never blocks the caller, telemetry is lossy.
func (r *Router) emit(t event.Type, payload any) {
	if r.telemetry == nil {
		return
	}
	select {
	case r.telemetry <- event.Event{Type: t, CreatedAt: time.Now().UTC(), Payload: payload}:
	default:
		r.log.Debug("Telemetry event lost", "type", t)
	}
}
