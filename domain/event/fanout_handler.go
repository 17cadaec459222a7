package event

import (
	"log/slog"
	"rent-hub/errors"
)

// FanoutHandler counts deliveries and evictions done by the router.
// Useful to spot slow consumers being pushed out of their rooms.
type FanoutHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewFanoutHandler(log *slog.Logger, counter *Counter) *FanoutHandler {
	return &FanoutHandler{log: log, counter: counter}
}

func (h *FanoutHandler) Handle(event Event) {
	switch event.Type {
	case FannedOutType:
		payload, ok := event.Payload.(FannedOut)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
			return
		}
		h.counter.Increment(FannedOutType)
		h.log.Debug("telemetry: fanout",
			"event", payload.Event,
			"rooms", len(payload.Rooms),
			"recipients", payload.Recipients)
	case SlowConsumerEvictedType:
		payload, ok := event.Payload.(SlowConsumerEvicted)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
			return
		}
		h.counter.Increment(SlowConsumerEvictedType)
		h.log.Warn("telemetry: slow consumer evicted",
			"connection_id", payload.ConnectionID,
			"event", payload.Event,
			"total", h.counter.Get(SlowConsumerEvictedType))
	}
}
