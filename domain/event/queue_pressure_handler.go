package event

import (
	"log/slog"
	"rent-hub/errors"
)

// QueuePressureHandler reports congested queues. A congested outbound queue
// belongs to a consumer about to be evicted as slow.
type QueuePressureHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewQueuePressureHandler(log *slog.Logger, counter *Counter) *QueuePressureHandler {
	return &QueuePressureHandler{log: log, counter: counter}
}

func (h *QueuePressureHandler) Handle(event Event) {
	if event.Type != QueuePressureType {
		return
	}
	payload, ok := event.Payload.(QueuePressure)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.log.Debug("telemetry: queue pressure",
		"queue", payload.Queue,
		"queues", payload.Queues,
		"queued", payload.Queued)
	if payload.Congested == 0 {
		return
	}
	h.counter.Add(QueuePressureType, payload.Congested)
	h.log.Warn("telemetry: queues near capacity",
		"queue", payload.Queue,
		"congested", payload.Congested,
		"busiest", payload.Busiest,
		"length", payload.Length,
		"capacity", payload.Capacity)
}
