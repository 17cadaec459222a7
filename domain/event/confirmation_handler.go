package event

import (
	"log/slog"
	"rent-hub/errors"
)

// ConfirmationHandler traces every rental handshake transition.
type ConfirmationHandler struct {
	log     *slog.Logger
	counter *Counter
}

func NewConfirmationHandler(log *slog.Logger, counter *Counter) *ConfirmationHandler {
	return &ConfirmationHandler{log: log, counter: counter}
}

func (h *ConfirmationHandler) Handle(event Event) {
	if event.Type != ConfirmationAdvancedType {
		return
	}
	payload, ok := event.Payload.(ConfirmationAdvanced)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.counter.Increment(ConfirmationAdvancedType)
	h.log.Info("telemetry: confirmation advanced",
		"chat_id", payload.ChatID,
		"from", payload.From.String(),
		"to", payload.To.String())
}
