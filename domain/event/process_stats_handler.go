package event

import (
	"log/slog"
	"rent-hub/errors"
)

// ProcessStatsHandler logs the periodic hub and process sample.
// A connection count crossing maxConnections is reported at warn level.
type ProcessStatsHandler struct {
	log            *slog.Logger
	maxConnections int
}

func NewProcessStatsHandler(log *slog.Logger, maxConnections int) *ProcessStatsHandler {
	return &ProcessStatsHandler{log: log, maxConnections: maxConnections}
}

func (h *ProcessStatsHandler) Handle(event Event) {
	if event.Type != ProcessStatsType {
		return
	}
	payload, ok := event.Payload.(ProcessStats)
	if !ok {
		h.log.Error(errors.ErrInvalidPayload.Error(), "type", event.Type)
		return
	}
	h.log.Info("telemetry: process",
		"connections", payload.Connections,
		"rooms", payload.Rooms,
		"rss_bytes", payload.RSS,
		"cpu_percent", payload.CPU)
	if h.maxConnections > 0 && payload.Connections > h.maxConnections {
		h.log.Warn("connection count above threshold",
			"connections", payload.Connections,
			"threshold", h.maxConnections)
	}
}
