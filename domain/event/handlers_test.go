package event

import (
	"log/slog"
	"rent-hub/domain"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestHandlers_Count_Their_Own_Types(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	counter := NewCounter()
	handlers := []Handler{
		NewFanoutHandler(log, counter),
		NewConfirmationHandler(log, counter),
		NewWorkerRestartedAfterPanicHandler(log, counter),
		NewProcessStatsHandler(log, 1),
		NewQueuePressureHandler(log, counter),
	}
	events := []Event{
		{Type: FannedOutType, CreatedAt: time.Now(), Payload: FannedOut{Event: MessageReceived, Recipients: 2}},
		{Type: FannedOutType, CreatedAt: time.Now(), Payload: FannedOut{Event: Rented, Recipients: 1}},
		{Type: SlowConsumerEvictedType, CreatedAt: time.Now(), Payload: SlowConsumerEvicted{ConnectionID: "x"}},
		{Type: ConfirmationAdvancedType, CreatedAt: time.Now(), Payload: ConfirmationAdvanced{
			ChatID: "c1", From: domain.ConfirmationNone, To: domain.ConfirmationPending}},
		{Type: RestartedAfterPanicType, CreatedAt: time.Now(), Payload: WorkerRestartedAfterPanic{WorkerName: "w"}},
		{Type: ProcessStatsType, CreatedAt: time.Now(), Payload: ProcessStats{Connections: 3}},
		{Type: QueuePressureType, CreatedAt: time.Now(), Payload: QueuePressure{
			Queue: OutboundQueue, Queues: 4, Queued: 70, Congested: 2, Busiest: "x", Length: 64, Capacity: 64}},
		{Type: QueuePressureType, CreatedAt: time.Now(), Payload: QueuePressure{Queue: TelemetryQueue, Queues: 1, Capacity: 16}},
		// Wrong payload is logged and ignored
		{Type: FannedOutType, CreatedAt: time.Now(), Payload: "oops"},
	}

	// When every event goes through the whole chain
	for _, e := range events {
		for _, h := range handlers {
			h.Handle(e)
		}
	}

	// Then each handler counted only what belongs to it
	req.Equal(2, counter.Get(FannedOutType))
	req.Equal(1, counter.Get(SlowConsumerEvictedType))
	req.Equal(1, counter.Get(ConfirmationAdvancedType))
	req.Equal(1, counter.Get(RestartedAfterPanicType))
	req.Equal(0, counter.Get(ProcessStatsType))
	req.Equal(2, counter.Get(QueuePressureType))
}
