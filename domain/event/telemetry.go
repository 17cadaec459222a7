package event

import (
	"rent-hub/domain"
	"time"
)

// Type identifies a telemetry event.
type Type string

const (
	FannedOutType            Type = "FANNED_OUT"
	SlowConsumerEvictedType  Type = "SLOW_CONSUMER_EVICTED"
	ConfirmationAdvancedType Type = "CONFIRMATION_ADVANCED"
	RestartedAfterPanicType  Type = "WORKER_RESTARTED_AFTER_PANIC"
	ProcessStatsType         Type = "PROCESS_STATS"
	QueuePressureType        Type = "QUEUE_PRESSURE"
)

// Event is an internal observability record. It never reaches clients.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

type FannedOut struct {
	Event      Name
	Rooms      []domain.RoomID
	Recipients int
}

type SlowConsumerEvicted struct {
	ConnectionID string
	Event        Name
}

type ConfirmationAdvanced struct {
	ChatID string
	From   domain.ConfirmationState
	To     domain.ConfirmationState
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type ProcessStats struct {
	Connections int
	Rooms       int
	RSS         uint64
	CPU         float64
}

// Queue families sampled for pressure.
const (
	OutboundQueue  = "outbound"
	TelemetryQueue = "telemetry"
)

// QueuePressure summarizes one family of queues. Busiest, Length and Capacity
// describe the fullest queue; Congested counts queues at the high water mark.
type QueuePressure struct {
	Queue     string
	Queues    int
	Queued    int
	Congested int
	Busiest   string
	Length    int
	Capacity  int
}
