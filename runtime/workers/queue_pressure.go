package workers

import (
	"context"
	"log/slog"
	"rent-hub/domain/event"
	"rent-hub/runtime"
	"time"
)

// QueueSource exposes the outbound queue of every live connection.
type QueueSource interface {
	Queues() []runtime.QueueUsage
}

// QueuePressureWorker samples the connection queues and the telemetry channel
// every metricInterval. A queue filled to highWaterPercent counts as congested.
type QueuePressureWorker struct {
	log              *slog.Logger
	source           QueueSource
	telemetryChan    chan event.Event
	metricInterval   time.Duration
	highWaterPercent int
}

func NewQueuePressureWorker(log *slog.Logger,
	source QueueSource,
	telemetryChan chan event.Event,
	metricInterval time.Duration,
	highWaterPercent int) *QueuePressureWorker {
	return &QueuePressureWorker{
		log:              log,
		source:           source,
		telemetryChan:    telemetryChan,
		metricInterval:   metricInterval,
		highWaterPercent: highWaterPercent,
	}
}

func (w *QueuePressureWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.publish(w.outbound())
			w.publish(w.telemetry())
		}
	}
}

// outbound folds every connection queue into one sample, the fullest queue
// first and the lowest connection id on ties.
func (w *QueuePressureWorker) outbound() event.QueuePressure {
	pressure := event.QueuePressure{Queue: event.OutboundQueue}
	for _, q := range w.source.Queues() {
		pressure.Queues++
		pressure.Queued += q.Length
		if w.congested(q.Length, q.Capacity) {
			pressure.Congested++
		}
		if pressure.Busiest == "" || q.Length > pressure.Length ||
			(q.Length == pressure.Length && q.ConnectionID < pressure.Busiest) {
			pressure.Busiest, pressure.Length, pressure.Capacity = q.ConnectionID, q.Length, q.Capacity
		}
	}
	return pressure
}

func (w *QueuePressureWorker) telemetry() event.QueuePressure {
	length, capacity := len(w.telemetryChan), cap(w.telemetryChan)
	pressure := event.QueuePressure{
		Queue:    event.TelemetryQueue,
		Queues:   1,
		Queued:   length,
		Length:   length,
		Capacity: capacity,
	}
	if w.congested(length, capacity) {
		pressure.Congested = 1
	}
	return pressure
}

func (w *QueuePressureWorker) congested(length, capacity int) bool {
	return capacity > 0 && length*100 >= capacity*w.highWaterPercent
}

func (w *QueuePressureWorker) publish(pressure event.QueuePressure) {
	select {
	case w.telemetryChan <- event.Event{Type: event.QueuePressureType, CreatedAt: time.Now().UTC(), Payload: pressure}:
	default:
		w.log.Debug("Telemetry event lost", "type", event.QueuePressureType)
	}
}
