package workers

import (
	"context"
	"log/slog"
	"os"
	"rent-hub/contract"
	"rent-hub/domain/event"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Ensure the supervised workers implement contract.Worker at compile time.
var (
	_ contract.Worker = (*ProcessStatsWorker)(nil)
	_ contract.Worker = (*TelemetryWorker)(nil)
	_ contract.Worker = (*QueuePressureWorker)(nil)
)

// HubStats is what the hub exposes about its live state.
type HubStats interface {
	Stats() (connections, rooms int)
}

// ProcessStatsWorker samples the process and the hub every metricInterval
// and publishes a ProcessStats telemetry event.
type ProcessStatsWorker struct {
	log            *slog.Logger
	hub            HubStats
	telemetryChan  chan event.Event
	metricInterval time.Duration
}

func NewProcessStatsWorker(log *slog.Logger,
	hub HubStats,
	telemetryChan chan event.Event,
	metricInterval time.Duration) *ProcessStatsWorker {
	return &ProcessStatsWorker{
		log:            log,
		hub:            hub,
		telemetryChan:  telemetryChan,
		metricInterval: metricInterval,
	}
}

func (w *ProcessStatsWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *ProcessStatsWorker) sample(p *process.Process) {
	stats := event.ProcessStats{}
	stats.Connections, stats.Rooms = w.hub.Stats()

	if memInfo, err := p.MemoryInfo(); err != nil {
		w.log.Warn("Failed to collect memory stats", "error", err)
	} else {
		stats.RSS = memInfo.RSS
	}
	if cpuPercent, err := p.CPUPercent(); err != nil {
		w.log.Warn("Failed to collect cpu stats", "error", err)
	} else {
		stats.CPU = cpuPercent
	}

	select {
	case w.telemetryChan <- event.Event{Type: event.ProcessStatsType, CreatedAt: time.Now().UTC(), Payload: stats}:
	default:
		w.log.Debug("Telemetry event lost", "type", event.ProcessStatsType)
	}
}
