package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"convocube/contract"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker periodically logs process self-stats (CPU, RSS,
// goroutines) together with the current presence count.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
	registry contract.IConnectionRegistry
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration,
	registry contract.IConnectionRegistry) *TelemetryWorker {
	return &TelemetryWorker{
		log:      log,
		interval: interval,
		registry: registry,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, err := selfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}
			w.log.Info("Presence telemetry",
				"online", w.registry.Count(),
				"ram_bytes", rss,
				"cpu_percent", cpu,
				"goroutines", runtime.NumGoroutine())
		}
	}
}

// selfStats retrieves memory and CPU metrics for the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
