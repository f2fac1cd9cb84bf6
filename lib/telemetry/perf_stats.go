package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("nstools.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var heapGauge, _ = meter.Int64Gauge("heap_inuse_mb")
var liveObjectsGauge, _ = meter.Int64Gauge("live_objects")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// PerfStats is a point-in-time reading of process resource usage.
type PerfStats struct {
	CPUPercent  float64
	HeapInuse   uint64
	LiveObjects int64
	Goroutines  int
}

// ReadPerfStats samples cpu usage over the given window, the window may be
// zero to compare against the previous call.
func ReadPerfStats(window time.Duration) PerfStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := PerfStats{
		HeapInuse:   memStats.HeapInuse,
		LiveObjects: int64(memStats.Mallocs) - int64(memStats.Frees),
		Goroutines:  runtime.NumGoroutine(),
	}
	cpuUsage, err := cpu.Percent(window, false)
	if err != nil {
		slog.Debug("failed to read cpu usage", "err", err)
	} else if len(cpuUsage) > 0 {
		stats.CPUPercent = cpuUsage[0]
	}
	return stats
}

// InstrumentPerfStats records perf stats every 30 seconds until ctx is done.
func InstrumentPerfStats(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats := ReadPerfStats(time.Second)
				cpuGauge.Record(ctx, stats.CPUPercent)
				heapGauge.Record(ctx, int64(stats.HeapInuse/1_000_000))
				liveObjectsGauge.Record(ctx, stats.LiveObjects)
				goroutineGauge.Record(ctx, int64(stats.Goroutines))
			case <-ctx.Done():
				return
			}
		}
	}()
}
