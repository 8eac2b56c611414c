package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel/metric"
)

type perfGauges struct {
	cpu        metric.Float64Gauge
	heapMb     metric.Int64Gauge
	goroutines metric.Int64Gauge
}

func newPerfGauges() perfGauges {
	cpuGauge, _ := meter.Float64Gauge("process.cpu_percent")
	heapGauge, _ := meter.Int64Gauge("process.heap_alloc_mb")
	goroutineGauge, _ := meter.Int64Gauge("process.goroutines")
	return perfGauges{cpu: cpuGauge, heapMb: heapGauge, goroutines: goroutineGauge}
}

func (g perfGauges) sample(ctx context.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	g.heapMb.Record(ctx, int64(mem.HeapAlloc>>20))
	g.goroutines.Record(ctx, int64(runtime.NumGoroutine()))

	// a one second window, the ticker below is much longer
	usage, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		slog.Debug("read cpu usage", "err", err)
		return
	}
	if len(usage) > 0 {
		g.cpu.Record(ctx, usage[0])
	}
}

// InstrumentPerfStats samples process gauges every interval (30s when zero)
// until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval ...time.Duration) {
	every := time.Second * 30
	if len(interval) > 0 && interval[0] > 0 {
		every = interval[0]
	}
	gauges := newPerfGauges()

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				gauges.sample(ctx)
			}
		}
	}()
}
