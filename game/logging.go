package game

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/pthm-cable/beads/telemetry"
)

// logWriter is the destination for log output.
var logWriter io.Writer

// SetLogWriter sets the log output destination.
func SetLogWriter(w io.Writer) {
	logWriter = w
}

// Logf writes a formatted log message.
func Logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if logWriter != nil {
		fmt.Fprintln(logWriter, msg)
	} else {
		fmt.Println(msg)
	}
}

// DebugInfo is the diagnostic snapshot reported by Debug.
type DebugInfo struct {
	Frame         int64
	State         State
	Particles     int
	SortPasses    int // 0 in brute-force mode
	OccupiedCells int
	MaxBucket     int
	KineticEnergy float64
	KernelUpdates int
}

// Debug reports sort, occupancy and energy diagnostics. It has no effect on
// the simulation.
func (g *Game) Debug() DebugInfo {
	info := DebugInfo{
		Frame:         g.frame,
		State:         g.state,
		Particles:     g.store.Len(),
		KineticEnergy: g.store.KineticEnergy(float32(g.params.Mass())),
		KernelUpdates: g.params.Recomputes(),
	}
	if idx := g.solver.Index(); idx != nil {
		info.SortPasses = len(idx.Schedule())
		info.OccupiedCells, info.MaxBucket = idx.Table().Occupancy(idx.Sorted())
	}

	slog.Info("debug",
		"frame", info.Frame,
		"state", info.State.String(),
		"particles", info.Particles,
		"sort_passes", info.SortPasses,
		"occupied_cells", info.OccupiedCells,
		"max_bucket", info.MaxBucket,
		"kinetic_energy", info.KineticEnergy,
		"kernel_updates", info.KernelUpdates,
	)
	g.logPerfStats()

	return info
}

// logPerfStats writes a human-readable phase breakdown.
func (g *Game) logPerfStats() {
	stats := g.perf.Stats()
	Logf("=== Perf @ Frame %d (%d sub-steps) ===", g.frame, g.lastFrame.SubSteps)
	Logf("Total frame time: %s", stats.AvgFrameDuration.Round(time.Microsecond))

	names := make([]string, 0, len(stats.PhaseAvg))
	for name := range stats.PhaseAvg {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return stats.PhaseAvg[names[i]] > stats.PhaseAvg[names[j]]
	})
	for _, name := range names {
		Logf("  %-10s %10s  %5.1f%%", name, stats.PhaseAvg[name].Round(time.Microsecond), stats.PhasePct[name])
	}
	Logf("")
}

// flushTelemetry writes window stats once the stats window is complete.
func (g *Game) flushTelemetry() {
	if !g.collector.ShouldFlush(g.frame) {
		return
	}

	fs := telemetry.ComputeFrameStats(g.store.Current(), g.store.DensityPressure, float32(g.params.Mass()))
	var occupied, maxBucket int
	if idx := g.solver.Index(); idx != nil {
		occupied, maxBucket = idx.Table().Occupancy(idx.Sorted())
	}
	stats := g.collector.Flush(g.frame, g.simTime, fs, occupied, maxBucket)
	perfStats := g.perf.Stats()

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if g.output != nil {
		if err := g.output.WriteStats(stats); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
		if err := g.output.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}
