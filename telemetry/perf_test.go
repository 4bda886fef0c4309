package telemetry

import (
	"testing"
	"time"

	"github.com/pthm-cable/beads/fluid"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartFrame()
		pc.StartPhase(fluid.PhaseHash)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(fluid.PhaseDensity)
		time.Sleep(200 * time.Microsecond)
		pc.EndFrame()
	}

	stats := pc.Stats()

	if stats.AvgFrameDuration <= 0 {
		t.Error("expected positive average frame duration")
	}
	if _, ok := stats.PhaseAvg[fluid.PhaseHash]; !ok {
		t.Error("expected hash phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[fluid.PhaseDensity]; !ok {
		t.Error("expected density phase to be tracked")
	}
}

func TestPerfCollector_SubStepsAccumulate(t *testing.T) {
	pc := NewPerfCollector(4)

	pc.StartFrame()
	for i := 0; i < 3; i++ {
		pc.StartPhase(fluid.PhaseForce)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(fluid.PhaseIntegrate)
	}
	pc.EndFrame()

	stats := pc.Stats()
	if stats.PhaseAvg[fluid.PhaseForce] < 300*time.Microsecond {
		t.Errorf("force avg = %v, want the three sub-steps summed", stats.PhaseAvg[fluid.PhaseForce])
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	for i := 0; i < 10; i++ {
		pc.StartFrame()
		pc.StartPhase(fluid.PhaseSort)
		pc.EndFrame()
	}

	stats := pc.Stats()
	if stats.AvgFrameDuration <= 0 {
		t.Error("expected positive average frame duration after window filled")
	}
	if stats.FramesPerSecond <= 0 {
		t.Error("expected positive frames per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartFrame()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndFrame()
	}

	stats := pc.Stats()
	if stats.PhasePct["slow"] <= stats.PhasePct["fast"] {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", stats.PhasePct["slow"], stats.PhasePct["fast"])
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	stats := NewPerfCollector(10).Stats()

	if stats.AvgFrameDuration != 0 {
		t.Error("expected zero avg frame duration for empty collector")
	}
	if stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Error("expected non-nil phase maps")
	}
}

func TestPerfCollector_DrawTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	pc.RecordDraw()
	time.Sleep(16 * time.Millisecond)
	pc.RecordDraw()

	stats := pc.Stats()
	if stats.DrawInterval < 15*time.Millisecond {
		t.Errorf("expected draw interval >= 15ms, got %v", stats.DrawInterval)
	}
	if stats.FPS <= 0 || stats.FPS > 80 {
		t.Errorf("expected FPS in (0, 80] with 16ms frames, got %v", stats.FPS)
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	s := PerfStats{
		AvgFrameDuration: 2 * time.Millisecond,
		PhasePct: map[string]float64{
			fluid.PhaseSort:    40,
			fluid.PhaseDensity: 25,
		},
	}

	row := s.ToCSV(120)
	if row.WindowEnd != 120 || row.AvgFrameUS != 2000 {
		t.Errorf("row = %+v", row)
	}
	if row.SortPct != 40 || row.DensityPct != 25 || row.HashPct != 0 {
		t.Errorf("phase columns = %+v", row)
	}
}
