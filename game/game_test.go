package game

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/beads/config"
	"github.com/pthm-cable/beads/fluid"
)

type stepCall struct {
	dt  float32
	ptr fluid.Pointer
}

func testConfig(t *testing.T, overlay string) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	base := "particles:\n  count: 64\ntelemetry:\n  stats_window: 10\n  perf_collector_window: 10\n"
	if err := os.WriteFile(path, []byte(base+overlay), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newTestGame(t *testing.T, overlay string) *Game {
	t.Helper()
	SetLogWriter(io.Discard)
	g, err := NewGameWithOptions(Options{Config: testConfig(t, overlay), Seed: 1, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(g.Unload)
	return g
}

// recordSteps replaces the solver with a recorder.
func recordSteps(g *Game) *[]stepCall {
	var calls []stepCall
	g.step = func(dt float32, ptr fluid.Pointer) {
		calls = append(calls, stepCall{dt, ptr})
	}
	return &calls
}

func TestFrame_IdleToRunning(t *testing.T) {
	g := newTestGame(t, "")
	calls := recordSteps(g)

	if g.State() != StateIdle {
		t.Fatalf("initial state = %v", g.State())
	}

	res := g.Frame(5 * time.Second)
	if g.State() != StateRunning {
		t.Errorf("state after first frame = %v", g.State())
	}
	if res.Delta != 0 || res.DT != 0 || res.Clamped {
		t.Errorf("first frame = %+v, want zero delta", res)
	}
	if len(*calls) != 1 || g.Tick() != 1 {
		t.Errorf("calls = %d, tick = %d", len(*calls), g.Tick())
	}
}

func TestFrame_DeltaClampAndScale(t *testing.T) {
	g := newTestGame(t, "")
	recordSteps(g)
	g.Frame(0)

	tests := []struct {
		name        string
		advance     time.Duration
		wantDelta   time.Duration
		wantFrames  float64
		wantClamped bool
	}{
		{"long stall is clamped", time.Second, 16 * time.Millisecond, 1, true},
		{"half frame", 8 * time.Millisecond, 8 * time.Millisecond, 0.5, false},
		{"exact target", 16 * time.Millisecond, 16 * time.Millisecond, 1, false},
		{"clock going backwards", -time.Millisecond, 0, 0, false},
	}

	now := time.Duration(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now += tt.advance
			res := g.Frame(now)
			if res.Delta != tt.wantDelta || res.Clamped != tt.wantClamped {
				t.Errorf("delta = %v clamped = %v, want %v %v", res.Delta, res.Clamped, tt.wantDelta, tt.wantClamped)
			}
			if math.Abs(res.DeltaFrames-tt.wantFrames) > 1e-9 {
				t.Errorf("deltaFrames = %v, want %v", res.DeltaFrames, tt.wantFrames)
			}
			// dt = target * deltaFrames, converted from milliseconds.
			wantDT := 16 * tt.wantFrames * 0.001
			if math.Abs(float64(res.DT)-wantDT) > 1e-6 {
				t.Errorf("dt = %v, want %v", res.DT, wantDT)
			}
		})
	}
}

func TestFrame_PointerImpulseOnlyOnFirstSubStep(t *testing.T) {
	g := newTestGame(t, "simulation:\n  steps: 3\n")
	calls := recordSteps(g)

	g.PointerMove(640, 360)
	first := g.Frame(0)
	if !first.Pointer.Active {
		t.Fatal("pointer at screen center should hit the sphere")
	}
	for _, c := range *calls {
		if c.ptr.Velocity != (mgl32.Vec3{}) {
			t.Errorf("first frame pointer delta = %v, want zero", c.ptr.Velocity)
		}
	}

	*calls = nil
	g.PointerMove(700, 360)
	res := g.Frame(16 * time.Millisecond)

	if res.SubSteps != 4 || len(*calls) != 4 {
		t.Fatalf("sub-steps = %d, calls = %d, want 4", res.SubSteps, len(*calls))
	}
	if (*calls)[0].ptr.Velocity == (mgl32.Vec3{}) {
		t.Error("first sub-step should carry the pointer delta")
	}
	for i, c := range (*calls)[1:] {
		if c.ptr.Velocity != (mgl32.Vec3{}) {
			t.Errorf("sub-step %d pointer delta = %v, want zero", i+2, c.ptr.Velocity)
		}
		if c.dt != (*calls)[0].dt {
			t.Errorf("sub-step %d dt = %v, want %v", i+2, c.dt, (*calls)[0].dt)
		}
		if !c.ptr.Active || c.ptr.Position != (*calls)[0].ptr.Position {
			t.Errorf("sub-step %d pointer = %+v", i+2, c.ptr)
		}
	}
}

func TestFrame_PointerOffSphereIsInactive(t *testing.T) {
	g := newTestGame(t, "pointer:\n  smoothing: 1\n")
	calls := recordSteps(g)

	g.PointerMove(0, 0)
	res := g.Frame(0)
	if res.Pointer.Active || (*calls)[0].ptr.Active {
		t.Error("pointer in the screen corner should be inactive")
	}
}

func TestResize_ZeroAreaKeepsScale(t *testing.T) {
	g := newTestGame(t, "")

	if !g.Resize(200, 100) {
		t.Fatal("resize failed")
	}
	want := mgl32.Vec3{0.5, 1, 1}
	if g.DomainScale() != want || g.solver.DomainScale() != want {
		t.Fatalf("scale = %v, want %v", g.DomainScale(), want)
	}

	for _, size := range [][2]float32{{0, 100}, {100, 0}, {0, 0}} {
		if g.Resize(size[0], size[1]) {
			t.Errorf("Resize(%v) reported success", size)
		}
		if g.DomainScale() != want || g.solver.DomainScale() != want {
			t.Errorf("Resize(%v) changed scale to %v", size, g.DomainScale())
		}
	}
}

func TestPause_SchedulesNoWork(t *testing.T) {
	g := newTestGame(t, "")
	calls := recordSteps(g)
	g.Frame(0)

	g.Pause()
	g.Frame(16 * time.Millisecond)
	g.Frame(10 * time.Second)
	if len(*calls) != 1 || g.Tick() != 1 {
		t.Fatalf("paused frames ran work: calls = %d, tick = %d", len(*calls), g.Tick())
	}

	g.Resume()
	res := g.Frame(10*time.Second + 8*time.Millisecond)
	if len(*calls) != 2 {
		t.Fatalf("resumed frame did not run")
	}
	if res.Delta != 8*time.Millisecond {
		t.Errorf("resumed delta = %v, want time since the last paused frame", res.Delta)
	}
}

func TestHeadless_RunsAndStaysFinite(t *testing.T) {
	dir := t.TempDir()
	SetLogWriter(io.Discard)
	g, err := NewGameWithOptions(Options{Config: testConfig(t, ""), Seed: 3, Workers: 2, OutputDir: dir})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 30; i++ {
		g.UpdateHeadless()
	}
	if g.Tick() != 30 {
		t.Errorf("tick = %d, want 30", g.Tick())
	}

	info := g.Debug()
	if math.IsNaN(info.KineticEnergy) || math.IsInf(info.KineticEnergy, 0) {
		t.Errorf("kinetic energy = %v", info.KineticEnergy)
	}
	// 64 particles -> side 8 -> n = 6 -> 21 passes.
	if info.SortPasses != 21 {
		t.Errorf("sort passes = %d, want 21", info.SortPasses)
	}
	if info.OccupiedCells < 1 || info.MaxBucket < 1 {
		t.Errorf("occupancy = %d cells, max bucket %d", info.OccupiedCells, info.MaxBucket)
	}
	g.Unload()

	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatal(err)
	}
	// Header plus one row per 10-frame window.
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 4 {
		t.Errorf("stats.csv has %d lines, want 4", len(lines))
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config snapshot missing: %v", err)
	}
}

func TestBruteForceMode(t *testing.T) {
	g := newTestGame(t, "grid:\n  mode: brute\n")
	for i := 0; i < 3; i++ {
		g.UpdateHeadless()
	}
	if info := g.Debug(); info.SortPasses != 0 || info.OccupiedCells != 0 {
		t.Errorf("brute-force debug = %+v", info)
	}
}
