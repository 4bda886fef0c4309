// Package game drives the simulation frame loop: frame timing, pointer
// smoothing, solver sub-steps and telemetry.
package game

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/beads/camera"
	"github.com/pthm-cable/beads/compute"
	"github.com/pthm-cable/beads/config"
	"github.com/pthm-cable/beads/fluid"
	"github.com/pthm-cable/beads/particles"
	"github.com/pthm-cable/beads/spatial"
	"github.com/pthm-cable/beads/stream"
	"github.com/pthm-cable/beads/telemetry"
)

// State is the frame loop state.
type State int

const (
	StateIdle    State = iota // before the first frame
	StateRunning              // steady per-frame loop
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Options configures a Game.
type Options struct {
	Config    *config.Config // nil uses config.Cfg()
	Seed      int64
	LogStats  bool
	OutputDir string
	Workers   int         // solver worker count; 0 uses GOMAXPROCS, 1 runs serially
	Stream    *stream.Hub // optional; receives the current buffers
}

// FrameResult describes the work scheduled by one Frame call.
type FrameResult struct {
	Delta       time.Duration // clamped wall-clock delta
	DeltaFrames float64       // Delta relative to the target frame duration
	DT          float32       // solver time step, held across sub-steps
	SubSteps    int
	Clamped     bool
	Pointer     camera.Sample
}

// Game holds the simulation and its frame loop state.
type Game struct {
	cfg *config.Config
	rng *rand.Rand

	store         *particles.Store
	dispatcher    *compute.Dispatcher
	params        *fluid.Params
	pointerParams *fluid.PointerParams
	solver        *fluid.Solver
	step          func(dt float32, ptr fluid.Pointer)

	camera      *camera.Camera
	pointer     *camera.Pointer
	domainScale mgl32.Vec3

	state     State
	paused    bool
	last      time.Duration
	frame     int64
	simTime   float64
	lastFrame FrameResult

	// Telemetry
	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	output    *telemetry.OutputManager
	logStats  bool

	hub *stream.Hub
}

// NewGameWithOptions builds the particle store, solver and telemetry from config.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	params, err := fluid.NewParams(cfg.Simulation)
	if err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}
	boundary, err := fluid.ParseBoundary(cfg.Domain.Boundary)
	if err != nil {
		return nil, fmt.Errorf("game: %w", err)
	}

	g := &Game{
		cfg:           cfg,
		rng:           rand.New(rand.NewSource(opts.Seed)),
		store:         particles.NewStore(cfg.Derived.GridSide),
		params:        params,
		pointerParams: fluid.NewPointerParams(cfg.Pointer),
		perf:          telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		logStats:      opts.LogStats,
		hub:           opts.Stream,
	}

	if opts.Workers == 1 {
		g.dispatcher = compute.NewSerial()
	} else {
		g.dispatcher = compute.NewDispatcher(opts.Workers)
	}

	w, h := float32(cfg.Screen.Width), float32(cfg.Screen.Height)
	g.camera = camera.New(cfg.Camera, w, h)
	g.pointer = camera.NewPointer(float32(cfg.Pointer.Smoothing), cfg.Pointer.Touch)

	solverOpts := fluid.Options{
		Store:      g.store,
		Dispatcher: g.dispatcher,
		Params:     params,
		Pointer:    g.pointerParams,
		Boundary:   boundary,
		Stiffness:  float32(cfg.Domain.Stiffness),
		Timer:      g.perf,
	}
	if !cfg.Derived.BruteForce {
		grid, err := spatial.NewCellGrid(cfg.Grid.AxisCells, cfg.Derived.TableSide, float32(cfg.Simulation.H))
		if err != nil {
			g.dispatcher.Stop()
			return nil, fmt.Errorf("game: %w", err)
		}
		solverOpts.Grid = &grid
	}
	g.solver, err = fluid.NewSolver(solverOpts)
	if err != nil {
		g.dispatcher.Stop()
		return nil, fmt.Errorf("game: %w", err)
	}
	g.step = g.solver.Step

	g.domainScale = g.solver.DomainScale()
	if !g.Resize(w, h) {
		slog.Warn("zero-area screen in config, keeping unit domain scale", "width", w, "height", h)
	}

	g.store.Seed(g.rng, float32(cfg.Particles.SeedRadius))

	g.output, err = telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		g.dispatcher.Stop()
		return nil, fmt.Errorf("game: %w", err)
	}
	if err := g.output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	slog.Info("simulation ready",
		"particles", g.store.Len(),
		"grid_side", g.store.Side(),
		"neighbor_mode", cfg.Grid.Mode,
		"axis_cells", cfg.Grid.AxisCells,
		"table_side", cfg.Derived.TableSide,
		"workers", g.dispatcher.Workers(),
		"seed", opts.Seed,
	)

	return g, nil
}

// Resize updates the camera and the domain scale for a new viewport.
// A zero-area viewport is ignored and the last valid scale is kept.
func (g *Game) Resize(w, h float32) bool {
	scale, ok := camera.DomainScale(w, h)
	if !ok {
		return false
	}
	g.camera.Resize(w, h)
	g.domainScale = scale
	g.solver.SetDomainScale(scale)
	return true
}

// PointerDown, PointerMove, PointerUp and PointerLeave feed viewport pointer
// events to the projector.
func (g *Game) PointerDown(x, y float32) { g.pointer.Down(x, y) }
func (g *Game) PointerMove(x, y float32) { g.pointer.Move(x, y) }
func (g *Game) PointerUp()               { g.pointer.Up() }
func (g *Game) PointerLeave()            { g.pointer.Leave() }

// Pause stops scheduling solver work. State stays valid to resume from.
func (g *Game) Pause() { g.paused = true }

// Resume restarts the frame loop after Pause.
func (g *Game) Resume() { g.paused = false }

// TogglePause flips the paused state and returns it.
func (g *Game) TogglePause() bool {
	g.paused = !g.paused
	return g.paused
}

// Paused reports whether the loop is paused.
func (g *Game) Paused() bool { return g.paused }

// State returns the frame loop state.
func (g *Game) State() State { return g.state }

// Tick returns the number of simulated frames.
func (g *Game) Tick() int64 { return g.frame }

// SimTime returns the accumulated solver time.
func (g *Game) SimTime() float64 { return g.simTime }

// LastFrame returns the result of the most recent simulated frame.
func (g *Game) LastFrame() FrameResult { return g.lastFrame }

// Current returns the buffers of the last completed frame, for renderers.
func (g *Game) Current() particles.View { return g.store.Current() }

// Store returns the particle store.
func (g *Game) Store() *particles.Store { return g.store }

// Params returns the live simulation parameters.
func (g *Game) Params() *fluid.Params { return g.params }

// PointerParams returns the live pointer parameters.
func (g *Game) PointerParams() *fluid.PointerParams { return g.pointerParams }

// Camera returns the camera used for drawing and pointer picking.
func (g *Game) Camera() *camera.Camera { return g.camera }

// DomainScale returns the current domain transform.
func (g *Game) DomainScale() mgl32.Vec3 { return g.domainScale }

// Perf returns the phase timing collector.
func (g *Game) Perf() *telemetry.PerfCollector { return g.perf }

// Config returns the configuration the game was built with.
func (g *Game) Config() *config.Config { return g.cfg }

// Unload stops the worker pool and closes output files.
func (g *Game) Unload() {
	g.dispatcher.Stop()
	if err := g.output.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
