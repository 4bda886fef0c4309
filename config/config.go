// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	Particles  ParticlesConfig  `yaml:"particles"`
	Simulation SimulationConfig `yaml:"simulation"`
	Pointer    PointerConfig    `yaml:"pointer"`
	Grid       GridConfig       `yaml:"grid"`
	Domain     DomainConfig     `yaml:"domain"`
	Frame      FrameConfig      `yaml:"frame"`
	Camera     CameraConfig     `yaml:"camera"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Stream     StreamConfig     `yaml:"stream"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// ParticlesConfig holds the requested particle count.
// The realized count is rounded up to a square power-of-two grid.
type ParticlesConfig struct {
	Count      int     `yaml:"count"`
	SeedRadius float64 `yaml:"seed_radius"` // Radius of the sphere particles are seeded on
}

// SimulationConfig holds the initial SPH parameters.
// They stay adjustable at runtime through fluid.Params.
type SimulationConfig struct {
	H           float64 `yaml:"h"`            // Kernel radius, also the hash cell size
	Mass        float64 `yaml:"mass"`         // Particle mass
	RestDensity float64 `yaml:"rest_density"` // Rest density
	GasConst    float64 `yaml:"gas_const"`    // Pressure stiffness
	Viscosity   float64 `yaml:"viscosity"`    // Viscosity constant
	Steps       int     `yaml:"steps"`        // Extra sub-steps per frame
}

// PointerConfig holds pointer interaction parameters.
type PointerConfig struct {
	Radius       float64 `yaml:"radius"`
	Strength     float64 `yaml:"strength"`
	VelocityGain float64 `yaml:"velocity_gain"` // Weight of the pointer velocity delta in the force
	Smoothing    float64 `yaml:"smoothing"`     // Lerp divisor per frame (5 = move 1/5 of the way)
	Touch        bool    `yaml:"touch"`         // Only project while the pointer is pressed
}

// GridConfig holds neighbor search parameters.
type GridConfig struct {
	Mode      string `yaml:"mode"`       // "grid" (hash + sort + offsets) or "brute" (all pairs)
	AxisCells int    `yaml:"axis_cells"` // Cells per axis; must be a perfect square
}

// DomainConfig holds boundary containment parameters.
type DomainConfig struct {
	Boundary  string  `yaml:"boundary"` // "sphere", "box" or "none"
	Stiffness float64 `yaml:"stiffness"`
}

// FrameConfig holds frame timing parameters.
type FrameConfig struct {
	TargetMS  float64 `yaml:"target_ms"`  // Target frame duration (16 = 60fps)
	MaxMS     float64 `yaml:"max_ms"`     // Upper clamp for the measured frame delta
	TimeScale float64 `yaml:"time_scale"` // Converts frame milliseconds into solver time units
}

// CameraConfig holds the projection used for pointer picking and drawing.
type CameraConfig struct {
	Distance float64 `yaml:"distance"`
	Height   float64 `yaml:"height"` // Half-height of the domain that must stay visible
	Near     float64 `yaml:"near"`
	Far      float64 `yaml:"far"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"` // Frames per stats record
	PerfCollectorWindow int `yaml:"perf_collector_window"`
}

// StreamConfig holds websocket streaming parameters.
type StreamConfig struct {
	Addr        string `yaml:"addr"` // Listen address; empty disables streaming
	EveryFrames int    `yaml:"every_frames"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	GridSide      int // Side of the square particle layout (power of two)
	ParticleCount int // GridSide * GridSide
	TableSide     int // Side of the square offset table; TableSide^2 == AxisCells^3
	BruteForce    bool
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns the embedded defaults with derived values computed.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate rejects configurations the solver cannot run with.
func (c *Config) Validate() error {
	if c.Simulation.H < 0.01 {
		return fmt.Errorf("simulation.h must be >= 0.01, got %v", c.Simulation.H)
	}
	if c.Simulation.Steps < 0 {
		return fmt.Errorf("simulation.steps must be >= 0, got %d", c.Simulation.Steps)
	}
	switch c.Grid.Mode {
	case "grid", "brute":
	default:
		return fmt.Errorf("grid.mode must be grid or brute, got %q", c.Grid.Mode)
	}
	if _, ok := TableSideFor(c.Grid.AxisCells); !ok {
		return fmt.Errorf("grid.axis_cells must be a positive perfect square, got %d", c.Grid.AxisCells)
	}
	switch c.Domain.Boundary {
	case "sphere", "box", "none":
	default:
		return fmt.Errorf("domain.boundary must be sphere, box or none, got %q", c.Domain.Boundary)
	}
	if c.Frame.TargetMS <= 0 {
		return fmt.Errorf("frame.target_ms must be positive, got %v", c.Frame.TargetMS)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.GridSide, c.Derived.ParticleCount = RoundParticleCount(c.Particles.Count)
	c.Derived.TableSide, _ = TableSideFor(c.Grid.AxisCells)
	c.Derived.BruteForce = c.Grid.Mode == "brute"

	if c.Frame.MaxMS <= 0 {
		c.Frame.MaxMS = c.Frame.TargetMS
	}
	if c.Frame.TimeScale <= 0 {
		c.Frame.TimeScale = 1
	}
	if c.Pointer.Smoothing < 1 {
		c.Pointer.Smoothing = 1
	}
	if c.Stream.EveryFrames < 1 {
		c.Stream.EveryFrames = 1
	}
}

// RoundParticleCount returns the smallest power-of-two side whose square
// holds at least requested particles, and that square.
func RoundParticleCount(requested int) (side, n int) {
	if requested < 1 {
		requested = 1
	}
	side = 1
	for side*side < requested {
		side <<= 1
	}
	return side, side * side
}

// TableSideFor returns the offset table side for a per-axis cell count.
// The axis count must be a perfect square so that axis^3 is a perfect square.
func TableSideFor(axis int) (int, bool) {
	if axis < 1 {
		return 0, false
	}
	root := int(math.Round(math.Sqrt(float64(axis))))
	if root*root != axis {
		return 0, false
	}
	return axis * root, true
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
