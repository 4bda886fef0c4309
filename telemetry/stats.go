package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/beads/particles"
)

// FrameStats summarizes the particle state at the end of a frame.
type FrameStats struct {
	Particles     int
	KineticEnergy float64

	SpeedMean float64
	SpeedP50  float64
	SpeedP90  float64
	SpeedMax  float64

	DensityMean float64
	DensityStd  float64
	DensityMin  float64
	DensityMax  float64

	PressureMean float64

	// NonFinite counts particles whose position or velocity is NaN or Inf.
	NonFinite int
}

// ComputeFrameStats reduces the current buffer and the last density pass.
// densityPressure may be nil when no solver step has run yet.
func ComputeFrameStats(v particles.View, densityPressure []mgl32.Vec2, mass float32) FrameStats {
	n := v.Len()
	fs := FrameStats{Particles: n}
	if n == 0 {
		return fs
	}

	speeds := make([]float64, 0, n)
	sq := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		p, vel := v.Position(i), v.Velocity(i)
		if !finite3(p) || !finite3(vel) {
			fs.NonFinite++
			continue
		}
		s := float64(vel.Len())
		speeds = append(speeds, s)
		sq = append(sq, s*s)
	}

	if len(speeds) > 0 {
		fs.KineticEnergy = 0.5 * float64(mass) * floats.Sum(sq)
		fs.SpeedMean = stat.Mean(speeds, nil)
		fs.SpeedMax = floats.Max(speeds)
		sort.Float64s(speeds)
		fs.SpeedP50 = stat.Quantile(0.5, stat.Empirical, speeds, nil)
		fs.SpeedP90 = stat.Quantile(0.9, stat.Empirical, speeds, nil)
	}

	if len(densityPressure) == n {
		dens := make([]float64, n)
		press := make([]float64, n)
		for i, dp := range densityPressure {
			dens[i] = float64(dp[0])
			press[i] = float64(dp[1])
		}
		fs.DensityMean, fs.DensityStd = stat.MeanStdDev(dens, nil)
		fs.DensityMin = floats.Min(dens)
		fs.DensityMax = floats.Max(dens)
		fs.PressureMean = stat.Mean(press, nil)
	}

	return fs
}

func finite3(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// WindowStats holds aggregated statistics for a window of frames.
type WindowStats struct {
	WindowStartFrame int64   `csv:"-"`
	WindowEndFrame   int64   `csv:"window_end"`
	SimTime          float64 `csv:"sim_time"`

	// Frame counters during the window
	Frames        int `csv:"frames"`
	SubSteps      int `csv:"sub_steps"`
	ClampedFrames int `csv:"clamped_frames"`
	PointerFrames int `csv:"pointer_frames"`

	// Particle state sampled at window end
	Particles     int     `csv:"particles"`
	KineticEnergy float64 `csv:"kinetic_energy"`
	SpeedMean     float64 `csv:"speed_mean"`
	SpeedP50      float64 `csv:"speed_p50"`
	SpeedP90      float64 `csv:"speed_p90"`
	SpeedMax      float64 `csv:"speed_max"`
	DensityMean   float64 `csv:"density_mean"`
	DensityStd    float64 `csv:"density_std"`
	DensityMin    float64 `csv:"density_min"`
	DensityMax    float64 `csv:"density_max"`
	PressureMean  float64 `csv:"pressure_mean"`
	NonFinite     int     `csv:"non_finite"`

	// Neighbor index occupancy (zero in brute-force mode)
	OccupiedCells int `csv:"occupied_cells"`
	MaxBucket     int `csv:"max_bucket"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartFrame),
		slog.Int64("window_end", s.WindowEndFrame),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("frames", s.Frames),
		slog.Int("sub_steps", s.SubSteps),
		slog.Int("clamped_frames", s.ClampedFrames),
		slog.Int("pointer_frames", s.PointerFrames),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("density_mean", s.DensityMean),
		slog.Float64("density_std", s.DensityStd),
		slog.Int("occupied_cells", s.OccupiedCells),
		slog.Int("max_bucket", s.MaxBucket),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	attrs := []any{
		"window_end", s.WindowEndFrame,
		"sim_time", s.SimTime,
		"frames", s.Frames,
		"sub_steps", s.SubSteps,
		"clamped_frames", s.ClampedFrames,
		"kinetic_energy", s.KineticEnergy,
		"speed_mean", s.SpeedMean,
		"speed_p90", s.SpeedP90,
		"density_mean", s.DensityMean,
		"density_min", s.DensityMin,
		"density_max", s.DensityMax,
		"occupied_cells", s.OccupiedCells,
		"max_bucket", s.MaxBucket,
	}
	if s.NonFinite > 0 {
		slog.Warn("stats", append(attrs, "non_finite", s.NonFinite)...)
		return
	}
	slog.Info("stats", attrs...)
}
