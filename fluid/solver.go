package fluid

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/beads/compute"
	"github.com/pthm-cable/beads/particles"
	"github.com/pthm-cable/beads/spatial"
)

// Phase names reported to the phase timer, in execution order.
const (
	PhaseHash      = "hash"
	PhaseSort      = "sort"
	PhaseOffsets   = "offsets"
	PhaseDensity   = "density"
	PhaseForce     = "force"
	PhaseIntegrate = "integrate"
)

// Phases lists every solver phase.
var Phases = []string{PhaseHash, PhaseSort, PhaseOffsets, PhaseDensity, PhaseForce, PhaseIntegrate}

// PhaseTimer receives phase boundaries. telemetry.PerfCollector satisfies it.
type PhaseTimer interface {
	StartPhase(phase string)
}

type noopTimer struct{}

func (noopTimer) StartPhase(string) {}

// Boundary selects the containment force keeping particles in the domain.
type Boundary int

const (
	BoundaryNone Boundary = iota
	BoundarySphere
	BoundaryBox
)

// ParseBoundary converts a config name into a Boundary.
func ParseBoundary(name string) (Boundary, error) {
	switch name {
	case "none":
		return BoundaryNone, nil
	case "sphere":
		return BoundarySphere, nil
	case "box":
		return BoundaryBox, nil
	}
	return BoundaryNone, fmt.Errorf("unknown boundary %q", name)
}

// Pointer is the projected pointer as consumed by the force pass.
type Pointer struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3 // per-frame position delta
	Active   bool
}

// Options configures a Solver.
type Options struct {
	Store      *particles.Store
	Dispatcher *compute.Dispatcher
	Params     *Params
	Pointer    *PointerParams

	// Grid enables the sorted neighbor index. Nil selects brute-force all pairs.
	Grid *spatial.CellGrid

	Boundary  Boundary
	Stiffness float32
	Timer     PhaseTimer
}

// Solver runs the density, force and integration passes over the particle store.
type Solver struct {
	store   *particles.Store
	d       *compute.Dispatcher
	params  *Params
	pointer *PointerParams
	index   *spatial.Index

	boundary    Boundary
	stiffness   float32
	domainScale mgl32.Vec3
	timer       PhaseTimer
}

// NewSolver validates options and allocates the neighbor index if requested.
func NewSolver(opts Options) (*Solver, error) {
	if opts.Store == nil || opts.Params == nil {
		return nil, fmt.Errorf("solver: store and params are required")
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = compute.NewSerial()
	}
	if opts.Pointer == nil {
		opts.Pointer = &PointerParams{}
	}
	if opts.Timer == nil {
		opts.Timer = noopTimer{}
	}

	s := &Solver{
		store:       opts.Store,
		d:           opts.Dispatcher,
		params:      opts.Params,
		pointer:     opts.Pointer,
		boundary:    opts.Boundary,
		stiffness:   opts.Stiffness,
		domainScale: mgl32.Vec3{1, 1, 1},
		timer:       opts.Timer,
	}

	if opts.Grid != nil {
		idx, err := spatial.NewIndex(*opts.Grid, opts.Store.Side())
		if err != nil {
			return nil, fmt.Errorf("solver: %w", err)
		}
		s.index = idx
		s.domainScale = opts.Grid.DomainScale
	}
	return s, nil
}

// BruteForce reports whether neighbors are found by scanning every particle.
func (s *Solver) BruteForce() bool {
	return s.index == nil
}

// Index returns the neighbor index, or nil in brute-force mode.
func (s *Solver) Index() *spatial.Index {
	return s.index
}

// SetDomainScale updates the domain transform used for hashing and boundaries.
func (s *Solver) SetDomainScale(scale mgl32.Vec3) {
	s.domainScale = scale
	if s.index != nil {
		s.index.Grid.DomainScale = scale
	}
}

// DomainScale returns the current domain transform.
func (s *Solver) DomainScale() mgl32.Vec3 {
	return s.domainScale
}

// SetTimer replaces the phase timer.
func (s *Solver) SetTimer(t PhaseTimer) {
	if t == nil {
		t = noopTimer{}
	}
	s.timer = t
}

// Step runs one sub-step: neighbor index rebuild (grid mode), the three SPH
// passes and the buffer swap.
func (s *Solver) Step(dt float32, ptr Pointer) {
	k := s.params.Kernels()
	in := s.store.In()

	if s.index != nil {
		s.index.Grid.CellSize = float32(s.params.H())
		s.timer.StartPhase(PhaseHash)
		s.index.Hash(s.d, in)
		s.timer.StartPhase(PhaseSort)
		s.index.Sort(s.d)
		s.timer.StartPhase(PhaseOffsets)
		s.index.BuildOffsets(s.d)
	}

	s.timer.StartPhase(PhaseDensity)
	s.DensityPass(k)
	s.timer.StartPhase(PhaseForce)
	s.ForcePass(k, ptr)
	s.timer.StartPhase(PhaseIntegrate)
	s.IntegratePass(dt)

	s.store.Swap()
}

// neighbors calls fn for every neighbor candidate of a particle at p.
func (s *Solver) neighbors(in particles.View, p mgl32.Vec3, fn func(j int)) {
	if s.index == nil {
		for j := 0; j < in.Len(); j++ {
			fn(j)
		}
		return
	}
	cx, cy, cz := s.index.Grid.Coords(p)
	s.index.ForEachNeighbor(cx, cy, cz, fn)
}

// DensityPass computes density (self included) and pressure for every particle.
func (s *Solver) DensityPass(k Kernels) {
	in := s.store.In()
	out := s.store.DensityPressure
	mass := float32(s.params.Mass())
	gas := float32(s.params.GasConst())
	rest := float32(s.params.RestDensity())

	s.d.Dispatch(in.Len(), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			pi := in.Position(i)
			var density float32
			s.neighbors(in, pi, func(j int) {
				d := in.Position(j).Sub(pi)
				r2 := d.Dot(d)
				if r2 < k.HSQ {
					w := k.HSQ - r2
					density += mass * k.Poly6 * w * w * w
				}
			})
			out[i] = mgl32.Vec2{density, gas * (density - rest)}
		}
	})
}

// ForcePass accumulates pressure, viscosity, boundary and pointer forces.
func (s *Solver) ForcePass(k Kernels, ptr Pointer) {
	in := s.store.In()
	dp := s.store.DensityPressure
	out := s.store.Force

	h := float32(s.params.H())
	mass := float32(s.params.Mass())
	visc := float32(s.params.Viscosity())
	usePointer := ptr.Active && s.pointer.Strength != 0

	s.d.Dispatch(in.Len(), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			pi := in.Position(i)
			vi := in.Velocity(i)
			rhoI, pressI := dp[i][0], dp[i][1]

			var f mgl32.Vec3
			s.neighbors(in, pi, func(j int) {
				if j == i {
					return
				}
				diff := pi.Sub(in.Position(j))
				r := diff.Len()
				if r >= h || r == 0 {
					return
				}
				rhoJ, pressJ := dp[j][0], dp[j][1]
				w := h - r

				// Pressure: SpikyGrad is negative, so positive pressure pushes i away from j.
				fp := -mass * (pressI + pressJ) / (2 * rhoJ) * k.SpikyGrad * w * w
				f = f.Add(diff.Mul(fp / r))

				// Viscosity
				fv := visc * k.ViscLap * w / rhoJ
				f = f.Add(in.Velocity(j).Sub(vi).Mul(fv))
			})

			f = f.Add(s.boundaryForce(pi, rhoI))
			if usePointer {
				f = f.Add(s.pointerForce(pi, rhoI, ptr))
			}
			out[i] = f.Vec4(0)
		}
	})
}

// boundaryForce pushes particles back inside the domain. Forces scale with
// density so the resulting acceleration does not.
func (s *Solver) boundaryForce(p mgl32.Vec3, rho float32) mgl32.Vec3 {
	q := mgl32.Vec3{p[0] * s.domainScale[0], p[1] * s.domainScale[1], p[2] * s.domainScale[2]}

	switch s.boundary {
	case BoundarySphere:
		d := q.Len()
		if d <= 1 {
			return mgl32.Vec3{}
		}
		return q.Mul(-s.stiffness * (d - 1) * rho / d)
	case BoundaryBox:
		var f mgl32.Vec3
		for a := 0; a < 3; a++ {
			switch {
			case q[a] > 1:
				f[a] = -s.stiffness * (q[a] - 1) * rho
			case q[a] < -1:
				f[a] = -s.stiffness * (q[a] + 1) * rho
			}
		}
		return f
	}
	return mgl32.Vec3{}
}

// pointerForce pushes particles near the pointer away from it and drags them
// along with the pointer's motion, fading out at the pointer radius.
func (s *Solver) pointerForce(p mgl32.Vec3, rho float32, ptr Pointer) mgl32.Vec3 {
	diff := p.Sub(ptr.Position)
	d := diff.Len()
	if d >= s.pointer.Radius {
		return mgl32.Vec3{}
	}
	var dir mgl32.Vec3
	if d > 1e-6 {
		dir = diff.Mul(1 / d)
	}
	falloff := 1 - d/s.pointer.Radius
	push := dir.Add(ptr.Velocity.Mul(s.pointer.VelocityGain))
	return push.Mul(s.pointer.Strength * falloff * rho)
}

// IntegratePass advances velocity and position with semi-implicit Euler into
// the out buffer.
func (s *Solver) IntegratePass(dt float32) {
	s.store.ClearOut()
	in := s.store.In()
	out := s.store.Out()
	dp := s.store.DensityPressure
	force := s.store.Force

	s.d.Dispatch(in.Len(), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			v := in.Velocity(i).Add(force[i].Vec3().Mul(1 / dp[i][0]).Mul(dt))
			p := in.Position(i).Add(v.Mul(dt))
			out.Velocity[i] = v.Vec4(0)
			out.Position[i] = p.Vec4(0)
		}
	})
}
