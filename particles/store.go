// Package particles owns the per-particle state of the fluid.
//
// Position and velocity are double-buffered: the solver reads the "in" pair
// and writes the "out" pair, then Swap flips the roles. Density/pressure and
// force are derived every sub-step and are single-buffered.
package particles

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Pair is one position/velocity buffer. The w component of each vector is padding.
type Pair struct {
	Position []mgl32.Vec4
	Velocity []mgl32.Vec4
}

func newPair(n int) Pair {
	return Pair{
		Position: make([]mgl32.Vec4, n),
		Velocity: make([]mgl32.Vec4, n),
	}
}

// View is a read-only handle on a Pair.
// Passes receive their input as a View so they cannot write what they read.
type View struct {
	pair *Pair
}

// Len returns the number of particles.
func (v View) Len() int {
	return len(v.pair.Position)
}

// Position returns the position of particle i.
func (v View) Position(i int) mgl32.Vec3 {
	return v.pair.Position[i].Vec3()
}

// Velocity returns the velocity of particle i.
func (v View) Velocity(i int) mgl32.Vec3 {
	return v.pair.Velocity[i].Vec3()
}

// CopyPositions copies the positions into dst (grown as needed) and returns it.
func (v View) CopyPositions(dst []mgl32.Vec4) []mgl32.Vec4 {
	return append(dst[:0], v.pair.Position...)
}

// CopyVelocities copies the velocities into dst (grown as needed) and returns it.
func (v View) CopyVelocities(dst []mgl32.Vec4) []mgl32.Vec4 {
	return append(dst[:0], v.pair.Velocity...)
}

// Store holds all particle arrays for the session.
type Store struct {
	side int
	n    int

	pairs [2]Pair
	in    int // index of the pair read by the next sub-step

	DensityPressure []mgl32.Vec2 // x = density, y = pressure
	Force           []mgl32.Vec4
}

// NewStore allocates arrays for a side x side particle layout.
func NewStore(side int) *Store {
	n := side * side
	return &Store{
		side:            side,
		n:               n,
		pairs:           [2]Pair{newPair(n), newPair(n)},
		DensityPressure: make([]mgl32.Vec2, n),
		Force:           make([]mgl32.Vec4, n),
	}
}

// Len returns the particle count N.
func (s *Store) Len() int {
	return s.n
}

// Side returns the side of the square particle layout.
func (s *Store) Side() int {
	return s.side
}

// In returns the input buffer of the next sub-step.
func (s *Store) In() View {
	return View{pair: &s.pairs[s.in]}
}

// Out returns the buffer the next sub-step writes.
func (s *Store) Out() *Pair {
	return &s.pairs[1-s.in]
}

// Current returns the most recently written buffer.
// After Swap this is the same buffer as In.
func (s *Store) Current() View {
	return s.In()
}

// Swap exchanges the in/out roles. No data is copied.
func (s *Store) Swap() {
	s.in = 1 - s.in
}

// ClearOut zeroes the out buffer before integration.
func (s *Store) ClearOut() {
	out := s.Out()
	clear(out.Position)
	clear(out.Velocity)
}

// Seed places every particle on a sphere of the given radius with zero
// velocity, writing both buffers so the first sub-step reads valid data.
func (s *Store) Seed(rng *rand.Rand, radius float32) {
	for i := 0; i < s.n; i++ {
		var dir mgl32.Vec3
		for {
			dir = mgl32.Vec3{
				rng.Float32()*2 - 1,
				rng.Float32()*2 - 1,
				rng.Float32()*2 - 1,
			}
			if l := dir.Len(); l > 1e-4 {
				dir = dir.Mul(1 / l)
				break
			}
		}
		p := dir.Mul(radius).Vec4(0)
		for k := range s.pairs {
			s.pairs[k].Position[i] = p
			s.pairs[k].Velocity[i] = mgl32.Vec4{}
		}
	}
	clear(s.DensityPressure)
	clear(s.Force)
}

// SetState overwrites particle i in both buffers. Used for scripted setups.
func (s *Store) SetState(i int, pos, vel mgl32.Vec3) {
	for k := range s.pairs {
		s.pairs[k].Position[i] = pos.Vec4(0)
		s.pairs[k].Velocity[i] = vel.Vec4(0)
	}
}

// KineticEnergy returns 0.5 * mass * sum(|v|^2) over the current buffer.
func (s *Store) KineticEnergy(mass float32) float64 {
	cur := s.Current()
	var e float64
	for i := 0; i < s.n; i++ {
		v := cur.Velocity(i)
		e += float64(v.Dot(v))
	}
	return 0.5 * float64(mass) * e
}
