// Package fluid implements the grid-accelerated SPH solver.
package fluid

import (
	"fmt"
	"math"

	"github.com/pthm-cable/beads/config"
)

// MinH is the smallest accepted kernel radius.
const MinH = 0.01

// Kernels holds the constants derived from the kernel radius.
type Kernels struct {
	HSQ       float32
	Poly6     float32 // 315 / (64 pi H^9)
	SpikyGrad float32 // -45 / (pi H^6)
	ViscLap   float32 // 45 / (pi H^5)
}

// ComputeKernels evaluates the closed-form kernel constants for radius h.
func ComputeKernels(h float64) Kernels {
	return Kernels{
		HSQ:       float32(h * h),
		Poly6:     float32(315.0 / (64.0 * math.Pi * math.Pow(h, 9))),
		SpikyGrad: float32(-45.0 / (math.Pi * math.Pow(h, 6))),
		ViscLap:   float32(45.0 / (math.Pi * math.Pow(h, 5))),
	}
}

// Params holds the runtime-adjustable simulation parameters.
// Setters mark the set dirty; derived kernels are recomputed once on next use.
type Params struct {
	h         float64
	mass      float64
	restDens  float64
	gasConst  float64
	visc      float64
	steps     int
	kernels   Kernels
	needsCalc bool

	recomputes int
}

// NewParams creates parameters from the simulation config section.
func NewParams(c config.SimulationConfig) (*Params, error) {
	p := &Params{needsCalc: true}
	if err := p.SetH(c.H); err != nil {
		return nil, err
	}
	if err := p.SetSteps(c.Steps); err != nil {
		return nil, err
	}
	p.SetMass(c.Mass)
	p.SetRestDensity(c.RestDensity)
	p.SetGasConst(c.GasConst)
	p.SetViscosity(c.Viscosity)
	return p, nil
}

// SetH sets the kernel radius.
func (p *Params) SetH(h float64) error {
	if h < MinH {
		return fmt.Errorf("kernel radius %v below minimum %v", h, MinH)
	}
	p.h = h
	p.needsCalc = true
	return nil
}

// SetSteps sets the number of extra sub-steps per frame.
func (p *Params) SetSteps(steps int) error {
	if steps < 0 {
		return fmt.Errorf("steps must be >= 0, got %d", steps)
	}
	p.steps = steps
	p.needsCalc = true
	return nil
}

func (p *Params) SetMass(v float64)        { p.mass = v; p.needsCalc = true }
func (p *Params) SetRestDensity(v float64) { p.restDens = v; p.needsCalc = true }
func (p *Params) SetGasConst(v float64)    { p.gasConst = v; p.needsCalc = true }
func (p *Params) SetViscosity(v float64)   { p.visc = v; p.needsCalc = true }

func (p *Params) H() float64           { return p.h }
func (p *Params) Mass() float64        { return p.mass }
func (p *Params) RestDensity() float64 { return p.restDens }
func (p *Params) GasConst() float64    { return p.gasConst }
func (p *Params) Viscosity() float64   { return p.visc }
func (p *Params) Steps() int           { return p.steps }

// NeedsUpdate reports whether a parameter changed since the last Kernels call.
func (p *Params) NeedsUpdate() bool {
	return p.needsCalc
}

// Kernels returns the derived constants, recomputing them only if dirty.
func (p *Params) Kernels() Kernels {
	if p.needsCalc {
		p.kernels = ComputeKernels(p.h)
		p.needsCalc = false
		p.recomputes++
	}
	return p.kernels
}

// Recomputes returns how many times the kernels were recomputed.
func (p *Params) Recomputes() int {
	return p.recomputes
}

// PointerParams holds the pointer force parameters.
type PointerParams struct {
	Radius       float32
	Strength     float32
	VelocityGain float32

	needsUpdate bool
}

// NewPointerParams creates pointer parameters from config.
func NewPointerParams(c config.PointerConfig) *PointerParams {
	return &PointerParams{
		Radius:       float32(c.Radius),
		Strength:     float32(c.Strength),
		VelocityGain: float32(c.VelocityGain),
		needsUpdate:  true,
	}
}

// Set updates radius and strength and marks the parameters dirty.
func (p *PointerParams) Set(radius, strength float32) {
	p.Radius = radius
	p.Strength = strength
	p.needsUpdate = true
}

// NeedsUpdate reports whether the pointer parameters changed since Ack.
func (p *PointerParams) NeedsUpdate() bool {
	return p.needsUpdate
}

// Ack clears the dirty flag.
func (p *PointerParams) Ack() {
	p.needsUpdate = false
}
