// Package spatial builds the per-frame neighbor index: a spatial hash of every
// particle, a bitonic sort of the (cell, particle) pairs and an offset table
// that maps each cell to its first sorted entry.
package spatial

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/beads/compute"
	"github.com/pthm-cable/beads/particles"
)

// HashEntry pairs a particle with the cell it occupies.
type HashEntry struct {
	CellID     uint32
	ParticleID uint32
}

// CellGrid maps domain coordinates onto a cyclic grid of Axis^3 cells.
// Cell ids are laid out in a square table of side TableSide (TableSide^2 == Axis^3).
type CellGrid struct {
	Axis        int
	TableSide   int
	CellSize    float32
	DomainScale mgl32.Vec3
}

// NewCellGrid creates a grid with unit domain scale.
func NewCellGrid(axis, tableSide int, cellSize float32) (CellGrid, error) {
	if axis < 1 || tableSide*tableSide != axis*axis*axis {
		return CellGrid{}, fmt.Errorf("cell grid: table side %d does not hold %d^3 cells", tableSide, axis)
	}
	if cellSize <= 0 {
		return CellGrid{}, fmt.Errorf("cell grid: cell size must be positive, got %v", cellSize)
	}
	return CellGrid{
		Axis:        axis,
		TableSide:   tableSide,
		CellSize:    cellSize,
		DomainScale: mgl32.Vec3{1, 1, 1},
	}, nil
}

// NumCells returns the number of cells, which is also the offset table length.
func (g CellGrid) NumCells() int {
	return g.TableSide * g.TableSide
}

// Coords returns the wrapped cell coordinates of a domain position.
func (g CellGrid) Coords(p mgl32.Vec3) (x, y, z int) {
	x = g.wrap(p[0] * g.DomainScale[0] / g.CellSize)
	y = g.wrap(p[1] * g.DomainScale[1] / g.CellSize)
	z = g.wrap(p[2] * g.DomainScale[2] / g.CellSize)
	return x, y, z
}

// ID combines wrapped cell coordinates into a row-major cell id.
func (g CellGrid) ID(x, y, z int) uint32 {
	return uint32(x + g.Axis*(y+g.Axis*z))
}

// CellOf returns the cell id of a domain position.
func (g CellGrid) CellOf(p mgl32.Vec3) uint32 {
	return g.ID(g.Coords(p))
}

// wrap floors v and reduces it modulo Axis into [0, Axis).
// Wrapping applies to hashing only; particle positions are never wrapped.
func (g CellGrid) wrap(v float32) int {
	f := math.Floor(float64(v))
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(f, float64(g.Axis))
	if m < 0 {
		m += float64(g.Axis)
	}
	return int(m)
}

// BuildHash writes one entry per particle into entries, at the particle's own slot.
func BuildHash(d *compute.Dispatcher, g CellGrid, positions particles.View, entries []HashEntry) {
	d.Dispatch(positions.Len(), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			entries[i] = HashEntry{CellID: g.CellOf(positions.Position(i)), ParticleID: uint32(i)}
		}
	})
}
