package spatial

import (
	"github.com/pthm-cable/beads/compute"
	"github.com/pthm-cable/beads/particles"
)

// Index is the per-frame neighbor lookup: hash, sort and offset table together.
type Index struct {
	Grid   CellGrid
	sorter *Sorter
	table  OffsetTable
}

// NewIndex allocates the index for a side x side particle layout.
func NewIndex(grid CellGrid, side int) (*Index, error) {
	sorter, err := NewSorter(side)
	if err != nil {
		return nil, err
	}
	return &Index{
		Grid:   grid,
		sorter: sorter,
		table:  NewOffsetTable(grid.NumCells()),
	}, nil
}

// Hash runs the spatial hash pass over positions.
func (x *Index) Hash(d *compute.Dispatcher, positions particles.View) {
	BuildHash(d, x.Grid, positions, x.sorter.Entries())
}

// Sort runs every pass of the bitonic network.
func (x *Index) Sort(d *compute.Dispatcher) {
	x.sorter.Sort(d)
}

// BuildOffsets fills the offset table from the sorted entries.
func (x *Index) BuildOffsets(d *compute.Dispatcher) {
	x.table.BuildAtomic(d, x.sorter.Entries())
}

// Rebuild runs hash, sort and offsets in order.
func (x *Index) Rebuild(d *compute.Dispatcher, positions particles.View) {
	x.Hash(d, positions)
	x.Sort(d)
	x.BuildOffsets(d)
}

// Sorted returns the sorted entries of the last rebuild.
func (x *Index) Sorted() []HashEntry {
	return x.sorter.Entries()
}

// Table returns the offset table of the last rebuild.
func (x *Index) Table() OffsetTable {
	return x.table
}

// Schedule returns the sort pass list.
func (x *Index) Schedule() []Pass {
	return x.sorter.Schedule()
}

// ForEachNeighbor calls fn with the id of every particle in cell (cx, cy, cz)
// and its 26 neighbors. With fewer than three cells
// per axis the ring wraps onto itself, so repeated cells are visited once.
// Candidates are not distance-filtered.
func (x *Index) ForEachNeighbor(cx, cy, cz int, fn func(j int)) {
	axis := x.Grid.Axis
	sorted := x.sorter.Entries()

	var seen [27]uint32
	nseen := 0

	for dz := -1; dz <= 1; dz++ {
		z := (cz + dz + axis) % axis
		for dy := -1; dy <= 1; dy++ {
			y := (cy + dy + axis) % axis
		cells:
			for dx := -1; dx <= 1; dx++ {
				xx := (cx + dx + axis) % axis
				c := x.Grid.ID(xx, y, z)
				if axis < 3 {
					for k := 0; k < nseen; k++ {
						if seen[k] == c {
							continue cells
						}
					}
					seen[nseen] = c
					nseen++
				}

				start := x.table[c]
				if start == Empty {
					continue
				}
				for p := int(start); p < len(sorted) && sorted[p].CellID == c; p++ {
					fn(int(sorted[p].ParticleID))
				}
			}
		}
	}
}
