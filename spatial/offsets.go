package spatial

import (
	"math"
	"sync/atomic"

	"github.com/pthm-cable/beads/compute"
)

// Empty marks a cell with no particles in the offset table.
const Empty = math.MaxUint32

// OffsetTable maps a cell id to the index of its first entry in the sorted array.
type OffsetTable []uint32

// NewOffsetTable allocates a table for the given number of cells.
func NewOffsetTable(cells int) OffsetTable {
	t := make(OffsetTable, cells)
	t.Reset()
	return t
}

// Reset marks every cell as empty.
func (t OffsetTable) Reset() {
	for i := range t {
		t[i] = Empty
	}
}

// BuildSequential fills the table with a single ordered scan over sorted entries.
// It is the reference result for BuildAtomic.
func (t OffsetTable) BuildSequential(sorted []HashEntry) {
	t.Reset()
	for p, e := range sorted {
		if t[e.CellID] == Empty {
			t[e.CellID] = uint32(p)
		}
	}
}

// BuildAtomic fills the table in parallel. Every entry performs an atomic
// minimum on its cell, so the lowest sorted index wins regardless of the order
// in which elements run.
func (t OffsetTable) BuildAtomic(d *compute.Dispatcher, sorted []HashEntry) {
	d.Dispatch(len(t), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			t[i] = Empty
		}
	})
	d.Dispatch(len(sorted), func(i0, i1 int) {
		for p := i0; p < i1; p++ {
			atomicMin(&t[sorted[p].CellID], uint32(p))
		}
	})
}

func atomicMin(addr *uint32, v uint32) {
	for {
		old := atomic.LoadUint32(addr)
		if v >= old {
			return
		}
		if atomic.CompareAndSwapUint32(addr, old, v) {
			return
		}
	}
}

// Occupancy returns the number of non-empty cells and the largest bucket size.
func (t OffsetTable) Occupancy(sorted []HashEntry) (occupied, maxBucket int) {
	for c, start := range t {
		if start == Empty {
			continue
		}
		occupied++
		size := 0
		for p := int(start); p < len(sorted) && sorted[p].CellID == uint32(c); p++ {
			size++
		}
		if size > maxBucket {
			maxBucket = size
		}
	}
	return occupied, maxBucket
}
