package spatial

import (
	"fmt"
	"math/bits"

	"github.com/pthm-cable/beads/compute"
)

// Pass describes one global compare-exchange pass of the bitonic network.
type Pass struct {
	Stage        int
	Pass         int
	TwoStage     int // 2^(stage+1): size of the sub-sequences merged in this stage
	PassModStage int // 2^pass mod 2^stage
	Distance     int // 2^pass: distance to the compare partner
}

// PassCount returns the number of passes needed for a side x side array.
// n is derived as 2*log2(side), which equals log2(side^2) only because the
// array is square; a wrong count leaves the array partially sorted.
func PassCount(side int) int {
	n := 2 * log2(side)
	return n * (n + 1) / 2
}

// Schedule returns every pass in execution order for a side x side array.
func Schedule(side int) []Pass {
	n := 2 * log2(side)
	passes := make([]Pass, 0, n*(n+1)/2)
	for stage := 0; stage < n; stage++ {
		for pass := stage; pass >= 0; pass-- {
			passes = append(passes, Pass{
				Stage:        stage,
				Pass:         pass,
				TwoStage:     1 << (stage + 1),
				PassModStage: (1 << pass) % (1 << stage),
				Distance:     1 << pass,
			})
		}
	}
	return passes
}

func log2(side int) int {
	if side <= 1 {
		return 0
	}
	return bits.Len(uint(side)) - 1
}

// Sorter sorts hash entries ascending by cell id with a bitonic network.
// It owns two buffers and flips between them after every pass.
type Sorter struct {
	side     int
	buffers  [2][]HashEntry
	active   int
	schedule []Pass
}

// NewSorter allocates a sorter for a side x side array. side must be a power of two.
func NewSorter(side int) (*Sorter, error) {
	if side < 1 || side&(side-1) != 0 {
		return nil, fmt.Errorf("bitonic sorter: side %d is not a power of two", side)
	}
	n := side * side
	return &Sorter{
		side:     side,
		buffers:  [2][]HashEntry{make([]HashEntry, n), make([]HashEntry, n)},
		schedule: Schedule(side),
	}, nil
}

// Entries returns the active buffer. The hash builder writes it before Sort,
// and after Sort it holds the sorted array.
func (s *Sorter) Entries() []HashEntry {
	return s.buffers[s.active]
}

// Schedule returns the pass list used by Sort.
func (s *Sorter) Schedule() []Pass {
	return s.schedule
}

// Sort runs every pass of the network. Each pass reads the active buffer,
// writes the other and then makes it active.
func (s *Sorter) Sort(d *compute.Dispatcher) {
	for _, p := range s.schedule {
		src := s.buffers[s.active]
		dst := s.buffers[1-s.active]
		d.Dispatch(len(src), func(i0, i1 int) {
			compareExchange(src, dst, p, i0, i1)
		})
		s.active = 1 - s.active
	}
}

// compareExchange writes dst[i] for i in [i0, i1). Both members of a pair make
// the same swap decision, and equal cells keep their own entry, so the output
// is always a permutation of the input.
func compareExchange(src, dst []HashEntry, p Pass, i0, i1 int) {
	for i := i0; i < i1; i++ {
		j := i ^ p.Distance
		ascending := i&p.TwoStage == 0

		lo, hi := i, j
		if j < i {
			lo, hi = j, i
		}
		// Ascending blocks keep the smaller cell at the lower index.
		swap := src[lo].CellID > src[hi].CellID
		if !ascending {
			swap = src[lo].CellID < src[hi].CellID
		}

		if swap {
			dst[i] = src[j]
		} else {
			dst[i] = src[i]
		}
	}
}

// IsSorted reports whether entries are non-decreasing by cell id.
func IsSorted(entries []HashEntry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].CellID > entries[i].CellID {
			return false
		}
	}
	return true
}
