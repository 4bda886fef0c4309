package spatial

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/beads/compute"
	"github.com/pthm-cable/beads/particles"
)

func newTestGrid(t *testing.T) CellGrid {
	t.Helper()
	g, err := NewCellGrid(16, 64, 1)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func randomStore(side int, seed int64, spread float32) *particles.Store {
	rng := rand.New(rand.NewSource(seed))
	s := particles.NewStore(side)
	for i := 0; i < s.Len(); i++ {
		p := mgl32.Vec3{
			(rng.Float32()*2 - 1) * spread,
			(rng.Float32()*2 - 1) * spread,
			(rng.Float32()*2 - 1) * spread,
		}
		s.SetState(i, p, mgl32.Vec3{})
	}
	return s
}

func parallel() *compute.Dispatcher {
	d := compute.NewDispatcher(4)
	d.SetThreshold(1)
	return d
}

func TestNewCellGridRejectsMismatchedTable(t *testing.T) {
	if _, err := NewCellGrid(16, 32, 1); err == nil {
		t.Error("expected error for table side 32 with 16 cells per axis")
	}
	if _, err := NewCellGrid(4, 8, 0); err == nil {
		t.Error("expected error for zero cell size")
	}
}

func TestCellCoordsWrap(t *testing.T) {
	g := newTestGrid(t)

	tests := []struct {
		name    string
		p       mgl32.Vec3
		x, y, z int
	}{
		{"origin", mgl32.Vec3{0, 0, 0}, 0, 0, 0},
		{"just below zero", mgl32.Vec3{-0.5, 0, 0}, 15, 0, 0},
		{"positive", mgl32.Vec3{2.5, 3.1, 0.9}, 2, 3, 0},
		{"wraps past axis", mgl32.Vec3{17.2, -17.5, 0}, 1, 14, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, z := g.Coords(tt.p)
			if x != tt.x || y != tt.y || z != tt.z {
				t.Errorf("Coords(%v) = (%d,%d,%d), want (%d,%d,%d)", tt.p, x, y, z, tt.x, tt.y, tt.z)
			}
		})
	}
}

func TestCellCoordsDomainScale(t *testing.T) {
	g := newTestGrid(t)
	g.DomainScale = mgl32.Vec3{0.5, 1, 1}

	x, _, _ := g.Coords(mgl32.Vec3{3, 0, 0})
	if x != 1 {
		t.Errorf("scaled x cell = %d, want 1", x)
	}
}

func TestBuildHashEntriesInRange(t *testing.T) {
	g := newTestGrid(t)
	s := randomStore(16, 1, 40)
	entries := make([]HashEntry, s.Len())

	BuildHash(parallel(), g, s.In(), entries)

	for i, e := range entries {
		if int(e.ParticleID) != i {
			t.Fatalf("entry %d has particle %d, want identity layout", i, e.ParticleID)
		}
		if int(e.CellID) >= g.NumCells() {
			t.Fatalf("entry %d cell %d outside [0, %d)", i, e.CellID, g.NumCells())
		}
	}
}

func TestPassCount(t *testing.T) {
	tests := []struct {
		side int
		want int
	}{
		{1, 0},
		{2, 3},
		{16, 36},
		{32, 55},
	}

	for _, tt := range tests {
		if got := PassCount(tt.side); got != tt.want {
			t.Errorf("PassCount(%d) = %d, want %d", tt.side, got, tt.want)
		}
		if got := len(Schedule(tt.side)); got != tt.want {
			t.Errorf("len(Schedule(%d)) = %d, want %d", tt.side, got, tt.want)
		}
	}
}

func TestScheduleOrder(t *testing.T) {
	passes := Schedule(4) // n = 4
	want := [][2]int{
		{0, 0},
		{1, 1}, {1, 0},
		{2, 2}, {2, 1}, {2, 0},
		{3, 3}, {3, 2}, {3, 1}, {3, 0},
	}
	if len(passes) != len(want) {
		t.Fatalf("got %d passes, want %d", len(passes), len(want))
	}
	for i, p := range passes {
		if p.Stage != want[i][0] || p.Pass != want[i][1] {
			t.Errorf("pass %d = (%d,%d), want (%d,%d)", i, p.Stage, p.Pass, want[i][0], want[i][1])
		}
		if p.TwoStage != 1<<(p.Stage+1) || p.Distance != 1<<p.Pass {
			t.Errorf("pass %d has wrong derived values: %+v", i, p)
		}
		if p.PassModStage != (1<<p.Pass)%(1<<p.Stage) {
			t.Errorf("pass %d PassModStage = %d", i, p.PassModStage)
		}
	}
}

func TestNewSorterRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := NewSorter(12); err == nil {
		t.Error("expected error for side 12")
	}
}

func TestSortProducesSortedPermutation(t *testing.T) {
	for _, side := range []int{1, 2, 8, 16, 32} {
		sorter, err := NewSorter(side)
		if err != nil {
			t.Fatal(err)
		}

		rng := rand.New(rand.NewSource(int64(side)))
		entries := sorter.Entries()
		for i := range entries {
			// Few distinct cells so ties are common.
			entries[i] = HashEntry{CellID: uint32(rng.Intn(7)), ParticleID: uint32(i)}
		}

		sorter.Sort(parallel())
		sorted := sorter.Entries()

		if !IsSorted(sorted) {
			t.Fatalf("side %d: result not sorted", side)
		}
		seen := make([]bool, len(sorted))
		for _, e := range sorted {
			if seen[e.ParticleID] {
				t.Fatalf("side %d: particle %d duplicated", side, e.ParticleID)
			}
			seen[e.ParticleID] = true
		}
	}
}

func TestSortKeepsCellOfEachParticle(t *testing.T) {
	sorter, _ := NewSorter(16)
	cellOf := make(map[uint32]uint32)
	rng := rand.New(rand.NewSource(7))
	for i := range sorter.Entries() {
		c := uint32(rng.Intn(4096))
		sorter.Entries()[i] = HashEntry{CellID: c, ParticleID: uint32(i)}
		cellOf[uint32(i)] = c
	}

	sorter.Sort(compute.NewSerial())

	for _, e := range sorter.Entries() {
		if cellOf[e.ParticleID] != e.CellID {
			t.Fatalf("particle %d moved with cell %d, want %d", e.ParticleID, e.CellID, cellOf[e.ParticleID])
		}
	}
}

func TestOffsetTableSequentialMatchesAtomic(t *testing.T) {
	g := newTestGrid(t)
	s := randomStore(32, 3, 6)

	idx, err := NewIndex(g, 32)
	if err != nil {
		t.Fatal(err)
	}
	idx.Rebuild(parallel(), s.In())

	ref := NewOffsetTable(g.NumCells())
	ref.BuildSequential(idx.Sorted())

	for c := range ref {
		if ref[c] != idx.Table()[c] {
			t.Fatalf("cell %d: atomic %d, sequential %d", c, idx.Table()[c], ref[c])
		}
	}
}

func TestOffsetTableFirstIndex(t *testing.T) {
	sorted := []HashEntry{
		{CellID: 1, ParticleID: 3},
		{CellID: 1, ParticleID: 0},
		{CellID: 4, ParticleID: 2},
		{CellID: 6, ParticleID: 1},
	}
	table := NewOffsetTable(8)
	table.BuildSequential(sorted)

	want := OffsetTable{Empty, 0, Empty, Empty, 2, Empty, 3, Empty}
	for c := range want {
		if table[c] != want[c] {
			t.Errorf("table[%d] = %d, want %d", c, table[c], want[c])
		}
	}

	occupied, maxBucket := table.Occupancy(sorted)
	if occupied != 3 || maxBucket != 2 {
		t.Errorf("Occupancy = (%d, %d), want (3, 2)", occupied, maxBucket)
	}
}

func TestBucketSizesSumToN(t *testing.T) {
	g := newTestGrid(t)
	s := randomStore(16, 5, 8)
	idx, _ := NewIndex(g, 16)
	idx.Rebuild(parallel(), s.In())

	sorted := idx.Sorted()
	total := 0
	for c, start := range idx.Table() {
		if start == Empty {
			continue
		}
		for p := int(start); p < len(sorted) && sorted[p].CellID == uint32(c); p++ {
			total++
		}
	}
	if total != s.Len() {
		t.Errorf("sum of bucket sizes = %d, want %d", total, s.Len())
	}
}

func TestForEachNeighborFindsAllWithinRadius(t *testing.T) {
	g := newTestGrid(t)
	s := randomStore(16, 9, 5)
	idx, _ := NewIndex(g, 16)
	idx.Rebuild(parallel(), s.In())

	in := s.In()
	for i := 0; i < in.Len(); i++ {
		pi := in.Position(i)
		found := make(map[int]bool)
		cx, cy, cz := g.Coords(pi)
		idx.ForEachNeighbor(cx, cy, cz, func(j int) { found[j] = true })

		for j := 0; j < in.Len(); j++ {
			if in.Position(j).Sub(pi).Len() < g.CellSize && !found[j] {
				t.Fatalf("particle %d misses neighbor %d", i, j)
			}
		}
	}
}

func TestForEachNeighborSmallAxisVisitsOnce(t *testing.T) {
	g, err := NewCellGrid(1, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	s := randomStore(4, 2, 3)
	idx, _ := NewIndex(g, 4)
	idx.Rebuild(compute.NewSerial(), s.In())

	count := 0
	idx.ForEachNeighbor(0, 0, 0, func(int) { count++ })
	if count != s.Len() {
		t.Errorf("visited %d particles, want %d", count, s.Len())
	}
}
