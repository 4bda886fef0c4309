// Package compute provides the data-parallel pass abstraction used by every
// array-wide stage of the solver. A pass invokes a kernel over [0, n) split into
// chunks, with no ordering guarantee between elements, and returns only when
// every chunk has finished (a full barrier).
package compute

import (
	"runtime"
	"sync"
)

// ParallelThreshold is the minimum element count to use the worker pool.
// Below this, single-threaded is faster due to goroutine overhead.
const ParallelThreshold = 256

// Kernel processes the elements [i0, i1) of one pass. A kernel must only write
// output slots inside its own range and must not read anything written by the
// same pass.
type Kernel func(i0, i1 int)

// workChunk represents a range of elements for a worker to process.
type workChunk struct {
	start, end int
	kernel     Kernel
}

// Dispatcher runs passes on a persistent worker pool.
// Dispatch must only be called from one goroutine (the frame loop).
type Dispatcher struct {
	numWorkers int
	threshold  int

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running

	passes uint64
}

// NewDispatcher creates a dispatcher with the given worker count.
// workers <= 0 uses GOMAXPROCS.
func NewDispatcher(workers int) *Dispatcher {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Dispatcher{
		numWorkers: workers,
		threshold:  ParallelThreshold,
	}
}

// NewSerial creates a dispatcher that runs every pass on the calling goroutine.
func NewSerial() *Dispatcher {
	return &Dispatcher{numWorkers: 1, threshold: ParallelThreshold}
}

// SetThreshold overrides the minimum element count for parallel execution.
func (d *Dispatcher) SetThreshold(n int) {
	if n < 1 {
		n = 1
	}
	d.threshold = n
}

// Workers returns the number of workers used for large passes.
func (d *Dispatcher) Workers() int {
	return d.numWorkers
}

// Passes returns the number of passes dispatched so far.
func (d *Dispatcher) Passes() uint64 {
	return d.passes
}

// startWorkers launches persistent worker goroutines.
func (d *Dispatcher) startWorkers() {
	if d.running {
		return
	}

	d.workChan = make(chan workChunk, d.numWorkers)
	d.doneChan = make(chan struct{}, d.numWorkers)
	d.stopChan = make(chan struct{})
	d.running = true

	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop signals all workers to exit and waits for them.
func (d *Dispatcher) Stop() {
	if !d.running {
		return
	}

	close(d.stopChan)
	d.wg.Wait()
	close(d.workChan)
	close(d.doneChan)
	d.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (d *Dispatcher) worker() {
	defer d.wg.Done()

	for {
		select {
		case <-d.stopChan:
			return
		case chunk, ok := <-d.workChan:
			if !ok {
				return
			}
			chunk.kernel(chunk.start, chunk.end)
			d.doneChan <- struct{}{}
		}
	}
}

// Dispatch runs kernel over [0, n) and blocks until every element is done.
func (d *Dispatcher) Dispatch(n int, kernel Kernel) {
	if n <= 0 {
		return
	}
	d.passes++

	if d.numWorkers <= 1 || n < d.threshold {
		kernel(0, n)
		return
	}

	if !d.running {
		d.startWorkers()
	}

	chunkSize := (n + d.numWorkers - 1) / d.numWorkers

	chunksDispatched := 0
	for w := 0; w < d.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		d.workChan <- workChunk{start: start, end: end, kernel: kernel}
		chunksDispatched++
	}

	// Barrier: the next pass only sees fully materialized output.
	for i := 0; i < chunksDispatched; i++ {
		<-d.doneChan
	}
}

// ForEach is a convenience wrapper that invokes fn once per element.
func (d *Dispatcher) ForEach(n int, fn func(i int)) {
	d.Dispatch(n, func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			fn(i)
		}
	})
}
