package telemetry

// Collector counts frame events within windows and produces WindowStats.
type Collector struct {
	windowFrames int64

	windowStartFrame int64
	frames           int
	subSteps         int
	clampedFrames    int
	pointerFrames    int
}

// NewCollector creates a collector that flushes every windowFrames frames.
func NewCollector(windowFrames int) *Collector {
	if windowFrames < 1 {
		windowFrames = 1
	}
	return &Collector{windowFrames: int64(windowFrames)}
}

// RecordFrame records one simulated frame.
func (c *Collector) RecordFrame(subSteps int, clamped, pointerActive bool) {
	c.frames++
	c.subSteps += subSteps
	if clamped {
		c.clampedFrames++
	}
	if pointerActive {
		c.pointerFrames++
	}
}

// ShouldFlush reports whether the window ending at frame is complete.
func (c *Collector) ShouldFlush(frame int64) bool {
	return frame-c.windowStartFrame >= c.windowFrames
}

// Flush produces window stats from the counters and an end-of-window sample,
// then starts a new window.
func (c *Collector) Flush(frame int64, simTime float64, fs FrameStats, occupied, maxBucket int) WindowStats {
	ws := WindowStats{
		WindowStartFrame: c.windowStartFrame,
		WindowEndFrame:   frame,
		SimTime:          simTime,
		Frames:           c.frames,
		SubSteps:         c.subSteps,
		ClampedFrames:    c.clampedFrames,
		PointerFrames:    c.pointerFrames,
		Particles:        fs.Particles,
		KineticEnergy:    fs.KineticEnergy,
		SpeedMean:        fs.SpeedMean,
		SpeedP50:         fs.SpeedP50,
		SpeedP90:         fs.SpeedP90,
		SpeedMax:         fs.SpeedMax,
		DensityMean:      fs.DensityMean,
		DensityStd:       fs.DensityStd,
		DensityMin:       fs.DensityMin,
		DensityMax:       fs.DensityMax,
		PressureMean:     fs.PressureMean,
		NonFinite:        fs.NonFinite,
		OccupiedCells:    occupied,
		MaxBucket:        maxBucket,
	}

	c.windowStartFrame = frame
	c.frames = 0
	c.subSteps = 0
	c.clampedFrames = 0
	c.pointerFrames = 0

	return ws
}
