package game

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/beads/fluid"
)

// pointerSphereRadius is the radius of the sphere the pointer is projected on.
const pointerSphereRadius = 1

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// Frame advances the simulation to wall-clock time now.
//
// The first call moves the loop from Idle to Running with a zero delta. Later
// calls clamp the delta to frame.max_ms, scale the step by the delta relative
// to frame.target_ms and run 1 + steps solver sub-steps with the same dt. The
// pointer velocity only contributes to the first sub-step.
func (g *Game) Frame(now time.Duration) FrameResult {
	if g.paused {
		g.last = now
		return FrameResult{}
	}
	if g.state == StateIdle {
		g.state = StateRunning
		g.last = now
	}

	res := FrameResult{Delta: now - g.last}
	g.last = now
	if res.Delta < 0 {
		res.Delta = 0
	}
	if maxDelta := millis(g.cfg.Frame.MaxMS); res.Delta > maxDelta {
		res.Delta = maxDelta
		res.Clamped = true
	}

	target := g.cfg.Frame.TargetMS
	res.DeltaFrames = float64(res.Delta) / float64(time.Millisecond) / target
	res.DT = float32(target * res.DeltaFrames * g.cfg.Frame.TimeScale)

	if g.pointerParams.NeedsUpdate() {
		g.pointerParams.Ack()
	}
	res.Pointer = g.pointer.Update(g.camera, pointerSphereRadius)
	ptr := fluid.Pointer{
		Position: res.Pointer.Position,
		Velocity: res.Pointer.Delta,
		Active:   res.Pointer.Active,
	}

	res.SubSteps = 1 + g.params.Steps()

	g.perf.StartFrame()
	for i := 0; i < res.SubSteps; i++ {
		g.step(res.DT, ptr)
		// Later sub-steps must not repeat the pointer impulse.
		ptr.Velocity = mgl32.Vec3{}
	}
	g.perf.EndFrame()

	g.frame++
	g.simTime += float64(res.DT)
	g.lastFrame = res

	g.collector.RecordFrame(res.SubSteps, res.Clamped, res.Pointer.Active)
	g.flushTelemetry()
	g.broadcast()

	return res
}

// UpdateHeadless advances one nominal frame on a synthetic clock.
func (g *Game) UpdateHeadless() FrameResult {
	now := g.last
	if g.state == StateRunning {
		now += millis(g.cfg.Frame.TargetMS)
	}
	return g.Frame(now)
}

func (g *Game) broadcast() {
	if g.hub == nil || g.frame%int64(g.cfg.Stream.EveryFrames) != 0 {
		return
	}
	g.hub.Broadcast(uint64(g.frame), g.store.Current())
}
