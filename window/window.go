// Package window runs the simulation in a raylib window: input events in,
// beads and panels out.
package window

import (
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/beads/game"
	"github.com/pthm-cable/beads/renderer"
	"github.com/pthm-cable/beads/ui"
)

const controls = "[Space] pause  [P] parameters  [T] timings  [D] debug  [F11] fullscreen"

// beadRadius is the drawn radius of a particle in domain units.
const beadRadius = 0.03

// Window owns the raylib front-end for one game.
type Window struct {
	g *game.Game

	beads *renderer.BeadRenderer
	hud   *ui.HUD
	perf  *ui.PerfPanel
	panel *ui.ParamPanel

	showPerf    bool
	mouseInside bool
	width       float32
	height      float32
}

// New creates the front-end. The raylib window must already be open.
func New(g *game.Game) *Window {
	w := &Window{
		g:      g,
		beads:  renderer.NewBeadRenderer(beadRadius),
		hud:    ui.NewHUD(),
		width:  float32(rl.GetScreenWidth()),
		height: float32(rl.GetScreenHeight()),
	}
	w.perf = ui.NewPerfPanel(10, 110)
	w.panel = ui.NewParamPanel(ui.ParamSliders(g.Params(), g.PointerParams()), int32(w.width)-250, 10, 240)
	g.Resize(w.width, w.height)
	return w
}

// Update handles input and advances one frame on the raylib clock.
func (w *Window) Update() {
	w.handleInput()
	now := time.Duration(rl.GetTime() * float64(time.Second))
	w.g.Frame(now)
}

// Draw renders the completed frame and the overlays.
func (w *Window) Draw() {
	w.g.Perf().RecordDraw()

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	w.beads.Draw(w.g.Camera(), w.g.Current())
	renderer.DrawPointer(w.g.Camera(), w.g.LastFrame().Pointer, w.g.PointerParams().Radius)

	last := w.g.LastFrame()
	w.hud.Draw(ui.HUDData{
		Title:         "SPH Beads",
		Particles:     w.g.Store().Len(),
		Tick:          w.g.Tick(),
		SubSteps:      last.SubSteps,
		FPS:           rl.GetFPS(),
		Mode:          w.g.Config().Grid.Mode,
		Paused:        w.g.Paused(),
		PointerActive: last.Pointer.Active,
		KineticEnergy: w.g.Store().KineticEnergy(float32(w.g.Params().Mass())),
	})
	if w.showPerf {
		w.perf.Draw(w.g.Perf().Stats())
	}
	w.panel.Draw()
	w.hud.DrawControls(int32(w.height), controls)

	rl.EndDrawing()
}

// handleInput processes keyboard and pointer input.
func (w *Window) handleInput() {
	w.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		w.g.TogglePause()
	}
	if rl.IsKeyPressed(rl.KeyP) {
		w.panel.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyT) {
		w.showPerf = !w.showPerf
	}
	if rl.IsKeyPressed(rl.KeyD) {
		w.g.Debug()
	}

	w.handlePointer()
}

// handlePointer forwards mouse events to the pointer projector.
func (w *Window) handlePointer() {
	inside := rl.IsCursorOnScreen()
	if !inside {
		if w.mouseInside {
			w.g.PointerLeave()
		}
		w.mouseInside = false
		return
	}
	w.mouseInside = true

	pos := rl.GetMousePosition()
	if w.panel.Contains(pos.X, pos.Y) {
		return
	}

	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		w.g.PointerDown(pos.X, pos.Y)
	}
	if d := rl.GetMouseDelta(); d.X != 0 || d.Y != 0 {
		w.g.PointerMove(pos.X, pos.Y)
	}
	if rl.IsMouseButtonReleased(rl.MouseButtonLeft) {
		w.g.PointerUp()
	}
}

// handleResize checks for window resize and propagates new dimensions.
func (w *Window) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	width := float32(rl.GetScreenWidth())
	height := float32(rl.GetScreenHeight())
	if width == w.width && height == w.height {
		return
	}
	// Minimized windows report a zero area; the game keeps its last scale.
	if !w.g.Resize(width, height) {
		return
	}
	w.width = width
	w.height = height
	w.panel.SetPosition(int32(width)-250, 10)
}
