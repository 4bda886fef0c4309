// Package renderer draws the particle buffers with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/beads/camera"
	"github.com/pthm-cable/beads/particles"
)

// BeadRenderer draws every particle as a small sphere tinted by speed.
type BeadRenderer struct {
	Radius   float32
	Rings    int32
	Slices   int32
	MaxSpeed float32 // speed mapped to the hottest color

	ShowDomain  bool
	DomainColor rl.Color
}

// NewBeadRenderer creates a renderer with the given bead radius.
func NewBeadRenderer(radius float32) *BeadRenderer {
	return &BeadRenderer{
		Radius:      radius,
		Rings:       6,
		Slices:      8,
		MaxSpeed:    2,
		ShowDomain:  true,
		DomainColor: rl.Color{R: 60, G: 70, B: 80, A: 255},
	}
}

// Camera3D converts the simulation camera into a raylib camera.
func Camera3D(c *camera.Camera) rl.Camera3D {
	return rl.Camera3D{
		Position:   rl.NewVector3(c.Position[0], c.Position[1], c.Position[2]),
		Target:     rl.NewVector3(c.Target[0], c.Target[1], c.Target[2]),
		Up:         rl.NewVector3(c.Up[0], c.Up[1], c.Up[2]),
		Fovy:       c.FovY(),
		Projection: rl.CameraPerspective,
	}
}

// Draw renders the view. It only reads the buffers of the completed frame.
func (r *BeadRenderer) Draw(c *camera.Camera, v particles.View) {
	rl.BeginMode3D(Camera3D(c))
	if r.ShowDomain {
		rl.DrawSphereWires(rl.NewVector3(0, 0, 0), 1, 12, 16, r.DomainColor)
	}
	for i := 0; i < v.Len(); i++ {
		p := v.Position(i)
		color := SpeedColor(v.Velocity(i).Len(), r.MaxSpeed)
		rl.DrawSphereEx(rl.NewVector3(p[0], p[1], p[2]), r.Radius, r.Rings, r.Slices, color)
	}
	rl.EndMode3D()
}

// SpeedColor maps speed onto a hue ramp from blue (still) to red (maxSpeed or above).
func SpeedColor(speed, maxSpeed float32) rl.Color {
	t := float32(0)
	if maxSpeed > 0 {
		t = speed / maxSpeed
	}
	if t > 1 || t != t {
		t = 1
	}
	if t < 0 {
		t = 0
	}
	return rl.ColorFromHSV(220*(1-t), 0.75, 0.6+0.4*t)
}

// DrawPointer marks the projected pointer position.
func DrawPointer(c *camera.Camera, s camera.Sample, radius float32) {
	if !s.Active {
		return
	}
	rl.BeginMode3D(Camera3D(c))
	rl.DrawSphereWires(rl.NewVector3(s.Position[0], s.Position[1], s.Position[2]), radius, 6, 8, rl.Fade(rl.SkyBlue, 0.4))
	rl.EndMode3D()
}
