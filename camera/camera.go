// Package camera provides the perspective camera used to draw the fluid and to
// project the pointer into domain space.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/beads/config"
)

// Camera looks at the origin from a fixed distance on +z.
// The field of view is fitted so a domain of half-height Height stays visible
// for any aspect ratio.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	Near, Far float32
	Height    float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	Aspect float32
	Fov    float32

	view              mgl32.Mat4
	projection        mgl32.Mat4
	invViewProjection mgl32.Mat4
}

// New creates a camera for the given viewport.
func New(cfg config.CameraConfig, viewportW, viewportH float32) *Camera {
	c := &Camera{
		Position:  mgl32.Vec3{0, 0, float32(cfg.Distance)},
		Up:        mgl32.Vec3{0, 1, 0},
		Near:      float32(cfg.Near),
		Far:       float32(cfg.Far),
		Height:    float32(cfg.Height),
		ViewportW: 1,
		ViewportH: 1,
	}
	c.view = mgl32.LookAtV(c.Position, c.Target, c.Up)
	if !c.Resize(viewportW, viewportH) {
		c.updateProjection()
	}
	return c
}

// Resize updates the viewport and projection.
// A zero-area viewport is ignored and reported as false.
func (c *Camera) Resize(w, h float32) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	c.ViewportW = w
	c.ViewportH = h
	c.updateProjection()
	return true
}

func (c *Camera) updateProjection() {
	c.Aspect = c.ViewportW / c.ViewportH
	distance := c.Position.Sub(c.Target).Len()

	if c.Aspect > 1 {
		c.Fov = 2 * float32(math.Atan(float64(c.Height/distance)))
	} else {
		c.Fov = 2 * float32(math.Atan(float64(c.Height/c.Aspect/distance)))
	}

	c.projection = mgl32.Perspective(c.Fov, c.Aspect, c.Near, c.Far)
	c.invViewProjection = c.projection.Mul4(c.view).Inv()
}

// View returns the view matrix.
func (c *Camera) View() mgl32.Mat4 {
	return c.view
}

// Projection returns the projection matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	return c.projection
}

// FovY returns the vertical field of view in degrees.
func (c *Camera) FovY() float32 {
	return mgl32.RadToDeg(c.Fov)
}

// ScreenToNDC maps a viewport pixel position to normalized device coordinates.
func (c *Camera) ScreenToNDC(sx, sy float32) (x, y float32) {
	x = sx/c.ViewportW*2 - 1
	y = (1-sy/c.ViewportH)*2 - 1
	return x, y
}

// NDCToWorld unprojects a point in normalized device coordinates.
func (c *Camera) NDCToWorld(x, y, z float32) mgl32.Vec3 {
	p := c.invViewProjection.Mul4x1(mgl32.Vec4{x, y, z, 1})
	if p[3] != 0 {
		p = p.Mul(1 / p[3])
	}
	return p.Vec3()
}

// ScreenToSphere casts a ray from the camera through a viewport pixel and
// returns the nearest intersection with a sphere at the origin.
// It reports false when the ray misses the sphere.
func (c *Camera) ScreenToSphere(sx, sy, radius float32) (mgl32.Vec3, bool) {
	x, y := c.ScreenToNDC(sx, sy)
	p := c.NDCToWorld(x, y, 0)
	u := p.Sub(c.Position)
	if u.Len() == 0 {
		return mgl32.Vec3{}, false
	}
	u = u.Normalize()

	o := c.Position
	b := 2 * u.Dot(o)
	cc := o.Dot(o) - radius*radius
	disc := b*b - 4*cc
	if disc < 0 {
		return mgl32.Vec3{}, false
	}

	sd := float32(math.Sqrt(float64(disc)))
	t := (-b - sd) / 2
	if t < 0 {
		t = (-b + sd) / 2
	}
	if t < 0 {
		return mgl32.Vec3{}, false
	}
	return o.Add(u.Mul(t)), true
}

// DomainScale returns the transform that maps the visible domain into the
// unit cell space for a viewport, preserving its aspect ratio.
// It reports false for a zero-area viewport.
func DomainScale(w, h float32) (mgl32.Vec3, bool) {
	if w <= 0 || h <= 0 {
		return mgl32.Vec3{}, false
	}
	aspect := w / h
	if aspect >= 1 {
		return mgl32.Vec3{1 / aspect, 1, 1}, true
	}
	return mgl32.Vec3{1, aspect, 1}, true
}
