package camera

import "github.com/go-gl/mathgl/mgl32"

// Sample is the projected pointer for one frame.
type Sample struct {
	Position mgl32.Vec3 // Domain-space position on the sphere
	Delta    mgl32.Vec3 // Movement since the previous frame
	Active   bool       // False when the pointer could not be projected
}

// Pointer smooths raw pointer events and projects them onto the domain sphere.
type Pointer struct {
	smoothing float32
	touch     bool

	target  mgl32.Vec2
	lerp    mgl32.Vec2
	hasPos  bool
	pressed bool

	arc        mgl32.Vec3
	arcPrev    mgl32.Vec3
	leftSphere bool
}

// NewPointer creates a pointer. smoothing is the lerp divisor per frame; in
// touch mode the pointer only acts while pressed.
func NewPointer(smoothing float32, touch bool) *Pointer {
	if smoothing < 1 {
		smoothing = 1
	}
	return &Pointer{smoothing: smoothing, touch: touch, leftSphere: true}
}

// Down handles a press. The smoothed position jumps to the press location.
func (p *Pointer) Down(x, y float32) {
	p.pressed = true
	p.target = mgl32.Vec2{x, y}
	p.lerp = p.target
	p.hasPos = true
}

// Move handles pointer motion.
func (p *Pointer) Move(x, y float32) {
	p.target = mgl32.Vec2{x, y}
	if !p.hasPos {
		p.lerp = p.target
		p.hasPos = true
	}
}

// Up handles a release.
func (p *Pointer) Up() {
	p.pressed = false
	p.leftSphere = true
}

// Leave handles the pointer leaving the viewport.
func (p *Pointer) Leave() {
	p.pressed = false
	p.hasPos = false
	p.leftSphere = true
}

// Pressed reports whether the pointer is down.
func (p *Pointer) Pressed() bool {
	return p.pressed
}

// Smoothed returns the smoothed viewport position.
func (p *Pointer) Smoothed() mgl32.Vec2 {
	return p.lerp
}

// Update advances smoothing by one frame and projects the result onto a
// sphere of the given radius.
func (p *Pointer) Update(c *Camera, radius float32) Sample {
	p.lerp = p.lerp.Add(p.target.Sub(p.lerp).Mul(1 / p.smoothing))

	if !p.hasPos || (p.touch && !p.pressed) {
		p.leftSphere = true
		return Sample{}
	}

	arc, ok := c.ScreenToSphere(p.lerp[0], p.lerp[1], radius)
	if !ok {
		p.leftSphere = true
		return Sample{}
	}

	p.arc = arc
	if p.leftSphere {
		// Re-entering the sphere must not produce a jump.
		p.arcPrev = p.arc
		p.leftSphere = false
	}
	delta := p.arc.Sub(p.arcPrev)
	p.arcPrev = p.arc

	return Sample{Position: p.arc, Delta: delta, Active: true}
}
