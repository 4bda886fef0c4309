package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/beads/config"
)

func testCamera() *Camera {
	return New(config.CameraConfig{Distance: 6, Height: 1.3, Near: 0.1, Far: 6}, 1280, 720)
}

func approxVec(a, b mgl32.Vec3, tol float32) bool {
	return a.Sub(b).Len() <= tol
}

func TestScreenCenterHitsFrontOfSphere(t *testing.T) {
	c := testCamera()
	p, ok := c.ScreenToSphere(640, 360, 1)
	if !ok {
		t.Fatal("center ray missed the sphere")
	}
	if !approxVec(p, mgl32.Vec3{0, 0, 1}, 1e-3) {
		t.Errorf("hit = %v, want (0,0,1)", p)
	}
}

func TestScreenCornerMisses(t *testing.T) {
	c := testCamera()
	if _, ok := c.ScreenToSphere(0, 0, 1); ok {
		t.Error("corner ray should miss the unit sphere")
	}
}

func TestScreenToSphereIsOnSurface(t *testing.T) {
	c := testCamera()
	for _, sx := range []float32{560, 640, 700} {
		for _, sy := range []float32{300, 360, 420} {
			p, ok := c.ScreenToSphere(sx, sy, 1)
			if !ok {
				t.Fatalf("(%v,%v) missed", sx, sy)
			}
			if math.Abs(float64(p.Len())-1) > 1e-3 {
				t.Errorf("(%v,%v) hit %v not on the sphere", sx, sy, p)
			}
			if p[2] <= 0 {
				t.Errorf("(%v,%v) hit the back of the sphere: %v", sx, sy, p)
			}
		}
	}
}

func TestScreenYAxisPointsUp(t *testing.T) {
	c := testCamera()
	p, ok := c.ScreenToSphere(640, 300, 1)
	if !ok {
		t.Fatal("missed")
	}
	if p[1] <= 0 {
		t.Errorf("pixel above center projected to y = %v, want positive", p[1])
	}
}

func TestResizeIgnoresZeroArea(t *testing.T) {
	c := testCamera()
	proj := c.Projection()

	if c.Resize(0, 720) {
		t.Error("zero-width resize reported success")
	}
	if c.Projection() != proj || c.ViewportW != 1280 {
		t.Error("zero-area resize changed the camera")
	}

	if !c.Resize(720, 1280) {
		t.Fatal("portrait resize failed")
	}
	if c.Aspect >= 1 {
		t.Errorf("aspect = %v, want portrait", c.Aspect)
	}
	// Portrait widens the vertical fov so the domain width stays visible.
	want := 2 * math.Atan(1.3/(720.0/1280.0)/6)
	if math.Abs(float64(c.Fov)-want) > 1e-4 {
		t.Errorf("fov = %v, want %v", c.Fov, want)
	}
}

func TestDomainScale(t *testing.T) {
	tests := []struct {
		w, h   float32
		want   mgl32.Vec3
		wantOK bool
	}{
		{100, 100, mgl32.Vec3{1, 1, 1}, true},
		{200, 100, mgl32.Vec3{0.5, 1, 1}, true},
		{100, 400, mgl32.Vec3{1, 0.25, 1}, true},
		{0, 100, mgl32.Vec3{}, false},
	}

	for _, tt := range tests {
		got, ok := DomainScale(tt.w, tt.h)
		if ok != tt.wantOK || !approxVec(got, tt.want, 1e-6) {
			t.Errorf("DomainScale(%v,%v) = (%v,%v), want (%v,%v)", tt.w, tt.h, got, ok, tt.want, tt.wantOK)
		}
	}
}
