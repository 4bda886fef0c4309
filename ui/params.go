package ui

import (
	"fmt"
	"log/slog"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/beads/fluid"
)

// Slider describes one adjustable parameter.
type Slider struct {
	Label    string
	Min, Max float32
	Integer  bool
	Get      func() float32
	Set      func(v float32) error
}

// Apply clamps v to the slider range and stores it.
func (s Slider) Apply(v float32) error {
	v = float32(math.Max(float64(s.Min), math.Min(float64(s.Max), float64(v))))
	if s.Integer {
		v = float32(math.Round(float64(v)))
	}
	return s.Set(v)
}

// ParamSliders returns the sliders for the live simulation and pointer parameters.
func ParamSliders(p *fluid.Params, ptr *fluid.PointerParams) []Slider {
	set := func(f func(float64)) func(float32) error {
		return func(v float32) error { f(float64(v)); return nil }
	}
	return []Slider{
		{Label: "H", Min: float32(fluid.MinH), Max: 2,
			Get: func() float32 { return float32(p.H()) },
			Set: func(v float32) error { return p.SetH(float64(v)) }},
		{Label: "MASS", Min: 0.01, Max: 5,
			Get: func() float32 { return float32(p.Mass()) }, Set: set(p.SetMass)},
		{Label: "REST_DENS", Min: 0.01, Max: 10,
			Get: func() float32 { return float32(p.RestDensity()) }, Set: set(p.SetRestDensity)},
		{Label: "GAS_CONST", Min: 1, Max: 1000,
			Get: func() float32 { return float32(p.GasConst()) }, Set: set(p.SetGasConst)},
		{Label: "VISC", Min: 0, Max: 50,
			Get: func() float32 { return float32(p.Viscosity()) }, Set: set(p.SetViscosity)},
		{Label: "STEPS", Min: 0, Max: 10, Integer: true,
			Get: func() float32 { return float32(p.Steps()) },
			Set: func(v float32) error { return p.SetSteps(int(v)) }},
		{Label: "RADIUS", Min: 0.05, Max: 2,
			Get: func() float32 { return ptr.Radius },
			Set: func(v float32) error { ptr.Set(v, ptr.Strength); return nil }},
		{Label: "STRENGTH", Min: 0, Max: 50,
			Get: func() float32 { return ptr.Strength },
			Set: func(v float32) error { ptr.Set(ptr.Radius, v); return nil }},
	}
}

// ParamPanel draws raygui sliders for the live parameters.
type ParamPanel struct {
	renderer *Renderer
	sliders  []Slider
	x, y     int32
	width    int32
	visible  bool
}

// NewParamPanel creates a panel for the given sliders.
func NewParamPanel(sliders []Slider, x, y, width int32) *ParamPanel {
	return &ParamPanel{
		renderer: NewRenderer(),
		sliders:  sliders,
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// Toggle switches panel visibility.
func (p *ParamPanel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// SetPosition updates the panel position.
func (p *ParamPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Contains reports whether a screen point is over the visible panel, so
// pointer input there is not forwarded to the fluid.
func (p *ParamPanel) Contains(x, y float32) bool {
	if !p.visible {
		return false
	}
	return x >= float32(p.x) && x < float32(p.x+p.width) &&
		y >= float32(p.y) && y < float32(p.y+p.height())
}

func (p *ParamPanel) height() int32 {
	t := p.renderer.Theme
	return t.Padding*2 + t.LineHeight + 2 + int32(len(p.sliders))*(t.LineHeight+t.SliderHeight)
}

// Draw renders the panel and applies slider changes.
func (p *ParamPanel) Draw() {
	if !p.visible {
		return
	}
	r := p.renderer
	t := r.Theme

	r.DrawPanel(p.x, p.y, p.width, p.height())
	x := p.x + t.Padding
	y := r.DrawSectionHeader(x, p.y+t.Padding, "Parameters")
	sliderW := float32(p.width - t.Padding*2 - 50)

	for _, s := range p.sliders {
		cur := s.Get()
		format := "%.3f"
		if s.Integer {
			format = "%.0f"
		}
		rl.DrawText(s.Label, x, y, t.FontSize, t.LabelColor)
		y += t.LineHeight

		next := gui.SliderBar(
			rl.Rectangle{X: float32(x), Y: float32(y), Width: sliderW, Height: float32(t.SliderHeight)},
			"", "",
			cur, s.Min, s.Max,
		)
		rl.DrawText(fmt.Sprintf(format, cur), x+int32(sliderW)+6, y, t.FontSize, t.ValueColor)
		y += t.SliderHeight

		if next != cur {
			if err := s.Apply(next); err != nil {
				slog.Warn("parameter rejected", "param", s.Label, "value", next, "error", err)
			}
		}
	}
}
