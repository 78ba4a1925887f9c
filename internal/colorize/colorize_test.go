package colorize

import (
	"math"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/whalelogic/deepbrot/internal/compute"
)

func TestBuildPaletteEndpointsMatchStops(t *testing.T) {
	stops := []Stop{
		{0, colorful.Color{R: 0, G: 0, B: 0}},
		{1, colorful.Color{R: 1, G: 1, B: 1}},
	}
	pal := BuildPalette(stops)
	black := pal.Sample(0)
	white := pal.Sample(1)
	if black.R > 0.01 || black.G > 0.01 || black.B > 0.01 {
		t.Errorf("Sample(0) = %+v, want near black", black)
	}
	if white.R < 0.99 || white.G < 0.99 || white.B < 0.99 {
		t.Errorf("Sample(1) = %+v, want near white", white)
	}
}

func TestPaletteSampleClampsOutOfRange(t *testing.T) {
	pal := BuildPalette(nil)
	lo := pal.Sample(-5)
	hi := pal.Sample(5)
	if lo != pal.Sample(0) || hi != pal.Sample(1) {
		t.Error("Sample should clamp t to [0, 1]")
	}
}

func TestIdentityCurveIsNoOp(t *testing.T) {
	c := IdentityCurve()
	for _, t64 := range []float64{0, 0.25, 0.5, 0.75, 1} {
		got := c.Eval(t64)
		if math.Abs(got-t64) > 1e-9 {
			t.Errorf("IdentityCurve.Eval(%v) = %v, want %v", t64, got, t64)
		}
	}
}

func TestCurveEndpointsClamped(t *testing.T) {
	c := NewCurve([]float64{0.5, 0.1, 0.9, 0.5})
	if c.Eval(0) != 0 {
		t.Errorf("Eval(0) = %v, want 0 regardless of input control point", c.Eval(0))
	}
	if c.Eval(1) != 1 {
		t.Errorf("Eval(1) = %v, want 1 regardless of input control point", c.Eval(1))
	}
}

func TestLightingShadeBounds(t *testing.T) {
	l := DefaultLighting()
	facingLight := l.Shade(0, 0, 1)
	awayFromLight := l.Shade(0, 0, -1)
	if facingLight <= awayFromLight {
		t.Errorf("a surface facing up should shade brighter than one facing away: %v vs %v", facingLight, awayFromLight)
	}
}

func TestHeightFieldNormalFlatSurface(t *testing.T) {
	hf := HeightField{Width: 3, Height: 3, Values: make([]float64, 9)}
	nx, ny, nz := hf.Normal(1, 1)
	if math.Abs(nx) > 1e-9 || math.Abs(ny) > 1e-9 || math.Abs(nz-1) > 1e-9 {
		t.Errorf("flat height field should have normal (0,0,1), got (%v,%v,%v)", nx, ny, nz)
	}
}

func TestFalloffIsOneAtBoundaryZeroInField(t *testing.T) {
	atBoundary := Falloff(0) // t = 1-normalized_iter = 0 at the boundary
	inField := Falloff(1)    // t = 1 far out in the open field
	if atBoundary != 1 {
		t.Errorf("Falloff(0) = %v, want 1", atBoundary)
	}
	if inField != 0 {
		t.Errorf("Falloff(1) = %v, want 0", inField)
	}
}

func TestFalloffClampsOutOfRange(t *testing.T) {
	if Falloff(-5) != Falloff(0) || Falloff(5) != Falloff(1) {
		t.Error("Falloff should clamp t to [0, 1]")
	}
}

func TestColorizeInteriorIsFixedColor(t *testing.T) {
	pal := BuildPalette(nil)
	curve := IdentityCurve()
	shallow := Colorize(compute.Data{Escaped: false, Iterations: 10, MaxIterations: 1000}, pal, curve, nil, 1, 0, 0, 1)
	deep := Colorize(compute.Data{Escaped: false, Iterations: 990, MaxIterations: 1000}, pal, curve, nil, 1, 0, 0, 1)
	if shallow != InteriorColor || deep != InteriorColor {
		t.Errorf("interior pixels must all render as the fixed InteriorColor regardless of iteration depth: shallow=%+v deep=%+v want=%+v", shallow, deep, InteriorColor)
	}
}

func TestColorizeEscapedUsesFullRange(t *testing.T) {
	pal := BuildPalette([]Stop{
		{0, colorful.Color{R: 0, G: 0, B: 0}},
		{1, colorful.Color{R: 1, G: 1, B: 1}},
	})
	curve := IdentityCurve()
	c := Colorize(compute.Data{Escaped: true, Iterations: 999, MaxIterations: 1000, SmoothFraction: 0}, pal, curve, nil, 1, 0, 0, 1)
	if c.R < 200 {
		t.Errorf("a pixel that escaped near max_iter should sample near the bright end, got %+v", c)
	}
}

func TestColorizeCycleCountWrapsPalette(t *testing.T) {
	pal := BuildPalette([]Stop{
		{0, colorful.Color{R: 0, G: 0, B: 0}},
		{1, colorful.Color{R: 1, G: 1, B: 1}},
	})
	curve := IdentityCurve()
	// raw = 0.5 with cycleCount=1 samples the palette midpoint; with
	// cycleCount=2 it wraps back to the start of a second cycle (raw*2=1.0
	// -> frac 0), so the two should land at opposite ends of the LUT.
	data := compute.Data{Escaped: true, Iterations: 500, MaxIterations: 1000}
	oneCycle := Colorize(data, pal, curve, nil, 1, 0, 0, 1)
	twoCycles := Colorize(data, pal, curve, nil, 2, 0, 0, 1)
	if oneCycle.R < 100 {
		t.Errorf("cycleCount=1 at raw=0.5 should sample mid-palette, got %+v", oneCycle)
	}
	if twoCycles.R > 50 {
		t.Errorf("cycleCount=2 at raw=0.5 should wrap to the start of the LUT, got %+v", twoCycles)
	}
}

func TestColorizeShadingAttenuatesByFalloff(t *testing.T) {
	pal := BuildPalette([]Stop{
		{0, colorful.Color{R: 0, G: 0, B: 0}},
		{1, colorful.Color{R: 1, G: 1, B: 1}},
	})
	curve := IdentityCurve()
	lighting := DefaultLighting()
	lighting.Strength = 1

	// A pixel near max_iter (near the boundary) should pick up more
	// slope-shading influence than one that escaped almost immediately
	// (deep in the open field), because Falloff(1-warped) is larger near
	// the boundary.
	boundary := compute.Data{Escaped: true, Iterations: 999, MaxIterations: 1000}
	field := compute.Data{Escaped: true, Iterations: 1, MaxIterations: 1000}
	// Use a tilted normal so shading actually differs from the base color.
	flat := Colorize(boundary, pal, curve, &lighting, 1, 0, 0, 1)
	tiltedBoundary := Colorize(boundary, pal, curve, &lighting, 1, 0.8, 0, 0.6)
	tiltedField := Colorize(field, pal, curve, &lighting, 1, 0.8, 0, 0.6)
	if tiltedBoundary == flat {
		t.Error("a tilted normal near the boundary should change the shaded color")
	}
	baseline := Colorize(field, pal, curve, nil, 1, 0.8, 0, 0.6)
	if tiltedField != baseline {
		t.Errorf("deep in the field, falloff should attenuate shading to ~0: got %+v, base-only %+v", tiltedField, baseline)
	}
}
