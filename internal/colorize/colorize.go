// Package colorize turns a compute.Data result into a displayed pixel
// (spec §4.10): a 4096-entry palette LUT blended in a perceptually uniform
// color space, a cubic-spline transfer curve warping the smooth iteration
// count before it samples the LUT, and Blinn-Phong slope shading driven by
// an 8-neighbor gradient of the iteration field for a pseudo-3D relief
// look, attenuated by a falloff curve so shading fades out toward the
// open field. Escaped pixels get this full treatment; interior
// (non-escaped) pixels render as one fixed, unshaded color.
package colorize

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/whalelogic/deepbrot/internal/compute"
)

// LUTSize is the palette resolution (spec §4.10).
const LUTSize = 4096

// Stop is one control point of a palette, in position order.
type Stop struct {
	Position float64
	Color    colorful.Color
}

// Palette is a LUTSize-entry precomputed lookup table, built once per
// render and sampled per pixel.
type Palette struct {
	lut [LUTSize]colorful.Color
}

// BuildPalette blends stops in Lab space (go-colorful's BlendLab) rather
// than sRGB — sRGB-space linear interpolation through a multi-stop
// gradient produces muddy, uneven-brightness bands that Lab blending
// avoids, since Lab distance tracks perceived difference.
func BuildPalette(stops []Stop) *Palette {
	if len(stops) == 0 {
		stops = []Stop{{0, colorful.Color{R: 0, G: 0, B: 0}}, {1, colorful.Color{R: 1, G: 1, B: 1}}}
	}
	sorted := append([]Stop(nil), stops...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Position < sorted[j-1].Position; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	p := &Palette{}
	for i := 0; i < LUTSize; i++ {
		t := float64(i) / float64(LUTSize-1)
		a, b, segT := bracket(sorted, t)
		p.lut[i] = a.Color.BlendLab(b.Color, segT)
	}
	return p
}

func bracket(stops []Stop, t float64) (a, b Stop, segT float64) {
	if t <= stops[0].Position {
		return stops[0], stops[0], 0
	}
	last := stops[len(stops)-1]
	if t >= last.Position {
		return last, last, 0
	}
	for i := 0; i < len(stops)-1; i++ {
		if t >= stops[i].Position && t <= stops[i+1].Position {
			span := stops[i+1].Position - stops[i].Position
			if span <= 0 {
				return stops[i], stops[i], 0
			}
			return stops[i], stops[i+1], (t - stops[i].Position) / span
		}
	}
	return last, last, 0
}

// Sample returns the LUT entry at or just below continuous position t in
// [0, 1]; the index is truncated, not rounded.
func (p *Palette) Sample(t float64) colorful.Color {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	idx := int(t * float64(LUTSize-1))
	return p.lut[idx]
}

// Curve is a cubic-spline transfer curve over [0, 1], evaluated with
// Catmull-Rom through evenly spaced control points, with its first and
// last points clamped to 0 and 1 so Eval(0)==0 and Eval(1)==1 regardless
// of what was passed in — a transfer curve that doesn't preserve the
// range endpoints would shift black/white points the user didn't ask to
// move.
type Curve struct {
	points []float64
}

// NewCurve builds a Curve from evenly spaced control-point values,
// clamping the endpoints to 0 and 1.
func NewCurve(points []float64) Curve {
	if len(points) < 2 {
		return Curve{points: []float64{0, 1}}
	}
	p := append([]float64(nil), points...)
	p[0] = 0
	p[len(p)-1] = 1
	return Curve{points: p}
}

// IdentityCurve is the no-op transfer curve.
func IdentityCurve() Curve { return NewCurve([]float64{0, 1}) }

func (c Curve) at(i int) float64 {
	if i < 0 {
		return c.points[0]
	}
	if i >= len(c.points) {
		return c.points[len(c.points)-1]
	}
	return c.points[i]
}

// Eval warps t through the spline.
func (c Curve) Eval(t float64) float64 {
	n := len(c.points)
	if t <= 0 {
		return c.points[0]
	}
	if t >= 1 {
		return c.points[n-1]
	}
	if n == 2 {
		return c.points[0] + t*(c.points[1]-c.points[0])
	}
	scaled := t * float64(n-1)
	i := int(scaled)
	if i >= n-1 {
		i = n - 2
	}
	localT := scaled - float64(i)
	return catmullRom(c.at(i-1), c.at(i), c.at(i+1), c.at(i+2), localT)
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

// Lighting holds the Blinn-Phong parameters for slope shading.
type Lighting struct {
	Azimuth, Elevation         float64 // radians
	Ambient, Diffuse, Specular float64
	Shininess                  float64
	// Strength blends the shaded result back toward the flat palette
	// color; 0 disables shading entirely, 1 applies it fully.
	Strength float64
}

// DefaultLighting matches the teacher's default render look: light toward
// +x and +y of the height field (azimuth π/4; right and toward higher rows,
// so lower-right in the output image), moderate ambient fill, soft
// specular highlight.
func DefaultLighting() Lighting {
	return Lighting{
		Azimuth: math.Pi / 4, Elevation: math.Pi / 3,
		Ambient: 0.3, Diffuse: 0.7, Specular: 0.3,
		Shininess: 16, Strength: 0.6,
	}
}

func (l Lighting) lightDir() (x, y, z float64) {
	return math.Cos(l.Elevation) * math.Cos(l.Azimuth),
		math.Cos(l.Elevation) * math.Sin(l.Azimuth),
		math.Sin(l.Elevation)
}

// Shade returns the Blinn-Phong intensity for a surface normal, with the
// view direction fixed at (0, 0, 1) (orthographic, looking straight down
// the iteration-count height field).
func (l Lighting) Shade(nx, ny, nz float64) float64 {
	lx, ly, lz := l.lightDir()
	diff := nx*lx + ny*ly + nz*lz
	if diff < 0 {
		diff = 0
	}
	hx, hy, hz := lx, ly, lz+1
	hn := math.Sqrt(hx*hx + hy*hy + hz*hz)
	if hn > 0 {
		hx, hy, hz = hx/hn, hy/hn, hz/hn
	}
	spec := nx*hx + ny*hy + nz*hz
	if spec < 0 {
		spec = 0
	}
	spec = math.Pow(spec, l.Shininess)
	return l.Ambient + l.Diffuse*diff + l.Specular*spec
}

// HeightField is the per-pixel smooth-iteration field a render produces,
// used as the height map for slope-shading normals.
type HeightField struct {
	Width, Height int
	Values        []float64
}

func (hf HeightField) at(x, y int) float64 {
	if x < 0 {
		x = 0
	}
	if x >= hf.Width {
		x = hf.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= hf.Height {
		y = hf.Height - 1
	}
	return hf.Values[y*hf.Width+x]
}

// Normal computes a pseudo-normal at (x, y) via an 8-neighbor central
// difference of the height field (spec §4.10), the same construction a
// bump map uses: the gradient becomes the tangent-plane tilt.
func (hf HeightField) Normal(x, y int) (nx, ny, nz float64) {
	left := hf.at(x-1, y)
	right := hf.at(x+1, y)
	up := hf.at(x, y-1)
	down := hf.at(x, y+1)
	ul := hf.at(x-1, y-1)
	ur := hf.at(x+1, y-1)
	dl := hf.at(x-1, y+1)
	dr := hf.at(x+1, y+1)

	dx := (right - left) + 0.5*((ur-ul)+(dr-dl))
	dy := (down - up) + 0.5*((dl-ul)+(dr-ur))

	nx, ny, nz = -dx, -dy, 4
	norm := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if norm == 0 {
		return 0, 0, 1
	}
	return nx / norm, ny / norm, nz / norm
}

// InteriorColor is the fixed color every non-escaped pixel renders as
// (spec §4.10: "Interior pixels render as a fixed color" / "Interior
// pixels receive no shading") — a flat near-black, never warped by
// iteration depth.
var InteriorColor = color.RGBA{0x05, 0x05, 0x08, 0xff}

// Falloff is the shading attenuation curve (spec §4.10), evaluated at
// t = 1-normalized_iter: 1 at the set's boundary (normalized_iter near 1,
// t near 0) where slope shading should show at full strength, fading to
// 0 out in the open field (normalized_iter near 0, t near 1) where the
// height field is nearly flat and shading would just add noise.
func Falloff(t float64) float64 {
	t = clamp01(t)
	level := 1 - t
	return level * level
}

// cyclePosition repeats the palette across the iteration range (spec
// §4.10): raw is multiplied by cycleCount, then wrapped back into [0,1]
// so the LUT loops instead of saturating at its last color once the
// iteration count exceeds one cycle's worth.
func cyclePosition(raw float64, cycleCount float64) float64 {
	if cycleCount <= 0 {
		cycleCount = 1
	}
	scaled := raw * cycleCount
	_, frac := math.Modf(scaled)
	if frac < 0 {
		frac++
	}
	return frac
}

// Colorize turns one pixel's compute.Data into a final RGBA color. normal
// is the slope-shading normal at this pixel (from HeightField.Normal),
// ignored when lighting is nil. cycleCount repeats the palette across the
// iteration range; 1 means no repeat.
func Colorize(data compute.Data, pal *Palette, curve Curve, lighting *Lighting, cycleCount float64, nx, ny, nz float64) color.RGBA {
	if !data.Escaped {
		return InteriorColor
	}

	raw := 0.0
	if data.MaxIterations > 0 {
		raw = cyclePosition(data.SmoothIteration()/float64(data.MaxIterations), cycleCount)
	}
	warped := curve.Eval(clamp01(raw))
	base := pal.Sample(warped)

	if lighting != nil && lighting.Strength > 0 {
		shade := lighting.Shade(nx, ny, nz)
		shaded := colorful.Color{
			R: base.R * shade,
			G: base.G * shade,
			B: base.B * shade,
		}.Clamped()
		blend := lighting.Strength * Falloff(1-warped)
		base = base.BlendRgb(shaded, blend)
	}

	r, g, b := base.Clamped().RGB255()
	return color.RGBA{r, g, b, 0xff}
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
