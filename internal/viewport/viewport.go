// Package viewport holds the precision policy (spec §4.1): given a zoom
// level and canvas width, how many bits of precision the reference point
// needs, and how many iterations a pixel at that zoom is allowed to take.
package viewport

import (
	"math"

	"github.com/whalelogic/deepbrot/internal/bigfloat"
	"github.com/whalelogic/deepbrot/internal/errs"
)

// DefaultNaturalWidth and DefaultNaturalHeight match the teacher CLI's
// default bounds (xmin -2.2, xmax 1.0, ymin -1.6, ymax 1.6): a 3.2x3.2
// window framing the whole set at zoom 1.
const (
	DefaultNaturalWidth  = 3.2
	DefaultNaturalHeight = 3.2
)

// MinIterations, MaxIterationsDefault bound the formula in spec §4.1;
// MaxIterationsDefault is lifted when AllowUnbounded is set for a manual
// deep-zoom session.
const (
	MinIterations        = 50
	MaxIterationsDefault = 10000
	MaxIterationsHard    = 2_000_000
)

// Rect is an axis-aligned rectangle over BigFloat coordinates — the
// viewport's natural (zoom-1) bounds.
type Rect struct {
	XMin, XMax, YMin, YMax bigfloat.BigFloat
}

// Width and Height return the rectangle's extents.
func (r Rect) Width() bigfloat.BigFloat  { return r.XMax.Sub(r.XMin) }
func (r Rect) Height() bigfloat.BigFloat { return r.YMax.Sub(r.YMin) }

// DefaultRect returns the teacher's default framing at the given precision.
func DefaultRect(prec uint32) Rect {
	return Rect{
		XMin: bigfloat.WithPrecision(-2.2, prec),
		XMax: bigfloat.WithPrecision(1.0, prec),
		YMin: bigfloat.WithPrecision(-1.6, prec),
		YMax: bigfloat.WithPrecision(1.6, prec),
	}
}

// Viewport is the user-controlled window onto the complex plane.
type Viewport struct {
	Center                    bigfloat.Complex
	Zoom                      float64
	NaturalBounds             Rect
	CanvasWidth, CanvasHeight uint32
	// AllowUnbounded lifts MaxIterationsDefault for a manual deep-zoom
	// session, per spec §4.1.
	AllowUnbounded bool
}

// RequiredPrecisionBits implements spec §4.1: precision = ceil(-log2(δ)) +
// ceil(log2(max_iter)) + 32, where δ is the per-pixel coordinate spacing.
func RequiredPrecisionBits(zoom, naturalWidth float64, canvasWidth uint32, maxIter int) uint32 {
	if zoom < 1 {
		zoom = 1
	}
	if canvasWidth == 0 {
		canvasWidth = 1
	}
	viewportWidth := naturalWidth / zoom
	delta := viewportWidth / float64(canvasWidth)
	bits := math.Ceil(-math.Log2(delta)) + math.Ceil(math.Log2(float64(maxIter))) + 32
	if bits < 32 {
		bits = 32
	}
	return uint32(bits)
}

// MaxIterations implements spec §4.1's clamp(50 + 100*(log10 z)^1.5, 50, 10000).
func MaxIterations(zoom float64, allowUnbounded bool) int {
	if zoom < 1 {
		zoom = 1
	}
	logz := math.Log10(zoom)
	if logz < 0 {
		logz = 0
	}
	n := MinIterations + 100*math.Pow(logz, 1.5)
	upper := float64(MaxIterationsDefault)
	if allowUnbounded {
		upper = float64(MaxIterationsHard)
	}
	if n < MinIterations {
		n = MinIterations
	}
	if n > upper {
		n = upper
	}
	return int(n)
}

// RequiredPrecisionBits is a convenience method deriving max_iter itself.
func (v Viewport) RequiredPrecisionBits() (uint32, int) {
	maxIter := MaxIterations(v.Zoom, v.AllowUnbounded)
	bits := RequiredPrecisionBits(v.Zoom, widthF64(v.NaturalBounds), v.CanvasWidth, maxIter)
	return bits, maxIter
}

func widthF64(r Rect) float64 {
	return r.Width().ToF64()
}

// CheckPrecision returns a PrecisionInsufficient error if the required
// precision exceeds what BigFloat can represent, surfaced to the UI rather
// than crashing mid-render.
func CheckPrecision(bits uint32) error {
	if bits > bigfloat.MaxPrecisionBits {
		return errs.New(errs.KindPrecisionInsufficient, "required precision exceeds maximum supported")
	}
	return nil
}

// Relift re-derives the viewport's center at a new precision, zero-padding
// rather than rounding through float64, per spec §4.1: "a viewport whose
// center was stored at lower precision is re-lifted (zero-padded) before
// new deltas are accumulated."
func (v Viewport) Relift(prec uint32) Viewport {
	nv := v
	nv.Center = bigfloat.Complex{
		Re: bigfloat.SetPrecision(v.Center.Re, prec),
		Im: bigfloat.SetPrecision(v.Center.Im, prec),
	}
	nv.NaturalBounds = Rect{
		XMin: bigfloat.SetPrecision(v.NaturalBounds.XMin, prec),
		XMax: bigfloat.SetPrecision(v.NaturalBounds.XMax, prec),
		YMin: bigfloat.SetPrecision(v.NaturalBounds.YMin, prec),
		YMax: bigfloat.SetPrecision(v.NaturalBounds.YMax, prec),
	}
	return nv
}

// DcMax returns the maximum |δc| over the viewport — the half-diagonal of
// the zoomed window in complex space — used by BLA merges to bound the
// worst-case pixel offset from the reference point.
func (v Viewport) DcMax() bigfloat.BigFloat {
	bits, _ := v.RequiredPrecisionBits()
	zoom := bigfloat.WithPrecision(v.Zoom, bits)
	w, err := v.NaturalBounds.Width().Div(zoom)
	if err != nil {
		return bigfloat.Zero(bits)
	}
	h, err := v.NaturalBounds.Height().Div(zoom)
	if err != nil {
		return bigfloat.Zero(bits)
	}
	half := bigfloat.WithPrecision(0.5, bits)
	halfW := w.Mul(half)
	halfH := h.Mul(half)
	diagSq := halfW.Mul(halfW).Add(halfH.Mul(halfH))
	r, err := diagSq.Sqrt()
	if err != nil {
		return bigfloat.Zero(bits)
	}
	return r
}

// PixelSpacing returns the complex-plane distance between adjacent pixel
// centers (δ from spec §4.1) at the viewport's current zoom.
func (v Viewport) PixelSpacing() float64 {
	if v.CanvasWidth == 0 {
		return 0
	}
	return widthF64(v.NaturalBounds) / v.Zoom / float64(v.CanvasWidth)
}
