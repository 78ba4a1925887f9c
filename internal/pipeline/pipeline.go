// Package pipeline selects and drives the render path for a viewport (spec
// §4.9): compute precision/max_iter/dc_max, then choose direct float64
// iteration for a shallow zoom, CPU perturbation+HDRFloat once the orbit
// needs more precision than float64 carries, or GPU perturbation+HDRFloat
// when a GPU context is available and the zoom is deep enough to benefit.
package pipeline

import (
	"context"

	"github.com/klauspost/cpuid/v2"

	"github.com/whalelogic/deepbrot/internal/bigfloat"
	"github.com/whalelogic/deepbrot/internal/bla"
	"github.com/whalelogic/deepbrot/internal/compute"
	"github.com/whalelogic/deepbrot/internal/errs"
	"github.com/whalelogic/deepbrot/internal/gpu"
	"github.com/whalelogic/deepbrot/internal/hdrfloat"
	"github.com/whalelogic/deepbrot/internal/orbit"
	"github.com/whalelogic/deepbrot/internal/perturb"
	"github.com/whalelogic/deepbrot/internal/quadtree"
	"github.com/whalelogic/deepbrot/internal/viewport"
)

// Tier names which computer a render uses.
type Tier int

const (
	TierDirectCPU Tier = iota
	TierPerturbationCPU
	TierPerturbationGPU
)

func (t Tier) String() string {
	switch t {
	case TierDirectCPU:
		return "direct_cpu"
	case TierPerturbationCPU:
		return "perturbation_cpu"
	case TierPerturbationGPU:
		return "perturbation_gpu"
	default:
		return "unknown"
	}
}

// directPathBitBudget is the crossover point (spec §9 open question 2):
// below this many required precision bits, plain float64 direct iteration
// is both correct and faster than standing up a reference orbit. 53 is
// float64's mantissa width; a CPU with wider SIMD float lanes (AVX2/
// AVX-512) chews through the direct path fast enough that it's still the
// better choice a couple of bits past that, since the alternative isn't a
// wider float64 — it's falling all the way to perturbation. This is the
// calibration hook: the right crossover is an empirical, hardware-
// dependent tradeoff, not a derivable constant.
func directPathBitBudget() uint32 {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		return 56
	case cpuid.CPU.Supports(cpuid.AVX2):
		return 54
	default:
		return 53
	}
}

// SelectTier picks the computer for a render needing the given precision.
func SelectTier(bits uint32, gpuAvailable bool) Tier {
	if bits <= directPathBitBudget() {
		return TierDirectCPU
	}
	if gpuAvailable {
		return TierPerturbationGPU
	}
	return TierPerturbationCPU
}

// Plan bundles the precision policy outputs a render needs before it can
// dispatch a single pixel.
type Plan struct {
	Bits     uint32
	MaxIter  int
	DcMax    hdrfloat.HDRFloat
	Tier     Tier
	Viewport viewport.Viewport
}

// BuildPlan implements spec §4.9's first step: derive precision, max_iter,
// and dc_max from the viewport, check the precision is representable, pick
// a tier, and re-lift the viewport's BigFloat coordinates to the required
// precision so every subsequent stage works at a consistent width.
func BuildPlan(v viewport.Viewport, gpuAvailable bool) (Plan, error) {
	bits, maxIter := v.RequiredPrecisionBits()
	if err := viewport.CheckPrecision(bits); err != nil {
		return Plan{}, err
	}
	lifted := v.Relift(bits)
	tier := SelectTier(bits, gpuAvailable)
	return Plan{
		Bits:     bits,
		MaxIter:  maxIter,
		DcMax:    hdrfloat.FromBigFloat(lifted.DcMax()),
		Tier:     tier,
		Viewport: lifted,
	}, nil
}

// PixelToComplex maps a pixel coordinate to its point in the complex plane
// at the plan's full precision (spec §4.1), with the canvas center at the
// viewport's center.
func PixelToComplex(v viewport.Viewport, bits uint32, px, py int) (bigfloat.Complex, error) {
	if v.CanvasWidth == 0 || v.CanvasHeight == 0 {
		return bigfloat.Complex{}, errs.New(errs.KindDomain, "zero-sized canvas")
	}
	zoom := bigfloat.WithPrecision(v.Zoom, bits)
	width, err := v.NaturalBounds.Width().Div(zoom)
	if err != nil {
		return bigfloat.Complex{}, errs.Wrap(errs.KindDomain, "pixel to complex width", err)
	}
	height, err := v.NaturalBounds.Height().Div(zoom)
	if err != nil {
		return bigfloat.Complex{}, errs.Wrap(errs.KindDomain, "pixel to complex height", err)
	}
	half := bigfloat.WithPrecision(0.5, bits)
	fracX := bigfloat.WithPrecision(float64(px)/float64(v.CanvasWidth), bits)
	fracY := bigfloat.WithPrecision(float64(py)/float64(v.CanvasHeight), bits)
	dx := width.Mul(fracX.Sub(half))
	dy := height.Mul(fracY.Sub(half))
	return bigfloat.Complex{Re: v.Center.Re.Add(dx), Im: v.Center.Im.Add(dy)}, nil
}

// Reference bundles a computed reference orbit with its BLA table, held by
// the main context and broadcast to workers per spec §4.4/§4.5.
type Reference struct {
	ID     string
	Full   *orbit.ReferenceOrbit
	HDR    *orbit.HDROrbit
	Table  *bla.Table
}

// BuildReference computes the reference orbit at c_ref and, for
// perturbation tiers, its BLA table. id is the caller-assigned identity
// broadcast alongside StoreReferenceOrbit (spec §6).
func BuildReference(id string, cRef bigfloat.Complex, plan Plan) Reference {
	full := orbit.Compute(cRef, plan.MaxIter, plan.Bits)
	if plan.Tier == TierDirectCPU {
		return Reference{ID: id, Full: full}
	}
	hdr := full.ExportHDR()
	table := bla.Build(hdr.Z, plan.DcMax, bla.DefaultEpsilon)
	return Reference{ID: id, Full: full, HDR: hdr, Table: table}
}

// ComputeTileCPU computes every pixel in rect against the given plan and
// reference, using direct float64 iteration or CPU perturbation depending
// on plan.Tier.
func ComputeTileCPU(plan Plan, ref Reference, rect quadtree.PixelRect) ([]compute.Data, error) {
	out := make([]compute.Data, 0, rect.Area())
	opts := perturb.DefaultOptions(uint32(plan.MaxIter))

	for y := rect.Y; y < rect.Y+rect.H; y++ {
		for x := rect.X; x < rect.X+rect.W; x++ {
			switch plan.Tier {
			case TierDirectCPU:
				c, err := PixelToComplex(plan.Viewport, plan.Bits, x, y)
				if err != nil {
					return nil, err
				}
				out = append(out, perturb.Direct(complex(c.Re.ToF64(), c.Im.ToF64()), uint32(plan.MaxIter)))
			default:
				c, err := PixelToComplex(plan.Viewport, plan.Bits, x, y)
				if err != nil {
					return nil, err
				}
				dcBig := c.Sub(ref.Full.CRef)
				dc := hdrfloat.FromBigFloatComplex(dcBig)
				data, _ := perturb.Iterate(ref.HDR, ref.Table, dc, perturb.NewState(), opts)
				out = append(out, data)
			}
		}
	}
	return out, nil
}

// ComputeTileGPU runs the GPU numeric reference path for rect's rows,
// dispatched as a single row-set (the tile scheduler and the GPU row-set
// scheduler are different dispatch models; a CPU-side tile is small enough
// to treat as one row-set here).
func ComputeTileGPU(ctx context.Context, plan Plan, ref Reference, rect quadtree.PixelRect, chunkSize uint32) ([]compute.Data, error) {
	rows := make([]int, rect.H)
	for i := range rows {
		rows[i] = rect.Y + i
	}
	dispatcher := &gpu.Dispatcher{
		Orbit:         ref.HDR,
		Table:         ref.Table,
		ChunkSize:     chunkSize,
		MaxIterations: uint32(plan.MaxIter),
		Options:       perturb.DefaultOptions(uint32(plan.MaxIter)),
	}
	dcFn := func(x, y int) hdrfloat.Complex {
		c, err := PixelToComplex(plan.Viewport, plan.Bits, x, y)
		if err != nil {
			return hdrfloat.ZeroComplex
		}
		return hdrfloat.FromBigFloatComplex(c.Sub(ref.Full.CRef))
	}

	resultsByRow := make(map[int][]compute.Data, len(rows))
	rowWidth := rect.W
	flat := dispatcher.RunRowSet(rows, rowWidth, func(x, y int) hdrfloat.Complex {
		return dcFn(rect.X+x, y)
	})
	for i, row := range rows {
		resultsByRow[row] = flat[i*rowWidth : (i+1)*rowWidth]
	}

	out := make([]compute.Data, 0, rect.Area())
	for _, row := range rows {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		out = append(out, resultsByRow[row]...)
	}
	return out, nil
}
