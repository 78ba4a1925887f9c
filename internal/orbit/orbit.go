// Package orbit computes the high-precision reference orbit that every
// pixel's perturbation iteration is measured against (spec §4.4). It is
// computed once per reference point per render, in BigFloat, then
// downcast element-wise for cheap per-pixel use.
package orbit

import (
	"github.com/whalelogic/deepbrot/internal/bigfloat"
	"github.com/whalelogic/deepbrot/internal/hdrfloat"
)

// escapeRadiusSq is |Z|^2 > 4, the standard Mandelbrot escape test.
const escapeRadiusSq = 4.0

// ReferenceOrbit is the iteration of z^2+c_ref at a single high-precision
// point, reused by every pixel whose tile references it.
type ReferenceOrbit struct {
	CRef       bigfloat.Complex
	Z          []bigfloat.Complex // Z_0 .. Z_n
	Zp         []bigfloat.Complex // derivative sequence, same length as Z
	EscapedAt  int                // index at which |Z_m|^2 > 4 first held, or -1
	Precision  uint32
}

// NotEscaped marks an orbit that survived to max_iter without escaping.
const NotEscaped = -1

// Compute iterates Z_{m+1} = Z_m^2 + c_ref, Z'_{m+1} = 2*Z_m*Z'_m + 1,
// starting from Z_0 = 0, Z'_0 = 0, stopping at maxIter iterations or the
// first index at which |Z_m|^2 > 4. An orbit that escapes at index m holds
// m+1 terms (Z_0..Z_m); one that never escapes holds maxIter+1 terms
// (Z_0..Z_maxIter). The derivative sequence has the same length.
func Compute(cRef bigfloat.Complex, maxIter int, precision uint32) *ReferenceOrbit {
	if maxIter < 1 {
		maxIter = 1
	}
	one := bigfloat.WithPrecision(1, precision)
	z := bigfloat.ZeroComplex(precision)
	zp := bigfloat.ZeroComplex(precision)

	zs := make([]bigfloat.Complex, 0, maxIter+1)
	zps := make([]bigfloat.Complex, 0, maxIter+1)
	zs = append(zs, z)
	zps = append(zps, zp)

	escapedAt := NotEscaped
	for m := 0; m < maxIter; m++ {
		if z.NormSq().Cmp(bigfloat.WithPrecision(escapeRadiusSq, precision)) > 0 {
			escapedAt = m
			break
		}
		zpNext := z.Scale(bigfloat.WithPrecision(2, precision)).Mul(zp).Add(bigfloat.Complex{Re: one, Im: bigfloat.Zero(precision)})
		zNext := z.Mul(z).Add(cRef)
		z, zp = zNext, zpNext
		zs = append(zs, z)
		zps = append(zps, zp)
	}

	return &ReferenceOrbit{
		CRef:      cRef,
		Z:         zs,
		Zp:        zps,
		EscapedAt: escapedAt,
		Precision: precision,
	}
}

// Len returns the orbit's length (number of stored Z_m terms).
func (o *ReferenceOrbit) Len() int { return len(o.Z) }

// Escaped reports whether the reference point itself left the set within
// the computed orbit.
func (o *ReferenceOrbit) Escaped() bool { return o.EscapedAt != NotEscaped }

// HDROrbit is the per-pixel-usable downcast of a ReferenceOrbit: the same
// sequences projected into HDRFloat, broadcast to workers instead of the
// full-precision orbit.
type HDROrbit struct {
	Z         []hdrfloat.Complex
	Zp        []hdrfloat.Complex
	EscapedAt int
}

// ExportHDR downcasts every orbit term element-wise to HDRFloat, the
// representation perturbation workers actually iterate against.
func (o *ReferenceOrbit) ExportHDR() *HDROrbit {
	z := make([]hdrfloat.Complex, len(o.Z))
	zp := make([]hdrfloat.Complex, len(o.Zp))
	for i := range o.Z {
		z[i] = hdrfloat.FromBigFloatComplex(o.Z[i])
		zp[i] = hdrfloat.FromBigFloatComplex(o.Zp[i])
	}
	return &HDROrbit{Z: z, Zp: zp, EscapedAt: o.EscapedAt}
}

// ExportF64 downcasts to ordinary complex128, used when the zoom regime is
// shallow enough that float64 deltas won't underflow.
func (o *ReferenceOrbit) ExportF64() []complex128 {
	out := make([]complex128, len(o.Z))
	for i, z := range o.Z {
		out[i] = complex(z.Re.ToF64(), z.Im.ToF64())
	}
	return out
}
