// Package perturb implements the per-pixel perturbation iteration kernel
// (spec §4.6): a pixel's delta from the reference orbit is iterated in
// HDRFloat while the reference itself stays fixed, with escape, glitch
// detection, reference exhaustion, rebase, and BLA acceleration.
package perturb

import (
	"math"

	"github.com/whalelogic/deepbrot/internal/bla"
	"github.com/whalelogic/deepbrot/internal/compute"
	"github.com/whalelogic/deepbrot/internal/hdrfloat"
	"github.com/whalelogic/deepbrot/internal/orbit"
)

// Options tunes the kernel per render. Tau and the 1e-20 near-origin guard
// are spec-default constants, exposed because the optimal false-positive/
// false-negative tradeoff at extreme zoom is an empirical question (spec §9
// open question 1), not something to hard-code past a default.
type Options struct {
	// Tau is the Pauldelbrot glitch-detection threshold. Default 1e-3.
	Tau float64
	// GlitchNormSqFloor is the |Z_m|^2 floor below which the glitch check
	// never fires (avoids false positives near the origin). Default 1e-20.
	GlitchNormSqFloor float64
	// UseBLA enables the BLA acceleration lookup (step 5). Tests that
	// compare perturbation-with-BLA against perturbation-without-BLA
	// toggle this.
	UseBLA bool
	// MaxIterations is the per-pixel iteration cap.
	MaxIterations uint32
}

// DefaultOptions returns the spec's default tunables.
func DefaultOptions(maxIter uint32) Options {
	return Options{
		Tau:               1e-3,
		GlitchNormSqFloor: 1e-20,
		UseBLA:            true,
		MaxIterations:     maxIter,
	}
}

// State is a pixel's in-flight perturbation state, exposed so a tile can be
// interrupted and resumed by the GPU's chunked dispatch (spec §4.9/§6)
// without losing the δz/m/n it had accumulated.
type State struct {
	DeltaZ   hdrfloat.Complex
	M        int
	N        uint32
	Glitched bool
}

// NewState returns the initial per-pixel state: δz=0, m=0, n=0.
func NewState() State {
	return State{DeltaZ: hdrfloat.ZeroComplex, M: 0, N: 0}
}

// Iterate runs a pixel to completion (escape or MaxIterations) against the
// given reference orbit and BLA table, starting from the given state so a
// GPU chunked dispatch can resume mid-pixel. dc is the pixel's fixed offset
// from the reference point c_ref.
func Iterate(o *orbit.HDROrbit, table *bla.Table, dc hdrfloat.Complex, st State, opts Options) (compute.Data, State) {
	tau2 := hdrfloat.FromFloat64(opts.Tau * opts.Tau)
	floor := hdrfloat.FromFloat64(opts.GlitchNormSqFloor)
	orbitLen := len(o.Z)

	for st.N < opts.MaxIterations {
		if st.M >= orbitLen {
			// Defensive: a BLA skip or rebase should never leave m past
			// the orbit's end, but a corrupted/short table must not panic.
			st.Glitched = true
			break
		}
		zm := o.Z[st.M]
		z := zm.Add(st.DeltaZ)
		zNormSq := z.NormSq()

		// 1. Escape test.
		if zNormSq.Cmp(hdrfloat.FromFloat64(4.0)) > 0 {
			data := escapedData(st.N, opts.MaxIterations, zNormSq)
			return data, st
		}

		// 2. Pauldelbrot glitch test.
		zmNormSq := zm.NormSq()
		if zmNormSq.Cmp(floor) > 0 && zNormSq.Cmp(zmNormSq.Mul(tau2)) < 0 {
			st.Glitched = true
		}

		// 3. Reference-exhaustion check.
		refEscapedHere := o.EscapedAt == st.M
		if st.M+1 >= orbitLen && !refEscapedHere {
			st.Glitched = true
		}

		// 4. Rebase: must be checked before BLA since a rebased pixel has
		// a stale m for the table.
		if z.NormSq().Cmp(st.DeltaZ.NormSq()) < 0 {
			st.DeltaZ = z
			st.M = 0
			st.N++
			continue
		}

		// 5. BLA attempt.
		if opts.UseBLA && table != nil {
			if e, ok := table.FindValid(st.M, st.DeltaZ.NormSq()); ok && st.N+e.L <= opts.MaxIterations {
				st.DeltaZ = e.A.Mul(st.DeltaZ).Add(e.B.Mul(dc))
				st.N += e.L
				st.M += int(e.L)
				continue
			}
		}

		// 6. Full perturbation step: δz <- 2*Z_m*δz + δz^2 + δc.
		two := hdrfloat.FromFloat64(2)
		st.DeltaZ = zm.Scale(two).Mul(st.DeltaZ).Add(st.DeltaZ.Mul(st.DeltaZ)).Add(dc)
		st.N++
		st.M++
	}

	return compute.Data{
		Kind:          compute.KindMandelbrot,
		Iterations:    st.N,
		MaxIterations: opts.MaxIterations,
		Escaped:       false,
		Glitched:      st.Glitched,
	}, st
}

// escapedData builds the escaped result with its smooth-iteration
// fraction, mirroring the teacher's continuous escape-time formula
// (main.go:computeRow): nu = n + 1 - log(log|z|)/log(2).
func escapedData(n, maxIter uint32, zNormSq hdrfloat.HDRFloat) compute.Data {
	mag := math.Sqrt(zNormSq.ToFloat64())
	if mag <= 1 {
		mag = 1 + 1e-9
	}
	frac := 1 - math.Log(math.Log(mag))/math.Log(2)
	if float64(n)+frac < 0 {
		frac = 0
	}
	return compute.Data{
		Kind:           compute.KindMandelbrot,
		Iterations:     n,
		MaxIterations:  maxIter,
		Escaped:        true,
		SmoothFraction: frac,
	}
}
