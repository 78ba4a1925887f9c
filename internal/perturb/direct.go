package perturb

import (
	"math"

	"github.com/whalelogic/deepbrot/internal/compute"
)

// Direct runs ordinary complex128 escape-time iteration for a single
// pixel — the shallow-zoom fallback (spec §4.9a) where reference
// precision offers no gain. This is the teacher's mandelbrotIterations
// (main.go), generalized to return a compute.Data instead of a raw
// (iterations, z) pair.
func Direct(c complex128, maxIter uint32) compute.Data {
	var z complex128
	var n uint32
	for n = 0; n < maxIter; n++ {
		z = z*z + c
		if real(z)*real(z)+imag(z)*imag(z) > 4.0 {
			mag := cmplxAbs(z)
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
	}
	return compute.Data{
		Kind:          compute.KindMandelbrot,
		Iterations:    maxIter,
		MaxIterations: maxIter,
		Escaped:       false,
	}
}

func cmplxAbs(z complex128) float64 {
	return math.Hypot(real(z), imag(z))
}
