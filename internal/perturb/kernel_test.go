package perturb

import (
	"testing"

	"github.com/whalelogic/deepbrot/internal/bigfloat"
	"github.com/whalelogic/deepbrot/internal/bla"
	"github.com/whalelogic/deepbrot/internal/hdrfloat"
	"github.com/whalelogic/deepbrot/internal/orbit"
)

func refAtOrigin(maxIter int) *orbit.HDROrbit {
	full := orbit.Compute(bigfloat.ZeroComplex(64), maxIter, 64)
	return full.ExportHDR()
}

func TestIterateEscapesFarPixel(t *testing.T) {
	o := refAtOrigin(50)
	dc := hdrfloat.Complex{Re: hdrfloat.FromFloat64(2), Im: hdrfloat.FromFloat64(0)}
	opts := DefaultOptions(50)
	opts.UseBLA = false
	data, _ := Iterate(o, nil, dc, NewState(), opts)
	if !data.Escaped {
		t.Fatal("pixel at c=0+dc=2 (i.e. c=2) should escape")
	}
}

func TestIterateInteriorPixelNeverEscapes(t *testing.T) {
	o := refAtOrigin(200)
	dc := hdrfloat.ZeroComplex
	opts := DefaultOptions(200)
	opts.UseBLA = false
	data, st := Iterate(o, nil, dc, NewState(), opts)
	if data.Escaped {
		t.Fatal("pixel at c=0 (reference itself) should never escape")
	}
	if st.N != 200 {
		t.Errorf("N = %d, want 200 (ran to MaxIterations)", st.N)
	}
}

func TestIterateResumesFromMidState(t *testing.T) {
	o := refAtOrigin(50)
	dc := hdrfloat.Complex{Re: hdrfloat.FromFloat64(2), Im: hdrfloat.FromFloat64(0)}
	opts := DefaultOptions(50)
	opts.UseBLA = false

	full, _ := Iterate(o, nil, dc, NewState(), opts)

	// Resume iterating one step at a time via a tiny per-call MaxIterations
	// cap, carrying State forward, and confirm the final result matches a
	// single uninterrupted run — this is the GPU chunked-dispatch contract.
	st := NewState()
	resumedEscaped := false
	for i := 0; i < 1000; i++ {
		chunkOpts := opts
		chunkOpts.MaxIterations = st.N + 1
		d, next := Iterate(o, nil, dc, st, chunkOpts)
		st = next
		if d.Escaped {
			resumedEscaped = true
			break
		}
		if st.N >= opts.MaxIterations {
			break
		}
	}
	if resumedEscaped != full.Escaped {
		t.Errorf("resumed escape=%v, single-pass escape=%v", resumedEscaped, full.Escaped)
	}
}

// TestIterateWithBLAMatchesWithoutBLA is spec §8 BLA property (i): a pixel
// iterated with BLA enabled produces the same iteration count (within one
// step) and the same escaped flag as the same pixel run with BLA disabled.
// cRef=-0.75 sits at the cardioid/period-2-bulb junction, giving a
// non-degenerate Z_m sequence (unlike c=0, whose orbit is all zeros and
// never gives BLA a non-trivial radius to skip with).
func TestIterateWithBLAMatchesWithoutBLA(t *testing.T) {
	const maxIter = 400
	cRef := bigfloat.NewComplex(-0.75, 0, 64)
	full := orbit.Compute(cRef, maxIter, 64)
	o := full.ExportHDR()

	dcMax := hdrfloat.FromFloat64(1e-6)
	table := bla.Build(o.Z, dcMax, bla.DefaultEpsilon)
	if table.Size() == 0 {
		t.Fatal("expected a non-empty BLA table for a non-degenerate reference orbit")
	}

	pixels := []hdrfloat.Complex{
		{Re: hdrfloat.Zero, Im: hdrfloat.Zero},                     // the reference point itself
		{Re: hdrfloat.FromFloat64(1e-7), Im: hdrfloat.Zero},        // a nearby interior pixel
		{Re: hdrfloat.FromFloat64(0.8), Im: hdrfloat.FromFloat64(0.2)}, // c = 0.05+0.2i, inside the main cardioid, far from the reference
	}

	for i, dc := range pixels {
		noBLA := DefaultOptions(maxIter)
		noBLA.UseBLA = false
		withBLA := DefaultOptions(maxIter)
		withBLA.UseBLA = true

		wantData, _ := Iterate(o, nil, dc, NewState(), noBLA)
		gotData, _ := Iterate(o, table, dc, NewState(), withBLA)

		if gotData.Escaped != wantData.Escaped {
			t.Errorf("pixel %d: escaped=%v with BLA, want %v (without BLA)", i, gotData.Escaped, wantData.Escaped)
		}
		diff := int(gotData.Iterations) - int(wantData.Iterations)
		if diff < -1 || diff > 1 {
			t.Errorf("pixel %d: iterations=%d with BLA, want within 1 of %d (without BLA)", i, gotData.Iterations, wantData.Iterations)
		}
	}
}

func TestIterateGlitchFlagsNearOrbitExhaustion(t *testing.T) {
	// A reference orbit shorter than MaxIterations forces the
	// reference-exhaustion branch once m reaches the orbit's end without
	// the reference itself having escaped there.
	o := refAtOrigin(5)
	dc := hdrfloat.ZeroComplex
	opts := DefaultOptions(50)
	opts.UseBLA = false
	data, _ := Iterate(o, nil, dc, NewState(), opts)
	if !data.Glitched {
		t.Error("expected Glitched=true once m exceeds a short reference orbit's length")
	}
}
