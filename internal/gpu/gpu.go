// Package gpu defines the GPU pipeline's numeric contract (spec §6): the
// uniform/buffer layout a WGSL perturbation shader would bind to, and the
// venetian-blinds row-set progression that lets a deep render fill the
// screen progressively within the browser watchdog's per-dispatch budget.
// The WGSL source itself is explicitly out of scope (spec §1) — what's
// here is the layout plus a host-side reference implementation of the same
// algorithm, used to test the numeric contract and run by
// pipeline.ComputeTileGPU for the GPU tier. Nothing in this module raises a
// GPU dispatch error, and there is no separate CPU fallback path for one.
package gpu

import (
	"github.com/whalelogic/deepbrot/internal/bla"
	"github.com/whalelogic/deepbrot/internal/compute"
	"github.com/whalelogic/deepbrot/internal/hdrfloat"
	"github.com/whalelogic/deepbrot/internal/orbit"
	"github.com/whalelogic/deepbrot/internal/perturb"
)

// WorkgroupSize matches spec §6: 1D, linear over a row-set.
const WorkgroupSize = 64

// Uniforms is the per-dispatch uniform block (spec §6).
type Uniforms struct {
	ImageWidth, ImageHeight uint32
	RowSetIndex, RowSetCount, PixelCount uint32
	ChunkStartIteration, ChunkSize, MaxIterations uint32
	DcOrigin, DcStep hdrfloat.Complex
	EscapeRadiusSq float64
	Tau2 float64
	ReferenceEscaped bool
	OrbitLen uint32
}

// PixelBuffers is the persistent read-write state plus the read-back
// results/glitch_flags/z_norm_sq bindings (spec §6). ZRe/ZIm/IterCount/
// Escaped persist across chunk dispatches within a row-set; Results/
// GlitchFlags/ZNormSq are read back at row-set end.
type PixelBuffers struct {
	ZRe, ZIm  []float64
	IterCount []uint32
	Escaped   []bool

	Results     []compute.Data
	GlitchFlags []bool
	ZNormSq     []float64
}

// NewPixelBuffers allocates zeroed buffers for n pixels.
func NewPixelBuffers(n int) *PixelBuffers {
	return &PixelBuffers{
		ZRe:         make([]float64, n),
		ZIm:         make([]float64, n),
		IterCount:   make([]uint32, n),
		Escaped:     make([]bool, n),
		Results:     make([]compute.Data, n),
		GlitchFlags: make([]bool, n),
		ZNormSq:     make([]float64, n),
	}
}

// VenetianBlindRowSets partitions [0, height) into R row-sets, row-set i
// holding rows i, i+R, i+2R, .... The union exactly covers the image with
// no duplicated row: every row appears in exactly one set.
func VenetianBlindRowSets(height, rowSetCount int) [][]int {
	if rowSetCount < 1 {
		rowSetCount = 1
	}
	sets := make([][]int, rowSetCount)
	for row := 0; row < height; row++ {
		idx := row % rowSetCount
		sets[idx] = append(sets[idx], row)
	}
	return sets
}

// Dispatcher runs the perturbation algorithm against a reference orbit,
// chunked so a single dispatch never exceeds ChunkSize iterations — the
// host-side stand-in for a WGSL compute pass bounded by the watchdog.
type Dispatcher struct {
	Orbit         *orbit.HDROrbit
	Table         *bla.Table
	ChunkSize     uint32
	MaxIterations uint32
	Options       perturb.Options
}

// DispatchChunk advances one pixel's state by at most ChunkSize iterations
// starting from chunkStart, returning the (possibly still in-progress)
// result, the updated resumable state, and whether the pixel is finished
// (escaped, glitched-and-exhausted, or hit MaxIterations).
func (d *Dispatcher) DispatchChunk(dc hdrfloat.Complex, st perturb.State, chunkStart uint32) (compute.Data, perturb.State, bool) {
	localMax := chunkStart + d.ChunkSize
	if localMax > d.MaxIterations {
		localMax = d.MaxIterations
	}
	opts := d.Options
	opts.MaxIterations = localMax
	data, newSt := perturb.Iterate(d.Orbit, d.Table, dc, st, opts)
	done := data.Escaped || newSt.N >= d.MaxIterations || (newSt.Glitched && newSt.M >= len(d.Orbit.Z))
	return data, newSt, done
}

// DcFunc maps a pixel's (x, y) within the full canvas to its δc offset
// from the reference point.
type DcFunc func(x, y int) hdrfloat.Complex

// RunRowSet computes one row-set to completion: every pixel in the set
// advances together, chunk by chunk, until every pixel has either escaped,
// glitched out, or hit MaxIterations — mirroring a GPU row-set's lockstep
// dispatch loop before its single readback.
func (d *Dispatcher) RunRowSet(rows []int, width int, dc DcFunc) []compute.Data {
	n := len(rows) * width
	states := make([]perturb.State, n)
	done := make([]bool, n)
	results := make([]compute.Data, n)
	for i := range states {
		states[i] = perturb.NewState()
	}

	chunkStart := uint32(0)
	remaining := n
	for remaining > 0 && chunkStart < d.MaxIterations {
		for i := 0; i < n; i++ {
			if done[i] {
				continue
			}
			row := rows[i/width]
			x := i % width
			data, st, fin := d.DispatchChunk(dc(x, row), states[i], chunkStart)
			states[i] = st
			if fin {
				done[i] = true
				results[i] = data
				remaining--
			}
		}
		chunkStart += d.ChunkSize
	}
	for i := 0; i < n; i++ {
		if !done[i] {
			results[i] = compute.Data{
				Kind:          compute.KindMandelbrot,
				Iterations:    states[i].N,
				MaxIterations: d.MaxIterations,
				Glitched:      states[i].Glitched,
			}
		}
	}
	return results
}
