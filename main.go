package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"runtime"
	"strconv"
	"sync"

	"github.com/klauspost/cpuid/v2"

	"github.com/whalelogic/deepbrot/internal/bigfloat"
	"github.com/whalelogic/deepbrot/internal/colorize"
	"github.com/whalelogic/deepbrot/internal/compute"
	"github.com/whalelogic/deepbrot/internal/pipeline"
	"github.com/whalelogic/deepbrot/internal/scheduler"
	"github.com/whalelogic/deepbrot/internal/viewport"
	"github.com/whalelogic/deepbrot/palette"
)

func main() {
	width := flag.Int("width", 1600, "output image width in pixels")
	height := flag.Int("height", 1200, "output image height in pixels")
	centerRe := flag.String("re", "-0.6", "reference point real part (decimal or scientific string)")
	centerIm := flag.String("im", "0.0", "reference point imaginary part")
	zoom := flag.Float64("zoom", 1, "zoom factor relative to the natural -2.2..1.0 x -1.6..1.6 framing")
	maxIterOverride := flag.Int("iters", 0, "override the computed max iteration count (0 = derive from zoom)")
	allowUnbounded := flag.Bool("unbounded-iters", false, "lift the default iteration ceiling for a manual deep-zoom session")
	outfile := flag.String("outfile", "mandelbrot.png", "output PNG filename")
	pal := flag.String("palette", "NebulaSpectre", "palette name (case-sensitive)")
	tileSize := flag.Int("tile-size", 64, "tile edge length in pixels")
	concurrency := flag.Int("procs", runtime.NumCPU(), "concurrent worker count")
	gpuFlag := flag.Bool("gpu", false, "assume a GPU dispatch context is available")
	cycleCount := flag.Float64("cycle-count", 1, "repeat the palette this many times across the iteration range")
	flag.Parse()

	runtime.GOMAXPROCS(*concurrency)

	cmap := palette.Get(*pal)
	if cmap == nil {
		fmt.Fprintf(os.Stderr, "palette %q not found. Available palettes:\n", *pal)
		for _, p := range palette.ColorPalettes {
			fmt.Fprintf(os.Stderr, "  - %s\n", p.Keyword)
		}
		os.Exit(2)
	}
	lut := palette.BuildLUT(cmap)
	curve := colorize.IdentityCurve()
	lighting := colorize.DefaultLighting()

	v := viewport.Viewport{
		Center:         bigfloat.NewComplex(parseFloat(*centerRe), parseFloat(*centerIm), 64),
		Zoom:           *zoom,
		NaturalBounds:  viewport.DefaultRect(64),
		CanvasWidth:    uint32(*width),
		CanvasHeight:   uint32(*height),
		AllowUnbounded: *allowUnbounded,
	}

	plan, err := pipeline.BuildPlan(v, *gpuFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build plan: %v\n", err)
		os.Exit(1)
	}
	if *maxIterOverride > 0 {
		plan.MaxIter = *maxIterOverride
	}

	fmt.Printf("precision=%d bits, max_iter=%d, tier=%s, cpu=%s\n",
		plan.Bits, plan.MaxIter, plan.Tier, cpuid.CPU.BrandName)

	cRef, err := pipeline.PixelToComplex(plan.Viewport, plan.Bits, *width/2, *height/2)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reference point: %v\n", err)
		os.Exit(1)
	}
	ref := pipeline.BuildReference("primary", cRef, plan)
	if ref.Full.Escaped() {
		fmt.Fprintln(os.Stderr, "warning: reference point escapes the set; image will be mostly exterior")
	}

	canvas := make([]compute.Data, *width**height)
	heights := colorize.HeightField{Width: *width, Height: *height, Values: make([]float64, *width**height)}

	tiles := scheduler.GenerateTiles(*width, *height, *tileSize)
	sched := scheduler.New()
	ctx, renderID := sched.StartRender(tiles)

	var mu sync.Mutex
	sched.RunWorkers(ctx, renderID, *concurrency,
		func(ctx context.Context, renderID uint64, t scheduler.Tile) ([]compute.Data, error) {
			return pipeline.ComputeTileCPU(plan, ref, t.Rect)
		},
		func(res scheduler.TileResult) {
			t := tiles[res.TileID]
			mu.Lock()
			defer mu.Unlock()
			i := 0
			for y := t.Rect.Y; y < t.Rect.Y+t.Rect.H; y++ {
				for x := t.Rect.X; x < t.Rect.X+t.Rect.W; x++ {
					idx := y**width + x
					canvas[idx] = res.Data[i]
					heights.Values[idx] = res.Data[i].SmoothIteration()
					i++
				}
			}
		})

	img := image.NewRGBA(image.Rect(0, 0, *width, *height))
	for y := 0; y < *height; y++ {
		for x := 0; x < *width; x++ {
			idx := y**width + x
			nx, ny, nz := heights.Normal(x, y)
			img.SetRGBA(x, y, colorize.Colorize(canvas[idx], lut, curve, &lighting, *cycleCount, nx, ny, nz))
		}
	}

	f, err := os.Create(*outfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode png: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved %s (%dx%d) using palette %s\n", *outfile, *width, *height, *pal)
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
