package quadtree

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/whalelogic/deepbrot/internal/bigfloat"
)

// Cell is a node in the refinement quadtree: a pixel rectangle, the
// reference point computed at its center, the id of the reference orbit
// broadcast for that point, and the tiles whose pixels fall within it.
type Cell struct {
	Rect     PixelRect
	Depth    int
	RefPoint bigfloat.Complex
	OrbitID  string
	Tiles    []int
	Children []*Cell
}

// NewRoot returns the root cell spanning the whole canvas.
func NewRoot(rect PixelRect, refPoint bigfloat.Complex, orbitID string, tiles []int) *Cell {
	return &Cell{Rect: rect, RefPoint: refPoint, OrbitID: orbitID, Tiles: tiles}
}

// Leaves returns every leaf cell (no children) under c, depth-first.
func (c *Cell) Leaves() []*Cell {
	if len(c.Children) == 0 {
		return []*Cell{c}
	}
	var out []*Cell
	for _, ch := range c.Children {
		out = append(out, ch.Leaves()...)
	}
	return out
}

func (c *Cell) hasGlitchedTile(glitched map[int]bool) bool {
	for _, t := range c.Tiles {
		if glitched[t] {
			return true
		}
	}
	return false
}

// ComputeOrbitFunc computes (and broadcasts) a new reference orbit centered
// at a sub-cell's reference point, returning the orbit id workers should
// use for tiles reassigned to that cell.
type ComputeOrbitFunc func(ctx context.Context, center bigfloat.Complex) (orbitID string, err error)

// ToComplexFunc maps a pixel-space coordinate to a complex-plane point
// under the render's current viewport.
type ToComplexFunc func(px, py float64) bigfloat.Complex

// TileRectFunc returns a tile's pixel rectangle, used to decide which child
// cell a reassigned tile belongs to.
type TileRectFunc func(tileID int) PixelRect

// Refiner drives glitch-triggered subdivision passes per spec §4.7: split
// every leaf holding a glitched tile into four area-exact children, each
// with its own sub-reference orbit, and reassign that leaf's tiles to their
// new child. A leaf stops splitting once its smaller side is at most
// MinCellSize or its depth reaches MaxDepth. Each Pass call runs a single
// pass; Refiner does not repeat passes itself, and no code here reads
// MaxPasses.
type Refiner struct {
	MinCellSize int
	MaxDepth    int
	MaxPasses   int
}

// NewRefiner returns a Refiner with spec-default bounds: cells stop
// subdividing at 2x2 or depth 16, and MaxPasses is set to 5 (spec §8
// end-to-end scenario 3).
func NewRefiner() *Refiner {
	return &Refiner{MinCellSize: 2, MaxDepth: 16, MaxPasses: 5}
}

// Reassignment records that tileID's pixels now belong to a different
// reference orbit.
type Reassignment struct {
	TileID  int
	OrbitID string
}

// Pass runs one subdivision pass over root. It returns the tile
// reassignments produced, and reports converged=true when no leaf held a
// glitched tile (nothing left to refine). Stuck cells — glitched leaves
// that can no longer subdivide — are returned separately so the caller can
// fall back to direct BigFloat computation for their tiles (spec §4.7).
func (rf *Refiner) Pass(
	ctx context.Context,
	root *Cell,
	glitchedTiles map[int]bool,
	tileRect TileRectFunc,
	toComplex ToComplexFunc,
	computeOrbit ComputeOrbitFunc,
) (reassigned []Reassignment, stuck []*Cell, converged bool, err error) {
	leaves := root.Leaves()
	var toSplit []*Cell
	for _, leaf := range leaves {
		if !leaf.hasGlitchedTile(glitchedTiles) {
			continue
		}
		if min(leaf.Rect.W, leaf.Rect.H) <= rf.MinCellSize || leaf.Depth >= rf.MaxDepth {
			stuck = append(stuck, leaf)
			continue
		}
		toSplit = append(toSplit, leaf)
	}
	if len(toSplit) == 0 {
		return nil, stuck, len(stuck) == 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	type splitResult struct {
		leaf     *Cell
		children []*Cell
	}
	results := make([]splitResult, len(toSplit))
	for i, leaf := range toSplit {
		i, leaf := i, leaf
		g.Go(func() error {
			childRects := Subdivide(leaf.Rect)
			children := make([]*Cell, len(childRects))
			for j, cr := range childRects {
				cx, cy := cr.CenterPixel()
				center := toComplex(cx, cy)
				orbitID, err := computeOrbit(gctx, center)
				if err != nil {
					return err
				}
				children[j] = &Cell{
					Rect:     cr,
					Depth:    leaf.Depth + 1,
					RefPoint: center,
					OrbitID:  orbitID,
				}
			}
			results[i] = splitResult{leaf: leaf, children: children}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, false, err
	}

	for _, res := range results {
		leaf := res.leaf
		for _, tileID := range leaf.Tiles {
			tr := tileRect(tileID)
			tcx, tcy := tr.CenterPixel()
			child := nearestContaining(res.children, tcx, tcy)
			if child == nil && len(res.children) > 0 {
				child = res.children[0]
			}
			if child == nil {
				continue
			}
			child.Tiles = append(child.Tiles, tileID)
			reassigned = append(reassigned, Reassignment{TileID: tileID, OrbitID: child.OrbitID})
		}
		leaf.Children = res.children
	}

	return reassigned, stuck, false, nil
}

func nearestContaining(children []*Cell, x, y float64) *Cell {
	for _, c := range children {
		if x >= float64(c.Rect.X) && x < float64(c.Rect.X+c.Rect.W) &&
			y >= float64(c.Rect.Y) && y < float64(c.Rect.Y+c.Rect.H) {
			return c
		}
	}
	return nil
}
