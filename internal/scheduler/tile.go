package scheduler

import (
	"math"
	"sort"

	"github.com/whalelogic/deepbrot/internal/quadtree"
)

// Tile is one axis-aligned region of the canvas, tiled exactly once per
// render and dispatched to a worker as a unit (spec §4.8). PixelRect is
// shared with the quadtree package, since a tile's rect and a quadtree
// cell's rect are the same kind of rectangle.
type Tile struct {
	ID   int
	Rect quadtree.PixelRect
}

// GenerateTiles partitions a canvasW x canvasH image into tileSize x
// tileSize tiles (the last row/column may be smaller), exactly covering
// the canvas once, and returns them in center-out order so the region
// under the cursor renders first.
func GenerateTiles(canvasW, canvasH, tileSize int) []Tile {
	if tileSize <= 0 {
		tileSize = 64
	}
	var tiles []Tile
	id := 0
	for y := 0; y < canvasH; y += tileSize {
		h := tileSize
		if y+h > canvasH {
			h = canvasH - y
		}
		for x := 0; x < canvasW; x += tileSize {
			w := tileSize
			if x+w > canvasW {
				w = canvasW - x
			}
			tiles = append(tiles, Tile{ID: id, Rect: quadtree.PixelRect{X: x, Y: y, W: w, H: h}})
			id++
		}
	}

	cx, cy := float64(canvasW)/2, float64(canvasH)/2
	sort.SliceStable(tiles, func(i, j int) bool {
		return distToCenter(tiles[i].Rect, cx, cy) < distToCenter(tiles[j].Rect, cx, cy)
	})
	// Renumber IDs in dispatch order; a tile's identity is its rect, not
	// its original raster-scan position.
	for i := range tiles {
		tiles[i].ID = i
	}
	return tiles
}

func distToCenter(r quadtree.PixelRect, cx, cy float64) float64 {
	tcx, tcy := r.CenterPixel()
	dx, dy := tcx-cx, tcy-cy
	return math.Hypot(dx, dy)
}
