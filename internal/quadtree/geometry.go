// Package quadtree implements the adaptive quadtree used to isolate
// glitched regions of the canvas and compute sub-reference orbits for them
// (spec §4.7). Subdivision must partition a cell's pixel area exactly: the
// four children's areas sum to the parent's, their boundaries align, and
// every integer pixel falls in exactly one child — regardless of parity,
// per the test seeds in spec §8.
package quadtree

// PixelRect is an axis-aligned rectangle in image-pixel coordinates.
type PixelRect struct {
	X, Y, W, H int
}

// Area returns W*H.
func (r PixelRect) Area() int { return r.W * r.H }

// Contains reports whether the integer point (x, y) falls inside r.
func (r PixelRect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// CenterPixel returns the rectangle's geometric center in pixel space,
// used as the coordinate to map into the complex plane for a sub-reference
// point.
func (r PixelRect) CenterPixel() (cx, cy float64) {
	return float64(r.X) + float64(r.W)/2, float64(r.Y) + float64(r.H)/2
}

// Subdivide splits r into up to four children (fewer when a dimension is 1
// pixel wide, in which case that axis isn't split). The split is always
// exact-area: wl+wr == W and hl+hr == H for any W, H, so the children's
// areas sum to r's area, their boundaries align pairwise, and every
// integer pixel in r falls in exactly one child.
func Subdivide(r PixelRect) []PixelRect {
	wl := r.W / 2
	wr := r.W - wl
	hl := r.H / 2
	hr := r.H - hl

	type quad struct {
		x, y, w, h int
	}
	candidates := []quad{
		{r.X, r.Y, wl, hl},             // top-left
		{r.X + wl, r.Y, wr, hl},        // top-right
		{r.X, r.Y + hl, wl, hr},        // bottom-left
		{r.X + wl, r.Y + hl, wr, hr},   // bottom-right
	}
	out := make([]PixelRect, 0, 4)
	for _, q := range candidates {
		if q.w > 0 && q.h > 0 {
			out = append(out, PixelRect{X: q.x, Y: q.y, W: q.w, H: q.h})
		}
	}
	return out
}
