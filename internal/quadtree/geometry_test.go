package quadtree

import "testing"

// seeds are the exact canvas sizes spec §8 requires subdivision to handle
// correctly regardless of parity.
var seeds = []struct{ w, h int }{
	{8, 8}, {9, 9}, {15, 16}, {17, 17}, {33, 33}, {602, 559},
}

func TestSubdivideExactAreaPartition(t *testing.T) {
	for _, s := range seeds {
		r := PixelRect{X: 0, Y: 0, W: s.w, H: s.h}
		children := Subdivide(r)

		totalArea := 0
		for _, c := range children {
			totalArea += c.Area()
		}
		if totalArea != r.Area() {
			t.Errorf("seed (%d,%d): children area %d != parent area %d", s.w, s.h, totalArea, r.Area())
		}
	}
}

func TestSubdivideEveryPixelExactlyOnce(t *testing.T) {
	for _, s := range seeds {
		if s.w*s.h > 40000 {
			continue // keep the exhaustive pixel scan cheap for the large seed
		}
		r := PixelRect{X: 0, Y: 0, W: s.w, H: s.h}
		children := Subdivide(r)

		counts := make(map[[2]int]int)
		for y := 0; y < s.h; y++ {
			for x := 0; x < s.w; x++ {
				for _, c := range children {
					if c.Contains(x, y) {
						counts[[2]int{x, y}]++
					}
				}
			}
		}
		for y := 0; y < s.h; y++ {
			for x := 0; x < s.w; x++ {
				if counts[[2]int{x, y}] != 1 {
					t.Fatalf("seed (%d,%d): pixel (%d,%d) covered %d times, want 1", s.w, s.h, x, y, counts[[2]int{x, y}])
				}
			}
		}
	}
}

func TestSubdivideBoundariesAlign(t *testing.T) {
	for _, s := range seeds {
		r := PixelRect{X: 0, Y: 0, W: s.w, H: s.h}
		children := Subdivide(r)
		for _, c := range children {
			if c.X < r.X || c.Y < r.Y || c.X+c.W > r.X+r.W || c.Y+c.H > r.Y+r.H {
				t.Errorf("seed (%d,%d): child rect %+v escapes parent %+v", s.w, s.h, c, r)
			}
			// An inner left or top edge must meet a sibling's right or bottom edge.
			if c.X != r.X && !anyChild(children, func(o PixelRect) bool { return o.X+o.W == c.X && o.Y == c.Y }) {
				t.Errorf("seed (%d,%d): child %+v's left edge meets no sibling's right edge", s.w, s.h, c)
			}
			if c.Y != r.Y && !anyChild(children, func(o PixelRect) bool { return o.Y+o.H == c.Y && o.X == c.X }) {
				t.Errorf("seed (%d,%d): child %+v's top edge meets no sibling's bottom edge", s.w, s.h, c)
			}
		}
	}
}

func anyChild(children []PixelRect, pred func(PixelRect) bool) bool {
	for _, o := range children {
		if pred(o) {
			return true
		}
	}
	return false
}

func TestSubdivideMinimumOneByOne(t *testing.T) {
	r := PixelRect{X: 5, Y: 5, W: 1, H: 1}
	children := Subdivide(r)
	if len(children) != 1 {
		t.Fatalf("1x1 rect should yield exactly one child, got %d", len(children))
	}
	if children[0] != r {
		t.Errorf("1x1 rect's single child should equal itself, got %+v", children[0])
	}
}

func TestCenterPixelAndContains(t *testing.T) {
	r := PixelRect{X: 10, Y: 20, W: 4, H: 6}
	cx, cy := r.CenterPixel()
	if cx != 12 || cy != 23 {
		t.Errorf("CenterPixel() = (%v, %v), want (12, 23)", cx, cy)
	}
	if !r.Contains(10, 20) || r.Contains(14, 20) || r.Contains(10, 26) {
		t.Error("Contains boundary behavior incorrect")
	}
}
