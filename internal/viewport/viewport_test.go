package viewport

import (
	"math"
	"testing"

	"github.com/whalelogic/deepbrot/internal/bigfloat"
)

func TestMaxIterationsBounds(t *testing.T) {
	if got := MaxIterations(0, false); got != MinIterations {
		t.Errorf("MaxIterations(zoom<1) = %d, want %d", got, MinIterations)
	}
	if got := MaxIterations(1, false); got != MinIterations {
		t.Errorf("MaxIterations(1) = %d, want %d", got, MinIterations)
	}
	// At zoom 1e22 the formula gives 50 + 100*22^1.5 = 10368.9, past the
	// default ceiling.
	huge := MaxIterations(1e22, false)
	if huge != MaxIterationsDefault {
		t.Errorf("MaxIterations clamps to %d without AllowUnbounded, got %d", MaxIterationsDefault, huge)
	}
	hugeUnbounded := MaxIterations(1e22, true)
	if hugeUnbounded != 10368 {
		t.Errorf("MaxIterations with AllowUnbounded should lift the %d ceiling to give 10368, got %d", MaxIterationsDefault, hugeUnbounded)
	}
}

func TestMaxIterationsMonotonicInZoom(t *testing.T) {
	prev := MaxIterations(1, false)
	for _, z := range []float64{10, 100, 1000, 10000} {
		cur := MaxIterations(z, false)
		if cur < prev {
			t.Errorf("MaxIterations(%v) = %d should be >= MaxIterations at lower zoom (%d)", z, cur, prev)
		}
		prev = cur
	}
}

func TestRequiredPrecisionBitsGrowsWithZoom(t *testing.T) {
	shallow := RequiredPrecisionBits(10, DefaultNaturalWidth, 1024, 100)
	deep := RequiredPrecisionBits(1e12, DefaultNaturalWidth, 1024, 1000)
	if deep <= shallow {
		t.Errorf("deep zoom precision %d should exceed shallow zoom precision %d", deep, shallow)
	}
	if shallow < 32 {
		t.Errorf("precision should never drop below the 32-bit floor, got %d", shallow)
	}
}

func TestCheckPrecision(t *testing.T) {
	if err := CheckPrecision(1000); err != nil {
		t.Errorf("expected no error within MaxPrecisionBits, got %v", err)
	}
	if err := CheckPrecision(bigfloat.MaxPrecisionBits + 1); err == nil {
		t.Error("expected PrecisionInsufficient error beyond MaxPrecisionBits")
	}
}

func TestReliftPreservesValue(t *testing.T) {
	v := Viewport{
		Center:        bigfloat.NewComplex(-0.75, 0.1, 32),
		NaturalBounds: DefaultRect(32),
		Zoom:          1,
		CanvasWidth:   800,
		CanvasHeight:  600,
	}
	lifted := v.Relift(2048)
	if lifted.Center.Re.Precision() != 2048 {
		t.Errorf("Relift should raise declared precision, got %d", lifted.Center.Re.Precision())
	}
	if math.Abs(lifted.Center.Re.ToF64()-v.Center.Re.ToF64()) > 1e-9 {
		t.Error("Relift changed the center's value")
	}
}

func TestDcMaxPositive(t *testing.T) {
	v := Viewport{
		Center:        bigfloat.ZeroComplex(64),
		NaturalBounds: DefaultRect(64),
		Zoom:          1e6,
		CanvasWidth:   1920,
		CanvasHeight:  1080,
	}
	dc := v.DcMax()
	if dc.Sign() <= 0 {
		t.Error("DcMax should be strictly positive for a non-degenerate viewport")
	}
}

func TestPixelSpacingShrinksWithZoom(t *testing.T) {
	v := Viewport{NaturalBounds: DefaultRect(64), CanvasWidth: 1000, Zoom: 1}
	shallow := v.PixelSpacing()
	v.Zoom = 1000
	deep := v.PixelSpacing()
	if deep >= shallow {
		t.Errorf("pixel spacing should shrink as zoom increases: shallow=%v deep=%v", shallow, deep)
	}
}
