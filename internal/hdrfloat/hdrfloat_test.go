package hdrfloat

import (
	"math"
	"testing"

	"github.com/whalelogic/deepbrot/internal/bigfloat"
)

func TestFromFloat64ToFloat64RoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 3.14159, 1e100, -1e-100} {
		h := FromFloat64(v)
		got := h.ToFloat64()
		if math.Abs(got-v) > math.Abs(v)*1e-12+1e-300 {
			t.Errorf("FromFloat64(%v).ToFloat64() = %v", v, got)
		}
	}
}

func TestAddSub(t *testing.T) {
	a := FromFloat64(1.5)
	b := FromFloat64(2.25)
	sum := a.Add(b)
	if math.Abs(sum.ToFloat64()-3.75) > 1e-9 {
		t.Errorf("Add = %v, want 3.75", sum.ToFloat64())
	}
	diff := sum.Sub(b)
	if math.Abs(diff.ToFloat64()-1.5) > 1e-9 {
		t.Errorf("Sub = %v, want 1.5", diff.ToFloat64())
	}
}

func TestAddWideExponentGap(t *testing.T) {
	big := FromFloat64(1e30)
	tiny := FromFloat64(1e-30)
	sum := big.Add(tiny)
	if math.Abs(sum.ToFloat64()-1e30) > 1e20 {
		t.Errorf("Add with >maxExpGap separation should collapse to the larger operand, got %v", sum.ToFloat64())
	}
}

func TestMulExtremeDynamicRange(t *testing.T) {
	// Magnitudes far outside float64 range (~2^1024), exercising HDRFloat's
	// entire point: this must neither overflow to +Inf nor underflow to 0,
	// and the result's exponent must land near 2x the operands' (exact
	// value depends on frexp normalization of the 1.5 mantissa).
	const e int32 = 1 << 28
	a := New(1.5, 0, e)
	b := New(1.5, 0, e)
	prod := a.Mul(b)
	if prod.isZero() {
		t.Fatal("product underflowed to zero")
	}
	if math.IsInf(prod.head, 0) {
		t.Fatal("product head overflowed to Inf")
	}
	if prod.Exp() < 2*e-2 || prod.Exp() > 2*e+2 {
		t.Errorf("product exponent = %d, want near %d", prod.Exp(), 2*e)
	}
}

func TestSignAbsCmp(t *testing.T) {
	neg := FromFloat64(-5)
	pos := FromFloat64(5)
	if neg.Sign() != -1 || pos.Sign() != 1 || Zero.Sign() != 0 {
		t.Fatal("Sign mismatch")
	}
	if neg.Abs().Sign() != 1 {
		t.Error("Abs(-5) should be positive")
	}
	if neg.Cmp(pos) >= 0 {
		t.Error("expected -5 < 5")
	}
	if pos.Cmp(pos) != 0 {
		t.Error("expected 5 == 5")
	}
}

func TestSqrt(t *testing.T) {
	for _, v := range []float64{4, 2, 1e40, 1e41} {
		h := FromFloat64(v)
		r := h.Sqrt()
		got := r.ToFloat64()
		want := math.Sqrt(v)
		if math.Abs(got-want)/want > 1e-9 {
			t.Errorf("Sqrt(%v) = %v, want %v", v, got, want)
		}
	}
}

func TestFromBigFloatPreservesExponent(t *testing.T) {
	bf := bigfloat.WithPrecision(1, 64)
	shifted := bigfloat.Ldexp(bf, 1<<20)
	h := FromBigFloat(shifted)
	back := h.ToBigFloat(64)
	if back.Sign() <= 0 {
		t.Fatal("round-tripped value lost sign/magnitude")
	}
	if !math.IsInf(h.ToFloat64(), 1) {
		t.Errorf("ToFloat64 of an extreme-exponent value should saturate to +Inf, got %v", h.ToFloat64())
	}
}

func TestMarshalUnmarshalJSON(t *testing.T) {
	h := New(1.23456789, -3.2e-10, 12345)
	data, err := h.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON error: %v", err)
	}
	var out HDRFloat
	if err := out.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON error: %v", err)
	}
	if out.Cmp(h) != 0 {
		t.Errorf("round-tripped value changed: %+v vs %+v", out, h)
	}
}
