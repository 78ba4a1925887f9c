// Package hdrfloat implements the extended-range reduced-precision float
// used for per-pixel deltas once a render has zoomed past ordinary float64
// range. A value is head+tail (two float64 mantissas, ~48 significant bits
// combined) times 2^exp with exp an int32, giving a dynamic range of
// roughly 2^±2e9 — far beyond what any fixed-width float can reach, which
// is the entire point: deltas must survive the zoom even though the
// reference orbit itself lives in arbitrary precision.
package hdrfloat

import (
	"encoding/json"
	"math"

	"github.com/whalelogic/deepbrot/internal/bigfloat"
)

// maxExpGap is the exponent separation past which addition drops the
// smaller operand and returns the larger one unchanged (spec §4.3). The
// dropped term is discarded even where the float64 tail could have held
// part of it.
const maxExpGap = 24

// HDRFloat is head+tail, two finite-precision mantissas, times 2^exp.
type HDRFloat struct {
	head, tail float64
	exp        int32
}

// Zero is the additive identity, (0, 0, 0).
var Zero = HDRFloat{}

func (h HDRFloat) isZero() bool { return h.head == 0 && h.tail == 0 }

// Head, Tail, Exp expose the internal representation for tests and for the
// GPU numeric contract, which mirrors this layout field-for-field.
func (h HDRFloat) Head() float64 { return h.head }
func (h HDRFloat) Tail() float64 { return h.tail }
func (h HDRFloat) Exp() int32    { return h.exp }

// twoSum computes a+b returning the float64 sum and the rounding error,
// exact per Knuth/Shewchuk's error-free transformation.
func twoSum(a, b float64) (sum, err float64) {
	sum = a + b
	v := sum - a
	err = (a - (sum - v)) + (b - v)
	return
}

// normalize extracts the unbiased exponent of head, folds it into exp, and
// rescales tail to match. Renormalization is idempotent: normalizing an
// already-normalized value is a no-op up to float64 rounding.
func normalize(head, tail float64, exp int32) HDRFloat {
	if head == 0 && tail == 0 {
		return Zero
	}
	if head == 0 {
		// Tail carries the value; promote it to head and normalize that.
		return normalize(tail, 0, exp)
	}
	frac, e := math.Frexp(head)
	scaled := tail
	if e != 0 {
		scaled = math.Ldexp(tail, -e)
	}
	return HDRFloat{head: frac, tail: scaled, exp: exp + int32(e)}
}

// New constructs an HDRFloat directly from its three fields, normalizing.
func New(head, tail float64, exp int32) HDRFloat {
	return normalize(head, tail, exp)
}

// FromFloat64 downcasts an ordinary float64 into HDRFloat.
func FromFloat64(v float64) HDRFloat {
	if v == 0 {
		return Zero
	}
	m, e := math.Frexp(v)
	return HDRFloat{head: m, tail: 0, exp: int32(e)}
}

// FromBigFloat downcasts a BigFloat into HDRFloat, reading its exponent
// directly (not through a float64 round-trip) so magnitudes outside
// float64 range still land at the correct exponent.
func FromBigFloat(a bigfloat.BigFloat) HDRFloat {
	if a.IsZero() {
		return Zero
	}
	m, e := a.MantExp()
	return HDRFloat{head: m, tail: 0, exp: int32(e)}
}

// ToFloat64 collapses back to an ordinary float64, saturating to +/-Inf or
// 0 on overflow/underflow rather than panicking.
func (h HDRFloat) ToFloat64() float64 {
	if h.isZero() {
		return 0
	}
	return math.Ldexp(h.head+h.tail, int(h.exp))
}

// ToBigFloat reconstructs a BigFloat at the given precision, exact even
// when Exp is far outside float64's range (uses big.Float's own mantissa/
// exponent form rather than math.Ldexp).
func (h HDRFloat) ToBigFloat(prec uint32) bigfloat.BigFloat {
	if h.isZero() {
		return bigfloat.Zero(prec)
	}
	mant := bigfloat.WithPrecision(h.head+h.tail, prec)
	return bigfloat.Ldexp(mant, int(h.exp))
}

// wireFormat mirrors the GPU buffer layout field-for-field (spec §6):
// head, tail, and a binary exponent, so a worker message and a GPU uniform
// carry the identical three numbers.
type wireFormat struct {
	Head float64 `json:"head"`
	Tail float64 `json:"tail"`
	Exp  int32   `json:"exp"`
}

// MarshalJSON serializes as {"head", "tail", "exp"}.
func (h HDRFloat) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireFormat{Head: h.head, Tail: h.tail, Exp: h.exp})
}

// UnmarshalJSON restores a value from its wire form without renormalizing
// away any precision the sender already folded into head/tail.
func (h *HDRFloat) UnmarshalJSON(data []byte) error {
	var w wireFormat
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*h = normalize(w.Head, w.Tail, w.Exp)
	return nil
}

// Neg returns -h.
func (h HDRFloat) Neg() HDRFloat {
	return HDRFloat{head: -h.head, tail: -h.tail, exp: h.exp}
}

// Add returns h+other. Operands with exponents more than maxExpGap apart
// are combined by returning the larger unchanged; the smaller term is
// dropped, not folded into the tail.
func (h HDRFloat) Add(other HDRFloat) HDRFloat {
	if h.isZero() {
		return other
	}
	if other.isZero() {
		return h
	}
	a, b := h, other
	if a.exp < b.exp || (a.exp == b.exp && math.Abs(a.head) < math.Abs(b.head)) {
		a, b = b, a
	}
	diff := int(a.exp) - int(b.exp)
	if diff > maxExpGap {
		return a
	}
	scale := math.Ldexp(1, -diff)
	bh := b.head * scale
	bt := b.tail * scale
	sum, err := twoSum(a.head, bh)
	tail := a.tail + bt + err
	return normalize(sum, tail, a.exp)
}

// Sub returns h-other.
func (h HDRFloat) Sub(other HDRFloat) HDRFloat {
	return h.Add(other.Neg())
}

// Sign returns -1, 0, or 1.
func (h HDRFloat) Sign() int {
	switch {
	case h.isZero():
		return 0
	case h.head < 0:
		return -1
	default:
		return 1
	}
}

// Abs returns the absolute value.
func (h HDRFloat) Abs() HDRFloat {
	if h.head < 0 {
		return HDRFloat{head: -h.head, tail: -h.tail, exp: h.exp}
	}
	return h
}

// Cmp returns a total order over h and other: -1, 0, or 1.
func (h HDRFloat) Cmp(other HDRFloat) int {
	sa, sb := h.Sign(), other.Sign()
	if sa != sb {
		if sa < sb {
			return -1
		}
		return 1
	}
	if sa == 0 {
		return 0
	}
	aa, ab := h.Abs(), other.Abs()
	var mag int
	switch {
	case aa.exp != ab.exp:
		if aa.exp < ab.exp {
			mag = -1
		} else {
			mag = 1
		}
	default:
		av, bv := aa.head+aa.tail, ab.head+ab.tail
		switch {
		case av < bv:
			mag = -1
		case av > bv:
			mag = 1
		}
	}
	if sa < 0 {
		return -mag
	}
	return mag
}

// Sqrt returns an approximate square root, accurate to float64 precision
// (~52 bits), via exponent-halving — exact for HDRFloat's ~48 significant
// bits, which is all the BLA radius comparisons that consume this need.
// The operand must be non-negative; NormSq's output always is.
func (h HDRFloat) Sqrt() HDRFloat {
	if h.isZero() {
		return Zero
	}
	if h.head < 0 {
		return Zero
	}
	m := h.head + h.tail
	e := int(h.exp)
	if e%2 != 0 {
		m *= 2
		e--
	}
	return normalize(math.Sqrt(m), 0, int32(e/2))
}

// Mul returns h*other. The head product's rounding error is extracted via
// fused multiply-add into the tail rather than discarded, which is what
// lets HDRFloat carry ~48 significant bits through a long product chain.
func (h HDRFloat) Mul(other HDRFloat) HDRFloat {
	if h.isZero() || other.isZero() {
		return Zero
	}
	prod := h.head * other.head
	err := math.FMA(h.head, other.head, -prod)
	cross := h.head*other.tail + h.tail*other.head
	tail := err + cross
	return normalize(prod, tail, h.exp+other.exp)
}
