// Package bigfloat implements the arbitrary-precision binary float that
// backs the deep-zoom reference orbit and viewport coordinates. Every value
// carries its own declared precision; the two-path design (a plain float64
// fast path up to FastPathMaxPrecision bits, and a math/big.Float slow path
// above it) exists purely for speed. Values compare equal across paths by
// value, but the two paths do not round identically (see
// FastPathMaxPrecision).
package bigfloat

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"

	"github.com/whalelogic/deepbrot/internal/errs"
)

// FastPathMaxPrecision is the largest precision_bits served by the float64
// fast path. Fast-path values are plain float64s: each operation rounds to
// float64's 53-bit mantissa, not to the declared precision, so a fast-path
// result can carry more bits than the slow path keeps at the same declared
// precision. Parse (and so UnmarshalJSON) does round to the declared
// precision, so such a value does not survive a JSON round trip bit-exactly.
const FastPathMaxPrecision = 50

// MaxPrecisionBits bounds precision_bits from above. Renders asking for more
// than this trip PrecisionInsufficient in the viewport package rather than
// building an unbounded big.Float.
const MaxPrecisionBits = 10000

// BigFloat is a signed binary floating-point value with declared precision.
// The zero value is not meaningful; use Zero, One, or WithPrecision.
type BigFloat struct {
	prec uint32
	fast bool
	f64  float64
	big  *big.Float
}

func clampPrec(p uint32) uint32 {
	if p < 32 {
		return 32
	}
	if p > MaxPrecisionBits {
		return MaxPrecisionBits
	}
	return p
}

func useFast(prec uint32, v float64) bool {
	if prec > FastPathMaxPrecision {
		return false
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return false
	}
	return true
}

// Zero returns the additive identity at the given precision. Zero is
// uniquely represented and preserves its declared precision.
func Zero(prec uint32) BigFloat {
	prec = clampPrec(prec)
	if prec <= FastPathMaxPrecision {
		return BigFloat{prec: prec, fast: true, f64: 0}
	}
	return BigFloat{prec: prec, big: new(big.Float).SetPrec(uint(prec))}
}

// One returns the multiplicative identity at the given precision.
func One(prec uint32) BigFloat {
	return WithPrecision(1, prec)
}

// WithPrecision constructs a BigFloat from a float64 at the declared
// precision, choosing the fast or slow representation as appropriate.
func WithPrecision(v float64, prec uint32) BigFloat {
	prec = clampPrec(prec)
	if useFast(prec, v) {
		return BigFloat{prec: prec, fast: true, f64: v}
	}
	bf := new(big.Float).SetPrec(uint(prec)).SetFloat64(v)
	return BigFloat{prec: prec, fast: false, big: bf}
}

// Parse constructs a BigFloat from a decimal or scientific-notation string
// at the declared precision. Malformed input returns a typed ParseError.
func Parse(s string, prec uint32) (BigFloat, error) {
	prec = clampPrec(prec)
	bf, _, err := big.ParseFloat(s, 10, uint(prec), big.ToNearestEven)
	if err != nil {
		return BigFloat{}, errs.Wrap(errs.KindParse, fmt.Sprintf("parsing %q", s), err)
	}
	if useFast(prec, mustF64(bf)) {
		return BigFloat{prec: prec, fast: true, f64: mustF64(bf)}, nil
	}
	return BigFloat{prec: prec, fast: false, big: bf}, nil
}

func mustF64(bf *big.Float) float64 {
	f, _ := bf.Float64()
	return f
}

// Precision returns the value's declared precision_bits.
func (a BigFloat) Precision() uint32 { return a.prec }

// IsZero reports whether a is the zero value.
func (a BigFloat) IsZero() bool {
	if a.fast {
		return a.f64 == 0
	}
	return a.big == nil || a.big.Sign() == 0
}

// toBig returns a big.Float view of a at precision prec, promoting the fast
// path if necessary. It never mutates a.
func (a BigFloat) toBig(prec uint32) *big.Float {
	if !a.fast {
		if uint(prec) == a.big.Prec() {
			return a.big
		}
		return new(big.Float).SetPrec(uint(prec)).Set(a.big)
	}
	return new(big.Float).SetPrec(uint(prec)).SetFloat64(a.f64)
}

func resultPrec(a, b BigFloat) uint32 {
	if a.prec > b.prec {
		return a.prec
	}
	return b.prec
}

func bothFast(a, b BigFloat, prec uint32) bool {
	return a.fast && b.fast && prec <= FastPathMaxPrecision
}

// Add returns a+b at precision max(a.Precision(), b.Precision()).
func (a BigFloat) Add(b BigFloat) BigFloat {
	prec := resultPrec(a, b)
	if bothFast(a, b, prec) {
		v := a.f64 + b.f64
		if useFast(prec, v) {
			return BigFloat{prec: prec, fast: true, f64: v}
		}
	}
	r := new(big.Float).SetPrec(uint(prec))
	r.Add(a.toBig(prec), b.toBig(prec))
	return BigFloat{prec: prec, big: r}
}

// Sub returns a-b at precision max(a.Precision(), b.Precision()).
func (a BigFloat) Sub(b BigFloat) BigFloat {
	prec := resultPrec(a, b)
	if bothFast(a, b, prec) {
		v := a.f64 - b.f64
		if useFast(prec, v) {
			return BigFloat{prec: prec, fast: true, f64: v}
		}
	}
	r := new(big.Float).SetPrec(uint(prec))
	r.Sub(a.toBig(prec), b.toBig(prec))
	return BigFloat{prec: prec, big: r}
}

// Mul returns a*b at precision max(a.Precision(), b.Precision()).
func (a BigFloat) Mul(b BigFloat) BigFloat {
	prec := resultPrec(a, b)
	if bothFast(a, b, prec) {
		v := a.f64 * b.f64
		if useFast(prec, v) {
			return BigFloat{prec: prec, fast: true, f64: v}
		}
	}
	r := new(big.Float).SetPrec(uint(prec))
	r.Mul(a.toBig(prec), b.toBig(prec))
	return BigFloat{prec: prec, big: r}
}

// Div returns a/b at precision max(a.Precision(), b.Precision()). Division
// by zero is a domain error, not a panic or an infinity.
func (a BigFloat) Div(b BigFloat) (BigFloat, error) {
	if b.IsZero() {
		return BigFloat{}, errs.New(errs.KindDomain, "division by zero")
	}
	prec := resultPrec(a, b)
	if bothFast(a, b, prec) {
		v := a.f64 / b.f64
		if useFast(prec, v) {
			return BigFloat{prec: prec, fast: true, f64: v}, nil
		}
	}
	r := new(big.Float).SetPrec(uint(prec))
	r.Quo(a.toBig(prec), b.toBig(prec))
	return BigFloat{prec: prec, big: r}, nil
}

// Neg returns -a at a's precision.
func (a BigFloat) Neg() BigFloat {
	if a.fast {
		return BigFloat{prec: a.prec, fast: true, f64: -a.f64}
	}
	r := new(big.Float).SetPrec(a.big.Prec())
	r.Neg(a.big)
	return BigFloat{prec: a.prec, big: r}
}

// Sqrt returns the square root of a at a's precision. A negative operand is
// a domain error.
func (a BigFloat) Sqrt() (BigFloat, error) {
	if a.Sign() < 0 {
		return BigFloat{}, errs.New(errs.KindDomain, "sqrt of negative value")
	}
	if a.fast {
		v := math.Sqrt(a.f64)
		if useFast(a.prec, v) {
			return BigFloat{prec: a.prec, fast: true, f64: v}, nil
		}
	}
	r := new(big.Float).SetPrec(uint(a.prec))
	r.Sqrt(a.toBig(a.prec))
	return BigFloat{prec: a.prec, big: r}, nil
}

// Sign returns -1, 0, or 1.
func (a BigFloat) Sign() int {
	if a.fast {
		switch {
		case a.f64 < 0:
			return -1
		case a.f64 > 0:
			return 1
		default:
			return 0
		}
	}
	return a.big.Sign()
}

// Cmp returns a total order over a and b regardless of which path either
// uses: -1, 0, or 1.
func (a BigFloat) Cmp(b BigFloat) int {
	if a.fast && b.fast {
		switch {
		case a.f64 < b.f64:
			return -1
		case a.f64 > b.f64:
			return 1
		default:
			return 0
		}
	}
	prec := resultPrec(a, b)
	return a.toBig(prec).Cmp(b.toBig(prec))
}

// Eq reports value equality. Equality is value-exact, not bit-exact between
// paths: a fast-path 1.5 and a slow-path 1.5 compare equal.
func (a BigFloat) Eq(b BigFloat) bool { return a.Cmp(b) == 0 }

// ToF64 converts to float64, saturating to +/-Inf or 0 on overflow/underflow
// rather than panicking.
func (a BigFloat) ToF64() float64 {
	if a.fast {
		return a.f64
	}
	f, acc := a.big.Float64()
	if acc != big.Exact && math.IsInf(f, 0) {
		return f
	}
	return f
}

// Log2Approx returns a cheap approximation of log2(|a|). It is monotone in
// |a| and accurate to O(1) in the integer part for any magnitude, including
// magnitudes far outside float64 range — it works from the value's binary
// exponent, not from a float64 conversion of the whole value.
func (a BigFloat) Log2Approx() float64 {
	if a.IsZero() {
		return math.Inf(-1)
	}
	if a.fast {
		return math.Log2(math.Abs(a.f64))
	}
	mant := new(big.Float).SetPrec(53)
	exp := a.big.MantExp(mant) // a.big = mant * 2^exp, mant in [0.5, 1)
	m, _ := mant.Float64()
	return float64(exp) + math.Log2(math.Abs(m))
}

// SetPrecision returns a copy of a carrying a new declared precision.
// Raising precision zero-pads the mantissa (the value is unchanged, just
// carried at higher precision so future deltas accumulated against it
// don't lose bits); lowering precision rounds. This backs the viewport
// re-lift spec §4.1 requires whenever a stored center's precision falls
// behind a render's newly computed requirement.
func SetPrecision(a BigFloat, prec uint32) BigFloat {
	prec = clampPrec(prec)
	if prec <= FastPathMaxPrecision {
		v := a.ToF64()
		if useFast(prec, v) {
			return BigFloat{prec: prec, fast: true, f64: v}
		}
	}
	return BigFloat{prec: prec, big: a.toBig(prec)}
}

// MantExp returns (mant, exp) such that a == mant * 2^exp and
// mant is in (-1, -0.5] ∪ [0.5, 1), mirroring math.Frexp but valid for
// magnitudes far outside float64 range. Used by hdrfloat to downcast a
// BigFloat without first collapsing it through ToF64.
func (a BigFloat) MantExp() (mant float64, exp int) {
	if a.IsZero() {
		return 0, 0
	}
	if a.fast {
		return math.Frexp(a.f64)
	}
	m := new(big.Float).SetPrec(53)
	e := a.big.MantExp(m)
	f, _ := m.Float64()
	return f, e
}

// Ldexp returns a * 2^exp, exact at a's precision regardless of whether
// a*2^exp itself would overflow float64 — used to reconstruct a BigFloat
// from an HDRFloat's (head+tail, exp) form without losing the exponent.
func Ldexp(a BigFloat, exp int) BigFloat {
	if a.IsZero() {
		return a
	}
	if a.fast {
		v := math.Ldexp(a.f64, exp)
		if useFast(a.prec, v) {
			return BigFloat{prec: a.prec, fast: true, f64: v}
		}
	}
	r := new(big.Float).SetPrec(uint(a.prec))
	r.SetMantExp(a.toBig(a.prec), exp)
	return BigFloat{prec: a.prec, big: r}
}

// String renders a human-readable representation, not guaranteed to
// round-trip — use MarshalJSON for that.
func (a BigFloat) String() string {
	if a.fast {
		return strconv.FormatFloat(a.f64, 'g', -1, 64)
	}
	return a.big.Text('g', digitsFor(a.prec))
}

// digitsFor returns enough decimal significant digits to round-trip a value
// carrying prec bits of mantissa, with margin.
func digitsFor(prec uint32) int {
	d := int(math.Ceil(float64(prec)/3.3219280948873626)) + 10
	if d < 17 {
		d = 17
	}
	return d
}

// wireFormat is the JSON wire shape from spec §4.2/§6: value preserved as a
// string alongside the declared precision, so a worker can restore the
// exact precision the sender declared rather than inferring it.
type wireFormat struct {
	Value         string `json:"value"`
	PrecisionBits uint32 `json:"precision_bits"`
}

// MarshalJSON serializes as {"value": string, "precision_bits": uint32}.
func (a BigFloat) MarshalJSON() ([]byte, error) {
	var val string
	if a.fast {
		val = strconv.FormatFloat(a.f64, 'e', -1, 64)
	} else {
		val = a.big.Text('e', digitsFor(a.prec))
	}
	return json.Marshal(wireFormat{Value: val, PrecisionBits: a.prec})
}

// UnmarshalJSON restores the value at the precision declared in the wire
// message (decision recorded in DESIGN.md: preserve the sender's declared
// precision rather than renormalizing at the boundary).
func (a *BigFloat) UnmarshalJSON(data []byte) error {
	var w wireFormat
	if err := json.Unmarshal(data, &w); err != nil {
		return errs.Wrap(errs.KindMessageParse, "decoding BigFloat wire value", err)
	}
	v, err := Parse(w.Value, w.PrecisionBits)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
