package bigfloat

// Complex is a complex number with BigFloat components, used for the
// reference point c_ref and the high-precision orbit terms Z_m.
type Complex struct {
	Re, Im BigFloat
}

// ZeroComplex returns 0+0i at the given precision.
func ZeroComplex(prec uint32) Complex {
	return Complex{Re: Zero(prec), Im: Zero(prec)}
}

// NewComplex constructs a Complex from float64 parts at the given precision.
func NewComplex(re, im float64, prec uint32) Complex {
	return Complex{Re: WithPrecision(re, prec), Im: WithPrecision(im, prec)}
}

// Add returns c+d.
func (c Complex) Add(d Complex) Complex {
	return Complex{Re: c.Re.Add(d.Re), Im: c.Im.Add(d.Im)}
}

// Sub returns c-d.
func (c Complex) Sub(d Complex) Complex {
	return Complex{Re: c.Re.Sub(d.Re), Im: c.Im.Sub(d.Im)}
}

// Mul returns c*d using the standard complex product.
func (c Complex) Mul(d Complex) Complex {
	// (a+bi)(e+fi) = (ae-bf) + (af+be)i
	ae := c.Re.Mul(d.Re)
	bf := c.Im.Mul(d.Im)
	af := c.Re.Mul(d.Im)
	be := c.Im.Mul(d.Re)
	return Complex{Re: ae.Sub(bf), Im: af.Add(be)}
}

// Scale multiplies both components by a real scalar s.
func (c Complex) Scale(s BigFloat) Complex {
	return Complex{Re: c.Re.Mul(s), Im: c.Im.Mul(s)}
}

// NormSq returns |c|^2 = re^2 + im^2, never negative, never a domain error.
func (c Complex) NormSq() BigFloat {
	return c.Re.Mul(c.Re).Add(c.Im.Mul(c.Im))
}

// Abs returns |c| = sqrt(re^2 + im^2).
func (c Complex) Abs() BigFloat {
	n := c.NormSq()
	r, err := n.Sqrt()
	if err != nil {
		// NormSq is a sum of squares and can never be negative; Sqrt can
		// only fail on a negative operand.
		panic("bigfloat: NormSq produced a negative value: " + err.Error())
	}
	return r
}

// Precision returns the shared precision of the complex value's components
// (the larger of the two, matching BigFloat's own op-result rule).
func (c Complex) Precision() uint32 {
	if c.Re.Precision() > c.Im.Precision() {
		return c.Re.Precision()
	}
	return c.Im.Precision()
}
