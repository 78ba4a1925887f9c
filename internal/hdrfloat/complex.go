package hdrfloat

import "github.com/whalelogic/deepbrot/internal/bigfloat"

// Complex is a complex number built from a pair of HDRFloats, used for
// pixel deltas (δz, δc) once a render has zoomed past ordinary float64
// range.
type Complex struct {
	Re, Im HDRFloat
}

// ZeroComplex is 0+0i.
var ZeroComplex = Complex{}

// FromBigFloatComplex downcasts a bigfloat.Complex.
func FromBigFloatComplex(c bigfloat.Complex) Complex {
	return Complex{Re: FromBigFloat(c.Re), Im: FromBigFloat(c.Im)}
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
	ac := c.Re.Mul(d.Re)
	bd := c.Im.Mul(d.Im)
	ad := c.Re.Mul(d.Im)
	bc := c.Im.Mul(d.Re)
	return Complex{Re: ac.Sub(bd), Im: ad.Add(bc)}
}

// Scale multiplies both components by a real scalar.
func (c Complex) Scale(s HDRFloat) Complex {
	return Complex{Re: c.Re.Mul(s), Im: c.Im.Mul(s)}
}

// NormSq returns |c|^2 = re^2 + im^2. Escape and glitch tests compare
// against this rather than taking a square root every iteration.
func (c Complex) NormSq() HDRFloat {
	return c.Re.Mul(c.Re).Add(c.Im.Mul(c.Im))
}
