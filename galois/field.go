// Package galois implements arithmetic in GF(2^8) using log/antilog tables
// built from a configurable field polynomial and primitive generator.
package galois

import (
	"fmt"
	"sync"

	"github.com/colorfulnotion/raid6/log"
	"github.com/colorfulnotion/raid6/raiderrors"
)

const (
	// DefaultPolynomial is x^8+x^4+x^3+x^2+1.
	DefaultPolynomial uint16 = 0x11D
	DefaultGenerator  byte   = 0x02

	// Order is the size of the multiplicative group.
	Order = 255
)

// Field holds the tables of one GF(2^8) configuration. A Field is immutable
// after Build and safe for concurrent use.
type Field struct {
	poly      uint16
	generator byte

	// exp is doubled so that exp[log[a]+log[b]] never needs a modulo.
	exp [2 * Order]byte
	log [256]int
	mul [256][256]byte
}

var (
	defaultOnce  sync.Once
	defaultField *Field
)

// Default returns the field for (DefaultPolynomial, DefaultGenerator).
func Default() *Field {
	defaultOnce.Do(func() {
		f, err := Build(DefaultPolynomial, DefaultGenerator)
		if err != nil {
			panic(err)
		}
		defaultField = f
	})
	return defaultField
}

// mulPoly multiplies a and b as polynomials over GF(2), reducing by poly.
func mulPoly(a, b byte, poly uint16) byte {
	var result byte
	aa := uint16(a)
	for i := 0; i < 8; i++ {
		if (b & 1) != 0 {
			result ^= byte(aa & 0xFF)
		}
		b >>= 1
		aa <<= 1
		if aa&0x100 != 0 {
			aa ^= poly
		}
	}
	return result
}

// Build verifies that generator is primitive for poly and constructs the
// field tables. A generator whose powers do not enumerate all 255 nonzero
// elements exactly once is rejected with ErrInvalidGenerator.
func Build(poly uint16, generator byte) (*Field, error) {
	if poly < 0x100 || poly > 0x1FF {
		return nil, fmt.Errorf("polynomial %#x: %w", poly, raiderrors.ErrInvalidPolynomial)
	}
	f := &Field{poly: poly, generator: generator}

	var seen [256]bool
	x := byte(1)
	for i := 0; i < Order; i++ {
		if x == 0 || seen[x] {
			return nil, fmt.Errorf("generator %#x under polynomial %#x cycles after %d powers: %w",
				generator, poly, i, raiderrors.ErrInvalidGenerator)
		}
		seen[x] = true
		f.exp[i] = x
		f.exp[i+Order] = x
		f.log[x] = i
		x = mulPoly(x, generator, poly)
	}
	if x != 1 {
		return nil, fmt.Errorf("generator %#x under polynomial %#x: %w", generator, poly, raiderrors.ErrInvalidGenerator)
	}

	for a := 1; a < 256; a++ {
		for b := 1; b < 256; b++ {
			f.mul[a][b] = f.exp[f.log[a]+f.log[b]]
		}
	}
	log.Trace(log.GFMonitoring, "Build", "field", f)
	return f, nil
}

func (f *Field) Polynomial() uint16 { return f.poly }
func (f *Field) Generator() byte    { return f.generator }

func (f *Field) String() string {
	return fmt.Sprintf("GF(2^8)[poly=%#x g=%#x]", f.poly, f.generator)
}

// Add returns a+b, which in characteristic 2 is also a-b.
func Add(a, b byte) byte {
	return a ^ b
}

// Mul multiplies two field elements.
func (f *Field) Mul(a, b byte) byte {
	if a == 0 || b == 0 {
		return 0
	}
	return f.exp[f.log[a]+f.log[b]]
}

// Div returns a/b.
func (f *Field) Div(a, b byte) (byte, error) {
	if b == 0 {
		return 0, raiderrors.ErrDivisionByZero
	}
	if a == 0 {
		return 0, nil
	}
	return f.exp[f.log[a]-f.log[b]+Order], nil
}

// Inv returns the multiplicative inverse of a.
func (f *Field) Inv(a byte) (byte, error) {
	if a == 0 {
		return 0, raiderrors.ErrDivisionByZero
	}
	return f.exp[Order-f.log[a]], nil
}

// Pow raises a to the power n. Negative exponents are allowed for nonzero a;
// 0 raised to any nonzero power is 0.
func (f *Field) Pow(a byte, n int) byte {
	if n == 0 {
		return 1
	}
	if a == 0 {
		return 0
	}
	return f.exp[mod(f.log[a]*mod(n))]
}

// Exp returns generator^n.
func (f *Field) Exp(n int) byte {
	return f.exp[mod(n)]
}

// Log returns the discrete logarithm of a to the generator base.
func (f *Field) Log(a byte) (int, error) {
	if a == 0 {
		return 0, fmt.Errorf("log of zero: %w", raiderrors.ErrDivisionByZero)
	}
	return f.log[a], nil
}

func mod(n int) int {
	n %= Order
	if n < 0 {
		n += Order
	}
	return n
}
