// Package fixedmath provides overflow-checked fixed-point integer
// arithmetic for the fee and payout calculators. All amounts are
// uint64 minor units; division truncates toward zero. Any overflow or
// underflow surfaces as a types.ArithmeticError, which callers treat
// as fatal rather than as a business rejection.
package fixedmath

import (
	"math/bits"

	"github.com/pricebet/pricebet/pkg/types"
)

// BasisPoints is the denominator for all rate math (1 bps = 0.01%).
const BasisPoints = 10_000

// Add returns a+b, failing on wraparound.
func Add(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, &types.ArithmeticError{Op: "add", Detail: "overflow"}
	}
	return sum, nil
}

// Sub returns a-b, failing when b exceeds a.
func Sub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, &types.ArithmeticError{Op: "sub", Detail: "underflow"}
	}
	return diff, nil
}

// MulDiv returns a*b/den with a 128-bit intermediate product,
// truncating toward zero. Fails when den is zero or the quotient
// does not fit in 64 bits.
func MulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, &types.ArithmeticError{Op: "muldiv", Detail: "division by zero"}
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, &types.ArithmeticError{Op: "muldiv", Detail: "quotient overflow"}
	}
	quo, _ := bits.Div64(hi, lo, den)
	return quo, nil
}

// ApplyBps returns amount*bps/10000, truncating.
func ApplyBps(amount, bps uint64) (uint64, error) {
	return MulDiv(amount, bps, BasisPoints)
}
