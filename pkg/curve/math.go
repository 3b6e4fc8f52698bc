package curve

import (
	"github.com/holiman/uint256"
)

// MaxU128 is the largest amount any reserve, fee or swap result may hold.
var MaxU128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// fitsU128 reports whether x can be stored in a 128-bit container.
func fitsU128(x *uint256.Int) bool {
	return x != nil && x.BitLen() <= 128
}

// Checked 256-bit helpers. They never wrap: overflow, underflow and division
// by zero all report ok == false.

func checkedAdd(x, y *uint256.Int) (*uint256.Int, bool) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, false
	}
	return z, true
}

func checkedSub(x, y *uint256.Int) (*uint256.Int, bool) {
	if x.Lt(y) {
		return nil, false
	}
	return new(uint256.Int).Sub(x, y), true
}

func checkedMul(x, y *uint256.Int) (*uint256.Int, bool) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, false
	}
	return z, true
}

func checkedDiv(x, y *uint256.Int) (*uint256.Int, bool) {
	if y.IsZero() {
		return nil, false
	}
	return new(uint256.Int).Div(x, y), true
}

func checkedRem(x, y *uint256.Int) (*uint256.Int, bool) {
	if y.IsZero() {
		return nil, false
	}
	return new(uint256.Int).Mod(x, y), true
}

// checkedCeilDiv returns ceil(x / y).
func checkedCeilDiv(x, y *uint256.Int) (*uint256.Int, bool) {
	q, ok := checkedDiv(x, y)
	if !ok {
		return nil, false
	}
	r, _ := checkedRem(x, y)
	if r.IsZero() {
		return q, true
	}
	return checkedAdd(q, uint256.NewInt(1))
}

// 128-bit bounded variants used for every value that leaves this package.

func checkedAdd128(x, y *uint256.Int) (*uint256.Int, bool) {
	z, ok := checkedAdd(x, y)
	if !ok || !fitsU128(z) {
		return nil, false
	}
	return z, true
}

func checkedSub128(x, y *uint256.Int) (*uint256.Int, bool) {
	if !fitsU128(x) || !fitsU128(y) {
		return nil, false
	}
	return checkedSub(x, y)
}

// absDiff returns |x - y|.
func absDiff(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return new(uint256.Int).Sub(y, x)
	}
	return new(uint256.Int).Sub(x, y)
}

// isNil reports whether any argument is a nil pointer.
func isNil(xs ...*uint256.Int) bool {
	for _, x := range xs {
		if x == nil {
			return true
		}
	}
	return false
}
