package common

import (
	"math"
	"math/big"

	"github.com/holiman/uint256"
)

// BasisPoints is the denominator for fee, APY and penalty rates.
var BasisPoints = big.NewInt(10_000)

// MaxBasisPoints is the largest meaningful rate (100%).
const MaxBasisPoints uint64 = 10_000

// Big returns a non-nil copy of v.
func Big(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// MulBps returns amount*bps/10000, truncating.
func MulBps(amount *big.Int, bps uint64) *big.Int {
	if amount == nil || amount.Sign() == 0 || bps == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, new(big.Int).SetUint64(bps))
	return out.Quo(out, BasisPoints)
}

// Clamp bounds v to [lo, hi]. hi wins when the bounds are inverted.
func Clamp(v, lo, hi *big.Int) *big.Int {
	out := Big(v)
	if lo != nil && out.Cmp(lo) < 0 {
		out.Set(lo)
	}
	if hi != nil && out.Cmp(hi) > 0 {
		out.Set(hi)
	}
	return out
}

// IsPositive reports whether v > 0.
func IsPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

// SaturatingAccrue returns base + product(factors), saturating at cap. The
// product is carried in 256 bits so large elapsed times cannot wrap.
func SaturatingAccrue(base uint64, cap uint64, factors ...uint64) uint64 {
	product := uint256.NewInt(1)
	for _, f := range factors {
		if f == 0 {
			product.Clear()
			break
		}
		if _, overflow := product.MulOverflow(product, uint256.NewInt(f)); overflow {
			return cap
		}
	}
	sum, overflow := new(uint256.Int).AddOverflow(product, uint256.NewInt(base))
	if overflow || !sum.IsUint64() || sum.Uint64() > cap {
		return cap
	}
	return sum.Uint64()
}

// SaturatingAdd returns a+b, saturating at math.MaxUint64.
func SaturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// SaturatingSub returns a-b, floored at zero.
func SaturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
