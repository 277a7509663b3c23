// Package fingerprint computes record fingerprints and keeps the durable set
// of fingerprints already ingested.
//
// A fingerprint is sum(code_point[i] * p^i mod m) over the code points of the
// identifying string with p = 199 and m = 10^9+9. The sum itself is not
// reduced modulo m; stored indexes depend on that exact value.
package fingerprint

import (
	"fmt"
	"math"
)

const (
	Base    = 199
	Modulus = 1_000_000_009

	// tableSize powers are computed up front; longer strings compute the
	// remaining powers on demand.
	tableSize = 1000
)

// Arithmetic selects how the powers of Base are computed.
type Arithmetic string

const (
	// Exact computes p^i mod m in integers.
	Exact Arithmetic = "exact"
	// Float64 reproduces a double precision square-and-multiply power table,
	// which rounds once intermediate squares exceed 2^53. Indexes written by
	// deployments that computed powers that way only match in this mode.
	Float64 Arithmetic = "float64"
)

// Hasher computes fingerprints. It is immutable after construction and safe
// for concurrent use.
type Hasher struct {
	arith  Arithmetic
	powers []int64
}

// NewHasher builds the power table for arith.
func NewHasher(arith Arithmetic) (*Hasher, error) {
	if arith == "" {
		arith = Exact
	}
	if arith != Exact && arith != Float64 {
		return nil, fmt.Errorf("unknown fingerprint arithmetic %q", arith)
	}

	h := &Hasher{arith: arith, powers: make([]int64, tableSize)}
	if arith == Exact {
		pw := int64(1)
		for i := range h.powers {
			h.powers[i] = pw
			pw = pw * Base % Modulus
		}
	} else {
		for i := range h.powers {
			h.powers[i] = floatPow(i)
		}
	}
	return h, nil
}

// Arithmetic returns the mode the hasher was built with.
func (h *Hasher) Arithmetic() Arithmetic {
	return h.arith
}

// Sum returns the fingerprint of s.
func (h *Hasher) Sum(s string) int64 {
	var sum int64
	i := 0
	for _, r := range s {
		sum += int64(r) * h.power(i) % Modulus
		i++
	}
	return sum
}

func (h *Hasher) power(i int) int64 {
	if i < len(h.powers) {
		return h.powers[i]
	}
	if h.arith == Float64 {
		return floatPow(i)
	}
	return exactPow(i)
}

func exactPow(n int) int64 {
	res, a := int64(1), int64(Base)
	for n > 0 {
		if n&1 == 1 {
			res = res * a % Modulus
		}
		a = a * a % Modulus
		n >>= 1
	}
	return res
}

func floatPow(n int) int64 {
	const mod = float64(Modulus)
	res, a := 1.0, float64(Base)
	for n > 0 {
		if n&1 == 1 {
			res = math.Mod(float64(res*a), mod)
		}
		a = math.Mod(float64(a*a), mod)
		n >>= 1
	}
	return int64(res)
}
