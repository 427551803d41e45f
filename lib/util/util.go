// Package util contains helper functions used around the code.
package util

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ZatoshisPerZEC is the number of zatoshis in one ZEC.
const ZatoshisPerZEC = 100_000_000

// zecExp is the decimal exponent between ZEC and zatoshis.
const zecExp = 8

// ErrAmount is returned when an amount cannot be expressed as a positive whole number of zatoshis.
var ErrAmount = errors.New("amount must be a positive multiple of 1 zatoshi")

// In returns true if s is found in ss, false otherwise
func In(ss []string, s string) bool {
	for _, v := range ss {
		if s == v {
			return true
		}
	}

	return false
}

// HasPrefix returns true if s starts with any of the prefixes.
func HasPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}

// ToZatoshis converts a ZEC amount to zatoshis. The amount must be strictly positive and must not carry more than 8
// decimal places.
func ToZatoshis(zec decimal.Decimal) (uint64, error) {
	z := zec.Shift(zecExp)
	if !z.IsPositive() || !z.IsInteger() {
		return 0, ErrAmount
	}

	if z.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, ErrAmount
	}

	return uint64(z.IntPart()), nil
}

// ZEC converts zatoshis to a ZEC decimal.
func ZEC(zat uint64) decimal.Decimal {
	if zat > math.MaxInt64 {
		zat = math.MaxInt64
	}

	return decimal.NewFromInt(int64(zat)).Shift(-zecExp)
}

// ZECFloat converts zatoshis to a float64 ZEC amount, as used in JSON replies.
func ZECFloat(zat uint64) float64 {
	return ZEC(zat).InexactFloat64()
}
