// Package wei converts between ether decimal strings and wei integers.
package wei

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

var etherUnit = decimal.New(1, 18)

// ParseEther converts a decimal ether amount such as "0.5" into wei.
// Digits beyond 18 decimal places are rejected rather than rounded.
func ParseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid ether amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid ether amount %q: negative", s)
	}
	w := d.Mul(etherUnit)
	if !w.Equal(w.Truncate(0)) {
		return nil, fmt.Errorf("invalid ether amount %q: more than 18 decimals", s)
	}
	return w.BigInt(), nil
}

// FormatEther renders wei as a decimal ether string without trailing zeros, keeping one
// fractional digit for whole amounts ("1.0").
func FormatEther(v *big.Int) string {
	if v == nil {
		return "0.0"
	}
	s := decimal.NewFromBigInt(v, -18).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// String renders v as a base-10 integer string, "0" for nil.
func String(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
