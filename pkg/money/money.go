// Package money holds the fixed-point rules for classroom currency. Every
// amount in the system is a shopspring decimal carried to exactly two
// fractional digits; binary floats never touch balance arithmetic.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ReadWriteReboot/ClassroomBank/pkg/xerrors"
)

// Zero is the canonical zero balance.
var Zero = decimal.Zero

// Parse converts a client-supplied amount into a normalized positive decimal.
// It rejects empty, unparsable, zero and negative values; anything beyond two
// fractional digits is rounded half-up to cents before use.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: amount is empty", xerrors.ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", xerrors.ErrInvalidAmount, s)
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: got %s", xerrors.ErrInvalidAmount, d.String())
	}
	return d, nil
}

// Normalize clamps a decimal to two fractional digits.
func Normalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders an amount as a fixed two-digit string, e.g. "30.00", "-12.50".
// This is the only representation that crosses the wire.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
