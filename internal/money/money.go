// Package money converts between major currency units and integer cents.
//
// Persistence always holds cents. Values arriving from clients are decimal
// major units and are rounded half away from zero to the nearest cent.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFinite  = errors.New("amount must be a finite number")
	ErrNegative   = errors.New("amount must not be negative")
	ErrMalformed  = errors.New("amount is not a number")
	ErrOutOfRange = errors.New("amount is out of range")
)

var (
	hundred  = decimal.NewFromInt(100)
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// Cents is an amount in minor units. It marshals to JSON as a major-unit
// number with exactly two fraction digits and unmarshals from either a JSON
// number or a numeric string.
type Cents int64

// MajorToCents returns round(x*100). x must be finite.
func MajorToCents(x float64) (Cents, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, ErrNotFinite
	}
	return toCents(decimal.NewFromFloat(x))
}

// NonNegativeMajorToCents is MajorToCents that also rejects negative input.
func NonNegativeMajorToCents(x float64) (Cents, error) {
	c, err := MajorToCents(x)
	if err != nil {
		return 0, err
	}
	if c < 0 || x < 0 {
		return 0, ErrNegative
	}
	return c, nil
}

// ParseMajor parses a decimal string such as "12.5" or "12,50".
func ParseMajor(raw string) (Cents, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if trimmed == "" {
		return 0, ErrMalformed
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	c, err := toCents(d)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", err, raw)
	}
	return c, nil
}

// CentsToMajor returns the amount in major units.
func CentsToMajor(c Cents) float64 {
	f, _ := c.Decimal().Float64()
	return f
}

// Format renders c with exactly two fraction digits.
func Format(c Cents) string {
	return c.Decimal().StringFixed(2)
}

func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

func (c Cents) String() string {
	return Format(c)
}

// Mul multiplies c by an arbitrary factor and rounds to the nearest cent.
func (c Cents) Mul(factor decimal.Decimal) Cents {
	return fromDecimal(c.Decimal().Mul(factor))
}

// FromDecimal rounds a major-unit decimal to cents.
func FromDecimal(d decimal.Decimal) Cents {
	return fromDecimal(d)
}

// toCents is fromDecimal for untrusted input: amounts that do not fit in
// an int64 are rejected instead of wrapping.
func toCents(d decimal.Decimal) (Cents, error) {
	scaled := d.Mul(hundred).Round(0)
	if scaled.LessThan(minCents) || scaled.GreaterThan(maxCents) {
		return 0, ErrOutOfRange
	}
	return Cents(scaled.IntPart()), nil
}

func fromDecimal(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(Format(c)), nil
}

func (c *Cents) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		raw = strings.Trim(raw, `"`)
	}
	parsed, err := ParseMajor(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
