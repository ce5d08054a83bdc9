package models

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// MinorUnitDigits is the number of fractional digits a Money value carries.
const MinorUnitDigits = 2

// ErrInvalidMoney is returned when a value cannot be represented as Money.
var ErrInvalidMoney = errors.New("invalid money amount")

// Money is an exact amount counted in minor units (cents). It is the only
// representation of amounts inside the ledger; decimals appear at the edges.
type Money int64

// ParseMoney parses a decimal string such as "12.50" or "-3".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, s)
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal converts d, rejecting values with more than MinorUnitDigits
// fractional digits instead of rounding them.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Truncate(MinorUnitDigits)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidMoney, d.String(), MinorUnitDigits)
	}
	shifted := d.Shift(MinorUnitDigits)
	if !shifted.BigInt().IsInt64() || shifted.IntPart() == math.MinInt64 {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidMoney, d.String())
	}
	return Money(shifted.IntPart()), nil
}

// MustMoney is ParseMoney for literals known to be valid.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -MinorUnitDigits) }
func (m Money) String() string           { return m.Decimal().StringFixed(MinorUnitDigits) }
func (m Money) IsZero() bool             { return m == 0 }
func (m Money) IsPositive() bool         { return m > 0 }
func (m Money) IsNegative() bool         { return m < 0 }
func (m Money) Neg() Money               { return -m }

// Add returns m+o, or false when the sum does not fit in a Money.
func (m Money) Add(o Money) (Money, bool) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, false
	}
	return sum, true
}

// Sub returns m-o, or false when the difference does not fit in a Money.
func (m Money) Sub(o Money) (Money, bool) {
	diff := m - o
	if (o > 0 && diff > m) || (o < 0 && diff < m) {
		return 0, false
	}
	return diff, true
}

func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Format renders the amount with the currency's symbol, e.g. "€12.50".
func (m Money) Format(currency string) string {
	return money.New(int64(m), currency).Display()
}

// MarshalJSON encodes Money as a quoted decimal string to avoid float rounding on the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts both quoted strings and bare JSON numbers.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMoney, err)
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
