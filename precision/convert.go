package precision

import (
	"errors"
	"fmt"

	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

var errNonFinite = errors.New("non-finite number")

// NewFromDecimal returns a number equal to d rounded to the given scale using
// the given rounding rule.
// See also method [Number.Decimal].
//
// NewFromDecimal returns an error if the rounding rule is not valid or the
// scale is greater than [MaxScale] in absolute value.
func NewFromDecimal(d decimal.Decimal, scale int, rounding Rounding) (*Number, error) {
	return New(d, scale, rounding)
}

// NewFromAmount returns a number equal to the monetary value of a, using the
// scale of its currency and the given rounding rule.
// For example, an amount in US Dollars produces a number with scale 2,
// and an amount in Japanese Yen produces a number with scale 0.
// See also method [Number.Amount].
func NewFromAmount(a money.Amount, rounding Rounding) (*Number, error) {
	n, err := New(a.Decimal(), a.Curr().Scale(), rounding)
	if err != nil {
		return nil, fmt.Errorf("converting %v: %w", a, err)
	}
	return n, nil
}

// Decimal returns the value of n as a [decimal.Decimal].
// The result is rounded to [decimal.MaxScale] digits after the decimal
// point if the scale of n exceeds it.
// See also constructor [NewFromDecimal].
//
// Decimal returns an error if:
//   - n is NaN or infinite;
//   - the integer part of n has more than [decimal.MaxPrec] digits.
//
// [decimal.Decimal]: https://pkg.go.dev/github.com/govalues/decimal#Decimal
// [decimal.MaxScale]: https://pkg.go.dev/github.com/govalues/decimal#MaxScale
// [decimal.MaxPrec]: https://pkg.go.dev/github.com/govalues/decimal#MaxPrec
func (n *Number) Decimal() (decimal.Decimal, error) {
	if !n.IsFinite() {
		return decimal.Decimal{}, fmt.Errorf("converting %v: %w", n, errNonFinite)
	}
	d, err := decimal.Parse(n.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("converting %v: %w", n, err)
	}
	return d, nil
}

// Amount returns the value of n as an amount in the given currency.
// The value is first rounded to the scale of the currency using the rounding
// rule of n; the receiver is not modified.
// See also constructor [NewFromAmount].
//
// Amount returns an error if:
//   - the currency code is not valid;
//   - n is NaN or infinite;
//   - the integer part of the result is too large for the currency.
func (n *Number) Amount(curr string) (money.Amount, error) {
	c, err := money.ParseCurr(curr)
	if err != nil {
		return money.Amount{}, fmt.Errorf("parsing currency: %w", err)
	}
	if !n.IsFinite() {
		return money.Amount{}, fmt.Errorf("converting %v to %v: %w", n, c, errNonFinite)
	}
	d, err := decimal.Parse(n.Fixed(c.Scale(), n.rounding))
	if err != nil {
		return money.Amount{}, fmt.Errorf("converting %v to %v: %w", n, c, err)
	}
	a, err := money.NewAmountFromDecimal(c, d)
	if err != nil {
		return money.Amount{}, fmt.Errorf("converting %v to %v: %w", n, c, err)
	}
	return a, nil
}
