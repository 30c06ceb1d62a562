package precision

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

var (
	errInvalidNumber   = errors.New("invalid number")
	errUnsupportedType = errors.New("unsupported type")
	errScaleRange      = errors.New("scale out of range")
)

// MaxScale is the largest absolute scale accepted by the decimal engine.
const MaxScale = apd.MaxExponent

// quoGuardDigits is the number of digits computed past the rounding position
// when dividing. Quotients are rounded with [apd.Round05Up] at that position,
// so a second rounding to the target scale gives the correctly rounded result.
const quoGuardDigits = 2

// decimalNaN returns a new quiet NaN.
func decimalNaN() *apd.Decimal {
	return &apd.Decimal{Form: apd.NaN}
}

// decimalInf returns a new infinity with the given sign.
func decimalInf(neg bool) *apd.Decimal {
	return &apd.Decimal{Form: apd.Infinite, Negative: neg}
}

func isNaN(d *apd.Decimal) bool {
	return d.Form == apd.NaN || d.Form == apd.NaNSignaling
}

func isInf(d *apd.Decimal) bool {
	return d.Form == apd.Infinite
}

// parseDecimal converts a number-like value to an exact decimal.
// The value is never rounded.
func parseDecimal(value any) (*apd.Decimal, error) {
	switch v := value.(type) {
	case nil:
		return nil, fmt.Errorf("%w: <nil>", errUnsupportedType)
	case string:
		return parseText(v)
	case []byte:
		return parseText(string(v))
	case *Number:
		if v == nil {
			return nil, fmt.Errorf("%w: nil %T", errUnsupportedType, v)
		}
		return parseText(v.String())
	case Number:
		return parseText(v.String())
	case *apd.Decimal:
		if v == nil {
			return nil, fmt.Errorf("%w: nil %T", errUnsupportedType, v)
		}
		return new(apd.Decimal).Set(v), nil
	case decimal.Decimal:
		return parseText(v.String())
	case money.Amount:
		return parseText(v.Decimal().String())
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("%w: nil %T", errUnsupportedType, v)
		}
		return parseText(v.String())
	case int:
		return apd.New(int64(v), 0), nil
	case int8:
		return apd.New(int64(v), 0), nil
	case int16:
		return apd.New(int64(v), 0), nil
	case int32:
		return apd.New(int64(v), 0), nil
	case int64:
		return apd.New(v, 0), nil
	case uint:
		return parseText(strconv.FormatUint(uint64(v), 10))
	case uint8:
		return apd.New(int64(v), 0), nil
	case uint16:
		return apd.New(int64(v), 0), nil
	case uint32:
		return apd.New(int64(v), 0), nil
	case uint64:
		return parseText(strconv.FormatUint(v, 10))
	case float32:
		return parseFloat(float64(v), 32)
	case float64:
		return parseFloat(v, 64)
	case fmt.Stringer:
		return parseText(v.String())
	default:
		return nil, fmt.Errorf("%w: %T", errUnsupportedType, value)
	}
}

// parseFloat uses the shortest text that round-trips to f.
func parseFloat(f float64, bitSize int) (*apd.Decimal, error) {
	switch {
	case math.IsNaN(f):
		return decimalNaN(), nil
	case math.IsInf(f, 0):
		return decimalInf(f < 0), nil
	}
	return parseText(strconv.FormatFloat(f, 'g', -1, bitSize))
}

// parseText trims surrounding whitespace and parses the remaining text.
func parseText(s string) (*apd.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", errInvalidNumber)
	}
	switch strings.ToLower(s) {
	case "nan":
		return decimalNaN(), nil
	case "infinity", "+infinity", "inf", "+inf":
		return decimalInf(false), nil
	case "-infinity", "-inf":
		return decimalInf(true), nil
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", errInvalidNumber, s, err)
	}
	return d, nil
}

// exponent converts a scale to the exponent of the smallest retained digit.
func exponent(scale int) (int32, error) {
	if scale > MaxScale || scale < -MaxScale {
		return 0, fmt.Errorf("%w: %v", errScaleRange, scale)
	}
	return int32(-scale), nil //nolint:gosec
}

// roundDecimal returns a new decimal equal to d rounded to the given scale.
// Non-finite values are returned as copies.
func roundDecimal(d *apd.Decimal, scale int, r Rounding) (*apd.Decimal, error) {
	if !r.valid() {
		return nil, fmt.Errorf("%w: %v", errInvalidRounding, r)
	}
	exp, err := exponent(scale)
	if err != nil {
		return nil, err
	}
	if d.Form != apd.Finite {
		return new(apd.Decimal).Set(d), nil
	}
	if !d.IsZero() && d.NumDigits()+int64(d.Exponent) < int64(exp) {
		// Quantize truncates values below a tenth of the last retained digit
		// regardless of the rounding rule. Any such value rounds like a single
		// digit 1 just past the retained ones.
		neg := d.Negative
		d = apd.New(1, exp-1)
		d.Negative = neg
	}
	// Quantize fails when the result needs more digits than the context
	// precision, so the precision covers every digit of the result.
	prec := d.NumDigits() + int64(d.Exponent) - int64(exp) + 1
	ctx := newContext(prec, r.rounder(d.Negative))
	res := new(apd.Decimal)
	cond, err := ctx.Quantize(res, d, exp)
	if cond.Overflow() {
		return decimalInf(d.Negative), nil
	}
	if err != nil {
		return nil, fmt.Errorf("rounding to scale %v: %w", scale, err)
	}
	return res, nil
}

func newContext(prec int64, rounding apd.Rounder) *apd.Context {
	if prec < 1 {
		prec = 1
	}
	if prec > math.MaxUint32 {
		prec = math.MaxUint32
	}
	return &apd.Context{
		Precision:   uint32(prec), //nolint:gosec
		MaxExponent: apd.MaxExponent,
		MinExponent: apd.MinExponent,
		Traps:       apd.DefaultTraps &^ (apd.Overflow | apd.Underflow | apd.Subnormal),
		Rounding:    rounding,
	}
}

// settle replaces a result whose exponent left the representable range.
// Overflow gives an infinity and underflow the smallest magnitude, both with
// sign neg. The smallest magnitude still rounds away from zero under the
// rules that do so.
func settle(res *apd.Decimal, neg bool, cond apd.Condition, err error) (*apd.Decimal, error) {
	switch {
	case cond.Overflow():
		return decimalInf(neg), nil
	case cond.Underflow():
		tiny := apd.New(1, apd.MinExponent)
		tiny.Negative = neg
		return tiny, nil
	case err != nil:
		return nil, err
	}
	return res, nil
}

// adjusted returns the exponent of the most significant digit of d.
func adjusted(d *apd.Decimal) int64 {
	return int64(d.Exponent) + d.NumDigits() - 1
}

// addDecimal returns the exact sum d + e.
func addDecimal(d, e *apd.Decimal) (*apd.Decimal, error) {
	switch {
	case isNaN(d) || isNaN(e):
		return decimalNaN(), nil
	case isInf(d) && isInf(e):
		if d.Negative != e.Negative {
			return decimalNaN(), nil
		}
		return decimalInf(d.Negative), nil
	case isInf(d):
		return decimalInf(d.Negative), nil
	case isInf(e):
		return decimalInf(e.Negative), nil
	}
	exp := min(d.Exponent, e.Exponent)
	dlen := d.NumDigits() + int64(d.Exponent-exp)
	elen := e.NumDigits() + int64(e.Exponent-exp)
	ctx := newContext(max(dlen, elen)+1, apd.RoundHalfEven)
	res := new(apd.Decimal)
	cond, err := ctx.Add(res, d, e)
	// The sum takes the sign of the operand with the larger magnitude.
	neg := d.Negative
	if new(apd.Decimal).Abs(e).Cmp(new(apd.Decimal).Abs(d)) > 0 {
		neg = e.Negative
	}
	return settle(res, neg, cond, err)
}

// subDecimal returns the exact difference d - e.
func subDecimal(d, e *apd.Decimal) (*apd.Decimal, error) {
	return addDecimal(d, negDecimal(e))
}

// mulDecimal returns the exact product d * e.
func mulDecimal(d, e *apd.Decimal) (*apd.Decimal, error) {
	neg := d.Negative != e.Negative
	switch {
	case isNaN(d) || isNaN(e):
		return decimalNaN(), nil
	case isInf(d) || isInf(e):
		if (d.Form == apd.Finite && d.IsZero()) || (e.Form == apd.Finite && e.IsZero()) {
			return decimalNaN(), nil
		}
		return decimalInf(neg), nil
	}
	ctx := newContext(d.NumDigits()+e.NumDigits(), apd.RoundHalfEven)
	res := new(apd.Decimal)
	cond, err := ctx.Mul(res, d, e)
	return settle(res, neg, cond, err)
}

// quoDecimal returns the quotient d / e computed quoGuardDigits past the
// given scale.
func quoDecimal(d, e *apd.Decimal, scale int) (*apd.Decimal, error) {
	neg := d.Negative != e.Negative
	switch {
	case isNaN(d) || isNaN(e):
		return decimalNaN(), nil
	case isInf(d) && isInf(e):
		return decimalNaN(), nil
	case isInf(d):
		return decimalInf(neg), nil
	case isInf(e):
		return &apd.Decimal{Negative: neg}, nil
	case e.IsZero():
		if d.IsZero() {
			return decimalNaN(), nil
		}
		return decimalInf(neg), nil
	case d.IsZero():
		return &apd.Decimal{Negative: neg}, nil
	}
	// The quotient is below 10^(adj(d)-adj(e)+1).
	prec := adjusted(d) - adjusted(e) + 1 + int64(scale) + quoGuardDigits
	ctx := newContext(prec, apd.Round05Up)
	res := new(apd.Decimal)
	cond, err := ctx.Quo(res, d, e)
	return settle(res, neg, cond, err)
}

// negDecimal returns a new decimal with the opposite sign.
// Zero keeps its sign bit semantics: -(0) is -0.
func negDecimal(d *apd.Decimal) *apd.Decimal {
	if isNaN(d) {
		return decimalNaN()
	}
	res := new(apd.Decimal).Set(d)
	res.Negative = !res.Negative
	return res
}

// cmpDecimal compares d and e.
// It returns false if either value is NaN.
func cmpDecimal(d, e *apd.Decimal) (int, bool) {
	if isNaN(d) || isNaN(e) {
		return 0, false
	}
	dk, ek := orderKey(d), orderKey(e)
	switch {
	case dk < ek:
		return -1, true
	case dk > ek:
		return 1, true
	case dk != 0: // same infinity
		return 0, true
	}
	return d.Cmp(e), true
}

// orderKey places infinities below and above every finite value.
func orderKey(d *apd.Decimal) int {
	switch {
	case !isInf(d):
		return 0
	case d.Negative:
		return -1
	default:
		return 1
	}
}

// formatDecimal returns the fixed-point text of d rounded to the given scale.
// Negative zero is written without a sign.
func formatDecimal(d *apd.Decimal, scale int, r Rounding) (string, error) {
	q, err := roundDecimal(d, scale, r)
	if err != nil {
		return "", err
	}
	switch {
	case isNaN(q):
		return "NaN", nil
	case isInf(q) && q.Negative:
		return "-Infinity", nil
	case isInf(q):
		return "Infinity", nil
	}
	a := new(apd.Decimal).Abs(q)
	if a.IsZero() {
		// Zero rounded to a negative scale is written as a single digit.
		a.Exponent = min(a.Exponent, 0)
		return a.Text('f'), nil
	}
	s := a.Text('f')
	if q.Negative {
		s = "-" + s
	}
	return s, nil
}
