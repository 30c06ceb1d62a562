package precision

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// DefaultScale is the number of digits after the decimal point used by
// [Parse], [MustParse] and [Fixed] callers that follow the package defaults.
const DefaultScale = 2

var errUnordered = errors.New("unordered comparison with NaN")

// briefLen bounds the text of a value quoted in an error message.
const briefLen = 40

// brief formats v for an error message, eliding the middle of long texts.
func brief(v any) string {
	s := fmt.Sprint(v)
	if len(s) <= briefLen {
		return s
	}
	return fmt.Sprintf("%s...(%d more)...%s", s[:briefLen/2], len(s)-briefLen, s[len(s)-briefLen/2:])
}

// Number type represents a fixed-point decimal value.
// It consists of an exact decimal, a scale (the number of digits kept after
// the decimal point) and a [Rounding] rule.
// The decimal is rounded to the scale immediately after construction and after
// every arithmetic operation, so the stored value never has more digits after
// the decimal point than the scale allows.
//
// The scale and the rounding rule are fixed for the lifetime of a Number and
// are inherited by every Number derived from it.
//
// Its zero value corresponds to 0 with scale 0 and [RoundDown].
//
// Methods [Number.Plus], [Number.Minus], [Number.Times], [Number.DividedBy] and
// [Number.Negate] modify the receiver in place and return it.
// All other methods leave the receiver unchanged, and [Number.Add],
// [Number.Sub], [Number.Mul], [Number.Quo] and [Number.Neg] return new numbers.
// A Number is not safe for concurrent mutation; use [Number.Clone] to hand
// an independent copy to another goroutine.
type Number struct {
	value    *apd.Decimal // rounded to scale, never modified after assignment
	scale    int          // digits after the decimal point
	rounding Rounding     // rule applied by every operation
}

// newNumber rounds d and creates a new number.
func newNumber(d *apd.Decimal, scale int, r Rounding) (*Number, error) {
	q, err := roundDecimal(d, scale, r)
	if err != nil {
		return nil, err
	}
	return &Number{value: q, scale: scale, rounding: r}, nil
}

// New returns a number equal to value rounded to the given scale using the
// given rounding rule.
// The value may be a string, any integer or floating-point type, a [Number],
// a [decimal.Decimal], a [money.Amount], an [apd.Decimal] pointer,
// a [big.Int] pointer or any [fmt.Stringer].
// Strings are trimmed of surrounding whitespace before parsing, and the texts
// "NaN", "Infinity" and "-Infinity" are recognized.
// A negative scale rounds to a power of ten.
//
// New returns an error if:
//   - the value cannot be parsed as a decimal number;
//   - the type of the value is not supported;
//   - the rounding rule is not valid;
//   - the scale is greater than [MaxScale] in absolute value.
//
// [decimal.Decimal]: https://pkg.go.dev/github.com/govalues/decimal#Decimal
// [money.Amount]: https://pkg.go.dev/github.com/govalues/money#Amount
// [apd.Decimal]: https://pkg.go.dev/github.com/cockroachdb/apd/v3#Decimal
// [big.Int]: https://pkg.go.dev/math/big#Int
func New(value any, scale int, rounding Rounding) (*Number, error) {
	d, err := parseDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("parsing number: %w", err)
	}
	n, err := newNumber(d, scale, rounding)
	if err != nil {
		return nil, fmt.Errorf("converting number: %w", err)
	}
	return n, nil
}

// MustNew is like [New] but panics if the number cannot be constructed.
// It simplifies safe initialization of global variables holding numbers.
func MustNew(value any, scale int, rounding Rounding) *Number {
	n, err := New(value, scale, rounding)
	if err != nil {
		panic(fmt.Sprintf("New(%q, %v, %v) failed: %v", fmt.Sprint(value), scale, rounding, err))
	}
	return n
}

// Parse converts a string to a number with [DefaultScale] digits after the
// decimal point, truncating any extra digits toward zero ([DefaultRounding]).
// See also constructor [New].
func Parse(number string) (*Number, error) {
	return New(number, DefaultScale, DefaultRounding)
}

// MustParse is like [Parse] but panics if the string cannot be parsed.
// It simplifies safe initialization of global variables holding numbers.
func MustParse(number string) *Number {
	n, err := Parse(number)
	if err != nil {
		panic(fmt.Sprintf("Parse(%q) failed: %v", number, err))
	}
	return n
}

// Fixed returns the fixed-point representation of value rounded to the given
// scale using the given rounding rule, without retaining a [Number].
// See also method [Number.Fixed].
//
// Fixed returns an error in the same cases as [New].
func Fixed(value any, scale int, rounding Rounding) (string, error) {
	d, err := parseDecimal(value)
	if err != nil {
		return "", fmt.Errorf("parsing number: %w", err)
	}
	s, err := formatDecimal(d, scale, rounding)
	if err != nil {
		return "", fmt.Errorf("formatting number: %w", err)
	}
	return s, nil
}

// magnitude returns the stored decimal.
// The result must not be modified.
func (n *Number) magnitude() *apd.Decimal {
	if n.value == nil {
		return &apd.Decimal{}
	}
	return n.value
}

// Scale returns the number of digits kept after the decimal point.
func (n *Number) Scale() int {
	return n.scale
}

// Rounding returns the rounding rule applied by every operation.
func (n *Number) Rounding() Rounding {
	return n.rounding
}

// Clone returns an independent number with the same value, scale and
// rounding rule.
func (n *Number) Clone() *Number {
	c := *n
	return &c
}

// Plus adds x to n in place and returns n.
// The operand is not rounded; only the sum is rounded to the scale of n.
// See also method [Number.Add].
//
// Plus returns an error and leaves n unchanged if x cannot be parsed.
func (n *Number) Plus(x any) (*Number, error) {
	d, err := n.add(x)
	if err != nil {
		return nil, fmt.Errorf("computing [%v + %v]: %w", brief(n), brief(x), err)
	}
	return n.assign(d)
}

// Minus subtracts x from n in place and returns n.
// The operand is not rounded; only the difference is rounded to the scale of n.
// See also method [Number.Sub].
//
// Minus returns an error and leaves n unchanged if x cannot be parsed.
func (n *Number) Minus(x any) (*Number, error) {
	d, err := n.sub(x)
	if err != nil {
		return nil, fmt.Errorf("computing [%v - %v]: %w", brief(n), brief(x), err)
	}
	return n.assign(d)
}

// Times multiplies n by x in place and returns n.
// The operand is not rounded; only the product is rounded to the scale of n.
// See also method [Number.Mul].
//
// Times returns an error and leaves n unchanged if x cannot be parsed.
func (n *Number) Times(x any) (*Number, error) {
	d, err := n.mul(x)
	if err != nil {
		return nil, fmt.Errorf("computing [%v * %v]: %w", brief(n), brief(x), err)
	}
	return n.assign(d)
}

// DividedBy divides n by x in place and returns n.
// Dividing a non-zero number by zero gives a signed infinity, and dividing
// zero by zero gives NaN; neither is an error.
// See also methods [Number.Quo], [Number.IsFinite].
//
// DividedBy returns an error and leaves n unchanged if x cannot be parsed.
func (n *Number) DividedBy(x any) (*Number, error) {
	d, err := n.quo(x)
	if err != nil {
		return nil, fmt.Errorf("computing [%v / %v]: %w", brief(n), brief(x), err)
	}
	return n.assign(d)
}

// Negate changes the sign of n in place and returns n.
// See also method [Number.Neg].
func (n *Number) Negate() *Number {
	// Negation never adds digits, so rounding cannot fail.
	n.value = negDecimal(n.magnitude())
	return n
}

// assign rounds d and stores it in n.
func (n *Number) assign(d *apd.Decimal) (*Number, error) {
	q, err := roundDecimal(d, n.scale, n.rounding)
	if err != nil {
		return nil, fmt.Errorf("rounding %v: %w", brief(n), err)
	}
	n.value = q
	return n, nil
}

// Add returns the sum n + x as a new number with the scale and rounding rule
// of n. The receiver is not modified.
// See also method [Number.Plus].
//
// Add returns an error if x cannot be parsed.
func (n *Number) Add(x any) (*Number, error) {
	d, err := n.add(x)
	if err != nil {
		return nil, fmt.Errorf("computing [%v + %v]: %w", brief(n), brief(x), err)
	}
	return n.derive(d)
}

func (n *Number) add(x any) (*apd.Decimal, error) {
	e, err := parseDecimal(x)
	if err != nil {
		return nil, err
	}
	return addDecimal(n.magnitude(), e)
}

// Sub returns the difference n - x as a new number with the scale and rounding
// rule of n. The receiver is not modified.
// See also method [Number.Minus].
//
// Sub returns an error if x cannot be parsed.
func (n *Number) Sub(x any) (*Number, error) {
	d, err := n.sub(x)
	if err != nil {
		return nil, fmt.Errorf("computing [%v - %v]: %w", brief(n), brief(x), err)
	}
	return n.derive(d)
}

func (n *Number) sub(x any) (*apd.Decimal, error) {
	e, err := parseDecimal(x)
	if err != nil {
		return nil, err
	}
	return subDecimal(n.magnitude(), e)
}

// Mul returns the product n * x as a new number with the scale and rounding
// rule of n. The receiver is not modified.
// See also method [Number.Times].
//
// Mul returns an error if x cannot be parsed.
func (n *Number) Mul(x any) (*Number, error) {
	d, err := n.mul(x)
	if err != nil {
		return nil, fmt.Errorf("computing [%v * %v]: %w", brief(n), brief(x), err)
	}
	return n.derive(d)
}

func (n *Number) mul(x any) (*apd.Decimal, error) {
	e, err := parseDecimal(x)
	if err != nil {
		return nil, err
	}
	return mulDecimal(n.magnitude(), e)
}

// Quo returns the quotient n / x as a new number with the scale and rounding
// rule of n. The receiver is not modified.
// Division by zero gives a non-finite number instead of an error.
// See also method [Number.DividedBy].
//
// Quo returns an error if x cannot be parsed.
func (n *Number) Quo(x any) (*Number, error) {
	d, err := n.quo(x)
	if err != nil {
		return nil, fmt.Errorf("computing [%v / %v]: %w", brief(n), brief(x), err)
	}
	return n.derive(d)
}

func (n *Number) quo(x any) (*apd.Decimal, error) {
	e, err := parseDecimal(x)
	if err != nil {
		return nil, err
	}
	return quoDecimal(n.magnitude(), e, n.scale)
}

// Neg returns a new number with the opposite sign.
// The receiver is not modified.
// See also method [Number.Negate].
func (n *Number) Neg() *Number {
	return &Number{value: negDecimal(n.magnitude()), scale: n.scale, rounding: n.rounding}
}

// derive creates a new number from an unrounded result, inheriting the scale
// and rounding rule of n.
func (n *Number) derive(d *apd.Decimal) (*Number, error) {
	m, err := newNumber(d, n.scale, n.rounding)
	if err != nil {
		return nil, fmt.Errorf("rounding %v: %w", brief(n), err)
	}
	return m, nil
}

// Cmp compares the rounded value of n with the unrounded value of x and returns:
//
//	-1 if n < x
//	 0 if n = x
//	+1 if n > x
//
// Cmp returns an error if x cannot be parsed or if either value is NaN.
func (n *Number) Cmp(x any) (int, error) {
	c, ok, err := n.cmp(x)
	if err != nil {
		return 0, fmt.Errorf("comparing [%v] and [%v]: %w", brief(n), brief(x), err)
	}
	if !ok {
		return 0, fmt.Errorf("comparing [%v] and [%v]: %w", brief(n), brief(x), errUnordered)
	}
	return c, nil
}

// cmp compares n with the exact value of x.
// The operand is deliberately not rounded to the scale of n, so a number
// created from "1.005" with scale 2 is not equal to "1.005".
func (n *Number) cmp(x any) (int, bool, error) {
	e, err := parseDecimal(x)
	if err != nil {
		return 0, false, err
	}
	c, ok := cmpDecimal(n.magnitude(), e)
	return c, ok, nil
}

// compare reports whether the comparison result satisfies pred.
// Comparisons involving NaN are always false.
func (n *Number) compare(op string, x any, pred func(int) bool) (bool, error) {
	c, ok, err := n.cmp(x)
	if err != nil {
		return false, fmt.Errorf("comparing [%v %v %v]: %w", brief(n), op, brief(x), err)
	}
	return ok && pred(c), nil
}

// Equal reports whether the rounded value of n equals the unrounded value of x.
// See also method [Number.Cmp].
func (n *Number) Equal(x any) (bool, error) {
	return n.compare("=", x, func(c int) bool { return c == 0 })
}

// Greater reports whether n > x.
// See also method [Number.Cmp].
func (n *Number) Greater(x any) (bool, error) {
	return n.compare(">", x, func(c int) bool { return c > 0 })
}

// GreaterOrEqual reports whether n >= x.
// See also method [Number.Cmp].
func (n *Number) GreaterOrEqual(x any) (bool, error) {
	return n.compare(">=", x, func(c int) bool { return c >= 0 })
}

// Less reports whether n < x.
// See also method [Number.Cmp].
func (n *Number) Less(x any) (bool, error) {
	return n.compare("<", x, func(c int) bool { return c < 0 })
}

// LessOrEqual reports whether n <= x.
// See also method [Number.Cmp].
func (n *Number) LessOrEqual(x any) (bool, error) {
	return n.compare("<=", x, func(c int) bool { return c <= 0 })
}

// IsFinite returns:
//
//	true  if n is neither infinite nor NaN
//	false otherwise
func (n *Number) IsFinite() bool {
	return n.magnitude().Form == apd.Finite
}

// IsNaN returns:
//
//	true  if n is NaN
//	false otherwise
func (n *Number) IsNaN() bool {
	return isNaN(n.magnitude())
}

// IsInt returns true if n is finite and has no significant digits after the
// decimal point.
func (n *Number) IsInt() bool {
	if !n.IsFinite() {
		return false
	}
	s := n.magnitude().Text('f')
	i := strings.IndexByte(s, '.')
	return i < 0 || strings.Trim(s[i+1:], "0") == ""
}

// IsZero returns:
//
//	true  if n = 0 or n = -0
//	false otherwise
func (n *Number) IsZero() bool {
	d := n.magnitude()
	return d.Form == apd.Finite && d.IsZero()
}

// IsNegative reports whether the sign bit of n is set.
// Negative zero and negative infinity are negative; NaN is neither negative
// nor positive.
// See also method [Number.Sign].
func (n *Number) IsNegative() bool {
	d := n.magnitude()
	return !isNaN(d) && d.Negative
}

// IsPositive reports whether the sign bit of n is clear.
// Zero and positive infinity are positive; NaN is neither negative nor positive.
// See also method [Number.Sign].
func (n *Number) IsPositive() bool {
	d := n.magnitude()
	return !isNaN(d) && !d.Negative
}

// Sign returns:
//
//	-1 if n < 0
//	 0 if n = 0, n = -0 or n is NaN
//	+1 if n > 0
func (n *Number) Sign() int {
	switch {
	case n.IsNaN() || n.IsZero():
		return 0
	case n.IsNegative():
		return -1
	default:
		return 1
	}
}

// Float64 returns the nearest binary floating-point number.
// NaN and infinities are converted to the corresponding special values,
// and values outside the range of float64 become infinities.
//
// This conversion may lose data, as float64 has a smaller precision
// than the decimal type.
func (n *Number) Float64() float64 {
	d := n.magnitude()
	switch {
	case isNaN(d):
		return math.NaN()
	case isInf(d) && d.Negative:
		return math.Inf(-1)
	case isInf(d):
		return math.Inf(1)
	}
	//nolint:errcheck
	f, _ := d.Float64()
	return f
}

// String implements the [fmt.Stringer] interface and returns the fixed-point
// representation of n with exactly [Number.Scale] digits after the decimal point.
// Negative zero is written as zero.
// NaN and infinities are written as "NaN", "Infinity" and "-Infinity".
// See also methods [Number.Fixed], [Number.Format].
//
// [fmt.Stringer]: https://pkg.go.dev/fmt#Stringer
func (n *Number) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.Fixed(n.scale, n.rounding)
}

// Fixed returns the fixed-point representation of n rounded to the given
// scale using the given rounding rule.
// Neither the value nor the scale and rounding rule of n are changed.
// See also function [Fixed] and method [Number.String].
//
// Fixed panics if the rounding rule is not valid or the scale is greater
// than [MaxScale] in absolute value.
func (n *Number) Fixed(scale int, rounding Rounding) string {
	s, err := formatDecimal(n.magnitude(), scale, rounding)
	if err != nil {
		panic(fmt.Sprintf("Fixed(%v, %v) failed: %v", scale, rounding, err))
	}
	return s
}

// MarshalJSON implements the [json.Marshaler] interface.
// The number is encoded as a JSON string holding its fixed-point representation.
// See also method [Number.String].
//
// [json.Marshaler]: https://pkg.go.dev/encoding/json#Marshaler
func (n *Number) MarshalJSON() ([]byte, error) {
	s := n.String()
	text := make([]byte, 0, len(s)+2)
	text = append(text, '"')
	text = append(text, s...)
	text = append(text, '"')
	return text, nil
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
// Both JSON strings and JSON numbers are accepted.
// The value is rounded using the current scale and rounding rule of n.
//
// [json.Unmarshaler]: https://pkg.go.dev/encoding/json#Unmarshaler
func (n *Number) UnmarshalJSON(text []byte) error {
	if string(text) == "null" {
		return nil
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	if err := n.set(string(text)); err != nil {
		return fmt.Errorf("unmarshaling %T: %w", n, err)
	}
	return nil
}

// AppendText implements the [encoding.TextAppender] interface.
//
// [encoding.TextAppender]: https://pkg.go.dev/encoding#TextAppender
func (n *Number) AppendText(text []byte) ([]byte, error) {
	return append(text, n.String()...), nil
}

// MarshalText implements the [encoding.TextMarshaler] interface.
//
// [encoding.TextMarshaler]: https://pkg.go.dev/encoding#TextMarshaler
func (n *Number) MarshalText() ([]byte, error) {
	return n.AppendText(nil)
}

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
// The value is rounded using the current scale and rounding rule of n.
//
// [encoding.TextUnmarshaler]: https://pkg.go.dev/encoding#TextUnmarshaler
func (n *Number) UnmarshalText(text []byte) error {
	if err := n.set(string(text)); err != nil {
		return fmt.Errorf("unmarshaling %T: %w", n, err)
	}
	return nil
}

// Scan implements the [sql.Scanner] interface.
// The value is rounded using the current scale and rounding rule of n.
//
// [sql.Scanner]: https://pkg.go.dev/database/sql#Scanner
func (n *Number) Scan(value any) error {
	var err error
	switch value := value.(type) {
	case string, []byte, int64, float64:
		err = n.set(value)
	case nil:
		err = fmt.Errorf("%T does not support null values", n)
	default:
		err = fmt.Errorf("type %T is not supported", value)
	}
	if err != nil {
		err = fmt.Errorf("converting from %T to %T: %w", value, n, err)
	}
	return err
}

// Value implements the [driver.Valuer] interface.
// The number is stored as its fixed-point representation.
//
// [driver.Valuer]: https://pkg.go.dev/database/sql/driver#Valuer
func (n *Number) Value() (driver.Value, error) {
	return n.String(), nil
}

// set parses value and stores it rounded to the scale of n.
func (n *Number) set(value any) error {
	d, err := parseDecimal(value)
	if err != nil {
		return err
	}
	_, err = n.assign(d)
	return err
}

// Format implements the [fmt.Formatter] interface.
// The following [format verbs] are available:
//
//	| Verb   | Example  | Description                   |
//	| ------ | -------- | ----------------------------- |
//	| %s, %v | 5.67     | Fixed-point representation    |
//	| %q     | "5.67"   | Quoted representation         |
//	| %f     | 5.670    | Representation at a precision |
//
// The '-' format flag can be used with all verbs.
// The '+', ' ', '0' format flags can be used with all verbs except %q.
//
// Precision is only supported for the %f verb, where it overrides the scale
// for this call; the rounding rule of n is used.
// The default precision is equal to the scale of the number.
//
// [format verbs]: https://pkg.go.dev/fmt#hdr-Printing
// [fmt.Formatter]: https://pkg.go.dev/fmt#Formatter
func (n *Number) Format(state fmt.State, verb rune) {
	// Rescaling
	scale := n.scale
	if p, ok := state.Precision(); ok && (verb == 'f' || verb == 'F') {
		scale = p
	}
	digits := n.Fixed(scale, n.rounding)

	// Arithmetic sign
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	} else if verb != 'q' && verb != 'Q' && !n.IsNaN() {
		switch {
		case state.Flag('+'):
			sign = "+"
		case state.Flag(' '):
			sign = " "
		}
	}

	// Opening and closing quotes
	lquote, tquote := "", ""
	if verb == 'q' || verb == 'Q' {
		lquote, tquote = `"`, `"`
	}

	// Calculating padding
	width := len(lquote) + len(sign) + len(digits) + len(tquote)
	lspaces, lzeros, tspaces := 0, 0, 0
	if w, ok := state.Width(); ok && w > width {
		switch {
		case state.Flag('-'):
			tspaces = w - width
		case state.Flag('0') && lquote == "" && n.IsFinite():
			lzeros = w - width
		default:
			lspaces = w - width
		}
	}

	var buf strings.Builder
	buf.WriteString(strings.Repeat(" ", lspaces))
	buf.WriteString(lquote)
	buf.WriteString(sign)
	buf.WriteString(strings.Repeat("0", lzeros))
	buf.WriteString(digits)
	buf.WriteString(tquote)
	buf.WriteString(strings.Repeat(" ", tspaces))

	// Writing result
	//nolint:errcheck
	switch verb {
	case 'q', 'Q', 's', 'S', 'v', 'V', 'f', 'F':
		state.Write([]byte(buf.String()))
	default:
		state.Write([]byte("%!"))
		state.Write([]byte{byte(verb)})
		state.Write([]byte("(precision.Number="))
		state.Write([]byte(buf.String()))
		state.Write([]byte(")"))
	}
}
