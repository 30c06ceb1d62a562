package precision

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Rounding type represents a rule for collapsing an exact decimal to a fixed
// number of digits after the decimal point.
// The zero value is [RoundDown], which truncates toward zero.
//
// Rounding is implemented as an integer index into in-memory tables that store
// the name of each rule.
// When persisting a rounding rule, use the name returned by the [Rounding.String]
// method rather than the integer value.
type Rounding uint8

const (
	RoundDown        Rounding = iota // toward zero
	RoundUp                          // away from zero
	RoundCeiling                     // toward positive infinity
	RoundFloor                       // toward negative infinity
	RoundHalfUp                      // to nearest, ties away from zero
	RoundHalfDown                    // to nearest, ties toward zero
	RoundHalfEven                    // to nearest, ties to even
	RoundHalfCeiling                 // to nearest, ties toward positive infinity
	RoundHalfFloor                   // to nearest, ties toward negative infinity
	Round05Up                        // away from zero if the last retained digit is 0 or 5, toward zero otherwise
)

// DefaultRounding is the rounding rule used by [Parse], [MustParse] and a
// zero [Number].
const DefaultRounding = RoundDown

var errInvalidRounding = errors.New("invalid rounding")

var roundingNames = [...]string{
	RoundDown:        "down",
	RoundUp:          "up",
	RoundCeiling:     "ceiling",
	RoundFloor:       "floor",
	RoundHalfUp:      "half_up",
	RoundHalfDown:    "half_down",
	RoundHalfEven:    "half_even",
	RoundHalfCeiling: "half_ceiling",
	RoundHalfFloor:   "half_floor",
	Round05Up:        "05up",
}

// roundingLookup maps normalized names and the numeric codes used by
// decimal.js (0 = ROUND_UP ... 8 = ROUND_HALF_FLOOR) to rounding rules.
var roundingLookup = map[string]Rounding{
	"down":         RoundDown,
	"trunc":        RoundDown,
	"truncate":     RoundDown,
	"up":           RoundUp,
	"ceiling":      RoundCeiling,
	"ceil":         RoundCeiling,
	"floor":        RoundFloor,
	"half_up":      RoundHalfUp,
	"half_down":    RoundHalfDown,
	"half_even":    RoundHalfEven,
	"bankers":      RoundHalfEven,
	"half_ceiling": RoundHalfCeiling,
	"half_ceil":    RoundHalfCeiling,
	"half_floor":   RoundHalfFloor,
	"05up":         Round05Up,
	"0":            RoundUp,
	"1":            RoundDown,
	"2":            RoundCeiling,
	"3":            RoundFloor,
	"4":            RoundHalfUp,
	"5":            RoundHalfDown,
	"6":            RoundHalfEven,
	"7":            RoundHalfCeiling,
	"8":            RoundHalfFloor,
}

// ParseRounding converts a string to a rounding rule.
// Matching is case-insensitive, and '-' or ' ' may be used instead of '_'.
// An optional "round_" prefix is ignored.
// The input string may be in one of the following formats:
//
//	half_up
//	HALF-UP
//	ROUND_HALF_UP
//	4
//
// ParseRounding returns an error if the string does not name a rounding rule.
func ParseRounding(rounding string) (Rounding, error) {
	s := strings.ToLower(strings.TrimSpace(rounding))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	s = strings.TrimPrefix(s, "round_")
	r, ok := roundingLookup[s]
	if !ok {
		return RoundDown, fmt.Errorf("%w: %q", errInvalidRounding, rounding)
	}
	return r, nil
}

// MustParseRounding is like [ParseRounding] but panics if the string cannot be parsed.
// It simplifies safe initialization of global variables holding rounding rules.
func MustParseRounding(rounding string) Rounding {
	r, err := ParseRounding(rounding)
	if err != nil {
		panic(fmt.Sprintf("ParseRounding(%q) failed: %v", rounding, err))
	}
	return r
}

func (r Rounding) valid() bool {
	return int(r) < len(roundingNames)
}

// rounder returns the engine rule for a value with the given sign.
// The engine has no ties-toward-infinity rules, so they are resolved by sign.
func (r Rounding) rounder(neg bool) apd.Rounder {
	switch r {
	case RoundUp:
		return apd.RoundUp
	case RoundCeiling:
		return apd.RoundCeiling
	case RoundFloor:
		return apd.RoundFloor
	case RoundHalfUp:
		return apd.RoundHalfUp
	case RoundHalfDown:
		return apd.RoundHalfDown
	case RoundHalfEven:
		return apd.RoundHalfEven
	case RoundHalfCeiling:
		if neg {
			return apd.RoundHalfDown
		}
		return apd.RoundHalfUp
	case RoundHalfFloor:
		if neg {
			return apd.RoundHalfUp
		}
		return apd.RoundHalfDown
	case Round05Up:
		return apd.Round05Up
	default:
		return apd.RoundDown
	}
}

// String method implements the [fmt.Stringer] interface and returns
// the name of the rounding rule.
// See also method [Rounding.Format].
//
// [fmt.Stringer]: https://pkg.go.dev/fmt#Stringer
func (r Rounding) String() string {
	if !r.valid() {
		return fmt.Sprintf("Rounding(%d)", uint8(r))
	}
	return roundingNames[r]
}

// UnmarshalJSON implements the [json.Unmarshaler] interface.
// See also constructor [ParseRounding].
//
// [json.Unmarshaler]: https://pkg.go.dev/encoding/json#Unmarshaler
func (r *Rounding) UnmarshalJSON(text []byte) error {
	if string(text) == "null" {
		return nil
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	var err error
	*r, err = ParseRounding(string(text))
	if err != nil {
		return fmt.Errorf("unmarshaling %T: %w", RoundDown, err)
	}
	return nil
}

// MarshalJSON implements the [json.Marshaler] interface.
// See also method [Rounding.String].
//
// [json.Marshaler]: https://pkg.go.dev/encoding/json#Marshaler
func (r Rounding) MarshalJSON() ([]byte, error) {
	if !r.valid() {
		return nil, fmt.Errorf("marshaling %v: %w", r, errInvalidRounding)
	}
	text := make([]byte, 0, len(roundingNames[r])+2)
	text = append(text, '"')
	text = append(text, roundingNames[r]...)
	text = append(text, '"')
	return text, nil
}

// UnmarshalText implements [encoding.TextUnmarshaler] interface.
// See also constructor [ParseRounding].
//
// [encoding.TextUnmarshaler]: https://pkg.go.dev/encoding#TextUnmarshaler
func (r *Rounding) UnmarshalText(text []byte) error {
	var err error
	*r, err = ParseRounding(string(text))
	if err != nil {
		return fmt.Errorf("unmarshaling %T: %w", RoundDown, err)
	}
	return nil
}

// AppendText implements the [encoding.TextAppender] interface.
//
// [encoding.TextAppender]: https://pkg.go.dev/encoding#TextAppender
func (r Rounding) AppendText(text []byte) ([]byte, error) {
	if !r.valid() {
		return nil, fmt.Errorf("marshaling %v: %w", r, errInvalidRounding)
	}
	return append(text, roundingNames[r]...), nil
}

// MarshalText implements [encoding.TextMarshaler] interface.
//
// [encoding.TextMarshaler]: https://pkg.go.dev/encoding#TextMarshaler
func (r Rounding) MarshalText() ([]byte, error) {
	return r.AppendText(nil)
}

// Scan implements the [sql.Scanner] interface.
//
// [sql.Scanner]: https://pkg.go.dev/database/sql#Scanner
func (r *Rounding) Scan(value any) error {
	var err error
	switch value := value.(type) {
	case string:
		*r, err = ParseRounding(value)
	case []byte:
		*r, err = ParseRounding(string(value))
	case nil:
		err = fmt.Errorf("%T does not support null values", RoundDown)
	default:
		err = fmt.Errorf("type %T is not supported", value)
	}
	if err != nil {
		err = fmt.Errorf("converting from %T to %T: %w", value, RoundDown, err)
	}
	return err
}

// Value implements the [driver.Valuer] interface.
//
// [driver.Valuer]: https://pkg.go.dev/database/sql/driver#Valuer
func (r Rounding) Value() (driver.Value, error) {
	if !r.valid() {
		return nil, fmt.Errorf("converting %v: %w", r, errInvalidRounding)
	}
	return roundingNames[r], nil
}

// Format implements the [fmt.Formatter] interface.
// The following [format verbs] are available:
//
//	| Verb   | Example   | Description   |
//	| ------ | --------- | ------------- |
//	| %s, %v | half_up   | Rounding      |
//	| %q     | "half_up" | Quoted name   |
//
// The '-' format flag can be used with all verbs.
//
// [format verbs]: https://pkg.go.dev/fmt#hdr-Printing
// [fmt.Formatter]: https://pkg.go.dev/fmt#Formatter
func (r Rounding) Format(state fmt.State, verb rune) {
	name := r.String()
	namelen := len(name)

	// Opening and closing quotes
	lquote, tquote := 0, 0
	if verb == 'q' || verb == 'Q' {
		lquote, tquote = 1, 1
	}

	// Calculating padding
	width := lquote + namelen + tquote
	lspaces, tspaces := 0, 0
	if w, ok := state.Width(); ok && w > width {
		switch {
		case state.Flag('-'):
			tspaces = w - width
		default:
			lspaces = w - width
		}
		width = w
	}

	buf := make([]byte, 0, width)

	// Leading spaces
	for range lspaces {
		buf = append(buf, ' ')
	}

	// Quoted name
	for range lquote {
		buf = append(buf, '"')
	}
	buf = append(buf, name...)
	for range tquote {
		buf = append(buf, '"')
	}

	// Trailing spaces
	for range tspaces {
		buf = append(buf, ' ')
	}

	// Writing result
	//nolint:errcheck
	switch verb {
	case 'q', 'Q', 's', 'S', 'v', 'V':
		state.Write(buf)
	default:
		state.Write([]byte("%!"))
		state.Write([]byte{byte(verb)})
		state.Write([]byte("(precision.Rounding="))
		state.Write(buf)
		state.Write([]byte(")"))
	}
}
