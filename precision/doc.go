/*
Package precision implements fixed-point decimal numbers with a configurable
number of digits after the decimal point and a configurable rounding rule.
It uses the [apd] package for exact decimal arithmetic and interoperates with
the [decimal] and [money] packages.

# Features

  - Exact decimal arithmetic, rounded once per operation
  - Ten rounding rules, including banker's rounding and half-ceiling
  - In-place arithmetic for call chaining, with non-mutating counterparts
  - NaN and signed infinities instead of division-by-zero errors
  - Text, JSON and SQL encodings of the fixed-point representation
  - Conversion to and from [decimal.Decimal] and [money.Amount]

# Representation

A [Number] consists of an exact decimal value, a scale and a [Rounding] rule.
The value is rounded to the scale at construction and after every arithmetic
operation, so the stored value always equals its own fixed-point
representation.
The scale and the rounding rule never change and are inherited by every
number derived from the receiver.

Signed zeros are preserved: negating zero or rounding a small negative value
toward zero gives -0, which is reported by [Number.IsNegative] but is written
as "0.00".

# Operations

[Number.Plus], [Number.Minus], [Number.Times], [Number.DividedBy] and
[Number.Negate] modify the receiver and return it:

	n := precision.MustParse("10")
	n.Plus("5")
	n.Times("2") // n is now 30.00

[Number.Add], [Number.Sub], [Number.Mul], [Number.Quo] and [Number.Neg]
leave the receiver unchanged and return a new number built from the unrounded
result.

Operands are never rounded to the scale of the receiver.
In particular, comparison methods compare the rounded receiver against the
exact operand, so a number created from "1.005" with scale 2 and [RoundDown]
equals "1.00" but not "1.005".

# Rounding

The package supports the following rounding rules:

	| Rule             | 2.5 | -2.5 | 2.6 | 2.4 |
	| ---------------- | --- | ---- | --- | --- |
	| RoundDown        |  2  |  -2  |  2  |  2  |
	| RoundUp          |  3  |  -3  |  3  |  3  |
	| RoundCeiling     |  3  |  -2  |  3  |  3  |
	| RoundFloor       |  2  |  -3  |  2  |  2  |
	| RoundHalfUp      |  3  |  -3  |  3  |  2  |
	| RoundHalfDown    |  2  |  -2  |  3  |  2  |
	| RoundHalfEven    |  2  |  -2  |  3  |  2  |
	| RoundHalfCeiling |  3  |  -2  |  3  |  2  |
	| RoundHalfFloor   |  2  |  -3  |  3  |  2  |
	| Round05Up        |  2  |  -2  |  2  |  2  |

Quotients are computed with extra guard digits, so every rule gives the
correctly rounded result of the exact quotient.

# Errors

Constructors and arithmetic methods return errors when an operand cannot be
parsed, when its type is not supported, when the rounding rule is not valid,
or when the scale is out of range.
Division by zero is not an error: it produces a signed infinity, or NaN when
the dividend is also zero.
Methods without an error result, such as [Number.Fixed], panic on an invalid
rounding rule or scale.

[apd]: https://pkg.go.dev/github.com/cockroachdb/apd/v3
[decimal]: https://pkg.go.dev/github.com/govalues/decimal
[money]: https://pkg.go.dev/github.com/govalues/money
*/
package precision
