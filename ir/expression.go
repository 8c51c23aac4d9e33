package ir

import (
	"math"
	"strconv"
)

// UnaryOperator represents unary operations.
type UnaryOperator uint8

const (
	UnaryNegate     UnaryOperator = iota // Arithmetic negation
	UnaryLogicalNot                      // Logical not (!)
	UnaryBitwiseNot                      // Bitwise not (~)
)

// BinaryOperator represents binary operations.
type BinaryOperator uint8

const (
	// Arithmetic
	BinaryAdd      BinaryOperator = iota // Addition
	BinarySubtract                       // Subtraction
	BinaryMultiply                       // Multiplication
	BinaryDivide                         // Division
	BinaryModulo                         // Modulo (remainder)

	// Comparison
	BinaryEqual        // Equal (==)
	BinaryNotEqual     // Not equal (!=)
	BinaryLess         // Less than (<)
	BinaryLessEqual    // Less than or equal (<=)
	BinaryGreater      // Greater than (>)
	BinaryGreaterEqual // Greater than or equal (>=)

	// Bitwise
	BinaryAnd         // Bitwise AND
	BinaryExclusiveOr // Bitwise XOR
	BinaryInclusiveOr // Bitwise OR

	// Logical
	BinaryLogicalAnd // Logical AND (&&)
	BinaryLogicalOr  // Logical OR (||)

	// Shift
	BinaryShiftLeft  // Left shift (<<)
	BinaryShiftRight // Right shift (>>) - arithmetic for signed, logical for unsigned
)

// IsComparison reports whether the operator yields a boolean.
func (op BinaryOperator) IsComparison() bool {
	return op >= BinaryEqual && op <= BinaryGreaterEqual
}

// IsLogical reports whether the operator works on booleans.
func (op BinaryOperator) IsLogical() bool {
	return op == BinaryLogicalAnd || op == BinaryLogicalOr
}

// IsBitwise reports whether the operator requires integral operands.
func (op BinaryOperator) IsBitwise() bool {
	switch op {
	case BinaryAnd, BinaryExclusiveOr, BinaryInclusiveOr, BinaryShiftLeft, BinaryShiftRight:
		return true
	}
	return false
}

// MaxComponents is the component capacity of a constant (a 4x4 matrix).
const MaxComponents = 16

// Constant is a compile-time value. Components are stored as raw 32-bit
// patterns interpreted by the owning TypeInfo; matrices are stored column by
// column. Arrays and structs keep one Constant per element.
type Constant struct {
	Bits     [MaxComponents]uint32
	Elements []Constant
}

// FloatConstant returns a scalar float constant.
func FloatConstant(v float32) Constant {
	var c Constant
	c.Bits[0] = math.Float32bits(v)
	return c
}

// IntConstant returns a scalar signed integer constant.
func IntConstant(v int32) Constant {
	var c Constant
	c.Bits[0] = uint32(v)
	return c
}

// UintConstant returns a scalar unsigned integer constant.
func UintConstant(v uint32) Constant {
	var c Constant
	c.Bits[0] = v
	return c
}

// BoolConstant returns a scalar boolean constant.
func BoolConstant(v bool) Constant {
	var c Constant
	if v {
		c.Bits[0] = 1
	}
	return c
}

func (c Constant) Float(i int) float32 { return math.Float32frombits(c.Bits[i]) }
func (c Constant) Int(i int) int32     { return int32(c.Bits[i]) }
func (c Constant) Uint(i int) uint32   { return c.Bits[i] }
func (c Constant) Bool(i int) bool     { return c.Bits[i] != 0 }

// Text renders component i in source form, interpreting it as the scalar
// kind of t.
func (c Constant) Text(t TypeInfo, i int) string {
	switch {
	case t.IsBoolean():
		return strconv.FormatBool(c.Bool(i))
	case t.IsFloatingPoint():
		return strconv.FormatFloat(float64(c.Float(i)), 'g', -1, 32)
	case t.Signed:
		return strconv.FormatInt(int64(c.Int(i)), 10)
	}
	return strconv.FormatUint(uint64(c.Uint(i)), 10)
}

// IsZero reports whether every component and element is zero.
func (c Constant) IsZero() bool {
	for _, b := range c.Bits {
		if b != 0 {
			return false
		}
	}
	for _, e := range c.Elements {
		if !e.IsZero() {
			return false
		}
	}
	return true
}

// component reads component i of c (typed t) as a float64 for conversion.
func (c Constant) component(t TypeInfo, i int) float64 {
	switch {
	case t.IsFloatingPoint():
		return float64(c.Float(i))
	case t.IsIntegral() && t.Signed:
		return float64(c.Int(i))
	default:
		return float64(c.Uint(i))
	}
}

func setComponent(c *Constant, t TypeInfo, i int, v float64) {
	switch {
	case t.IsFloatingPoint():
		c.Bits[i] = math.Float32bits(float32(v))
	case t.IsBoolean():
		if v != 0 {
			c.Bits[i] = 1
		} else {
			c.Bits[i] = 0
		}
	case t.Signed:
		c.Bits[i] = uint32(int32(v))
	default:
		c.Bits[i] = uint32(int64(v))
	}
}

// Convert converts a numeric constant from one type to another. A scalar is
// splat across all components; larger shapes are truncated.
func (c Constant) Convert(from, to TypeInfo) Constant {
	var res Constant
	res.Elements = c.Elements
	if !from.IsNumeric() || !to.IsNumeric() {
		return c
	}
	for col := 0; col < int(to.Cols); col++ {
		for row := 0; row < int(to.Rows); row++ {
			src := 0
			if from.Components() > 1 {
				src = col*int(from.Rows) + row
			}
			dst := col*int(to.Rows) + row
			if from.Base == to.Base && from.Signed == to.Signed {
				res.Bits[dst] = c.Bits[src]
				continue
			}
			setComponent(&res, to, dst, c.component(from, src))
		}
	}
	return res
}

// FoldUnary evaluates a unary operator on a constant of type t.
func FoldUnary(op UnaryOperator, t TypeInfo, a Constant) (Constant, bool) {
	var res Constant
	for i := 0; i < t.Components(); i++ {
		switch op {
		case UnaryNegate:
			switch {
			case t.IsFloatingPoint():
				res.Bits[i] = math.Float32bits(-a.Float(i))
			case t.IsIntegral():
				res.Bits[i] = uint32(-a.Int(i))
			default:
				return Constant{}, false
			}
		case UnaryLogicalNot:
			res.Bits[i] = 0
			if a.Bits[i] == 0 {
				res.Bits[i] = 1
			}
		case UnaryBitwiseNot:
			if !t.IsIntegral() {
				return Constant{}, false
			}
			res.Bits[i] = ^a.Bits[i]
		}
	}
	return res, true
}

// FoldBinary evaluates a binary operator on two constants of operand type t.
// It refuses to fold integer division by zero so the error surfaces at run
// time instead of at compile time.
func FoldBinary(op BinaryOperator, t TypeInfo, a, b Constant) (Constant, bool) {
	var res Constant
	for i := 0; i < t.Components(); i++ {
		var ok bool
		res.Bits[i], ok = foldComponent(op, t, a, b, i)
		if !ok {
			return Constant{}, false
		}
	}
	return res, true
}

func foldComponent(op BinaryOperator, t TypeInfo, a, b Constant, i int) (uint32, bool) {
	boolBits := func(v bool) uint32 {
		if v {
			return 1
		}
		return 0
	}

	if op.IsComparison() {
		x, y := a.component(t, i), b.component(t, i)
		switch op {
		case BinaryEqual:
			return boolBits(x == y), true
		case BinaryNotEqual:
			return boolBits(x != y), true
		case BinaryLess:
			return boolBits(x < y), true
		case BinaryLessEqual:
			return boolBits(x <= y), true
		case BinaryGreater:
			return boolBits(x > y), true
		default:
			return boolBits(x >= y), true
		}
	}

	switch op {
	case BinaryLogicalAnd:
		return boolBits(a.Bits[i] != 0 && b.Bits[i] != 0), true
	case BinaryLogicalOr:
		return boolBits(a.Bits[i] != 0 || b.Bits[i] != 0), true
	}

	if t.IsFloatingPoint() {
		x, y := a.Float(i), b.Float(i)
		switch op {
		case BinaryAdd:
			return math.Float32bits(x + y), true
		case BinarySubtract:
			return math.Float32bits(x - y), true
		case BinaryMultiply:
			return math.Float32bits(x * y), true
		case BinaryDivide:
			return math.Float32bits(x / y), true
		case BinaryModulo:
			return math.Float32bits(float32(math.Mod(float64(x), float64(y)))), true
		}
		return 0, false
	}

	if !t.IsIntegral() {
		return 0, false
	}

	x, y := a.Bits[i], b.Bits[i]
	switch op {
	case BinaryAdd:
		return x + y, true
	case BinarySubtract:
		return x - y, true
	case BinaryMultiply:
		return x * y, true
	case BinaryDivide, BinaryModulo:
		if y == 0 {
			return 0, false
		}
		if t.Signed {
			if op == BinaryDivide {
				return uint32(int32(x) / int32(y)), true
			}
			return uint32(int32(x) % int32(y)), true
		}
		if op == BinaryDivide {
			return x / y, true
		}
		return x % y, true
	case BinaryAnd:
		return x & y, true
	case BinaryInclusiveOr:
		return x | y, true
	case BinaryExclusiveOr:
		return x ^ y, true
	case BinaryShiftLeft:
		return x << (y & 31), true
	case BinaryShiftRight:
		if t.Signed {
			return uint32(int32(x) >> (y & 31)), true
		}
		return x >> (y & 31), true
	}
	return 0, false
}
