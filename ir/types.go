package ir

import (
	"strconv"
	"strings"
)

// BaseKind is the fundamental kind of a type.
type BaseKind uint8

const (
	BaseVoid BaseKind = iota
	BaseBool
	BaseInt
	BaseFloat
	BaseStruct
	BaseImage        // texture
	BaseSampledImage // sampler bound to a texture
)

// String returns the source spelling of the base kind.
func (k BaseKind) String() string {
	switch k {
	case BaseVoid:
		return "void"
	case BaseBool:
		return "bool"
	case BaseInt:
		return "int"
	case BaseFloat:
		return "float"
	case BaseStruct:
		return "struct"
	case BaseImage:
		return "texture"
	case BaseSampledImage:
		return "sampler"
	default:
		return "unknown"
	}
}

// Qualifier is a bitmask of storage, modifier and interpolation qualifiers.
type Qualifier uint32

const (
	// Storage
	QualifierExtern   Qualifier = 1 << 0
	QualifierStatic   Qualifier = 1 << 1
	QualifierUniform  Qualifier = 1 << 2
	QualifierVolatile Qualifier = 1 << 3
	QualifierPrecise  Qualifier = 1 << 4
	QualifierIn       Qualifier = 1 << 5
	QualifierOut      Qualifier = 1 << 6
	QualifierInOut              = QualifierIn | QualifierOut

	// Modifier
	QualifierConst Qualifier = 1 << 8

	// Interpolation
	QualifierLinear          Qualifier = 1 << 10
	QualifierNoPerspective   Qualifier = 1 << 11
	QualifierCentroid        Qualifier = 1 << 12
	QualifierNoInterpolation Qualifier = 1 << 13
)

// ArrayUnsized marks an array declared with empty brackets.
const ArrayUnsized int32 = -1

// TypeInfo describes a type of the effect language.
//
// Rows and Cols are always in [1,4]; a vector has Rows > 1 and Cols == 1,
// a matrix has Cols > 1. ArrayLength is 0 for non-arrays, ArrayUnsized for
// "[]" and the element count otherwise.
type TypeInfo struct {
	Base            BaseKind
	Size            uint8 // component width in bits
	Rows            uint8
	Cols            uint8
	Signed          bool
	Pointer         bool
	Qualifiers      Qualifier
	ArrayLength     int32
	Definition      ID // struct type, or the sampled/image type of a texture/sampler
	ArrayLengthExpr ID // constant holding the array length, 0 until emitted
}

// Common types.
var (
	TypeVoid  = TypeInfo{Base: BaseVoid, Rows: 1, Cols: 1}
	TypeBool  = Scalar(BaseBool, false)
	TypeInt   = Scalar(BaseInt, true)
	TypeUint  = Scalar(BaseInt, false)
	TypeFloat = Scalar(BaseFloat, false)

	TypeTexture = TypeInfo{Base: BaseImage, Rows: 1, Cols: 1}
	TypeSampler = TypeInfo{Base: BaseSampledImage, Rows: 1, Cols: 1}
)

// Scalar returns the 32-bit scalar type of the given base. Signedness only
// applies to integers.
func Scalar(base BaseKind, signed bool) TypeInfo {
	return TypeInfo{Base: base, Size: 32, Rows: 1, Cols: 1, Signed: signed && base == BaseInt}
}

// Vector returns an n-component vector of the given base.
func Vector(base BaseKind, signed bool, n uint8) TypeInfo {
	t := Scalar(base, signed)
	t.Rows = n
	return t
}

// Matrix returns a rows x cols matrix of the given base.
func Matrix(base BaseKind, signed bool, rows, cols uint8) TypeInfo {
	t := Scalar(base, signed)
	t.Rows = rows
	t.Cols = cols
	return t
}

// Has reports whether all bits of q are set.
func (t TypeInfo) Has(q Qualifier) bool { return t.Qualifiers&q == q }

func (t TypeInfo) IsArray() bool         { return t.ArrayLength != 0 }
func (t TypeInfo) IsUnsizedArray() bool  { return t.ArrayLength == ArrayUnsized }
func (t TypeInfo) IsVector() bool        { return t.Rows > 1 && t.Cols == 1 }
func (t TypeInfo) IsMatrix() bool        { return t.Rows >= 1 && t.Cols > 1 }
func (t TypeInfo) IsVoid() bool          { return t.Base == BaseVoid }
func (t TypeInfo) IsBoolean() bool       { return t.Base == BaseBool }
func (t TypeInfo) IsIntegral() bool      { return t.Base == BaseInt }
func (t TypeInfo) IsFloatingPoint() bool { return t.Base == BaseFloat }
func (t TypeInfo) IsStruct() bool        { return t.Base == BaseStruct }
func (t TypeInfo) IsImage() bool         { return t.Base == BaseImage }
func (t TypeInfo) IsSampledImage() bool  { return t.Base == BaseSampledImage }

// IsNumeric reports whether the type is bool, integral or floating point.
func (t TypeInfo) IsNumeric() bool {
	return t.IsBoolean() || t.IsIntegral() || t.IsFloatingPoint()
}

// IsScalar reports whether the type is a single numeric component.
func (t TypeInfo) IsScalar() bool {
	return !t.IsArray() && !t.IsMatrix() && !t.IsVector() && t.IsNumeric()
}

// Components returns the number of numeric components (rows * cols).
func (t TypeInfo) Components() int { return int(t.Rows) * int(t.Cols) }

// Element returns the element type of an array, with qualifiers kept.
func (t TypeInfo) Element() TypeInfo {
	t.ArrayLength = 0
	t.ArrayLengthExpr = 0
	return t
}

// ScalarType returns the component type of a numeric type.
func (t TypeInfo) ScalarType() TypeInfo {
	return TypeInfo{Base: t.Base, Size: t.Size, Rows: 1, Cols: 1, Signed: t.Signed}
}

// WithShape returns the type with the same component type and a new shape.
func (t TypeInfo) WithShape(rows, cols uint8) TypeInfo {
	s := t.ScalarType()
	s.Rows = rows
	s.Cols = cols
	return s
}

// Value returns the type stripped of pointer flag and qualifiers.
func (t TypeInfo) Value() TypeInfo {
	t.Pointer = false
	t.Qualifiers = 0
	return t
}

// TypeKey is the comparable identity of a TypeInfo. Qualifiers and the
// array length expression do not take part in it.
type TypeKey struct {
	Base        BaseKind
	Size        uint8
	Rows        uint8
	Cols        uint8
	Signed      bool
	Pointer     bool
	ArrayLength int32
	Definition  ID
}

// Key returns the identity used for interning.
func (t TypeInfo) Key() TypeKey {
	return TypeKey{
		Base:        t.Base,
		Size:        t.Size,
		Rows:        t.Rows,
		Cols:        t.Cols,
		Signed:      t.Signed,
		Pointer:     t.Pointer,
		ArrayLength: t.ArrayLength,
		Definition:  t.Definition,
	}
}

// Equal compares two types structurally, ignoring qualifiers.
func (t TypeInfo) Equal(o TypeInfo) bool { return t.Key() == o.Key() }

// String returns the source spelling of the type.
func (t TypeInfo) String() string {
	var sb strings.Builder
	switch {
	case t.Base == BaseInt && !t.Signed:
		sb.WriteString("uint")
	default:
		sb.WriteString(t.Base.String())
	}
	if t.IsNumeric() {
		if t.Rows > 1 || t.Cols > 1 {
			sb.WriteString(strconv.Itoa(int(t.Rows)))
		}
		if t.Cols > 1 {
			sb.WriteByte('x')
			sb.WriteString(strconv.Itoa(int(t.Cols)))
		}
	}
	switch {
	case t.IsUnsizedArray():
		sb.WriteString("[]")
	case t.IsArray():
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(int(t.ArrayLength)))
		sb.WriteByte(']')
	}
	return sb.String()
}

// Mangle returns a short identifier-safe spelling used in unique names.
func (t TypeInfo) Mangle() string {
	var sb strings.Builder
	switch t.Base {
	case BaseVoid:
		sb.WriteByte('v')
	case BaseBool:
		sb.WriteByte('b')
	case BaseInt:
		if t.Signed {
			sb.WriteByte('i')
		} else {
			sb.WriteByte('u')
		}
	case BaseFloat:
		sb.WriteByte('f')
	case BaseStruct:
		sb.WriteByte('S')
		sb.WriteString(strconv.FormatUint(uint64(t.Definition), 10))
	case BaseImage:
		sb.WriteByte('T')
	case BaseSampledImage:
		sb.WriteByte('s')
	}
	if t.IsNumeric() {
		sb.WriteString(strconv.Itoa(int(t.Rows)))
		if t.Cols > 1 {
			sb.WriteByte('x')
			sb.WriteString(strconv.Itoa(int(t.Cols)))
		}
	}
	if t.IsArray() {
		sb.WriteByte('a')
		if t.ArrayLength > 0 {
			sb.WriteString(strconv.Itoa(int(t.ArrayLength)))
		}
	}
	if t.Has(QualifierOut) {
		sb.WriteByte('o')
	}
	return sb.String()
}
