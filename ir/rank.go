package ir

// Rank orders candidate conversions between two types. Lower valid ranks
// are better; NotConvertible never compares as a valid rank.
type Rank uint32

const (
	NotConvertible Rank = 0
	RankExact      Rank = 1

	rankPromotion  Rank = 2 // int/uint to float
	rankSignChange Rank = 3 // int <-> uint
	rankNarrowing  Rank = 4 // float to int/uint
	rankSplat      Rank = 8
	rankTruncation Rank = 16
)

// Convertible reports whether the rank describes a valid conversion.
func (r Rank) Convertible() bool { return r != NotConvertible }

// IsTruncation reports whether the conversion drops components.
func (r Rank) IsTruncation() bool { return r >= rankTruncation }

// RankConversion ranks the implicit conversion of a value of type src to
// type dst. Booleans never convert implicitly to or from other numeric
// kinds; such casts are left to the caller.
func RankConversion(src, dst TypeInfo) Rank {
	if src.ArrayLength != dst.ArrayLength {
		return NotConvertible
	}
	if src.IsArray() {
		if src.Element().Equal(dst.Element()) {
			return RankExact
		}
		return NotConvertible
	}
	if src.IsStruct() || dst.IsStruct() {
		if src.Base == dst.Base && src.Definition == dst.Definition {
			return RankExact
		}
		return NotConvertible
	}
	if !src.IsNumeric() || !dst.IsNumeric() {
		if src.Base == dst.Base {
			return RankExact
		}
		return NotConvertible
	}
	if src.IsBoolean() != dst.IsBoolean() {
		return NotConvertible
	}

	base := baseRank(src, dst)

	switch {
	case src.Rows == dst.Rows && src.Cols == dst.Cols:
		return base
	case src.Components() == 1:
		return base + rankSplat
	case dst.Components() == 1:
		return base + rankTruncation
	case src.IsVector() && dst.IsVector() && src.Rows > dst.Rows:
		return base + rankTruncation
	case src.IsMatrix() && dst.IsMatrix() && src.Rows >= dst.Rows && src.Cols >= dst.Cols:
		return base + rankTruncation
	default:
		return NotConvertible
	}
}

func baseRank(src, dst TypeInfo) Rank {
	switch {
	case src.Base == dst.Base && src.Signed == dst.Signed:
		return RankExact
	case src.IsIntegral() && dst.IsIntegral():
		return rankSignChange
	case src.IsIntegral() && dst.IsFloatingPoint():
		return rankPromotion
	default:
		return rankNarrowing
	}
}

// CommonType returns the type both operands of an arithmetic operator are
// converted to: the wider component type and the larger shape, where a
// scalar always widens to the other operand's shape.
func CommonType(a, b TypeInfo) TypeInfo {
	res := a.ScalarType()
	switch {
	case a.IsFloatingPoint() || b.IsFloatingPoint():
		res = TypeFloat
	case a.IsIntegral() && b.IsIntegral():
		res = Scalar(BaseInt, a.Signed && b.Signed)
	case a.IsIntegral():
		res = a.ScalarType()
	case b.IsIntegral():
		res = b.ScalarType()
	}

	switch {
	case a.Components() == 1:
		return res.WithShape(b.Rows, b.Cols)
	case b.Components() == 1:
		return res.WithShape(a.Rows, a.Cols)
	default:
		return res.WithShape(min(a.Rows, b.Rows), min(a.Cols, b.Cols))
	}
}
