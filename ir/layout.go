package ir

// RegisterSize is the size in bytes of one constant register.
const RegisterSize = 16

// componentSize is the byte width of every numeric component.
const componentSize = 4

// UniformLayout assigns offsets to uniforms following constant-buffer
// packing rules: a value never straddles a 16-byte register, while arrays,
// matrices and structs always start on a register boundary.
type UniformLayout struct {
	size    uint32
	structs func(ID) *StructInfo
}

// NewUniformLayout returns an empty layout. structs resolves struct
// definitions for struct-typed uniforms and may be nil.
func NewUniformLayout(structs func(ID) *StructInfo) *UniformLayout {
	return &UniformLayout{structs: structs}
}

// Size returns the total size of the buffer, rounded up to whole registers.
func (l *UniformLayout) Size() uint32 {
	return alignUp(l.size, RegisterSize)
}

// Place reserves space for a value of type t and returns its offset and size.
func (l *UniformLayout) Place(t TypeInfo) (offset, size uint32) {
	size = l.SizeOf(t)
	offset = l.size
	if t.IsArray() || t.IsMatrix() || t.IsStruct() {
		offset = alignUp(offset, RegisterSize)
	} else if offset/RegisterSize != (offset+size-1)/RegisterSize {
		offset = alignUp(offset, RegisterSize)
	}
	l.size = offset + size
	return offset, size
}

// SizeOf returns the packed size of t. The last register of an array,
// matrix or struct is not padded so trailing scalars may share it.
func (l *UniformLayout) SizeOf(t TypeInfo) uint32 {
	if t.IsArray() {
		n := t.ArrayLength
		if n <= 0 {
			return 0
		}
		elem := l.SizeOf(t.Element())
		return alignUp(elem, RegisterSize)*uint32(n-1) + elem
	}
	switch {
	case t.IsStruct():
		if l.structs == nil {
			return 0
		}
		info := l.structs(t.Definition)
		if info == nil {
			return 0
		}
		inner := NewUniformLayout(l.structs)
		for _, f := range info.Fields {
			inner.Place(f.Type)
		}
		return inner.size
	case t.IsMatrix():
		// One register per column.
		return uint32(t.Cols-1)*RegisterSize + uint32(t.Rows)*componentSize
	case t.IsNumeric():
		return uint32(t.Components()) * componentSize
	default:
		return 0
	}
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}
