package ir

import "testing"

func TestUniformLayout_Packing(t *testing.T) {
	l := NewUniformLayout(nil)

	place := func(typ TypeInfo, wantOffset, wantSize uint32) {
		t.Helper()
		off, size := l.Place(typ)
		if off != wantOffset || size != wantSize {
			t.Errorf("Place(%s) = (%d, %d), want (%d, %d)", typ, off, size, wantOffset, wantSize)
		}
	}

	place(TypeFloat, 0, 4)
	place(Vector(BaseFloat, false, 3), 4, 12)
	place(Vector(BaseFloat, false, 2), 16, 8)
	// A float4 may not straddle a register.
	place(Vector(BaseFloat, false, 4), 32, 16)
	place(TypeInt, 48, 4)
	place(Matrix(BaseFloat, false, 4, 4), 64, 64)

	if got := l.Size(); got != 128 {
		t.Errorf("Size() = %d, want 128", got)
	}
}

func TestUniformLayout_Arrays(t *testing.T) {
	arr := TypeFloat
	arr.ArrayLength = 3

	l := NewUniformLayout(nil)
	l.Place(TypeFloat)
	off, size := l.Place(arr)
	if off != 16 || size != 36 {
		t.Errorf("float[3] placed at (%d, %d), want (16, 36)", off, size)
	}
	// The tail of the last element's register is shared.
	if off, _ := l.Place(TypeFloat); off != 52 {
		t.Errorf("trailing float at %d, want 52", off)
	}
}

func TestUniformLayout_Struct(t *testing.T) {
	info := &StructInfo{
		Name:       "Light",
		Definition: 200,
		Fields: []StructField{
			{Name: "color", Type: Vector(BaseFloat, false, 3)},
			{Name: "intensity", Type: TypeFloat},
			{Name: "dir", Type: Vector(BaseFloat, false, 3)},
		},
	}
	lookup := func(id ID) *StructInfo {
		if id == info.Definition {
			return info
		}
		return nil
	}

	l := NewUniformLayout(lookup)
	l.Place(TypeFloat)
	off, size := l.Place(TypeInfo{Base: BaseStruct, Definition: 200})
	if off != 16 || size != 28 {
		t.Errorf("struct placed at (%d, %d), want (16, 28)", off, size)
	}
}
