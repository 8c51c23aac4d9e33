package ir

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// ID is a result id in the module's id space. Zero means "no id".
type ID uint32

// Location is a position in effect source.
type Location struct {
	Source string
	Line   int
	Column int
}

// String formats the location the way diagnostics print it.
func (l Location) String() string {
	return fmt.Sprintf("%s(%d, %d)", l.Source, l.Line, l.Column)
}

// AnnotationKind tags the value held by an Annotation.
type AnnotationKind uint8

const (
	AnnotationBool AnnotationKind = iota
	AnnotationInt
	AnnotationFloat
	AnnotationString
)

// Annotation is a literal attached to a variable, pass or technique.
type Annotation struct {
	Kind   AnnotationKind
	Bool   bool
	Int    int32
	Float  float32
	String string
}

// Value returns the annotation as a plain Go value.
func (a Annotation) Value() any {
	switch a.Kind {
	case AnnotationBool:
		return a.Bool
	case AnnotationInt:
		return a.Int
	case AnnotationFloat:
		return a.Float
	default:
		return a.String
	}
}

// Text renders the annotation value as source-like text.
func (a Annotation) Text() string {
	switch a.Kind {
	case AnnotationBool:
		return strconv.FormatBool(a.Bool)
	case AnnotationInt:
		return strconv.FormatInt(int64(a.Int), 10)
	case AnnotationFloat:
		return strconv.FormatFloat(float64(a.Float), 'g', -1, 32)
	default:
		return strconv.Quote(a.String)
	}
}

// Annotations maps annotation names to their values.
type Annotations map[string]Annotation

// Keys returns the annotation names in sorted order.
func (a Annotations) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StructField is one member of a struct.
type StructField struct {
	Name     string
	Type     TypeInfo
	Semantic string
}

// StructInfo describes a user-defined struct. Field order defines layout
// and the member indices used in the IR.
type StructInfo struct {
	Name       string
	UniqueName string
	Definition ID
	Fields     []StructField
	Location   Location
}

// FieldIndex returns the index of the named field or -1.
func (s *StructInfo) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Parameter is a function parameter.
type Parameter struct {
	Name     string
	Type     TypeInfo
	Semantic string
	Location Location
}

// FunctionInfo describes a user-defined function. Names may repeat across
// overloads; parameter type sequences never repeat within one name.
type FunctionInfo struct {
	Name           string
	UniqueName     string
	ReturnType     TypeInfo
	ReturnSemantic string
	Parameters     []Parameter
	Definition     ID
	Location       Location
}

// ParameterTypes returns the ordered parameter types.
func (f *FunctionInfo) ParameterTypes() []TypeInfo {
	types := make([]TypeInfo, len(f.Parameters))
	for i, p := range f.Parameters {
		types[i] = p.Type
	}
	return types
}

// SameSignature reports whether both functions take identical parameter types.
func (f *FunctionInfo) SameSignature(o *FunctionInfo) bool {
	if len(f.Parameters) != len(o.Parameters) {
		return false
	}
	for i := range f.Parameters {
		a, b := f.Parameters[i].Type, o.Parameters[i].Type
		if !a.Equal(b) || a.Has(QualifierOut) != b.Has(QualifierOut) {
			return false
		}
	}
	return true
}

// TextureFormat is the pixel format of a texture resource.
type TextureFormat uint8

const (
	FormatUnknown TextureFormat = iota
	FormatR8
	FormatR16F
	FormatR32F
	FormatRG8
	FormatRG16
	FormatRG16F
	FormatRG32F
	FormatRGBA8
	FormatRGBA16
	FormatRGBA16F
	FormatRGBA32F
)

var formatNames = [...]string{
	"UNKNOWN", "R8", "R16F", "R32F", "RG8", "RG16", "RG16F", "RG32F",
	"RGBA8", "RGBA16", "RGBA16F", "RGBA32F",
}

func (f TextureFormat) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "UNKNOWN"
}

// TextureFilter is a D3D-style combined min/mag/mip filter code.
type TextureFilter uint8

const (
	FilterMinMagMipPoint  TextureFilter = 0x00
	FilterMinMagMipLinear TextureFilter = 0x15
	FilterAnisotropic     TextureFilter = 0x55

	filterMipLinear TextureFilter = 0x01
	filterMagLinear TextureFilter = 0x04
	filterMinLinear TextureFilter = 0x10
)

// FilterMode is the per-stage filter selection of a sampler.
type FilterMode uint8

const (
	FilterPoint FilterMode = iota
	FilterLinear
	FilterAnisotropicMode
)

func (m FilterMode) String() string {
	switch m {
	case FilterPoint:
		return "POINT"
	case FilterLinear:
		return "LINEAR"
	case FilterAnisotropicMode:
		return "ANISOTROPIC"
	default:
		return "UNKNOWN"
	}
}

// CombineFilter builds a filter code from the min, mag and mip filter modes.
// Any anisotropic stage makes the whole filter anisotropic.
func CombineFilter(minFilter, magFilter, mipFilter FilterMode) TextureFilter {
	if minFilter == FilterAnisotropicMode || magFilter == FilterAnisotropicMode || mipFilter == FilterAnisotropicMode {
		return FilterAnisotropic
	}
	var f TextureFilter
	if minFilter == FilterLinear {
		f |= filterMinLinear
	}
	if magFilter == FilterLinear {
		f |= filterMagLinear
	}
	if mipFilter == FilterLinear {
		f |= filterMipLinear
	}
	return f
}

// Modes splits a combined filter back into min, mag and mip modes.
func (f TextureFilter) Modes() (minFilter, magFilter, mipFilter FilterMode) {
	if f == FilterAnisotropic {
		return FilterAnisotropicMode, FilterAnisotropicMode, FilterAnisotropicMode
	}
	pick := func(bit TextureFilter) FilterMode {
		if f&bit != 0 {
			return FilterLinear
		}
		return FilterPoint
	}
	return pick(filterMinLinear), pick(filterMagLinear), pick(filterMipLinear)
}

// AddressMode selects how texture coordinates outside [0,1] are resolved.
type AddressMode uint8

const (
	AddressWrap AddressMode = iota + 1
	AddressMirror
	AddressClamp
	AddressBorder
)

func (m AddressMode) String() string {
	switch m {
	case AddressWrap:
		return "WRAP"
	case AddressMirror:
		return "MIRROR"
	case AddressClamp:
		return "CLAMP"
	case AddressBorder:
		return "BORDER"
	default:
		return "UNKNOWN"
	}
}

// VariableInfo describes a global variable together with the resource
// properties parsed from its property block.
type VariableInfo struct {
	Name        string
	UniqueName  string
	Type        TypeInfo
	Definition  ID
	Semantic    string
	Annotations Annotations
	Location    Location

	// Initializer holds the constant default value, if any.
	Initializer *Constant

	// Uniform buffer placement.
	Offset uint32
	Size   uint32

	// Resource binding in descriptor set 0.
	Binding uint32

	// Texture properties.
	Width, Height, Depth uint32
	Levels               uint32
	Format               TextureFormat

	// Sampler properties.
	Texture     ID
	TextureName string
	SRGB        bool
	Filter      TextureFilter
	AddressU    AddressMode
	AddressV    AddressMode
	AddressW    AddressMode
	MinLOD      float32
	MaxLOD      float32
	LODBias     float32
}

// NewVariableInfo returns a descriptor with the resource defaults applied.
func NewVariableInfo() *VariableInfo {
	return &VariableInfo{
		Annotations: make(Annotations),
		Width:       1,
		Height:      1,
		Depth:       1,
		Levels:      1,
		Format:      FormatRGBA8,
		Filter:      FilterMinMagMipLinear,
		AddressU:    AddressClamp,
		AddressV:    AddressClamp,
		AddressW:    AddressClamp,
		MaxLOD:      math.MaxFloat32,
	}
}
