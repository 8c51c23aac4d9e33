package ir

// BlendFactor is a source or destination blend factor.
type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendInvSrcColor
	BlendSrcAlpha
	BlendInvSrcAlpha
	BlendDestAlpha
	BlendInvDestAlpha
	BlendDestColor
	BlendInvDestColor
)

var blendFactorNames = [...]string{
	"ZERO", "ONE", "SRCCOLOR", "INVSRCCOLOR", "SRCALPHA", "INVSRCALPHA",
	"DESTALPHA", "INVDESTALPHA", "DESTCOLOR", "INVDESTCOLOR",
}

func (f BlendFactor) String() string {
	if int(f) < len(blendFactorNames) {
		return blendFactorNames[f]
	}
	return "UNKNOWN"
}

// BlendOp combines the blended source and destination values.
type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota + 1
	BlendOpSubtract
	BlendOpRevSubtract
	BlendOpMin
	BlendOpMax
)

func (op BlendOp) String() string {
	switch op {
	case BlendOpAdd:
		return "ADD"
	case BlendOpSubtract:
		return "SUBTRACT"
	case BlendOpRevSubtract:
		return "REVSUBTRACT"
	case BlendOpMin:
		return "MIN"
	case BlendOpMax:
		return "MAX"
	default:
		return "UNKNOWN"
	}
}

// StencilOp is applied to the stencil buffer after the stencil test.
type StencilOp uint8

const (
	StencilZero    StencilOp = 0
	StencilKeep    StencilOp = 1
	StencilReplace StencilOp = 3
	StencilIncrSat StencilOp = 4
	StencilDecrSat StencilOp = 5
	StencilInvert  StencilOp = 6
	StencilIncr    StencilOp = 7
	StencilDecr    StencilOp = 8
)

// The values skip 2 to keep the D3D numbering.
var stencilOpNames = map[StencilOp]string{
	StencilZero: "ZERO", StencilKeep: "KEEP", StencilReplace: "REPLACE",
	StencilIncrSat: "INCRSAT", StencilDecrSat: "DECRSAT", StencilInvert: "INVERT",
	StencilIncr: "INCR", StencilDecr: "DECR",
}

func (op StencilOp) String() string {
	if name, ok := stencilOpNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// CompareFunc is the stencil comparison function.
type CompareFunc uint8

const (
	CompareNever CompareFunc = iota + 1
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

var compareNames = [...]string{
	"", "NEVER", "LESS", "EQUAL", "LESSEQUAL", "GREATER", "NOTEQUAL", "GREATEREQUAL", "ALWAYS",
}

func (f CompareFunc) String() string {
	if f > 0 && int(f) < len(compareNames) {
		return compareNames[f]
	}
	return "UNKNOWN"
}

// MaxRenderTargets is the number of render target slots of a pass.
const MaxRenderTargets = 8

// PassInfo describes one pass of a technique: the shaders it binds, its
// render targets and its fixed-function state.
type PassInfo struct {
	Name        string
	Annotations Annotations
	Location    Location

	RenderTargets     [MaxRenderTargets]ID
	RenderTargetNames [MaxRenderTargets]string
	VertexShader      ID
	PixelShader       ID
	VertexShaderName  string
	PixelShaderName   string

	ClearRenderTargets bool
	SRGBWriteEnable    bool
	BlendEnable        bool
	StencilEnable      bool

	ColorWriteMask   uint8
	StencilReadMask  uint8
	StencilWriteMask uint8

	BlendOp        BlendOp
	BlendOpAlpha   BlendOp
	SrcBlend       BlendFactor
	DestBlend      BlendFactor
	SrcBlendAlpha  BlendFactor
	DestBlendAlpha BlendFactor

	StencilFunc        CompareFunc
	StencilRef         uint32
	StencilPassOp      StencilOp
	StencilFailOp      StencilOp
	StencilDepthFailOp StencilOp
}

// NewPassInfo returns a pass with the default state: no blending, stencil
// disabled, all color channels written and an always-passing stencil test.
func NewPassInfo(name string) *PassInfo {
	return &PassInfo{
		Name:               name,
		Annotations:        make(Annotations),
		ClearRenderTargets: true,
		ColorWriteMask:     0xF,
		StencilReadMask:    0xFF,
		StencilWriteMask:   0xFF,
		BlendOp:            BlendOpAdd,
		BlendOpAlpha:       BlendOpAdd,
		SrcBlend:           BlendOne,
		DestBlend:          BlendZero,
		SrcBlendAlpha:      BlendOne,
		DestBlendAlpha:     BlendZero,
		StencilFunc:        CompareAlways,
		StencilPassOp:      StencilKeep,
		StencilFailOp:      StencilKeep,
		StencilDepthFailOp: StencilKeep,
	}
}

// TechniqueInfo is a named, ordered list of passes.
type TechniqueInfo struct {
	Name        string
	UniqueName  string
	Annotations Annotations
	Passes      []*PassInfo
	Location    Location
}
