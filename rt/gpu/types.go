package gpu

// Size is a drawable or texture extent in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) Empty() bool { return s.Width <= 0 || s.Height <= 0 }

// Aspect returns width/height, or 1 for an empty size.
func (s Size) Aspect() float32 {
	if s.Empty() {
		return 1
	}
	return float32(s.Width) / float32(s.Height)
}

type PixelFormat int

const (
	PixelFormatInvalid PixelFormat = iota
	PixelFormatBGRA8Unorm
	PixelFormatBGRA8UnormSrgb
	PixelFormatRGBA8Unorm
	PixelFormatRGBA8UnormSrgb
	PixelFormatDepth32Float
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatBGRA8Unorm:
		return "bgra8unorm"
	case PixelFormatBGRA8UnormSrgb:
		return "bgra8unorm-srgb"
	case PixelFormatRGBA8Unorm:
		return "rgba8unorm"
	case PixelFormatRGBA8UnormSrgb:
		return "rgba8unorm-srgb"
	case PixelFormatDepth32Float:
		return "depth32float"
	}
	return "invalid"
}

type TextureUsage uint32

const (
	TextureUsageRenderTarget TextureUsage = 1 << iota
	TextureUsageShaderRead
)

type LoadAction int

const (
	LoadActionDontCare LoadAction = iota
	LoadActionLoad
	LoadActionClear
)

type StoreAction int

const (
	StoreActionDontCare StoreAction = iota
	StoreActionStore
)

type PrimitiveType int

const (
	PrimitiveTypeTriangle PrimitiveType = iota
	PrimitiveTypeTriangleStrip
)

type BlendFactor int

const (
	BlendFactorZero BlendFactor = iota
	BlendFactorOne
	BlendFactorSourceAlpha
	BlendFactorOneMinusSourceAlpha
)

type BlendOperation int

const (
	BlendOperationAdd BlendOperation = iota
)

type CompareFunction int

const (
	CompareFunctionAlways CompareFunction = iota
	CompareFunctionLess
	CompareFunctionLessEqual
)

type Winding int

const (
	WindingCounterClockwise Winding = iota
	WindingClockwise
)

type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeBack
	CullModeFront
)

type Color struct {
	R, G, B, A float64
}

// VertexFormat describes one attribute in a vertex record.
type VertexFormat int

const (
	VertexFormatFloat2 VertexFormat = iota
	VertexFormatFloat3
)

func (f VertexFormat) Size() int {
	if f == VertexFormatFloat2 {
		return 8
	}
	return 12
}

type VertexAttribute struct {
	Format VertexFormat
	Offset int
}

// VertexLayout describes the record bound at vertex buffer index 0.
type VertexLayout struct {
	Stride     int
	Attributes []VertexAttribute
}

// ResourceLayout selects which shader resources a pipeline binds besides its
// vertex buffer.
type ResourceLayout int

const (
	// ResourceLayoutUniformSlots binds one uniform record at buffer index 1,
	// visible to both stages and addressed by byte offset.
	ResourceLayoutUniformSlots ResourceLayout = iota
	// ResourceLayoutTextures binds fragment textures 0 and 1, a linear sampler
	// and a small fragment-bytes block at index 0.
	ResourceLayoutTextures
)

// MaxFragmentBytes bounds SetFragmentBytes payloads.
const MaxFragmentBytes = 16

type BlendState struct {
	Operation         BlendOperation
	SourceFactor      BlendFactor
	DestinationFactor BlendFactor
}

type RenderPipelineDescriptor struct {
	Label            string
	VertexFunction   Function
	FragmentFunction Function
	VertexLayout     VertexLayout
	Resources        ResourceLayout
	ColorFormat      PixelFormat
	// Blending is nil when blending is disabled.
	Blending    *BlendState
	DepthFormat PixelFormat
}

type DepthStencilDescriptor struct {
	Label             string
	DepthCompare      CompareFunction
	DepthWriteEnabled bool
}

type TextureDescriptor struct {
	Label  string
	Width  int
	Height int
	Format PixelFormat
	Usage  TextureUsage
}

type ColorAttachment struct {
	Texture     Texture
	LoadAction  LoadAction
	StoreAction StoreAction
	ClearColor  Color
}

type DepthAttachment struct {
	Texture     Texture
	LoadAction  LoadAction
	StoreAction StoreAction
	ClearDepth  float64
}

// RenderPassDescriptor describes one encoding session's attachments.
type RenderPassDescriptor struct {
	Color ColorAttachment
	Depth *DepthAttachment
}

// NewRenderPassDescriptor targets tex with a stored colour attachment.
func NewRenderPassDescriptor(tex Texture) *RenderPassDescriptor {
	return &RenderPassDescriptor{
		Color: ColorAttachment{
			Texture:     tex,
			LoadAction:  LoadActionClear,
			StoreAction: StoreActionStore,
		},
	}
}
