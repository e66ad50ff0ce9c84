package core

import (
	"unsafe"
)

// Vertex matches the geometry shader's VertexInput (position @0, normal @1).
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
}

// TextureVertex matches the full-screen pass VertexInput (position @0, uv @1).
type TextureVertex struct {
	Position  [3]float32
	TexCoords [2]float32
}

const (
	VertexStride        = int(unsafe.Sizeof(Vertex{}))
	TextureVertexStride = int(unsafe.Sizeof(TextureVertex{}))
)

// VertexBytes views vertices as raw bytes for upload. The result aliases the slice.
func VertexBytes(vertices []Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*VertexStride)
}

func TextureVertexBytes(vertices []TextureVertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*TextureVertexStride)
}
