package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Uniforms is the per-instance record read by geometryVertex/geometryFragment.
//
//	struct Uniforms {
//	  mvp:     mat4x4<f32>; -- 0
//	  mv:      mat4x4<f32>; -- 64
//	  color:   vec4<f32>;   -- 128
//	  opacity: f32;         -- 144
//	} -> 160 bytes (padded)
type Uniforms struct {
	MVP     mgl32.Mat4
	MV      mgl32.Mat4
	Color   mgl32.Vec4
	Opacity float32
}

// UniformsSize is the WGSL size of Uniforms, including tail padding.
const UniformsSize = 160

// ComputeUniforms derives the record for one instance seen through cam.
func ComputeUniforms(t Transform, color mgl32.Vec4, opacity float32, cam Camera, aspect float32) Uniforms {
	model := t.ModelMatrix()
	view := cam.ViewMatrix()
	projection := cam.ProjectionMatrix(aspect)

	mv := view.Mul4(model)
	return Uniforms{
		MVP:     projection.Mul4(mv),
		MV:      mv,
		Color:   color,
		Opacity: opacity,
	}
}

// Encode writes u into dst, which must hold at least UniformsSize bytes.
func (u *Uniforms) Encode(dst []byte) {
	_ = dst[UniformsSize-1]
	putFloats(dst[0:], u.MVP[:])
	putFloats(dst[64:], u.MV[:])
	putFloats(dst[128:], u.Color[:])
	binary.LittleEndian.PutUint32(dst[144:], math.Float32bits(u.Opacity))
	clear(dst[148:UniformsSize])
}

// DecodeUniforms is the inverse of Encode.
func DecodeUniforms(src []byte) Uniforms {
	_ = src[UniformsSize-1]
	var u Uniforms
	getFloats(src[0:], u.MVP[:])
	getFloats(src[64:], u.MV[:])
	getFloats(src[128:], u.Color[:])
	u.Opacity = math.Float32frombits(binary.LittleEndian.Uint32(src[144:]))
	return u
}

func putFloats(dst []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

func getFloats(src []byte, values []float32) {
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}
