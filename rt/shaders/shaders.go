package shaders

import (
	_ "embed"
)

//go:embed geometry.wgsl
var GeometryWGSL string

//go:embed background.wgsl
var BackgroundWGSL string

//go:embed postfx.wgsl
var PostFXWGSL string

// Logical entry point names. Pipelines are looked up by these, never by the
// WGSL function names.
const (
	GeometryVertex     = "geometryVertex"
	GeometryFragment   = "geometryFragment"
	BackgroundVertex   = "backgroundVertex"
	BackgroundFragment = "backgroundFragment"
	PostFXVertex       = "postFXVertex"
	PostFXFragment     = "postFXFragment"
)

// EntryPoint locates a logical function inside a WGSL module.
type EntryPoint struct {
	Module string // module label
	Source string
	Name   string // WGSL function name
}

var entryPoints = map[string]EntryPoint{
	GeometryVertex:     {Module: "geometry", Source: GeometryWGSL, Name: "vs_main"},
	GeometryFragment:   {Module: "geometry", Source: GeometryWGSL, Name: "fs_main"},
	BackgroundVertex:   {Module: "background", Source: BackgroundWGSL, Name: "vs_main"},
	BackgroundFragment: {Module: "background", Source: BackgroundWGSL, Name: "fs_main"},
	PostFXVertex:       {Module: "postfx", Source: PostFXWGSL, Name: "vs_main"},
	PostFXFragment:     {Module: "postfx", Source: PostFXWGSL, Name: "fs_main"},
}

// Lookup resolves a logical entry point name.
func Lookup(name string) (EntryPoint, bool) {
	ep, ok := entryPoints[name]
	return ep, ok
}

// Names lists every logical entry point.
func Names() []string {
	return []string{
		GeometryVertex, GeometryFragment,
		BackgroundVertex, BackgroundFragment,
		PostFXVertex, PostFXFragment,
	}
}
