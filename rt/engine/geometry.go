package engine

import (
	"github.com/gekko3d/linkstart/rt/core"
	"github.com/gekko3d/linkstart/rt/gpu"
)

// GeometryRenderer owns the GPU-resident mesh for one kind of geometry and
// emits its draws into an open encoder.
//
// Render does not receive colour or matrices: the caller has already bound
// the instance's uniform slot, so many nodes can share one renderer.
type GeometryRenderer interface {
	PrepareResources(rc *Context) error
	Render(t core.Transform, enc gpu.RenderEncoder)
}
