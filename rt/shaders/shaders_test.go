package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryPointsResolve(t *testing.T) {
	for _, name := range Names() {
		ep, ok := Lookup(name)
		require.True(t, ok, name)
		assert.NotEmpty(t, ep.Source, name)
		assert.True(t, strings.Contains(ep.Source, "fn "+ep.Name+"("), "%s: missing %s", name, ep.Name)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, ok := Lookup("vs_main")
	assert.False(t, ok)
}

func TestGeometryUniformLayout(t *testing.T) {
	// Field order must match core.Uniforms.Encode.
	mvp := strings.Index(GeometryWGSL, "mvp :")
	mv := strings.Index(GeometryWGSL, "mv :")
	color := strings.Index(GeometryWGSL, "color :")
	opacity := strings.Index(GeometryWGSL, "opacity :")
	require.True(t, mvp >= 0 && mv >= 0 && color >= 0 && opacity >= 0)
	assert.Less(t, mvp, mv)
	assert.Less(t, mv, color)
	assert.Less(t, color, opacity)
}
