package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polarlab/polarlab/internal/core/event"
	"github.com/polarlab/polarlab/internal/scripting"
	"github.com/polarlab/polarlab/internal/world"
)

func TestScriptHost(t *testing.T) {
	reg, deps := newTestRegistry()
	h := NewScriptHost(reg)

	a, err := h.Insert("light", [3]float32{0, 2, 0}, nil)
	require.NoError(t, err)
	b, err := h.Insert("opaque_cube", [3]float32{9, 9, 9}, nil)
	require.NoError(t, err)

	require.NoError(t, h.Align(b, a, "up", 3))
	_, err = deps.World.ResolveAlignments()
	require.NoError(t, err)
	v, ok := h.Object(b)
	require.True(t, ok)
	assert.Equal(t, a, v.AlignedTo)
	assert.InDelta(t, 5, v.Center[1], 1e-5)

	require.NoError(t, h.Move(a, [3]float32{-4, 2, 1}))
	require.NoError(t, h.Unalign(b))
	require.NoError(t, h.Remove(a))
	_, ok = h.Object(a)
	assert.False(t, ok)

	_, err = h.Insert("banana", [3]float32{}, nil)
	assert.Error(t, err)
	_, err = h.Insert("light", [3]float32{500, 0, 0}, nil)
	assert.ErrorIs(t, err, world.ErrOutOfBounds)
	assert.ErrorIs(t, h.Remove(a), world.ErrNoObject)

	var failed int
	event.Subscribe(deps.Bus, func(event.CommandFailed) { failed++ })
	deps.Bus.SwapBuffers()
	deps.Bus.DispatchAll()
	assert.Equal(t, 3, failed)
}

func TestScriptHost_FromLua(t *testing.T) {
	reg, deps := newTestRegistry()
	e, err := scripting.NewEngineString(`
function scene_setup()
  local a = insert_object("light", 0, 2, 0)
  local w = insert_object("square_wall", 0, 0, 0, 1, 1, 0.1)
  assert(align(w, a, "front", 4))
  return {}
end
`, nil)
	require.NoError(t, err)
	defer e.Close()
	e.Bind(NewScriptHost(reg))

	_, err = e.Setup()
	require.NoError(t, err)
	assert.Equal(t, 2, deps.World.Registry.Len())
	w, _ := deps.World.Registry.Object(2)
	assert.Equal(t, uint32(1), w.AlignedTo)
	assert.Len(t, deps.World.Registry.Voxels(2), 125)
}
