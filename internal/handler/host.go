package handler

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/polarlab/polarlab/internal/scripting"
	"github.com/polarlab/polarlab/internal/world"
)

var _ scripting.Host = (*ScriptHost)(nil)

// ScriptHost exposes the command registry to Lua. Mutations other than insert
// run as command lines.
type ScriptHost struct {
	reg *Registry
}

func NewScriptHost(reg *Registry) *ScriptHost {
	return &ScriptHost{reg: reg}
}

func (h *ScriptHost) Insert(typ string, center [3]float32, size []float32) (uint32, error) {
	line := fmt.Sprintf("insert %s %g %g %g", typ, center[0], center[1], center[2])
	t, err := world.ParseObjectType(typ)
	if err != nil {
		h.reg.fail(line, err)
		return 0, err
	}
	i, _, err := insertObject(h.reg.deps, t, mgl32.Vec3(center), size)
	if err != nil {
		h.reg.fail(line, err)
		return 0, err
	}
	return i, nil
}

func (h *ScriptHost) Remove(i uint32) error {
	return h.exec("remove %d", i)
}

func (h *ScriptHost) Move(i uint32, c [3]float32) error {
	return h.exec("move %d %g %g %g", i, c[0], c[1], c[2])
}

func (h *ScriptHost) Align(dep, anchor uint32, axis string, distance float32) error {
	return h.exec("align %d %d %s %g", dep, anchor, axis, distance)
}

func (h *ScriptHost) Unalign(dep uint32) error {
	return h.exec("unalign %d", dep)
}

func (h *ScriptHost) Object(i uint32) (scripting.ObjectView, bool) {
	o, ok := h.reg.deps.World.Registry.Object(i)
	if !ok {
		return scripting.ObjectView{}, false
	}
	return scripting.View(i, o), true
}

func (h *ScriptHost) exec(format string, a ...any) error {
	_, err := h.reg.Execute(fmt.Sprintf(format, a...))
	return err
}
