package scripting

import (
	"github.com/go-gl/mathgl/mgl32"
	lua "github.com/yuin/gopher-lua"

	"github.com/polarlab/polarlab/internal/world"
)

// Host is the world surface exposed to scripts as Lua globals.
type Host interface {
	Insert(typ string, center [3]float32, size []float32) (uint32, error)
	Remove(i uint32) error
	Move(i uint32, center [3]float32) error
	Align(dep, anchor uint32, axis string, distance float32) error
	Unalign(dep uint32) error
	Object(i uint32) (ObjectView, bool)
}

// View summarizes registry slot i for scripts.
func View(i uint32, o world.Object) ObjectView {
	return ObjectView{
		Index:     i,
		Type:      o.Type.String(),
		Center:    o.Center,
		Yaw:       mgl32.RadToDeg(o.Rotation[0]),
		Pitch:     mgl32.RadToDeg(o.Rotation[1]),
		AlignedTo: o.AlignedTo,
	}
}

// Bind installs the world globals:
//
//	insert_object(type, x, y, z [, w, h, r]) -> index | nil, err
//	remove_object(i)                        -> true | nil, err
//	move_object(i, x, y, z)                 -> true | nil, err
//	align(dep, anchor, axis, distance)      -> true | nil, err
//	unalign(dep)                            -> true | nil, err
//	object(i)                               -> table | nil
func (e *Engine) Bind(h Host) {
	e.host = h
	e.vm.SetGlobal("insert_object", e.vm.NewFunction(e.luaInsert))
	e.vm.SetGlobal("remove_object", e.vm.NewFunction(e.luaRemove))
	e.vm.SetGlobal("move_object", e.vm.NewFunction(e.luaMove))
	e.vm.SetGlobal("align", e.vm.NewFunction(e.luaAlign))
	e.vm.SetGlobal("unalign", e.vm.NewFunction(e.luaUnalign))
	e.vm.SetGlobal("object", e.vm.NewFunction(e.luaObject))
}

func (e *Engine) luaInsert(L *lua.LState) int {
	typ := L.CheckString(1)
	center := checkVec(L, 2)
	var size []float32
	if L.GetTop() >= 5 {
		v := checkVec(L, 5)
		size = v[:]
	}
	i, err := e.host.Insert(typ, center, size)
	if err != nil {
		return pushErr(L, err)
	}
	L.Push(lua.LNumber(i))
	return 1
}

func (e *Engine) luaRemove(L *lua.LState) int {
	return pushResult(L, e.host.Remove(checkIndex(L, 1)))
}

func (e *Engine) luaMove(L *lua.LState) int {
	return pushResult(L, e.host.Move(checkIndex(L, 1), checkVec(L, 2)))
}

func (e *Engine) luaAlign(L *lua.LState) int {
	dep := checkIndex(L, 1)
	anchor := checkIndex(L, 2)
	axis := L.CheckString(3)
	dist := float32(L.CheckNumber(4))
	return pushResult(L, e.host.Align(dep, anchor, axis, dist))
}

func (e *Engine) luaUnalign(L *lua.LState) int {
	return pushResult(L, e.host.Unalign(checkIndex(L, 1)))
}

func (e *Engine) luaObject(L *lua.LState) int {
	v, ok := e.host.Object(checkIndex(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(e.viewTable(v))
	return 1
}

func (e *Engine) viewTable(o ObjectView) *lua.LTable {
	row := e.vm.NewTable()
	row.RawSetString("index", lua.LNumber(o.Index))
	row.RawSetString("type", lua.LString(o.Type))
	row.RawSetString("x", lua.LNumber(o.Center[0]))
	row.RawSetString("y", lua.LNumber(o.Center[1]))
	row.RawSetString("z", lua.LNumber(o.Center[2]))
	row.RawSetString("yaw", lua.LNumber(o.Yaw))
	row.RawSetString("pitch", lua.LNumber(o.Pitch))
	row.RawSetString("aligned_to", lua.LNumber(o.AlignedTo))
	return row
}

func checkIndex(L *lua.LState, n int) uint32 {
	i := L.CheckInt(n)
	if i <= 0 {
		L.ArgError(n, "object index must be positive")
	}
	return uint32(i)
}

func checkVec(L *lua.LState, n int) [3]float32 {
	return [3]float32{
		float32(L.CheckNumber(n)),
		float32(L.CheckNumber(n + 1)),
		float32(L.CheckNumber(n + 2)),
	}
}

func pushResult(L *lua.LState, err error) int {
	if err != nil {
		return pushErr(L, err)
	}
	L.Push(lua.LTrue)
	return 1
}

func pushErr(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(lua.LString(err.Error()))
	return 2
}
