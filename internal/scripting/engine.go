package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM driving scene animation.
// Single-goroutine access only (game loop).
type Engine struct {
	vm   *lua.LState
	log  *zap.Logger
	host Host
}

// NewEngine creates a Lua engine and loads path, which may be a single .lua
// file or a directory of them.
func NewEngine(path string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	info, err := os.Stat(path)
	if err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	if info.IsDir() {
		err = e.loadDir(path)
	} else {
		err = e.loadFile(path)
	}
	if err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// NewEngineString is NewEngine for inline source.
func NewEngineString(src string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

// Close releases the VM.
func (e *Engine) Close() { e.vm.Close() }

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.loadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) loadFile(path string) error {
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// ObjectView is the read-only object summary handed to scripts.
type ObjectView struct {
	Index     uint32
	Type      string
	Center    [3]float32
	Yaw       float32 // degrees
	Pitch     float32 // degrees
	AlignedTo uint32
}

// TickContext is passed to Lua scene_tick(ctx).
type TickContext struct {
	Tick    uint64
	Dt      float64 // seconds
	Elapsed float64 // seconds since start
	Objects []ObjectView
}

// Command is a single action returned by Lua. Every command renders to one
// console line so it runs through the same validation as typed input.
type Command struct {
	Type  string // "move", "rotate", "exec"
	Index int
	X     float64
	Y     float64
	Z     float64
	Yaw   float64 // degrees
	Pitch float64 // degrees
	Line  string  // exec only
}

// Line renders c as a console command.
func (c Command) Line() (string, error) {
	switch c.Type {
	case "move":
		return fmt.Sprintf("move %d %s %s %s", c.Index, num(c.X), num(c.Y), num(c.Z)), nil
	case "rotate":
		return fmt.Sprintf("rotate %d %s %s", c.Index, num(c.Yaw), num(c.Pitch)), nil
	case "exec":
		if strings.TrimSpace(c.Line) == "" {
			return "", fmt.Errorf("scripting: exec command without line")
		}
		return c.Line, nil
	default:
		return "", fmt.Errorf("scripting: unknown command type %q", c.Type)
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// HasTick reports whether the loaded scripts define scene_tick.
func (e *Engine) HasTick() bool {
	return e.vm.GetGlobal("scene_tick") != lua.LNil
}

// Setup calls Lua scene_setup() once, if defined, and returns its commands.
func (e *Engine) Setup() ([]Command, error) {
	fn := e.vm.GetGlobal("scene_setup")
	if fn == lua.LNil {
		return nil, nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}); err != nil {
		return nil, fmt.Errorf("lua scene_setup: %w", err)
	}
	return e.popCommands()
}

// RunTick calls Lua scene_tick(ctx) and returns a list of commands.
func (e *Engine) RunTick(ctx TickContext) ([]Command, error) {
	fn := e.vm.GetGlobal("scene_tick")
	if fn == lua.LNil {
		return nil, nil
	}

	t := e.vm.NewTable()
	t.RawSetString("tick", lua.LNumber(ctx.Tick))
	t.RawSetString("dt", lua.LNumber(ctx.Dt))
	t.RawSetString("elapsed", lua.LNumber(ctx.Elapsed))

	objs := e.vm.NewTable()
	for _, o := range ctx.Objects {
		objs.RawSetInt(int(o.Index), e.viewTable(o))
	}
	t.RawSetString("objects", objs)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return nil, fmt.Errorf("lua scene_tick: %w", err)
	}
	return e.popCommands()
}

func (e *Engine) popCommands() ([]Command, error) {
	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		if result == lua.LNil {
			return nil, nil
		}
		return nil, fmt.Errorf("scripting: expected command list, got %s", result.Type())
	}

	var cmds []Command
	var bad error
	rt.ForEach(func(_, v lua.LValue) {
		row, ok := v.(*lua.LTable)
		if !ok {
			bad = fmt.Errorf("scripting: command is %s, not a table", v.Type())
			return
		}
		cmds = append(cmds, Command{
			Type:  lStr(row, "type"),
			Index: lInt(row, "index"),
			X:     lNum(row, "x"),
			Y:     lNum(row, "y"),
			Z:     lNum(row, "z"),
			Yaw:   lNum(row, "yaw"),
			Pitch: lNum(row, "pitch"),
			Line:  lStr(row, "line"),
		})
	})
	if bad != nil {
		return nil, bad
	}
	return cmds, nil
}

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lNum reads a number field from a Lua table. Missing fields read as 0.
func lNum(t *lua.LTable, key string) float64 {
	f := float64(lua.LVAsNumber(t.RawGetString(key)))
	if math.IsNaN(f) {
		return 0
	}
	return f
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	v := t.RawGetString(key)
	if v == lua.LNil {
		return ""
	}
	return lua.LVAsString(v)
}
