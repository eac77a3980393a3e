package handler

import (
	"fmt"
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/polarlab/polarlab/internal/core/event"
	"github.com/polarlab/polarlab/internal/world"
)

// Deps holds shared dependencies injected into all command handlers.
type Deps struct {
	World *world.World
	Bus   *event.Bus
	Log   *zap.Logger
}

// RegisterAll registers every console command into reg.
func RegisterAll(reg *Registry) {
	reg.Register("insert", "<type> <x> <y> <z> [width height radius]", "insert an object", cmdInsert, "add")
	reg.Register("remove", "<index>", "remove an object", cmdRemove, "rm", "del")
	reg.Register("move", "<index> <x> <y> <z>", "move an object's centre", cmdMove, "mv")
	reg.Register("rotate", "<index> <yaw°> <pitch°>", "set an object's rotation", cmdRotate)
	reg.Register("align", "<dependent> <anchor> <front|right|up> <distance>", "make an object follow another", cmdAlign)
	reg.Register("unalign", "<dependent>", "stop following", cmdUnalign)
	reg.Register("polarize", "<index> <linear_horizontal|linear_vertical|linear_45|right_circular|left_circular>", "set a light's polarization", cmdPolarize)
	reg.Register("jones", "<index> <kind> [angle° [retardation° [circularity°]]]", "set an optical element's Jones matrix", cmdJones)
	reg.Register("show", "<index>", "print an object record", cmdShow, "info")
	reg.Register("list", "", "list live objects", cmdList, "ls")
	reg.Register("lights", "", "list light sources", cmdLights)
	reg.Register("lookup", "<x> <y> <z>", "objects in the voxel containing a point", cmdLookup)
	reg.Register("pick", "<ox> <oy> <oz> <tx> <ty> <tz> [steps]", "first occupied voxel along a ray", cmdPick)
	reg.Register("stats", "", "table and registry occupancy", cmdStats)
	reg.Register("help", "", "list commands", func(out *Reply, _ []string, _ *Deps) error {
		for _, v := range reg.Verbs() {
			e := reg.handlers[v]
			out.Msgf("%-9s %s  %s", v, e.usage, e.help)
		}
		return nil
	}, "?")
}

// --- Helpers ---

func parseIndex(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad index %q", ErrUsage, s)
	}
	return uint32(n), nil
}

func parseFloats(args []string) ([]float32, error) {
	out := make([]float32, len(args))
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number %q", ErrUsage, a)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func parseVec(args []string) (mgl32.Vec3, error) {
	f, err := parseFloats(args[:3])
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return mgl32.Vec3{f[0], f[1], f[2]}, nil
}

// cellOf is the integer world cell containing p.
func cellOf(p mgl32.Vec3) [3]int32 {
	return [3]int32{
		int32(math.Floor(float64(p[0]))),
		int32(math.Floor(float64(p[1]))),
		int32(math.Floor(float64(p[2]))),
	}
}

func lookupObject(w *world.World, s string) (uint32, world.Object, error) {
	i, err := parseIndex(s)
	if err != nil {
		return 0, world.Object{}, err
	}
	o, ok := w.Registry.Object(i)
	if !ok {
		return 0, world.Object{}, fmt.Errorf("object %d: %w", i, world.ErrNoObject)
	}
	return i, o, nil
}

func deg(f float32) float32 { return mgl32.DegToRad(f) }
