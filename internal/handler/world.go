package handler

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/polarlab/polarlab/internal/core/event"
	"github.com/polarlab/polarlab/internal/voxel"
	"github.com/polarlab/polarlab/internal/world"
)

func cmdInsert(out *Reply, args []string, deps *Deps) error {
	if len(args) != 4 && len(args) != 7 {
		return ErrUsage
	}
	typ, err := world.ParseObjectType(args[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	center, err := parseVec(args[1:4])
	if err != nil {
		return err
	}
	var size []float32
	if len(args) == 7 {
		if size, err = parseFloats(args[4:7]); err != nil {
			return err
		}
	}
	i, n, err := insertObject(deps, typ, center, size)
	if err != nil {
		return err
	}
	out.Msgf("inserted %s #%d (%d voxels)", typ, i, n)
	return nil
}

// insertObject inserts a default object of type typ at center, optionally
// sized (width, height, radius), and emits ObjectInserted.
func insertObject(deps *Deps, typ world.ObjectType, center mgl32.Vec3, size []float32) (uint32, int, error) {
	obj := world.NewObject(typ)
	obj.Center = center
	if len(size) == 3 {
		obj.Width, obj.Height, obj.Radius = size[0], size[1], size[2]
	}
	i, err := deps.World.InsertObject(cellOf(center), obj)
	if err != nil {
		return 0, 0, err
	}
	n := len(deps.World.Registry.Voxels(i))
	event.Emit(deps.Bus, event.ObjectInserted{Index: i, Type: typ.String(), Center: center, Voxels: n})
	return i, n, nil
}

func cmdRemove(out *Reply, args []string, deps *Deps) error {
	if len(args) != 1 {
		return ErrUsage
	}
	i, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	if err := deps.World.RemoveObject(i); err != nil {
		return err
	}
	event.Emit(deps.Bus, event.ObjectRemoved{Index: i})
	out.Msgf("removed #%d", i)
	return nil
}

func cmdMove(out *Reply, args []string, deps *Deps) error {
	if len(args) != 4 {
		return ErrUsage
	}
	i, o, err := lookupObject(deps.World, args[0])
	if err != nil {
		return err
	}
	to, err := parseVec(args[1:4])
	if err != nil {
		return err
	}
	from := o.Center
	o.Center = to
	if err := deps.World.UpdateObjectPosition(i, o); err != nil {
		return err
	}
	event.Emit(deps.Bus, event.ObjectMoved{Index: i, From: from, To: to})
	out.Msgf("moved #%d to %v", i, to)
	if o.Aligned() {
		out.Msg("note: object is aligned and will follow its anchor next tick")
	}
	return nil
}

func cmdRotate(out *Reply, args []string, deps *Deps) error {
	if len(args) != 3 {
		return ErrUsage
	}
	i, o, err := lookupObject(deps.World, args[0])
	if err != nil {
		return err
	}
	f, err := parseFloats(args[1:3])
	if err != nil {
		return err
	}
	o.Rotation = [2]float32{deg(f[0]), deg(f[1])}
	if err := deps.World.UpdateObjectPosition(i, o); err != nil {
		return err
	}
	out.Msgf("rotated #%d to yaw %.1f° pitch %.1f°", i, f[0], f[1])
	return nil
}

func cmdAlign(out *Reply, args []string, deps *Deps) error {
	if len(args) != 4 {
		return ErrUsage
	}
	dep, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	anchor, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	axis, err := world.ParseAxis(strings.ToLower(args[2]))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	d, err := parseFloats(args[3:4])
	if err != nil {
		return err
	}
	if err := deps.World.Align(dep, anchor, axis, d[0]); err != nil {
		return err
	}
	event.Emit(deps.Bus, event.ObjectAligned{Dependent: dep, Anchor: anchor})
	out.Msgf("#%d follows #%d %s at %g", dep, anchor, axis, d[0])
	return nil
}

func cmdUnalign(out *Reply, args []string, deps *Deps) error {
	if len(args) != 1 {
		return ErrUsage
	}
	dep, err := parseIndex(args[0])
	if err != nil {
		return err
	}
	if err := deps.World.Unalign(dep); err != nil {
		return err
	}
	event.Emit(deps.Bus, event.ObjectAligned{Dependent: dep})
	out.Msgf("#%d unaligned", dep)
	return nil
}

func cmdShow(out *Reply, args []string, deps *Deps) error {
	if len(args) != 1 {
		return ErrUsage
	}
	i, o, err := lookupObject(deps.World, args[0])
	if err != nil {
		return err
	}
	out.Msgf("#%d %s", i, o.Type)
	out.Msgf("  center   %v", o.Center)
	out.Msgf("  rotation yaw %.3f pitch %.3f (rad)", o.Rotation[0], o.Rotation[1])
	out.Msgf("  size     w %g h %g r %g", o.Width, o.Height, o.Radius)
	out.Msgf("  color    #%02x%02x%02x", o.Color.R, o.Color.G, o.Color.B)
	switch {
	case o.Type == world.LightSource:
		out.Msgf("  polar    Ex %v Ey %v", o.Polarization.Ex, o.Polarization.Ey)
	case o.Type.Optical():
		out.Msgf("  jones    %v", o.Jones)
	}
	if o.Aligned() {
		out.Msgf("  aligned  to #%d %s at %g", o.AlignedTo, o.Axis, o.AlignedDistance)
	}
	if o.Dependent != 0 {
		out.Msgf("  leads    #%d", o.Dependent)
	}
	out.Msgf("  voxels   %d", len(deps.World.Registry.Voxels(i)))
	return nil
}

func cmdList(out *Reply, _ []string, deps *Deps) error {
	deps.World.Registry.Each(func(i uint32, o world.Object) bool {
		out.Msgf("#%-3d %-20s %v", i, o.Type, o.Center)
		return true
	})
	if deps.World.Registry.Len() == 0 {
		out.Msg("no objects")
	}
	return nil
}

func cmdLights(out *Reply, _ []string, deps *Deps) error {
	lights := deps.World.Registry.Lights()
	if len(lights) == 0 {
		out.Msg("no light sources")
		return nil
	}
	for _, i := range lights {
		o, _ := deps.World.Registry.Object(i)
		out.Msgf("#%d at %v", i, o.Center)
	}
	return nil
}

func cmdLookup(out *Reply, args []string, deps *Deps) error {
	if len(args) != 3 {
		return ErrUsage
	}
	p, err := parseVec(args)
	if err != nil {
		return err
	}
	k, ok := voxel.KeyFromWorld(p[0], p[1], p[2], deps.World.Registry.Bias())
	if !ok || !deps.World.Table.Valid(k) {
		return fmt.Errorf("point %v: %w", p, world.ErrOutOfBounds)
	}
	vals := deps.World.Table.Lookup(k, nil)
	if len(vals) == 0 {
		out.Msgf("voxel %s is empty", k)
		return nil
	}
	out.Msgf("voxel %s holds %v", k, vals)
	return nil
}

func cmdPick(out *Reply, args []string, deps *Deps) error {
	if len(args) != 6 && len(args) != 7 {
		return ErrUsage
	}
	origin, err := parseVec(args[0:3])
	if err != nil {
		return err
	}
	target, err := parseVec(args[3:6])
	if err != nil {
		return err
	}
	steps := 256
	if len(args) == 7 {
		n, err := parseIndex(args[6])
		if err != nil {
			return err
		}
		steps = int(n)
	}
	hit, ok := deps.World.Pick(origin, target, steps)
	if !ok {
		out.Msg("nothing hit")
		return nil
	}
	out.Msgf("hit cell %v (key %s): %v", hit.Cell, hit.Key, hit.Objects)
	return nil
}

func cmdStats(out *Reply, _ []string, deps *Deps) error {
	s := deps.World.Stats()
	out.Msgf("objects  %d/%d (%d lights, %d aligned)", s.Objects, s.ObjectCap, s.Lights, s.Aligned)
	out.Msgf("table    %d/%d slots, %d buckets, longest chain %d", s.TableUsed, s.TableCap, s.TableBuckets, s.LongestChain)
	if s.VoxelMisses > 0 {
		out.Msgf("warning  %d voxels were missing on remove", s.VoxelMisses)
	}
	return nil
}
