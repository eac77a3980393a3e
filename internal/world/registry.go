package world

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/polarlab/polarlab/internal/core/arena"
	"github.com/polarlab/polarlab/internal/voxel"
)

// Registry is a fixed array of object records indexed by uint32. Index 0 is
// reserved. Every live object's footprint is mirrored in the voxel table with
// the object index as value; voxels is the authoritative record of which keys
// each object put there.
// Accessed only from the game loop goroutine, no locks.
type Registry struct {
	table   *voxel.Table
	objects []Object
	alive   []bool
	free    *arena.Stack
	voxels  map[uint32][]voxel.Key
	lights  []uint32
	bias    int32
	log     *zap.Logger

	keyMisses int
}

// NewRegistry creates a registry of capacity slots (index 0 included) that
// voxelizes into table.
func NewRegistry(table *voxel.Table, capacity int, bias int32, log *zap.Logger) *Registry {
	if capacity < 2 {
		panic(fmt.Sprintf("world: registry capacity %d leaves no usable index", capacity))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		table:   table,
		objects: make([]Object, capacity),
		alive:   make([]bool, capacity),
		free:    arena.NewStack(1, uint32(capacity)),
		voxels:  make(map[uint32][]voxel.Key),
		bias:    bias,
		log:     log,
	}
}

// InsertObject stores obj and voxelizes it. Point-like objects occupy the
// voxel at target; extended objects occupy the bounding cube around their
// centre. Returns the new index.
func (r *Registry) InsertObject(target [3]int32, obj Object) (uint32, error) {
	if r.free.Empty() {
		return 0, ErrRegistryFull
	}
	var keys []voxel.Key
	var err error
	if obj.Type.PointLike() {
		if err = checkCenter(obj); err == nil {
			keys, err = r.cellFootprint(target)
		}
	} else {
		keys, err = r.footprint(obj)
	}
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", obj.Type, err)
	}

	i, _ := r.free.Pop()
	if err := r.fill(i, keys); err != nil {
		r.free.Push(i)
		return 0, fmt.Errorf("insert %s: %w", obj.Type, err)
	}

	r.objects[i] = obj.unlinked()
	r.alive[i] = true
	r.voxels[i] = keys
	if obj.Type == LightSource {
		r.lights = append(r.lights, i)
	}
	r.log.Debug("object inserted",
		zap.Uint32("index", i),
		zap.Stringer("type", obj.Type),
		zap.Int("voxels", len(keys)),
	)
	return i, nil
}

// RemoveObject deletes object i, its voxels and any alignment link touching it.
func (r *Registry) RemoveObject(i uint32) error {
	if !r.Alive(i) {
		return fmt.Errorf("remove %d: %w", i, ErrNoObject)
	}
	r.clear(i, r.voxels[i])
	delete(r.voxels, i)
	r.dropLight(i)

	o := r.objects[i]
	if o.Dependent != 0 && r.Alive(o.Dependent) {
		d := &r.objects[o.Dependent]
		d.AlignedTo, d.Axis, d.AlignedDistance = 0, AxisFront, 0
	}
	if o.AlignedTo != 0 && r.Alive(o.AlignedTo) && r.objects[o.AlignedTo].Dependent == i {
		r.objects[o.AlignedTo].Dependent = 0
	}

	r.objects[i] = Object{}
	r.alive[i] = false
	r.free.Push(i)
	r.log.Debug("object removed", zap.Uint32("index", i))
	return nil
}

// UpdateObjectPosition re-voxelizes object i from obj's centre and extent and
// replaces the stored record. Alignment fields of the stored record are kept.
// On failure the previous footprint and record stay in place.
func (r *Registry) UpdateObjectPosition(i uint32, obj Object) error {
	if !r.Alive(i) {
		return fmt.Errorf("update %d: %w", i, ErrNoObject)
	}
	old := r.objects[i]
	oldKeys := r.voxels[i]

	var keys []voxel.Key
	var err error
	if obj.Type.PointLike() {
		keys, err = r.centerFootprint(obj)
	} else {
		keys, err = r.footprint(obj)
	}
	if err != nil {
		return fmt.Errorf("update %d: %w", i, err)
	}

	r.clear(i, oldKeys)
	if err := r.fill(i, keys); err != nil {
		if rerr := r.fill(i, oldKeys); rerr != nil {
			r.log.Error("restore footprint failed", zap.Uint32("index", i), zap.Error(rerr))
		}
		return fmt.Errorf("update %d: %w", i, err)
	}

	obj.AlignedTo, obj.Axis, obj.AlignedDistance, obj.Dependent =
		old.AlignedTo, old.Axis, old.AlignedDistance, old.Dependent
	r.objects[i] = obj
	r.voxels[i] = keys

	switch {
	case old.Type == LightSource && obj.Type != LightSource:
		r.dropLight(i)
	case old.Type != LightSource && obj.Type == LightSource:
		r.lights = append(r.lights, i)
	}
	return nil
}

// fill inserts (k, i) for every key. When the table runs out of slots every
// pair added by this call is removed again.
func (r *Registry) fill(i uint32, keys []voxel.Key) error {
	added := make([]voxel.Key, 0, len(keys))
	for _, k := range keys {
		ok, err := r.table.Insert(k, i)
		if err != nil {
			for _, a := range added {
				_ = r.table.Remove(a, i)
			}
			return err
		}
		if ok {
			added = append(added, k)
		}
	}
	return nil
}

// clear removes (k, i) for every key. A missing pair means the reverse
// association drifted from the table; it is logged and skipped.
func (r *Registry) clear(i uint32, keys []voxel.Key) {
	for _, k := range keys {
		if err := r.table.Remove(k, i); err != nil {
			if !errors.Is(err, voxel.ErrKeyNotFound) {
				r.log.Error("voxel remove failed", zap.Uint32("index", i), zap.Error(err))
				continue
			}
			r.keyMisses++
			r.log.Warn("voxel missing on remove",
				zap.Uint32("index", i),
				zap.Stringer("key", k),
			)
		}
	}
}

func (r *Registry) dropLight(i uint32) {
	if j := slices.Index(r.lights, i); j >= 0 {
		r.lights = slices.Delete(r.lights, j, j+1)
	}
}

// Alive reports whether i holds a live object.
func (r *Registry) Alive(i uint32) bool {
	return i != 0 && int(i) < len(r.alive) && r.alive[i]
}

// Object returns a copy of record i.
func (r *Registry) Object(i uint32) (Object, bool) {
	if !r.Alive(i) {
		return Object{}, false
	}
	return r.objects[i], true
}

// Voxels returns the keys object i occupies. The slice must not be modified.
func (r *Registry) Voxels(i uint32) []voxel.Key { return r.voxels[i] }

// Lights returns live light-source indices in insertion order. The slice must
// not be modified.
func (r *Registry) Lights() []uint32 { return r.lights }

// Each calls fn for every live object in index order until fn returns false.
func (r *Registry) Each(fn func(i uint32, o Object) bool) {
	for i := 1; i < len(r.objects); i++ {
		if r.alive[i] && !fn(uint32(i), r.objects[i]) {
			return
		}
	}
}

// Len is the number of live objects.
func (r *Registry) Len() int { return len(r.objects) - 1 - r.free.Len() }

// Cap is the slot count including the reserved index.
func (r *Registry) Cap() int { return len(r.objects) }

// KeyMisses counts voxels found missing on remove since start.
func (r *Registry) KeyMisses() int { return r.keyMisses }

// Bias is the world-to-key offset the registry voxelizes with.
func (r *Registry) Bias() int32 { return r.bias }

// Records exposes the raw slot array, dead and reserved slots included, for
// snapshotting. The slice must not be modified.
func (r *Registry) Records() []Object { return r.objects }
