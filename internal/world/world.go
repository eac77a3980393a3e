// Package world owns the voxel table, the object registry that voxelizes into
// it, and the alignment resolver. A World is the single context handed to
// every operation.
package world

import (
	"go.uber.org/zap"

	"github.com/polarlab/polarlab/internal/voxel"
)

// Options sizes a World.
type Options struct {
	TableCapacity    int
	BucketCount      int
	BlockSize        [3]uint32
	Bias             int32
	RegistryCapacity int
}

// DefaultOptions matches the renderer's fixed buffer sizes.
func DefaultOptions() Options {
	return Options{
		TableCapacity:    1000,
		BucketCount:      1000,
		BlockSize:        [3]uint32{200, 200, 200},
		Bias:             100,
		RegistryCapacity: 166,
	}
}

type World struct {
	Table    *voxel.Table
	Registry *Registry
	Resolver *Resolver
	Bounds   Bounds
}

func New(opts Options, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	block := voxel.Key{X: opts.BlockSize[0], Y: opts.BlockSize[1], Z: opts.BlockSize[2]}
	tbl := voxel.NewTable(opts.TableCapacity, opts.BucketCount, block)
	reg := NewRegistry(tbl, opts.RegistryCapacity, opts.Bias, log.Named("registry"))
	bounds := BoundsFor(opts.BlockSize, opts.Bias)
	return &World{
		Table:    tbl,
		Registry: reg,
		Resolver: NewResolver(reg, bounds),
		Bounds:   bounds,
	}
}

// InsertObject, RemoveObject, UpdateObjectPosition, Align, Unalign and
// ResolveAlignments forward to the registry and resolver.

func (w *World) InsertObject(target [3]int32, obj Object) (uint32, error) {
	return w.Registry.InsertObject(target, obj)
}

func (w *World) RemoveObject(i uint32) error { return w.Registry.RemoveObject(i) }

func (w *World) UpdateObjectPosition(i uint32, obj Object) error {
	return w.Registry.UpdateObjectPosition(i, obj)
}

func (w *World) Align(dep, anchor uint32, axis Axis, distance float32) error {
	return w.Registry.Align(dep, anchor, axis, distance)
}

func (w *World) Unalign(dep uint32) error { return w.Registry.Unalign(dep) }

func (w *World) ResolveAlignments() (int, error) { return w.Resolver.ResolveAlignments() }

// Stats is a point-in-time occupancy summary.
type Stats struct {
	Objects      int
	ObjectCap    int
	Lights       int
	Aligned      int
	TableUsed    int
	TableCap     int
	TableBuckets int
	VoxelMisses  int
	LongestChain int
}

func (w *World) Stats() Stats {
	s := Stats{
		Objects:      w.Registry.Len(),
		ObjectCap:    w.Registry.Cap() - 1,
		Lights:       len(w.Registry.Lights()),
		TableUsed:    w.Table.Len(),
		TableCap:     w.Table.Cap(),
		TableBuckets: w.Table.BucketCount(),
		VoxelMisses:  w.Registry.KeyMisses(),
		LongestChain: w.Table.LongestChain(),
	}
	w.Registry.Each(func(_ uint32, o Object) bool {
		if o.Aligned() {
			s.Aligned++
		}
		return true
	})
	return s
}
