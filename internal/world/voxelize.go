package world

import (
	"fmt"
	"math"

	"github.com/polarlab/polarlab/internal/voxel"
)

// cellFootprint is the single voxel at an integer world cell.
func (r *Registry) cellFootprint(cell [3]int32) ([]voxel.Key, error) {
	k, ok := voxel.KeyFromCell(cell[0], cell[1], cell[2], r.bias)
	if !ok || !r.table.Valid(k) {
		return nil, fmt.Errorf("cell %v: %w", cell, ErrOutOfBounds)
	}
	return []voxel.Key{k}, nil
}

// centerFootprint is the single voxel containing obj.Center.
func (r *Registry) centerFootprint(obj Object) ([]voxel.Key, error) {
	if err := checkCenter(obj); err != nil {
		return nil, err
	}
	k, ok := voxel.KeyFromWorld(obj.Center[0], obj.Center[1], obj.Center[2], r.bias)
	if !ok || !r.table.Valid(k) {
		return nil, fmt.Errorf("center %v: %w", obj.Center, ErrOutOfBounds)
	}
	return []voxel.Key{k}, nil
}

// footprint is the cube of voxels of half-width ceil(extent)+1 around the
// voxel containing obj.Center, clipped to the key space. Keys are ordered x,
// then y, then z.
func (r *Registry) footprint(obj Object) ([]voxel.Key, error) {
	for _, v := range [...]float32{obj.Width, obj.Height, obj.Radius} {
		if !finite(v) || v < 0 {
			return nil, fmt.Errorf("size %g/%g/%g: %w", obj.Width, obj.Height, obj.Radius, ErrOutOfBounds)
		}
	}
	c, err := r.centerFootprint(obj)
	if err != nil {
		return nil, err
	}
	center := c[0]
	h := obj.halfWidth()
	block := r.table.BlockSize()

	lo := func(v uint32) int64 { return max(int64(v)-h, 0) }
	hi := func(v, limit uint32) int64 { return min(int64(v)+h, int64(limit)-1) }

	x0, x1 := lo(center.X), hi(center.X, block.X)
	y0, y1 := lo(center.Y), hi(center.Y, block.Y)
	z0, z1 := lo(center.Z), hi(center.Z, block.Z)

	keys := make([]voxel.Key, 0, (x1-x0+1)*(y1-y0+1)*(z1-z0+1))
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			for z := z0; z <= z1; z++ {
				keys = append(keys, voxel.Key{X: uint32(x), Y: uint32(y), Z: uint32(z)})
			}
		}
	}
	return keys, nil
}

func checkCenter(obj Object) error {
	if !finite(obj.Center[0]) || !finite(obj.Center[1]) || !finite(obj.Center[2]) {
		return fmt.Errorf("center %v: %w", obj.Center, ErrOutOfBounds)
	}
	return nil
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
