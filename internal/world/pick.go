package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/polarlab/polarlab/internal/voxel"
)

// Traverse lists the integer world cells a segment from origin to target
// crosses, in order, excluding the origin cell. It stops at target's cell, at
// the end of the segment, or after maxSteps cells.
func Traverse(origin, target mgl32.Vec3, maxSteps int) [][3]int32 {
	dir := target.Sub(origin)
	if dir.Len() == 0 {
		return nil
	}

	var (
		cell, end, step [3]int32
		tMax, tDelta    [3]float64
	)
	for i := 0; i < 3; i++ {
		o, d := float64(origin[i]), float64(dir[i])
		cell[i] = int32(math.Floor(o))
		end[i] = int32(math.Floor(float64(target[i])))
		switch {
		case d > 0:
			step[i] = 1
			tMax[i] = (float64(cell[i]) + 1 - o) / d
			tDelta[i] = 1 / d
		case d < 0:
			step[i] = -1
			tMax[i] = (o - float64(cell[i])) / -d
			tDelta[i] = 1 / -d
		default:
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	var cells [][3]int32
	for n := 0; n < maxSteps && cell != end; n++ {
		a := 0
		if tMax[1] < tMax[a] {
			a = 1
		}
		if tMax[2] < tMax[a] {
			a = 2
		}
		if tMax[a] > 1 {
			break
		}
		cell[a] += step[a]
		tMax[a] += tDelta[a]
		cells = append(cells, cell)
	}
	return cells
}

// Hit is the first occupied voxel along a pick ray.
type Hit struct {
	Cell    [3]int32
	Key     voxel.Key
	Objects []uint32
}

// Pick walks from origin towards target and returns the first voxel holding
// any object. Cells outside the key space are skipped.
func (w *World) Pick(origin, target mgl32.Vec3, maxSteps int) (Hit, bool) {
	bias := w.Registry.Bias()
	for _, c := range Traverse(origin, target, maxSteps) {
		k, ok := voxel.KeyFromCell(c[0], c[1], c[2], bias)
		if !ok || !w.Table.Valid(k) {
			continue
		}
		if vals := w.Table.Lookup(k, nil); len(vals) > 0 {
			return Hit{Cell: c, Key: k, Objects: vals}, true
		}
	}
	return Hit{}, false
}
