package voxel

import "fmt"

// Key is a voxel coordinate after the world bias has been applied.
// All components are non-negative by construction.
type Key struct {
	X, Y, Z uint32
}

func (k Key) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.X, k.Y, k.Z)
}

// KeyFromWorld shifts a world-space coordinate by bias and truncates it, which
// is floor(p)+bias for every coordinate inside the key space. ok is false when
// the shifted value is negative, too large or NaN on any axis.
func KeyFromWorld(x, y, z float32, bias int32) (Key, bool) {
	b := float64(bias)
	bx, by, bz := float64(x)+b, float64(y)+b, float64(z)+b
	if !inRange(bx) || !inRange(by) || !inRange(bz) {
		return Key{}, false
	}
	return Key{X: uint32(bx), Y: uint32(by), Z: uint32(bz)}, true
}

const maxCoord = float64(^uint32(0) - 1)

// inRange is false for NaN.
func inRange(v float64) bool { return v >= 0 && v <= maxCoord }

// KeyFromCell shifts an integer cell coordinate by bias.
func KeyFromCell(x, y, z, bias int32) (Key, bool) {
	bx, by, bz := int64(x)+int64(bias), int64(y)+int64(bias), int64(z)+int64(bias)
	if bx < 0 || by < 0 || bz < 0 {
		return Key{}, false
	}
	return Key{X: uint32(bx), Y: uint32(by), Z: uint32(bz)}, true
}

// Cell undoes the bias, returning the integer world cell of k.
func (k Key) Cell(bias int32) (x, y, z int32) {
	return int32(k.X) - bias, int32(k.Y) - bias, int32(k.Z) - bias
}
