package world

import (
	"fmt"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/polarlab/polarlab/internal/optics"
)

// ObjectType is stored in the first word of every object attribute record, so
// the numeric values are part of the renderer contract.
type ObjectType uint32

const (
	OpaqueCube ObjectType = iota
	SquareWall
	RoundWall
	LightSource
	OpticalCube
	OpticalSquareWall
	OpticalRoundWall
)

var objectTypeKeys = [...]string{
	OpaqueCube:        "opaque_cube",
	SquareWall:        "square_wall",
	RoundWall:         "round_wall",
	LightSource:       "light",
	OpticalCube:       "optical_cube",
	OpticalSquareWall: "optical_square_wall",
	OpticalRoundWall:  "optical_round_wall",
}

func (t ObjectType) String() string {
	if int(t) < len(objectTypeKeys) {
		return objectTypeKeys[t]
	}
	return fmt.Sprintf("ObjectType(%d)", uint32(t))
}

// ParseObjectType resolves a scene/command identifier.
func ParseObjectType(s string) (ObjectType, error) {
	for i, k := range objectTypeKeys {
		if k == s {
			return ObjectType(i), nil
		}
	}
	return 0, fmt.Errorf("world: unknown object type %q", s)
}

// PointLike types occupy exactly one voxel.
func (t ObjectType) PointLike() bool {
	return t == OpaqueCube || t == OpticalCube
}

// Optical types carry a Jones matrix.
func (t ObjectType) Optical() bool {
	return t == OpticalCube || t == OpticalSquareWall || t == OpticalRoundWall
}

// Axis selects the anchor-relative direction an aligned object is placed along.
type Axis uint8

const (
	AxisFront Axis = iota
	AxisRight
	AxisUp
)

var axisKeys = [...]string{AxisFront: "front", AxisRight: "right", AxisUp: "up"}

func (a Axis) String() string {
	if int(a) < len(axisKeys) {
		return axisKeys[a]
	}
	return fmt.Sprintf("Axis(%d)", uint8(a))
}

func ParseAxis(s string) (Axis, error) {
	for i, k := range axisKeys {
		if k == s {
			return Axis(i), nil
		}
	}
	return 0, fmt.Errorf("world: unknown axis %q", s)
}

// Unit is the axis direction before the anchor's rotation is applied.
func (a Axis) Unit() mgl32.Vec3 {
	switch a {
	case AxisRight:
		return mgl32.Vec3{1, 0, 0}
	case AxisUp:
		return mgl32.Vec3{0, 1, 0}
	default:
		return mgl32.Vec3{0, 0, 1}
	}
}

// Object is one registry record.
//
// AlignedTo and Dependent use 0 for "none"; index 0 is never allocated.
type Object struct {
	Type     ObjectType
	Rotation [2]float32 // yaw, pitch in radians
	Center   mgl32.Vec3
	Color    color.RGBA
	Width    float32
	Height   float32
	Radius   float32

	Polarization optics.Polarization // light sources
	Jones        optics.Jones        // optical types
	Wavelength   float32             // scene units, display only

	AlignedTo       uint32
	Axis            Axis
	AlignedDistance float32
	Dependent       uint32
}

// NewObject returns an object of type t with the defaults used by the
// console and scene loader.
func NewObject(t ObjectType) Object {
	return Object{
		Type:         t,
		Color:        color.RGBA{R: 255, A: 255},
		Width:        0.5,
		Height:       0.5,
		Radius:       0.5,
		Polarization: optics.LightLinearHorizontal.Vector(),
		Jones:        optics.Identity,
		Wavelength:   0.1,
	}
}

// Extent is the largest of width, height and radius.
func (o Object) Extent() float32 {
	return max(o.Width, o.Height, o.Radius)
}

// Aligned reports whether o follows an anchor.
func (o Object) Aligned() bool { return o.AlignedTo != 0 }

func (o Object) unlinked() Object {
	o.AlignedTo, o.Axis, o.AlignedDistance, o.Dependent = 0, AxisFront, 0, 0
	return o
}

// halfWidth is the voxel half-width of the bounding cube of an extended object.
func (o Object) halfWidth() int64 {
	return int64(math.Ceil(float64(o.Extent()))) + 1
}
