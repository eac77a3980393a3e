package event

import "github.com/go-gl/mathgl/mgl32"

// World change notifications, emitted by the input and alignment systems.

type ObjectInserted struct {
	Index  uint32
	Type   string
	Center mgl32.Vec3
	Voxels int
}

type ObjectRemoved struct {
	Index uint32
}

type ObjectMoved struct {
	Index   uint32
	From    mgl32.Vec3
	To      mgl32.Vec3
	Aligned bool // moved by the alignment resolver
}

type ObjectAligned struct {
	Dependent uint32
	Anchor    uint32 // 0 when unaligned
}

type CommandFailed struct {
	Line string
	Err  error
}
