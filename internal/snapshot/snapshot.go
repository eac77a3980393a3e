// Package snapshot flattens a World into the fixed uint32 arrays the renderer
// uploads each tick.
package snapshot

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/polarlab/polarlab/internal/world"
)

// Stride is the number of words per object record.
const Stride = 24

// Word offsets inside an object record.
const (
	offType     = 0
	offRotation = 1
	offCenter   = 3
	offColor    = 6
	offWidth    = 9
	offHeight   = 10
	offRadius   = 11
	offPolar    = 12
	offJones    = 16
)

// Snapshot is a copy of world state taken between ticks. The renderer reads it
// and never writes back.
type Snapshot struct {
	Tick    uint64
	Table   []uint32 // (key hash, value, next) per arena slot
	Buckets []uint32
	Objects []uint32 // Stride words per registry slot, index 0 included
	Lights  []uint32
}

// Capture refreshes s from w, reusing its arrays.
func (s *Snapshot) Capture(w *world.World, tick uint64) {
	s.Tick = tick
	s.Table = w.Table.Flatten(s.Table)
	s.Buckets = w.Table.Buckets(s.Buckets)
	s.Lights = append(s.Lights[:0], w.Registry.Lights()...)

	records := w.Registry.Records()
	n := len(records) * Stride
	if cap(s.Objects) < n {
		s.Objects = make([]uint32, n)
	}
	s.Objects = s.Objects[:n]
	for i := range records {
		EncodeObject(s.Objects[i*Stride:(i+1)*Stride], records[i])
	}
}

// EncodeObject writes o into dst, which must hold Stride words.
func EncodeObject(dst []uint32, o world.Object) {
	_ = dst[Stride-1]
	f := math.Float32bits

	dst[offType] = uint32(o.Type)
	dst[offRotation] = f(o.Rotation[0])
	dst[offRotation+1] = f(o.Rotation[1])
	for i := 0; i < 3; i++ {
		dst[offCenter+i] = f(o.Center[i])
	}
	dst[offColor] = f(float32(o.Color.R) / 255)
	dst[offColor+1] = f(float32(o.Color.G) / 255)
	dst[offColor+2] = f(float32(o.Color.B) / 255)
	dst[offWidth] = f(o.Width)
	dst[offHeight] = f(o.Height)
	dst[offRadius] = f(o.Radius)

	dst[offPolar] = f(real(o.Polarization.Ex))
	dst[offPolar+1] = f(imag(o.Polarization.Ex))
	dst[offPolar+2] = f(real(o.Polarization.Ey))
	dst[offPolar+3] = f(imag(o.Polarization.Ey))

	for i, c := range o.Jones.ColumnMajor() {
		dst[offJones+2*i] = f(real(c))
		dst[offJones+2*i+1] = f(imag(c))
	}
}

// Buffer is one upload: its descriptor and little-endian contents padded to
// 16 bytes.
type Buffer struct {
	Desc gputypes.BufferDescriptor
	Data []byte
}

const (
	uniformUsage = gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
	storageUsage = gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst
)

// Buffers packs the snapshot arrays for upload.
func (s *Snapshot) Buffers() []Buffer {
	specs := []struct {
		label string
		words []uint32
		usage gputypes.BufferUsage
	}{
		{"voxel_table", s.Table, uniformUsage},
		{"voxel_buckets", s.Buckets, uniformUsage},
		{"objects", s.Objects, storageUsage},
		{"lights", s.Lights, storageUsage},
	}
	out := make([]Buffer, 0, len(specs))
	for _, sp := range specs {
		data := pack(sp.words)
		out = append(out, Buffer{
			Desc: gputypes.BufferDescriptor{Label: sp.label, Size: uint64(len(data)), Usage: sp.usage},
			Data: data,
		})
	}
	return out
}

func pack(words []uint32) []byte {
	n := (len(words)*4 + 15) &^ 15
	if n == 0 {
		n = 16
	}
	b := make([]byte, n)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}
