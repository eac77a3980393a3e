package world

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polarlab/polarlab/internal/voxel"
)

func newTestWorld(mod func(*Options)) *World {
	opts := DefaultOptions()
	if mod != nil {
		mod(&opts)
	}
	return New(opts, nil)
}

func cube(x, y, z float32) Object {
	o := NewObject(OpaqueCube)
	o.Center = mgl32.Vec3{x, y, z}
	return o
}

func wall(x, y, z float32) Object {
	o := NewObject(SquareWall)
	o.Center = mgl32.Vec3{x, y, z}
	return o
}

// checkAssociation asserts that the reverse association matches the table.
func checkAssociation(t *testing.T, w *World) {
	t.Helper()
	total := 0
	w.Registry.Each(func(i uint32, _ Object) bool {
		for _, k := range w.Registry.Voxels(i) {
			assert.Truef(t, w.Table.Contains(k, i), "object %d missing at %s", i, k)
		}
		total += len(w.Registry.Voxels(i))
		return true
	})
	assert.Equal(t, total, w.Table.Len())
}

func TestInsertObject_PointLike(t *testing.T) {
	w := newTestWorld(nil)
	i, err := w.InsertObject([3]int32{5, 5, 5}, cube(5, 5, 5))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), i, "index 0 is reserved")

	assert.Equal(t, []voxel.Key{{105, 105, 105}}, w.Registry.Voxels(i))
	assert.Equal(t, []uint32{i}, w.Table.Lookup(voxel.Key{X: 105, Y: 105, Z: 105}, nil))
	checkAssociation(t, w)
}

func TestInsertObject_ExtendedFootprint(t *testing.T) {
	w := newTestWorld(func(o *Options) { o.TableCapacity = 2000 })
	i, err := w.InsertObject([3]int32{}, wall(0.2, 0.7, -0.3))
	require.NoError(t, err)

	// extent 0.5 -> half-width 2 -> 5x5x5 around (100,100,99)
	keys := w.Registry.Voxels(i)
	require.Len(t, keys, 125)
	assert.Equal(t, voxel.Key{X: 98, Y: 98, Z: 97}, keys[0])
	assert.Equal(t, voxel.Key{X: 102, Y: 102, Z: 101}, keys[len(keys)-1])

	// same object in a fresh world voxelizes identically
	w2 := newTestWorld(func(o *Options) { o.TableCapacity = 2000 })
	j, err := w2.InsertObject([3]int32{}, wall(0.2, 0.7, -0.3))
	require.NoError(t, err)
	assert.Equal(t, keys, w2.Registry.Voxels(j))
	checkAssociation(t, w)
}

func TestInsertObject_Clipping(t *testing.T) {
	w := newTestWorld(nil)
	i, err := w.InsertObject([3]int32{}, wall(-100, -100, 99.5))
	require.NoError(t, err)
	assert.Len(t, w.Registry.Voxels(i), 27, "cube clipped at both ends of the key space")

	_, err = w.InsertObject([3]int32{}, wall(-100.5, 0, 0))
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = w.InsertObject([3]int32{150, 0, 0}, cube(150, 0, 0))
	assert.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, 1, w.Registry.Len())
}

func TestRemoveObject_RoundTrip(t *testing.T) {
	w := newTestWorld(nil)
	i, err := w.InsertObject([3]int32{}, wall(3, 3, 3))
	require.NoError(t, err)
	require.NoError(t, w.RemoveObject(i))

	assert.Equal(t, 0, w.Table.Len())
	assert.Empty(t, w.Registry.Voxels(i))
	assert.False(t, w.Registry.Alive(i))
	assert.ErrorIs(t, w.RemoveObject(i), ErrNoObject)
	assert.ErrorIs(t, w.RemoveObject(0), ErrNoObject)
}

func TestRegistry_LIFOReuse(t *testing.T) {
	w := newTestWorld(nil)
	a, _ := w.InsertObject([3]int32{1, 0, 0}, cube(1, 0, 0))
	b, _ := w.InsertObject([3]int32{2, 0, 0}, cube(2, 0, 0))
	assert.Equal(t, []uint32{1, 2}, []uint32{a, b})

	require.NoError(t, w.RemoveObject(a))
	c, err := w.InsertObject([3]int32{3, 0, 0}, cube(3, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestRegistry_Exhaustion(t *testing.T) {
	w := newTestWorld(func(o *Options) { o.RegistryCapacity = 4 })
	for n := int32(0); n < 3; n++ {
		_, err := w.InsertObject([3]int32{n, 0, 0}, cube(float32(n), 0, 0))
		require.NoError(t, err)
	}
	flat := w.Table.Flatten(nil)

	_, err := w.InsertObject([3]int32{9, 0, 0}, cube(9, 0, 0))
	assert.ErrorIs(t, err, ErrRegistryFull)
	assert.Equal(t, flat, w.Table.Flatten(nil))
	assert.Equal(t, 3, w.Registry.Len())
}

func TestInsertObject_TableFullRollback(t *testing.T) {
	w := newTestWorld(func(o *Options) { o.TableCapacity = 100 })
	flat := w.Table.Flatten(nil)

	_, err := w.InsertObject([3]int32{}, wall(0, 0, 0))
	require.ErrorIs(t, err, voxel.ErrTableFull)
	assert.Equal(t, flat, w.Table.Flatten(nil), "no partial footprint")
	assert.Equal(t, 0, w.Registry.Len())

	i, err := w.InsertObject([3]int32{}, cube(0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), i, "index was returned to the stack")
}

func TestUpdateObjectPosition(t *testing.T) {
	w := newTestWorld(func(o *Options) { o.TableCapacity = 2000 })
	i, err := w.InsertObject([3]int32{}, wall(0, 0, 0))
	require.NoError(t, err)

	moved := wall(10, 0, 0)
	moved.Color.G = 200
	require.NoError(t, w.UpdateObjectPosition(i, moved))

	o, ok := w.Registry.Object(i)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{10, 0, 0}, o.Center)
	assert.Equal(t, uint8(200), o.Color.G)
	assert.Len(t, w.Registry.Voxels(i), 125)
	assert.Equal(t, voxel.Key{X: 108, Y: 98, Z: 98}, w.Registry.Voxels(i)[0])
	assert.Equal(t, 125, w.Table.Len())
	checkAssociation(t, w)

	// point-like objects follow their new centre
	c, _ := w.InsertObject([3]int32{1, 1, 1}, cube(1, 1, 1))
	require.NoError(t, w.UpdateObjectPosition(c, cube(-2.5, 4, 7.9)))
	assert.Equal(t, []voxel.Key{{97, 104, 107}}, w.Registry.Voxels(c))

	assert.ErrorIs(t, w.UpdateObjectPosition(99, moved), ErrNoObject)
}

func TestUpdateObjectPosition_TableFullRestores(t *testing.T) {
	w := newTestWorld(func(o *Options) { o.TableCapacity = 130 })
	i, err := w.InsertObject([3]int32{}, wall(0, 0, 0))
	require.NoError(t, err)
	before := append([]voxel.Key(nil), w.Registry.Voxels(i)...)
	orig, _ := w.Registry.Object(i)

	bigger := wall(0, 0, 0)
	bigger.Radius = 1.5 // half-width 3 -> 343 voxels
	err = w.UpdateObjectPosition(i, bigger)
	require.ErrorIs(t, err, voxel.ErrTableFull)

	after, _ := w.Registry.Object(i)
	assert.Equal(t, orig, after)
	assert.Equal(t, before, w.Registry.Voxels(i))
	assert.Equal(t, 125, w.Table.Len())
	checkAssociation(t, w)
}

func TestRegistry_RejectsBadGeometry(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	cases := []struct {
		name string
		mod  func(*Object)
	}{
		{"negative width", func(o *Object) { o.Width = -1 }},
		{"negative radius", func(o *Object) { o.Radius = -0.5 }},
		{"nan width", func(o *Object) { o.Width = nan }},
		{"nan height", func(o *Object) { o.Height = nan }},
		{"inf radius", func(o *Object) { o.Radius = inf }},
		{"nan centre", func(o *Object) { o.Center[0] = nan }},
		{"inf centre", func(o *Object) { o.Center[2] = -inf }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWorld(func(o *Options) { o.TableCapacity = 2000 })
			bad := wall(0, 0, 0)
			tc.mod(&bad)

			_, err := w.InsertObject([3]int32{}, bad)
			require.ErrorIs(t, err, ErrOutOfBounds)
			assert.Equal(t, 0, w.Registry.Len())
			assert.Equal(t, 0, w.Table.Len())

			i, err := w.InsertObject([3]int32{}, wall(0, 0, 0))
			require.NoError(t, err)
			orig, _ := w.Registry.Object(i)
			before := append([]voxel.Key(nil), w.Registry.Voxels(i)...)

			require.ErrorIs(t, w.UpdateObjectPosition(i, bad), ErrOutOfBounds)
			after, _ := w.Registry.Object(i)
			assert.Equal(t, orig, after)
			assert.Equal(t, before, w.Registry.Voxels(i))
			checkAssociation(t, w)
		})
	}
}

func TestRegistry_RejectsNaNCentrePointLike(t *testing.T) {
	w := newTestWorld(nil)
	bad := cube(0, 0, 0)
	bad.Center[1] = float32(math.NaN())

	_, err := w.InsertObject([3]int32{0, 0, 0}, bad)
	require.ErrorIs(t, err, ErrOutOfBounds)
	assert.Equal(t, 0, w.Registry.Len())

	i, err := w.InsertObject([3]int32{0, 0, 0}, cube(0, 0, 0))
	require.NoError(t, err)
	require.ErrorIs(t, w.UpdateObjectPosition(i, bad), ErrOutOfBounds)
	assert.Equal(t, []voxel.Key{{100, 100, 100}}, w.Registry.Voxels(i))
	checkAssociation(t, w)
}

func TestRegistry_Lights(t *testing.T) {
	w := newTestWorld(func(o *Options) { o.TableCapacity = 1000 })
	light := func(x float32) Object {
		o := NewObject(LightSource)
		o.Center = mgl32.Vec3{x, 0, 0}
		return o
	}
	a, err := w.InsertObject([3]int32{}, light(0))
	require.NoError(t, err)
	_, err = w.InsertObject([3]int32{20, 0, 0}, cube(20, 0, 0))
	require.NoError(t, err)
	c, err := w.InsertObject([3]int32{}, light(10))
	require.NoError(t, err)
	assert.Equal(t, []uint32{a, c}, w.Registry.Lights())

	require.NoError(t, w.RemoveObject(a))
	assert.Equal(t, []uint32{c}, w.Registry.Lights())

	require.NoError(t, w.UpdateObjectPosition(c, cube(10, 0, 0)))
	assert.Empty(t, w.Registry.Lights(), "type change leaves the light list")
	require.NoError(t, w.UpdateObjectPosition(c, light(10)))
	assert.Equal(t, []uint32{c}, w.Registry.Lights())
}

// Random insert/update/remove keeps the table and the reverse association in
// lock step.
func TestRegistry_RandomModel(t *testing.T) {
	w := newTestWorld(func(o *Options) {
		o.TableCapacity = 600
		o.BucketCount = 97
		o.RegistryCapacity = 24
	})
	rng := rand.New(rand.NewSource(3))
	pos := func() (float32, float32, float32) {
		return float32(rng.Intn(20) - 10), float32(rng.Intn(20) - 10), float32(rng.Intn(20) - 10)
	}

	var live []uint32
	for n := 0; n < 2000; n++ {
		x, y, z := pos()
		switch op := rng.Intn(4); {
		case op == 0 && len(live) > 0:
			j := rng.Intn(len(live))
			require.NoError(t, w.RemoveObject(live[j]))
			live = append(live[:j], live[j+1:]...)
		case op == 1 && len(live) > 0:
			obj := cube(x, y, z)
			if rng.Intn(2) == 0 {
				obj = wall(x, y, z)
			}
			err := w.UpdateObjectPosition(live[rng.Intn(len(live))], obj)
			if err != nil {
				require.ErrorIs(t, err, voxel.ErrTableFull)
			}
		default:
			obj := cube(x, y, z)
			if rng.Intn(4) == 0 {
				obj = wall(x, y, z)
			}
			i, err := w.InsertObject([3]int32{int32(x), int32(y), int32(z)}, obj)
			if err != nil {
				require.True(t, errors.Is(err, ErrRegistryFull) || errors.Is(err, voxel.ErrTableFull), err)
				continue
			}
			live = append(live, i)
		}
	}
	assert.Equal(t, len(live), w.Registry.Len())
	assert.Zero(t, w.Registry.KeyMisses())
	checkAssociation(t, w)
}
