package voxel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBlock = Key{X: 200, Y: 200, Z: 200}

// checkPartition asserts that free slots and chain-reachable slots partition
// the arena and that every chain terminates.
func checkPartition(t *testing.T, tbl *Table) {
	t.Helper()
	seen := make(map[uint32]bool, tbl.Cap())
	for b, head := range tbl.buckets {
		steps := 0
		for cur := head; cur != None; cur = tbl.slots[cur].Next {
			require.Falsef(t, seen[cur], "slot %d reachable twice (bucket %d)", cur, b)
			seen[cur] = true
			require.Equal(t, b, tbl.bucket(tbl.slots[cur].KeyHash), "slot in wrong bucket")
			steps++
			require.LessOrEqual(t, steps, tbl.Cap(), "chain does not terminate")
		}
	}
	free := 0
	for idx := uint32(0); idx < uint32(tbl.Cap()); idx++ {
		if !tbl.free.Contains(idx) {
			continue
		}
		require.Falsef(t, seen[idx], "slot %d both free and reachable", idx)
		seen[idx] = true
		free++
		assert.Equal(t, emptySlot, tbl.slots[idx])
	}
	assert.Equal(t, tbl.Free(), free)
	assert.Len(t, seen, tbl.Cap())
}

func TestTable_SameBucketScenario(t *testing.T) {
	tbl := NewTable(1000, 1000, testBlock)
	k := Key{5, 5, 5}

	added, err := tbl.Insert(k, 7)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = tbl.Insert(k, 9)
	require.NoError(t, err)
	assert.True(t, added)

	assert.True(t, tbl.Contains(k, 7))
	assert.True(t, tbl.Contains(k, 9))
	assert.Equal(t, []uint32{7, 9}, tbl.Lookup(k, nil))

	first := tbl.Head(k)
	second := tbl.Slot(first).Next
	require.NotEqual(t, None, second)

	require.NoError(t, tbl.Remove(k, 7))
	assert.False(t, tbl.Contains(k, 7))
	assert.True(t, tbl.Contains(k, 9))
	assert.Equal(t, second, tbl.Head(k), "bucket head relinked to 9's slot")
	assert.Equal(t, None, tbl.Slot(second).Next)
	assert.Equal(t, []uint32{9}, tbl.Lookup(k, nil))
	checkPartition(t, tbl)
}

func TestTable_IdempotentInsert(t *testing.T) {
	tbl := NewTable(16, 16, testBlock)
	k := Key{1, 2, 3}
	for i := 0; i < 5; i++ {
		_, err := tbl.Insert(k, 4)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, tbl.Len())

	// duplicate at the tail of a longer chain is still detected
	_, _ = tbl.Insert(k, 5)
	added, err := tbl.Insert(k, 5)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_RemoveCases(t *testing.T) {
	// One bucket forces every key into the same chain.
	setup := func() (*Table, Key) {
		tbl := NewTable(8, 1, testBlock)
		k := Key{3, 3, 3}
		for v := uint32(1); v <= 3; v++ {
			_, err := tbl.Insert(k, v)
			require.NoError(t, err)
		}
		return tbl, k
	}

	tests := []struct {
		name   string
		remove uint32
		want   []uint32
	}{
		{"first", 1, []uint32{2, 3}},
		{"middle", 2, []uint32{1, 3}},
		{"last", 3, []uint32{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, k := setup()
			require.NoError(t, tbl.Remove(k, tt.remove))
			assert.Equal(t, tt.want, tbl.Lookup(k, nil))
			checkPartition(t, tbl)
		})
	}

	t.Run("sole", func(t *testing.T) {
		tbl := NewTable(8, 8, testBlock)
		k := Key{1, 1, 1}
		_, _ = tbl.Insert(k, 1)
		require.NoError(t, tbl.Remove(k, 1))
		assert.Equal(t, None, tbl.Head(k))
		assert.Equal(t, 0, tbl.Len())
		checkPartition(t, tbl)
	})
}

func TestTable_RemoveMissing(t *testing.T) {
	tbl := NewTable(8, 8, testBlock)
	k := Key{1, 1, 1}
	assert.ErrorIs(t, tbl.Remove(k, 1), ErrKeyNotFound, "empty bucket")

	_, _ = tbl.Insert(k, 1)
	assert.ErrorIs(t, tbl.Remove(k, 2), ErrKeyNotFound, "walked chain")
	assert.True(t, tbl.Contains(k, 1))
	checkPartition(t, tbl)
}

func TestTable_Full(t *testing.T) {
	tbl := NewTable(4, 4, testBlock)
	for x := uint32(0); x < 4; x++ {
		_, err := tbl.Insert(Key{x, 0, 0}, 1)
		require.NoError(t, err)
	}
	before := tbl.Flatten(nil)
	beforeBuckets := tbl.Buckets(nil)

	_, err := tbl.Insert(Key{9, 9, 9}, 1)
	assert.ErrorIs(t, err, ErrTableFull)
	_, err = tbl.Insert(Key{0, 0, 0}, 2) // non-empty bucket path
	assert.ErrorIs(t, err, ErrTableFull)

	// identical pair is still accepted when full
	added, err := tbl.Insert(Key{2, 0, 0}, 1)
	assert.NoError(t, err)
	assert.False(t, added)

	assert.Equal(t, before, tbl.Flatten(nil))
	assert.Equal(t, beforeBuckets, tbl.Buckets(nil))
	checkPartition(t, tbl)
}

func TestTable_Flatten(t *testing.T) {
	tbl := NewTable(3, 3, testBlock)
	k := Key{1, 0, 0}
	_, _ = tbl.Insert(k, 42)

	flat := tbl.Flatten(nil)
	require.Len(t, flat, 9)
	assert.Equal(t, []uint32{tbl.Hash(k), 42, None}, flat[0:3])
	assert.Equal(t, []uint32{0, 0, None}, flat[3:6])

	// reused buffer
	buf := make([]uint32, 0, 16)
	out := tbl.Flatten(buf)
	assert.Len(t, out, 9)
	assert.Equal(t, 16, cap(out))
	assert.Equal(t, 3, len(tbl.Buckets(nil)))
}

func TestTable_Hash(t *testing.T) {
	tbl := NewTable(10, 10, Key{200, 200, 200})
	assert.Equal(t, uint32(5+200*(6+200*7)), tbl.Hash(Key{5, 6, 7}))
	assert.True(t, tbl.Valid(Key{199, 0, 199}))
	assert.False(t, tbl.Valid(Key{200, 0, 0}))
}

// Randomised insert/remove against a reference set: a pair is found iff its
// net insert count is positive.
func TestTable_RoundTripModel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tbl := NewTable(256, 31, testBlock)
	type pair struct {
		k Key
		v uint32
	}
	model := make(map[pair]bool)

	for i := 0; i < 5000; i++ {
		p := pair{
			k: Key{uint32(rng.Intn(6)), uint32(rng.Intn(6)), uint32(rng.Intn(6))},
			v: uint32(rng.Intn(4)),
		}
		if rng.Intn(3) == 0 {
			err := tbl.Remove(p.k, p.v)
			if model[p] {
				require.NoError(t, err)
				delete(model, p)
			} else {
				require.ErrorIs(t, err, ErrKeyNotFound)
			}
			continue
		}
		_, err := tbl.Insert(p.k, p.v)
		if err != nil {
			require.ErrorIs(t, err, ErrTableFull)
			require.Equal(t, 0, tbl.Free())
			continue
		}
		model[p] = true
	}

	assert.Equal(t, len(model), tbl.Len())
	for p := range model {
		assert.True(t, tbl.Contains(p.k, p.v))
	}
	checkPartition(t, tbl)
}

func TestCheckBlock(t *testing.T) {
	assert.NoError(t, CheckBlock(testBlock))
	assert.NoError(t, CheckBlock(Key{X: 100, Y: 200, Z: 300}))
	assert.NoError(t, CheckBlock(Key{X: 1600, Y: 1600, Z: 1600}))

	for _, block := range []Key{
		{X: 0, Y: 200, Z: 200},
		{X: 300, Y: 200, Z: 200},
		{X: 200, Y: 300, Z: 200},
		{X: 2000, Y: 2000, Z: 2000},
	} {
		assert.ErrorIsf(t, CheckBlock(block), ErrBadBlock, "block %s", block)
		assert.Panics(t, func() { NewTable(8, 8, block) })
	}
}

func TestTable_HashInjectiveOverBlock(t *testing.T) {
	tbl := NewTable(2, 2, Key{X: 200, Y: 300, Z: 300})
	_, err := tbl.Insert(Key{X: 199, Y: 0, Z: 0}, 1)
	require.NoError(t, err)
	_, err = tbl.Insert(Key{X: 0, Y: 299, Z: 1}, 2)
	require.NoError(t, err)

	seen := make(map[uint32]Key)
	for _, k := range []Key{{199, 0, 0}, {0, 1, 0}, {0, 299, 0}, {0, 0, 1}, {199, 299, 299}} {
		h := tbl.Hash(k)
		prev, dup := seen[h]
		require.Falsef(t, dup, "%s and %s share hash %d", prev, k, h)
		seen[h] = k
	}
	assert.Equal(t, []uint32{1}, tbl.Lookup(Key{X: 199, Y: 0, Z: 0}, nil))
	assert.Equal(t, []uint32{2}, tbl.Lookup(Key{X: 0, Y: 299, Z: 1}, nil))
}

func TestKeyFromWorld(t *testing.T) {
	k, ok := KeyFromWorld(2.9, -0.5, -3.7, 100)
	require.True(t, ok)
	assert.Equal(t, Key{102, 99, 96}, k)

	_, ok = KeyFromWorld(-101, 0, 0, 100)
	assert.False(t, ok)
	_, ok = KeyFromWorld(float32(math.NaN()), 0, 0, 100)
	assert.False(t, ok)
	_, ok = KeyFromWorld(0, float32(math.Inf(1)), 0, 100)
	assert.False(t, ok)
	_, ok = KeyFromWorld(0, 0, float32(math.Inf(-1)), 100)
	assert.False(t, ok)

	x, y, z := k.Cell(100)
	assert.Equal(t, []int32{2, -1, -4}, []int32{x, y, z})
	assert.Equal(t, "(102,99,96)", k.String())

	k, ok = KeyFromCell(-3, 0, 5, 100)
	require.True(t, ok)
	assert.Equal(t, Key{97, 100, 105}, k)
}
