// Package voxel implements the fixed-capacity spatial hash table that maps
// voxel keys to object indices.
//
// Chains are linked through arena indices rather than pointers so the whole
// table flattens into plain uint32 arrays that a shader can walk:
//
//	buckets[hash % len(buckets)] -> slot index -> slots[i].Next -> ... -> None
//
// Capacity is fixed at construction. There is no resize. A freed slot is
// reset to {0, 0, None} rather than all zeros so that every unused Next in
// the flattened arena reads as a chain terminator.
// Accessed only from the game loop goroutine, no locks.
package voxel

import (
	"fmt"
	"math"

	"github.com/polarlab/polarlab/internal/core/arena"
)

// None terminates a chain and marks an empty bucket.
const None = arena.None

// Slot is one arena entry. A free slot has Next == None and zero hash/value.
type Slot struct {
	KeyHash uint32
	Value   uint32
	Next    uint32
}

var emptySlot = Slot{Next: None}

// Table is the chained hash map over a fixed arena.
type Table struct {
	buckets []uint32
	slots   []Slot
	free    *arena.Stack
	block   Key
}

// CheckBlock reports whether Hash is injective over block and never wraps
// uint32. That needs block.X <= block.Y <= block.Z and a largest hash
// value that fits in 32 bits.
func CheckBlock(block Key) error {
	if block.X == 0 || block.Y == 0 || block.Z == 0 {
		return fmt.Errorf("block %s has an empty axis: %w", block, ErrBadBlock)
	}
	if block.X > block.Y || block.Y > block.Z {
		return fmt.Errorf("block %s is not ordered x <= y <= z: %w", block, ErrBadBlock)
	}
	bx, by, bz := uint64(block.X), uint64(block.Y), uint64(block.Z)
	if top := (bx - 1) + by*((by-1)+bz*(bz-1)); top > math.MaxUint32 {
		return fmt.Errorf("block %s hashes past uint32 (%d): %w", block, top, ErrBadBlock)
	}
	return nil
}

// NewTable creates a table with the given arena capacity and bucket count.
// block is the per-axis size of the key space and must pass CheckBlock.
func NewTable(capacity, bucketCount int, block Key) *Table {
	if capacity <= 0 {
		panic(fmt.Sprintf("voxel: invalid capacity %d", capacity))
	}
	if err := CheckBlock(block); err != nil {
		panic(err.Error())
	}
	if bucketCount <= 0 {
		bucketCount = capacity
	}
	t := &Table{
		buckets: make([]uint32, bucketCount),
		slots:   make([]Slot, capacity),
		free:    arena.NewStack(0, uint32(capacity)),
		block:   block,
	}
	for i := range t.buckets {
		t.buckets[i] = None
	}
	for i := range t.slots {
		t.slots[i] = emptySlot
	}
	return t
}

// Hash linearizes k over the block size: x + By*(y + Bz*z).
func (t *Table) Hash(k Key) uint32 {
	return k.X + t.block.Y*(k.Y+t.block.Z*k.Z)
}

func (t *Table) bucket(hash uint32) int {
	return int(hash % uint32(len(t.buckets)))
}

// Valid reports whether k lies inside the configured key space.
func (t *Table) Valid(k Key) bool {
	return k.X < t.block.X && k.Y < t.block.Y && k.Z < t.block.Z
}

// Insert stores the pair (k, v). Re-inserting an identical pair is a no-op
// and reports added == false. ErrTableFull is returned, with the table left
// untouched, when a new slot is needed and none is free.
func (t *Table) Insert(k Key, v uint32) (added bool, err error) {
	hash := t.Hash(k)
	b := t.bucket(hash)

	head := t.buckets[b]
	if head == None {
		idx, ok := t.free.Pop()
		if !ok {
			return false, fmt.Errorf("insert %s -> %d: %w", k, v, ErrTableFull)
		}
		t.slots[idx] = Slot{KeyHash: hash, Value: v, Next: None}
		t.buckets[b] = idx
		return true, nil
	}

	// Walk to the tail, checking every slot (tail included) for the same pair.
	tail := head
	for cur := head; cur != None; cur = t.slots[cur].Next {
		s := t.slots[cur]
		if s.KeyHash == hash && s.Value == v {
			return false, nil
		}
		tail = cur
	}

	idx, ok := t.free.Pop()
	if !ok {
		return false, fmt.Errorf("insert %s -> %d: %w", k, v, ErrTableFull)
	}
	t.slots[idx] = Slot{KeyHash: hash, Value: v, Next: None}
	t.slots[tail].Next = idx
	return true, nil
}

// Remove deletes the pair (k, v) and returns its slot to the free stack.
// ErrKeyNotFound is returned, with no change, when the pair is absent.
func (t *Table) Remove(k Key, v uint32) error {
	hash := t.Hash(k)
	b := t.bucket(hash)

	if t.buckets[b] == None {
		return fmt.Errorf("remove %s -> %d: %w", k, v, ErrKeyNotFound)
	}

	prev := None
	for cur := t.buckets[b]; cur != None; cur = t.slots[cur].Next {
		s := t.slots[cur]
		if s.KeyHash != hash || s.Value != v {
			prev = cur
			continue
		}

		switch {
		case prev == None && s.Next == None:
			// sole element
			t.buckets[b] = None
		case prev == None:
			// first of several
			t.buckets[b] = s.Next
		case s.Next == None:
			// last of several
			t.slots[prev].Next = None
		default:
			// middle
			t.slots[prev].Next = s.Next
		}

		t.slots[cur] = emptySlot
		t.free.Push(cur)
		return nil
	}
	return fmt.Errorf("remove %s -> %d: %w", k, v, ErrKeyNotFound)
}

// Contains reports whether the pair (k, v) is stored.
func (t *Table) Contains(k Key, v uint32) bool {
	hash := t.Hash(k)
	for cur := t.buckets[t.bucket(hash)]; cur != None; cur = t.slots[cur].Next {
		if s := t.slots[cur]; s.KeyHash == hash && s.Value == v {
			return true
		}
	}
	return false
}

// Lookup appends to dst every value stored under k, in chain order.
func (t *Table) Lookup(k Key, dst []uint32) []uint32 {
	hash := t.Hash(k)
	for cur := t.buckets[t.bucket(hash)]; cur != None; cur = t.slots[cur].Next {
		if s := t.slots[cur]; s.KeyHash == hash {
			dst = append(dst, s.Value)
		}
	}
	return dst
}

// Flatten writes every arena slot, in index order, as (hash, value, next)
// triples. dst is reused when large enough. The table is not modified.
func (t *Table) Flatten(dst []uint32) []uint32 {
	n := len(t.slots) * 3
	if cap(dst) < n {
		dst = make([]uint32, n)
	}
	dst = dst[:n]
	for i, s := range t.slots {
		dst[i*3] = s.KeyHash
		dst[i*3+1] = s.Value
		dst[i*3+2] = s.Next
	}
	return dst
}

// Buckets copies the bucket head array into dst.
func (t *Table) Buckets(dst []uint32) []uint32 {
	if cap(dst) < len(t.buckets) {
		dst = make([]uint32, len(t.buckets))
	}
	dst = dst[:len(t.buckets)]
	copy(dst, t.buckets)
	return dst
}

// Slot returns arena entry i.
func (t *Table) Slot(i uint32) Slot { return t.slots[i] }

// Head returns the chain head of the bucket k hashes to.
func (t *Table) Head(k Key) uint32 { return t.buckets[t.bucket(t.Hash(k))] }

// Len is the number of occupied slots.
func (t *Table) Len() int { return len(t.slots) - t.free.Len() }

// Cap is the arena capacity.
func (t *Table) Cap() int { return len(t.slots) }

// Free is the number of unused slots.
func (t *Table) Free() int { return t.free.Len() }

// BucketCount is the number of chain heads.
func (t *Table) BucketCount() int { return len(t.buckets) }

// BlockSize is the per-axis size of the key space.
func (t *Table) BlockSize() Key { return t.block }

// LongestChain is the length of the longest bucket chain.
func (t *Table) LongestChain() int {
	longest := 0
	for _, head := range t.buckets {
		n := 0
		for cur := head; cur != None; cur = t.slots[cur].Next {
			n++
		}
		longest = max(longest, n)
	}
	return longest
}
