package arena

// None marks an absent arena index (empty bucket head, end of chain,
// "no object"). Chosen so it never collides with a real index.
const None = ^uint32(0)

// Stack is a fixed-capacity LIFO of free arena indices.
// The backing array is allocated once; Pop never grows or panics.
type Stack struct {
	items []uint32
	lo    uint32
	hi    uint32
}

// NewStack returns a stack holding every index in [lo, hi).
// Indices are pushed in reverse so that lo pops first.
func NewStack(lo, hi uint32) *Stack {
	if hi < lo {
		hi = lo
	}
	s := &Stack{
		items: make([]uint32, 0, hi-lo),
		lo:    lo,
		hi:    hi,
	}
	for i := hi; i > lo; i-- {
		s.items = append(s.items, i-1)
	}
	return s
}

// Pop removes the most recently freed index. ok is false when empty.
func (s *Stack) Pop() (idx uint32, ok bool) {
	n := len(s.items)
	if n == 0 {
		return None, false
	}
	idx = s.items[n-1]
	s.items = s.items[:n-1]
	return idx, true
}

// Peek returns the index the next Pop would return without removing it.
func (s *Stack) Peek() (uint32, bool) {
	n := len(s.items)
	if n == 0 {
		return None, false
	}
	return s.items[n-1], true
}

// Push returns idx to the stack. Out-of-range indices and pushes beyond
// capacity are ignored and reported as false.
func (s *Stack) Push(idx uint32) bool {
	if idx < s.lo || idx >= s.hi || len(s.items) == cap(s.items) {
		return false
	}
	s.items = append(s.items, idx)
	return true
}

func (s *Stack) Len() int    { return len(s.items) }
func (s *Stack) Cap() int    { return cap(s.items) }
func (s *Stack) Empty() bool { return len(s.items) == 0 }

// Contains reports whether idx is currently free. O(n); used by checks and tests.
func (s *Stack) Contains(idx uint32) bool {
	for _, v := range s.items {
		if v == idx {
			return true
		}
	}
	return false
}
