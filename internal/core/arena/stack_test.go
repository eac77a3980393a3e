package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_PopOrder(t *testing.T) {
	s := NewStack(1, 5)
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, 4, s.Cap())
	for want := uint32(1); want < 5; want++ {
		got, ok := s.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	got, ok := s.Pop()
	assert.False(t, ok)
	assert.Equal(t, None, got)
}

func TestStack_LIFOReuse(t *testing.T) {
	s := NewStack(0, 8)
	a, _ := s.Pop()
	b, _ := s.Pop()
	c, _ := s.Pop()
	assert.True(t, s.Push(a))
	assert.True(t, s.Push(c))
	got, _ := s.Pop()
	assert.Equal(t, c, got)
	got, _ = s.Pop()
	assert.Equal(t, a, got)
	assert.False(t, s.Contains(b))
}

func TestStack_PushBounds(t *testing.T) {
	s := NewStack(1, 3)
	assert.False(t, s.Push(0), "below range")
	assert.False(t, s.Push(3), "above range")
	assert.False(t, s.Push(1), "already full")
	_, _ = s.Pop()
	assert.True(t, s.Push(1))
	idx, ok := s.Peek()
	assert.True(t, ok)
	assert.Equal(t, uint32(1), idx)
}

func TestStack_Empty(t *testing.T) {
	s := NewStack(4, 4)
	assert.True(t, s.Empty())
	_, ok := s.Peek()
	assert.False(t, ok)
}
