package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_EvictsOldest(t *testing.T) {
	b := New[int](20)
	for i := 1; i <= 25; i++ {
		b.Push(i)
	}

	assert.Equal(t, 20, b.Len())
	got := b.Slice()
	assert.Equal(t, 6, got[0], "oldest retained value")
	assert.Equal(t, 25, got[len(got)-1], "newest value")
}

func TestBuffer_PartialFill(t *testing.T) {
	b := New[string](3)
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.Slice())

	b.Push("a")
	b.Push("b")
	assert.Equal(t, []string{"a", "b"}, b.Slice())
	assert.Equal(t, 3, b.Cap())
}

func TestBuffer_WrapsExactlyAtCapacity(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)
	b.Push(3)
	assert.Equal(t, []int{1, 2, 3}, b.Slice())

	b.Push(4)
	assert.Equal(t, []int{2, 3, 4}, b.Slice())
}

func TestBuffer_Count(t *testing.T) {
	b := New[int](4)
	for _, v := range []int{1, 2, 2, 3, 2} {
		b.Push(v)
	}
	// 1 evicted; retained 2,2,3,2
	assert.Equal(t, 3, b.Count(func(v int) bool { return v == 2 }))
}

func TestBuffer_Clear(t *testing.T) {
	b := New[int](2)
	b.Push(1)
	b.Push(2)
	b.Push(3)
	b.Clear()

	assert.Equal(t, 0, b.Len())
	b.Push(9)
	assert.Equal(t, []int{9}, b.Slice())
}

func TestNew_MinimumCapacity(t *testing.T) {
	b := New[int](0)
	b.Push(1)
	b.Push(2)
	assert.Equal(t, []int{2}, b.Slice())
}
