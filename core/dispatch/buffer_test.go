package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferOrdersByPickupTime(t *testing.T) {
	b := NewBuffer()
	b.Push(1, 30)
	b.Push(2, 10)
	b.Push(3, 20)
	b.Push(4, 10)
	require.True(t, b.sorted())
	ids := []int{}
	for _, e := range b.list() {
		ids = append(ids, e.TripID)
	}
	// Equal keys keep insertion order.
	assert.Equal(t, []int{2, 4, 3, 1}, ids)

	head, ok := b.Peek()
	require.True(t, ok)
	assert.Equal(t, BufferEntry{TripID: 2, PickupTime: 10}, head)
	popped, _ := b.Pop()
	assert.Equal(t, head, popped)
	assert.Equal(t, 3, b.Len())
}

func TestBufferUpdateKey(t *testing.T) {
	b := NewBuffer()
	b.Push(1, 10)
	b.Push(2, 20)
	b.Push(3, 30)

	require.NoError(t, b.UpdateKey(2, 20, 7, 20))
	assert.Equal(t, []BufferEntry{{1, 10}, {7, 20}, {3, 30}}, b.list())

	require.NoError(t, b.UpdateKey(1, 10, 1, 35))
	assert.Equal(t, []BufferEntry{{7, 20}, {3, 30}, {1, 35}}, b.list())
	assert.True(t, b.sorted())

	assert.Error(t, b.UpdateKey(9, 20, 9, 20))
	assert.Error(t, b.UpdateKey(7, 21, 7, 20))
}

func TestBufferEmpty(t *testing.T) {
	b := NewBuffer()
	_, ok := b.Peek()
	assert.False(t, ok)
	_, ok = b.Pop()
	assert.False(t, ok)
	assert.True(t, b.sorted())
}

func TestOriginQueues(t *testing.T) {
	q := NewOriginQueues()
	p := px(2, 2)
	_, ok := q.Latest(p)
	assert.False(t, ok)

	q.Append(p, OriginEntry{Destination: px(5, 2), TripID: 1})
	q.Append(p, OriginEntry{Destination: px(2, 5), TripID: 2})
	latest, ok := q.Latest(p)
	require.True(t, ok)
	assert.Equal(t, 2, latest.TripID)
	assert.Equal(t, 2, q.Len())

	assert.True(t, q.Replace(p, 1, OriginEntry{Destination: px(3, 3), TripID: 9}))
	assert.False(t, q.Replace(p, 1, OriginEntry{}))
	assert.False(t, q.Remove(p, 1))

	assert.True(t, q.Remove(p, 9))
	assert.True(t, q.Remove(p, 2))
	assert.False(t, q.Remove(p, 2))
	assert.Equal(t, 0, q.Len())
}
