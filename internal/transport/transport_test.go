package transport

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandQueuePushPopOrder(t *testing.T) {
	q := NewCommandQueue[float32](4)
	assert.True(t, q.Push(Command[float32]{ID: 1, Kind: CommandAddNode}))
	assert.True(t, q.Push(Command[float32]{ID: 2, Kind: CommandRemoveNode}))

	c1, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, MessageID(1), c1.ID)

	c2, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, MessageID(2), c2.ID)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestCommandQueueDropsWhenFull(t *testing.T) {
	q := NewCommandQueue[float32](2)
	assert.True(t, q.Push(Command[float32]{ID: 1}))
	assert.True(t, q.Push(Command[float32]{ID: 2}))
	assert.False(t, q.Push(Command[float32]{ID: 3}))
	assert.Equal(t, 2, q.Len())
}

func TestStatusQueueConcurrentProducerConsumer(t *testing.T) {
	q := NewStatusQueue(64)
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !q.Push(StatusMessage{ID: MessageID(i), Kind: StatusAck}) {
			}
		}
	}()

	seen := 0
	for seen < n {
		if _, ok := q.Pop(); ok {
			seen++
		}
	}
	wg.Wait()
	assert.Equal(t, n, seen)
}
