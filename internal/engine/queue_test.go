package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkQueue_FIFO(t *testing.T) {
	q := newWorkQueue[int]()
	for i := 1; i <= 3; i++ {
		require.True(t, q.Enqueue(i))
	}

	for want := 1; want <= 3; want++ {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestWorkQueue_EnqueueAfterCloseRefused(t *testing.T) {
	q := newWorkQueue[int]()
	q.Close()
	assert.False(t, q.Enqueue(1))
	assert.Equal(t, 0, q.Len())
}

func TestWorkQueue_DrainedOnlyWhenClosedAndEmpty(t *testing.T) {
	q := newWorkQueue[int]()
	assert.False(t, q.Drained(), "open queue is never drained")

	q.Enqueue(1)
	q.Close()
	assert.False(t, q.Drained(), "closed queue still holds an item")

	_, ok := q.TryDequeue()
	require.True(t, ok)
	assert.True(t, q.Drained())
}

func TestWorkQueue_CloseWakesWaiter(t *testing.T) {
	q := newWorkQueue[int]()

	done := make(chan struct{})
	go func() {
		<-q.Wait()
		close(done)
	}()

	q.Close()
	<-done
}

func TestWorkQueue_CloseIdempotent(t *testing.T) {
	q := newWorkQueue[int]()
	q.Close()
	assert.NotPanics(t, q.Close)
}

func TestWorkQueue_ConcurrentProducersSingleConsumer(t *testing.T) {
	q := newWorkQueue[int]()
	const producers, perProducer = 8, 100

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(base*perProducer + i)
			}
		}(p)
	}

	go func() {
		wg.Wait()
		q.Close()
	}()

	seen := make(map[int]bool)
	for {
		v, ok := q.TryDequeue()
		if ok {
			require.False(t, seen[v], "value %d delivered twice", v)
			seen[v] = true
			continue
		}
		if q.Drained() {
			break
		}
		<-q.Wait()
	}

	assert.Len(t, seen, producers*perProducer)
}
