package concurrent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkerPool(t *testing.T) {
	const n = 100
	wp := NewWorkerPool[int, int](4, n)
	wp.Start(context.Background(), func(ctx context.Context, job int) int {
		return job * job
	})
	for i := 0; i < n; i++ {
		wp.AddJob(i, i)
	}
	wp.Close()
	wp.Wait()

	got := make([]int, n)
	count := 0
	for res := range wp.CollectResults() {
		got[res.Index] = res.Value
		count++
	}
	assert.Equal(t, n, count)
	for i := 0; i < n; i++ {
		assert.Equal(t, i*i, got[i])
	}
}

func TestWorkerPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wp := NewWorkerPool[int, int](0, 10)
	wp.Start(ctx, func(ctx context.Context, job int) int {
		t.Error("job ran after cancel")
		return job
	})
	for i := 0; i < 10; i++ {
		wp.AddJob(i, i)
	}
	wp.Close()
	wp.Wait()

	count := 0
	for range wp.CollectResults() {
		count++
	}
	assert.Zero(t, count)
}
