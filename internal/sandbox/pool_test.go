package sandbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu         sync.Mutex
	installs   map[string]int
	ops        map[string]int
	executions map[string]int
	available  []int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		installs:   make(map[string]int),
		ops:        make(map[string]int),
		executions: make(map[string]int),
	}
}

func (f *fakeRecorder) SnapshotInstalled(mode string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installs[mode]++
}

func (f *fakeRecorder) OpCompleted(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops[op]++
}

func (f *fakeRecorder) RecordExecution(status string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executions[status]++
}

func (f *fakeRecorder) SetPool(size, available int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available = append(f.available, available)
}

func TestPoolResetDropsContext(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), PoolConfig{Size: 1})
	require.NoError(t, err)
	defer pool.Close()

	ctx := context.Background()
	_, err = pool.Execute(ctx, `
		globalThis.als = new (require('async_hooks').AsyncLocalStorage)();
		als.enterWith('leaked');
	`)
	require.NoError(t, err)

	result, err := pool.Execute(ctx, `typeof als`)
	require.NoError(t, err)
	assert.Equal(t, "undefined", result.Value)
	assert.Equal(t, 1, pool.Available())
}

func TestPoolConcurrentExecute(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), PoolConfig{Size: 2})
	require.NoError(t, err)
	defer pool.Close()

	var wg sync.WaitGroup
	results := make([]interface{}, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := pool.Execute(context.Background(), `
				const { AsyncLocalStorage } = require('async_hooks');
				const als = new AsyncLocalStorage();
				new Promise((resolve) => als.run('job', () => setTimeout(() => resolve(als.getStore()), 1)))
			`)
			errs[i] = err
			if res != nil {
				results[i] = res.Value
			}
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "job", results[i])
	}
}

func TestPoolAcquireTimeout(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), PoolConfig{Size: 1, Wait: 10 * time.Millisecond})
	require.NoError(t, err)
	defer pool.Close()

	rt, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer pool.Release(rt)

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRecorderReceivesEvents(t *testing.T) {
	rec := newFakeRecorder()
	pool, err := NewPool(DefaultConfig(), PoolConfig{Size: 1}, WithRecorder(rec))
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Execute(context.Background(), `
		const { AsyncLocalStorage } = require('async_hooks');
		const als = new AsyncLocalStorage();
		als.run('x', () => new TextDecoder().decode(new TextEncoder().encode('hi')));
	`)
	require.NoError(t, err)
	_, err = pool.Execute(context.Background(), `throw new Error('fail')`)
	require.Error(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.executions["ok"])
	assert.Equal(t, 1, rec.executions["error"])
	assert.GreaterOrEqual(t, rec.installs["embedder"], 2)
	assert.Equal(t, 1, rec.ops["textEncoder/encode"])
	assert.Equal(t, 1, rec.ops["textEncoder/decode"])
	// created, then acquired and released twice
	assert.Equal(t, []int{1, 0, 1, 0, 1}, rec.available)
}

func TestPoolDefaults(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), PoolConfig{})
	require.NoError(t, err)
	defer pool.Close()

	stats := pool.Stats()
	assert.Equal(t, 4, stats["size"])
	assert.Equal(t, int64(5000), stats["wait_ms"])
	assert.Equal(t, 4, pool.Available())
}

func TestPoolReleaseAfterClose(t *testing.T) {
	rec := newFakeRecorder()
	pool, err := NewPool(DefaultConfig(), PoolConfig{Size: 1}, WithRecorder(rec))
	require.NoError(t, err)

	rt, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	require.NoError(t, pool.Release(rt))
	assert.Equal(t, 0, pool.Available())
	_, err = rt.Execute(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolReleaseExtraRuntime(t *testing.T) {
	pool, err := NewPool(DefaultConfig(), PoolConfig{Size: 1})
	require.NoError(t, err)
	defer pool.Close()

	extra, err := New(DefaultConfig())
	require.NoError(t, err)

	// the pool is already full, so the extra runtime is closed instead of blocking
	require.NoError(t, pool.Release(extra))
	assert.Equal(t, 1, pool.Available())
	_, err = extra.Execute(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
}
