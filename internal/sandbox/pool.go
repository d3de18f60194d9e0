package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("sandbox pool is closed")
	ErrTimeout    = errors.New("sandbox acquisition timeout")
)

// PoolConfig sizes a Pool.
type PoolConfig struct {
	Size int           // Runtimes created up front
	Wait time.Duration // How long Acquire waits for an idle runtime
}

// DefaultPoolConfig returns the pool settings used when a field is unset.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Size: 4,
		Wait: 5 * time.Second,
	}
}

// Pool hands out isolated runtimes. A released runtime is reset before it is
// reused, so no context binding or global leaks from one script to the next.
// Occupancy is reported to the runtimes' Recorder on every change.
type Pool struct {
	config   Config
	opts     []Option
	idle     chan *Runtime
	size     int
	wait     time.Duration
	recorder Recorder
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates size runtimes sharing config and opts.
func NewPool(config Config, pc PoolConfig, opts ...Option) (*Pool, error) {
	def := DefaultPoolConfig()
	if pc.Size <= 0 {
		pc.Size = def.Size
	}
	if pc.Wait <= 0 {
		pc.Wait = def.Wait
	}

	p := &Pool{
		config: config,
		opts:   opts,
		idle:   make(chan *Runtime, pc.Size),
		size:   pc.Size,
		wait:   pc.Wait,
		logger: zap.NewNop(),
	}
	for i := 0; i < pc.Size; i++ {
		rt, err := New(config, opts...)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create runtime %d of %d: %w", i+1, pc.Size, err)
		}
		p.recorder, p.logger = rt.recorder, rt.logger
		p.idle <- rt
	}
	p.report()
	return p, nil
}

// Acquire takes an idle runtime, waiting at most the pool's wait time.
func (p *Pool) Acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrPoolClosed
	}

	timer := time.NewTimer(p.wait)
	defer timer.Stop()

	select {
	case rt, ok := <-p.idle:
		if !ok {
			return nil, ErrPoolClosed
		}
		p.report()
		return rt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// Release resets rt and returns it to the pool. A runtime that fails to reset
// is replaced by a fresh one.
func (p *Pool) Release(rt *Runtime) error {
	if err := rt.Reset(); err != nil {
		p.logger.Warn("runtime reset failed, replacing", zap.Error(err))
		rt.Close()
		fresh, newErr := New(p.config, p.opts...)
		if newErr != nil {
			return fmt.Errorf("failed to replace runtime after reset error %v: %w", err, newErr)
		}
		rt = fresh
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return rt.Close()
	}
	select {
	case p.idle <- rt:
		p.report()
		return nil
	default:
		// more runtimes released than acquired
		return rt.Close()
	}
}

// Execute runs script on a pooled runtime.
func (p *Pool) Execute(ctx context.Context, script string) (*Result, error) {
	rt, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := p.Release(rt); err != nil {
			p.logger.Error("failed to release runtime", zap.Error(err))
		}
	}()

	return rt.Execute(ctx, script)
}

// Available reports how many runtimes are idle.
func (p *Pool) Available() int {
	return len(p.idle)
}

// Close closes the idle runtimes. Runtimes still checked out are closed when
// they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.idle)
	p.mu.Unlock()

	for rt := range p.idle {
		rt.Close()
	}
	p.report()
	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	available := len(p.idle)
	return map[string]interface{}{
		"size":      p.size,
		"available": available,
		"in_use":    p.size - available,
		"wait_ms":   p.wait.Milliseconds(),
		"closed":    p.closed,
		"bridge":    p.config.ContextBridge,
	}
}

func (p *Pool) report() {
	if p.recorder != nil {
		p.recorder.SetPool(p.size, len(p.idle))
	}
}
