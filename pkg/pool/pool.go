// Package pool 基于 ants 的 worker 池，用于并行执行嵌入与摄取子任务。
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
)

// 池相关错误定义
var (
	// ErrPoolClosed 池已关闭
	ErrPoolClosed = errors.New("pool is closed")

	// ErrPoolOverload 池已满
	ErrPoolOverload = errors.New("pool is overloaded")
)

// Type defines the type of worker pool.
type Type string

const (
	// EmbedPool 嵌入批次并行池
	EmbedPool Type = "embed"
	// IngestPool 文档摄取后台池
	IngestPool Type = "ingest"
)

// Config defines the configuration for the worker pool.
type Config struct {
	// Capacity 池容量（最大并发 goroutine 数）
	Capacity int
	// ExpiryDuration goroutine 空闲过期时间
	ExpiryDuration time.Duration
	// PreAlloc 是否预分配内存
	PreAlloc bool
	// Nonblocking 提交任务是否非阻塞（若池满则返回错误）
	Nonblocking bool
	// MaxBlockingTasks 当 Nonblocking=false 时，最大等待任务数（0 表示无限制）
	MaxBlockingTasks int
}

// EmbedPoolConfig 返回嵌入池配置。
// 并发度受嵌入服务吞吐限制，不宜过大。
func EmbedPoolConfig() *Config {
	return &Config{
		Capacity:         8,
		ExpiryDuration:   30 * time.Second,
		PreAlloc:         true,
		Nonblocking:      false,
		MaxBlockingTasks: 0,
	}
}

// IngestPoolConfig 返回摄取池配置。
func IngestPoolConfig() *Config {
	return &Config{
		Capacity:         32,
		ExpiryDuration:   60 * time.Second,
		PreAlloc:         false,
		Nonblocking:      false,
		MaxBlockingTasks: 256,
	}
}

// Pool represents a worker pool.
type Pool struct {
	name   string
	typ    Type
	pool   *ants.Pool
	config *Config
	stats  *statsCounter
	closed atomic.Bool
	mu     sync.Mutex
}

// statsCounter 内部统计计数器
type statsCounter struct {
	SubmittedTasks atomic.Int64
	CompletedTasks atomic.Int64
	FailedTasks    atomic.Int64
	RejectedTasks  atomic.Int64
	PanicRecovered atomic.Int64
}

// Stats contains statistics about the worker pool.
type Stats struct {
	SubmittedTasks int64
	CompletedTasks int64
	FailedTasks    int64
	RejectedTasks  int64
	PanicRecovered int64
}

// New creates a new worker pool with the given configuration.
func New(name string, typ Type, config *Config) (*Pool, error) {
	if config == nil {
		config = EmbedPoolConfig()
	}

	p := &Pool{
		name:   name,
		typ:    typ,
		config: config,
		stats:  &statsCounter{},
	}

	opts := []ants.Option{
		ants.WithExpiryDuration(config.ExpiryDuration),
		ants.WithPreAlloc(config.PreAlloc),
		ants.WithNonblocking(config.Nonblocking),
		ants.WithMaxBlockingTasks(config.MaxBlockingTasks),
		ants.WithPanicHandler(func(r interface{}) {
			logger.Errorw("Worker panic recovered", "pool", name, "panic", r)
		}),
	}

	pool, err := ants.NewPool(config.Capacity, opts...)
	if err != nil {
		return nil, fmt.Errorf("create ants pool: %w", err)
	}
	p.pool = pool

	logger.Infow("Worker pool created",
		"name", name,
		"capacity", config.Capacity,
		"preAlloc", config.PreAlloc,
	)

	return p, nil
}

// Name 返回池名称
func (p *Pool) Name() string { return p.name }

// Type 返回池类型
func (p *Pool) Type() Type { return p.typ }

// Cap 返回池容量
func (p *Pool) Cap() int { return p.pool.Cap() }

// Running 返回正在运行的 goroutine 数量
func (p *Pool) Running() int { return p.pool.Running() }

// Free 返回可用 goroutine 数量
func (p *Pool) Free() int { return p.pool.Free() }

// Submit 提交任务到池中执行
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	err := p.pool.Submit(func() {
		p.stats.SubmittedTasks.Add(1)

		defer func() {
			if r := recover(); r != nil {
				p.stats.PanicRecovered.Add(1)
				p.stats.FailedTasks.Add(1)
				panic(r)
			}
			p.stats.CompletedTasks.Add(1)
		}()

		task()
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			p.stats.RejectedTasks.Add(1)
			return ErrPoolOverload
		}
		p.stats.FailedTasks.Add(1)
		return err
	}

	return nil
}

// Each 并行执行一组任务并等待全部结束。
// 返回第一个非 nil 错误；上下文取消时跳过尚未开始的任务。
func (p *Pool) Each(ctx context.Context, tasks []func() error) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	record := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	for _, task := range tasks {
		select {
		case <-ctx.Done():
			record(ctx.Err())
		default:
		}
		if failed() {
			break
		}

		task := task
		wg.Add(1)
		if err := p.Submit(func() {
			defer wg.Done()
			record(task())
		}); err != nil {
			wg.Done()
			record(err)
			break
		}
	}

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return firstErr
}

// Release 关闭池并释放资源
func (p *Pool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return
	}

	p.closed.Store(true)
	p.pool.Release()
	logger.Infow("Worker pool released", "name", p.name)
}

// ReleaseTimeout 带超时关闭池，等待任务完成直到超时。
func (p *Pool) ReleaseTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return nil
	}

	p.closed.Store(true)
	return p.pool.ReleaseTimeout(timeout)
}

// Stats 返回池统计信息快照
func (p *Pool) Stats() Stats {
	return Stats{
		SubmittedTasks: p.stats.SubmittedTasks.Load(),
		CompletedTasks: p.stats.CompletedTasks.Load(),
		FailedTasks:    p.stats.FailedTasks.Load(),
		RejectedTasks:  p.stats.RejectedTasks.Load(),
		PanicRecovered: p.stats.PanicRecovered.Load(),
	}
}
