package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	p, err := New("test", EmbedPool, EmbedPoolConfig())
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	if p.Name() != "test" {
		t.Errorf("池名称不匹配: 期望 test, 实际 %s", p.Name())
	}

	if p.Cap() != 8 {
		t.Errorf("池容量不匹配: 期望 8, 实际 %d", p.Cap())
	}
}

func TestPoolSubmit(t *testing.T) {
	p, err := New("test", EmbedPool, &Config{
		Capacity:       10,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		})
		if err != nil {
			t.Errorf("提交任务失败: %v", err)
			wg.Done()
		}
	}

	wg.Wait()

	if counter.Load() != 100 {
		t.Errorf("任务执行数不匹配: 期望 100, 实际 %d", counter.Load())
	}
}

func TestPoolEach(t *testing.T) {
	p, err := New("test", EmbedPool, &Config{
		Capacity:       4,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var counter atomic.Int32
	tasks := make([]func() error, 20)
	for i := range tasks {
		tasks[i] = func() error {
			counter.Add(1)
			return nil
		}
	}

	if err := p.Each(context.Background(), tasks); err != nil {
		t.Fatalf("并行执行失败: %v", err)
	}

	if counter.Load() != 20 {
		t.Errorf("任务执行数不匹配: 期望 20, 实际 %d", counter.Load())
	}
}

func TestPoolEachFirstError(t *testing.T) {
	p, err := New("test", EmbedPool, &Config{
		Capacity:       2,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	boom := errors.New("boom")
	tasks := []func() error{
		func() error { return nil },
		func() error { return boom },
		func() error { return nil },
	}

	if err := p.Each(context.Background(), tasks); !errors.Is(err, boom) {
		t.Errorf("错误不匹配: 期望 boom, 实际 %v", err)
	}
}

func TestPoolEachContextCancelled(t *testing.T) {
	p, err := New("test", EmbedPool, &Config{
		Capacity:       2,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []func() error{
		func() error { return nil },
	}

	if err := p.Each(ctx, tasks); !errors.Is(err, context.Canceled) {
		t.Errorf("错误不匹配: 期望 context.Canceled, 实际 %v", err)
	}
}

func TestPoolSubmitAfterRelease(t *testing.T) {
	p, err := New("test", IngestPool, IngestPoolConfig())
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}

	p.Release()

	if err := p.Submit(func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("错误不匹配: 期望 ErrPoolClosed, 实际 %v", err)
	}
}

func TestPoolStats(t *testing.T) {
	p, err := New("test", EmbedPool, &Config{
		Capacity:       4,
		ExpiryDuration: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("创建池失败: %v", err)
	}
	defer p.Release()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		_ = p.Submit(func() {
			defer wg.Done()
		})
	}
	wg.Wait()

	stats := p.Stats()
	if stats.CompletedTasks != 10 {
		t.Errorf("完成任务数不匹配: 期望 10, 实际 %d", stats.CompletedTasks)
	}
}
