package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewWorkerPool_ZeroWorkers(t *testing.T) {
	pool := NewWorkerPool(0)
	if pool.GetStats().Workers <= 0 {
		t.Error("Expected pool to default to at least one worker")
	}
}

func TestWorkerPool_Submit(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	var counter int
	var mu sync.Mutex

	for i := 0; i < 5; i++ {
		if !pool.Submit(context.Background(), func() {
			mu.Lock()
			counter++
			mu.Unlock()
		}) {
			t.Fatal("Submit() returned false on an open pool")
		}
	}

	pool.Wait()

	if counter != 5 {
		t.Errorf("Expected counter to be 5, got %d", counter)
	}
}

func TestWorkerPool_StartOnce(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	pool.Start()
	defer pool.Close()

	var executed atomic.Bool
	pool.Submit(context.Background(), func() { executed.Store(true) })
	pool.Wait()

	if !executed.Load() {
		t.Error("Expected job to be executed")
	}
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	pool.Close()
	pool.Close()

	if pool.Submit(context.Background(), func() {}) {
		t.Error("Submit() should fail on a closed pool")
	}
}

func TestWorkerPool_SubmitHonoursContext(t *testing.T) {
	// Not started: the queue fills up and the next submit has to wait.
	pool := NewWorkerPool(1)
	for i := 0; i < 2; i++ {
		if !pool.Submit(context.Background(), func() {}) {
			t.Fatalf("Submit(%d) should fit in the queue", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if pool.Submit(ctx, func() {}) {
		t.Error("Submit() should give up when the context ends")
	}

	pool.Start()
	pool.Wait()
	pool.Close()

	stats := pool.GetStats()
	if stats.TotalJobs != 2 || stats.CompletedJobs != 2 {
		t.Errorf("stats = %+v, want 2 total and 2 completed", stats)
	}
}

func TestWorkerPool_AtomicCounters(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Start()
	defer pool.Close()

	const numJobs = 20
	var wg sync.WaitGroup

	for i := 0; i < numJobs; i++ {
		pool.Submit(context.Background(), func() {
			for j := 0; j < 1000; j++ {
				_ = j * j
			}
		})
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = pool.GetStats()
			}
		}()
	}

	wg.Wait()
	pool.Wait()

	stats := pool.GetStats()
	if stats.TotalJobs != numJobs {
		t.Errorf("Expected %d total jobs, got %d", numJobs, stats.TotalJobs)
	}
	if stats.CompletedJobs != numJobs {
		t.Errorf("Expected %d completed jobs, got %d", numJobs, stats.CompletedJobs)
	}
	if stats.ActiveWorkers != 0 {
		t.Errorf("Expected 0 active workers after completion, got %d", stats.ActiveWorkers)
	}
}
