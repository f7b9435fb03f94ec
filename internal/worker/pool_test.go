package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPool(t *testing.T) {
	if p := NewPool(5); p.Workers() != 5 {
		t.Errorf("expected 5 workers, got %d", p.Workers())
	}
	if p := NewPool(0); p.Workers() != 1 {
		t.Errorf("expected default 1 worker for 0 input, got %d", p.Workers())
	}
	if p := NewPool(-1); p.Workers() != 1 {
		t.Errorf("expected default 1 worker for negative input, got %d", p.Workers())
	}
}

func TestRun_PreservesOrder(t *testing.T) {
	tasks := make([]Task[int], 20)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			// later tasks finish first
			time.Sleep(time.Duration(20-i) * time.Millisecond)
			return i * i, nil
		}
	}

	got, err := Run(context.Background(), NewPool(5), tasks)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got {
		if v != i*i {
			t.Errorf("result %d: expected %d, got %d", i, i*i, v)
		}
	}
}

func TestRun_Concurrency(t *testing.T) {
	workers := 4
	var current, maxSeen int32
	var mu sync.Mutex

	tasks := make([]Task[struct{}], 30)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			curr := atomic.AddInt32(&current, 1)
			mu.Lock()
			if curr > maxSeen {
				maxSeen = curr
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return struct{}{}, nil
		}
	}

	if _, err := Run(context.Background(), NewPool(workers), tasks); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if maxSeen > int32(workers) {
		t.Errorf("max concurrency %d exceeded workers %d", maxSeen, workers)
	}
}

func TestRun_FirstErrorCancels(t *testing.T) {
	boom := errors.New("read failed")
	var started int32

	tasks := make([]Task[int], 50)
	for i := range tasks {
		i := i
		tasks[i] = func(ctx context.Context) (int, error) {
			atomic.AddInt32(&started, 1)
			if i == 0 {
				return 0, boom
			}
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(20 * time.Millisecond):
				return i, nil
			}
		}
	}

	_, err := Run(context.Background(), NewPool(1), tasks)
	if !errors.Is(err, boom) {
		t.Fatalf("expected first error, got %v", err)
	}
	if n := atomic.LoadInt32(&started); n == int32(len(tasks)) {
		t.Errorf("expected remaining tasks to be skipped, all %d started", n)
	}
}

func TestRun_Empty(t *testing.T) {
	got, err := Run[int](context.Background(), NewPool(3), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("expected empty result, got %v %v", got, err)
	}
}

func TestRun_ParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task[int]{func(ctx context.Context) (int, error) { return 1, nil }}
	if _, err := Run(ctx, NewPool(1), tasks); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
