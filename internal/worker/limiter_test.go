package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

const (
	batches = "companyData/demo/demo/AppleSamples/batches"
	counts  = "companyData/demo/demo/AppleCounts/counts"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, batches, 1); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, counts, 1); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_WaitLargerThanBurst(t *testing.T) {
	limiter := NewLimiter(1000, 2)

	start := time.Now()
	if err := limiter.Wait(context.Background(), counts, 7); err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("batch wait took too long: %v", time.Since(start))
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	_ = limiter.Wait(context.Background(), batches, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, batches, 1); err == nil {
		t.Error("expected wait to fail once the context expires")
	} else if errors.Is(err, context.Canceled) {
		t.Errorf("unexpected cancellation error %v", err)
	}
}

func TestLimiter_PerCollection(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if err := limiter.Wait(context.Background(), batches, 1); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, batches, 1); err == nil {
		t.Error("expected the exhausted collection to be throttled")
	}
	if err := limiter.Wait(ctx, counts, 1); err != nil {
		t.Errorf("other collection throttled: %v", err)
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 100; i++ {
		if err := limiter.Wait(ctx, batches, 3); err != nil {
			t.Fatalf("write %d throttled with throttling disabled: %v", i, err)
		}
	}
}
